package parsers

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang-ofx-import-service/internal/models"
	"golang-ofx-import-service/pkg/errors"
)

// sgmlStrategy extracts accounts and transactions from OFX 1.x tag soup.
// SGML-era files rarely close their tags, so records cannot be walked as a
// tree: each record runs from its opening tag to the next sibling tag of the
// same family or the parent's closing tag, whichever comes first. The
// strategy scans byte offsets instead of attempting a structured parse.
type sgmlStrategy struct{}

// taggedBlock is a record slice of the input together with its position,
// used to associate transactions with the account block that precedes them.
type taggedBlock struct {
	start int
	body  string
}

// findBlocks locates every case-insensitive occurrence of <tag> and cuts a
// block running to the nearest terminator after it.
func findBlocks(content, tag string, terminators []string) []taggedBlock {
	open := regexp.MustCompile(`(?i)<` + tag + `>`)
	starts := open.FindAllStringIndex(content, -1)
	if starts == nil {
		return nil
	}

	termPatterns := make([]*regexp.Regexp, 0, len(terminators))
	for _, t := range terminators {
		termPatterns = append(termPatterns, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(t)))
	}

	blocks := make([]taggedBlock, 0, len(starts))
	for i, loc := range starts {
		bodyStart := loc[1]
		bodyEnd := len(content)

		// The next sibling of the same tag bounds this record
		if i+1 < len(starts) {
			bodyEnd = starts[i+1][0]
		}
		for _, tp := range termPatterns {
			if m := tp.FindStringIndex(content[bodyStart:bodyEnd]); m != nil {
				bodyEnd = bodyStart + m[0]
			}
		}

		blocks = append(blocks, taggedBlock{start: loc[0], body: content[bodyStart:bodyEnd]})
	}
	return blocks
}

// sgmlTagValue reads the value of <tag> inside an SGML block: everything up
// to the next '<', end of line, or end of block.
func sgmlTagValue(block, tag string) string {
	re := regexp.MustCompile(`(?i)<` + tag + `>[ \t]*([^<\r\n]*)`)
	m := re.FindStringSubmatch(block)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// accountBlockSpec describes one account-block family and how to map it
type accountBlockSpec struct {
	tag         string
	terminators []string
	defaultType models.AccountType
	bankIDTag   string
}

var sgmlAccountSpecs = []accountBlockSpec{
	{
		tag:         "BANKACCTFROM",
		terminators: []string{"</BANKACCTFROM>", "<BANKTRANLIST", "<LEDGERBAL", "<AVAILBAL"},
		defaultType: models.AccountTypeChecking,
		bankIDTag:   "BANKID",
	},
	{
		tag:         "CCACCTFROM",
		terminators: []string{"</CCACCTFROM>", "<BANKTRANLIST", "<LEDGERBAL", "<AVAILBAL"},
		defaultType: models.AccountTypeCreditCard,
	},
	{
		tag:         "INVACCTFROM",
		terminators: []string{"</INVACCTFROM>", "<INVTRANLIST", "<INVPOSLIST", "<INVBAL"},
		defaultType: models.AccountTypeInvestment,
		bankIDTag:   "BROKERID",
	},
}

// positionedAccount pairs an extracted account with its offset in the file
type positionedAccount struct {
	start   int
	account models.OFXAccount
}

func (s *sgmlStrategy) extract(content string) ([]models.OFXAccount, []models.OFXTransaction, []*errors.ImportError) {
	var parseErrors []*errors.ImportError

	positioned := s.extractAccounts(content)

	var transactions []models.OFXTransaction

	// Bank and credit card entries share the STMTTRN shape
	for _, tag := range []string{"STMTTRN", "CCSTMTTRN"} {
		blocks := findBlocks(content, tag, []string{"</" + tag + ">", "</BANKTRANLIST>"})
		for _, block := range blocks {
			txn, err := s.buildStatementTransaction(content, block)
			if err != nil {
				parseErrors = append(parseErrors, err)
				continue
			}
			if txn == nil {
				continue // required field absent, dropped without an error
			}
			txn.AccountID = accountIDForOffset(positioned, block.start)
			transactions = append(transactions, *txn)
		}
	}

	// Investment entries only require an id and a trade date
	for _, block := range findBlocks(content, "INVTRAN", []string{"</INVTRAN>", "</INVTRANLIST>"}) {
		txn := s.buildInvestmentTransaction(block)
		if txn == nil {
			continue
		}
		txn.AccountID = accountIDForOffset(positioned, block.start)
		transactions = append(transactions, *txn)
	}

	accounts := make([]models.OFXAccount, 0, len(positioned))
	for _, pa := range positioned {
		accounts = append(accounts, pa.account)
	}

	return accounts, transactions, parseErrors
}

func (s *sgmlStrategy) extractAccounts(content string) []positionedAccount {
	var positioned []positionedAccount

	for _, spec := range sgmlAccountSpecs {
		for _, block := range findBlocks(content, spec.tag, spec.terminators) {
			acctID := sgmlTagValue(block.body, "ACCTID")
			if acctID == "" {
				continue
			}

			account := models.OFXAccount{
				AccountID:     acctID,
				AccountNumber: acctID,
				Type:          spec.defaultType,
			}
			if spec.bankIDTag != "" {
				account.BankID = sgmlTagValue(block.body, spec.bankIDTag)
				account.RoutingNumber = account.BankID
			}
			if rawType := sgmlTagValue(block.body, "ACCTTYPE"); rawType != "" {
				account.Type = models.ParseAccountType(rawType)
			}

			positioned = append(positioned, positionedAccount{start: block.start, account: account})
		}
	}

	sort.Slice(positioned, func(i, j int) bool { return positioned[i].start < positioned[j].start })
	return positioned
}

// buildStatementTransaction maps one STMTTRN/CCSTMTTRN block. A nil result
// with a nil error means a required field was absent and the record is
// dropped silently; an error means the record was present but malformed.
func (s *sgmlStrategy) buildStatementTransaction(content string, block taggedBlock) (*models.OFXTransaction, *errors.ImportError) {
	fitID := sgmlTagValue(block.body, "FITID")
	rawDate := sgmlTagValue(block.body, "DTPOSTED")
	rawAmount := sgmlTagValue(block.body, "TRNAMT")

	if fitID == "" || rawDate == "" || rawAmount == "" {
		return nil, nil
	}

	date, ok := ParseOFXDate(rawDate)
	if !ok {
		return nil, nil
	}

	amount, err := models.ParseAmount(rawAmount)
	if err != nil {
		return nil, errors.ParsingError(errors.CodeInvalidAmount,
			fmt.Sprintf("transaction %s has malformed amount '%s'", fitID, rawAmount)).
			WithLine(lineAt(content, block.start))
	}

	txnType := sgmlTagValue(block.body, "TRNTYPE")
	if txnType == "" {
		txnType = "OTHER"
	}

	return &models.OFXTransaction{
		TransactionID: fitID,
		Date:          date,
		Amount:        amount,
		Description:   sgmlTagValue(block.body, "NAME"),
		Type:          txnType,
		CheckNumber:   sgmlTagValue(block.body, "CHECKNUM"),
		Memo:          sgmlTagValue(block.body, "MEMO"),
	}, nil
}

// buildInvestmentTransaction maps one INVTRAN block. Investment entries have
// no TRNAMT; the amount defaults to zero.
func (s *sgmlStrategy) buildInvestmentTransaction(block taggedBlock) *models.OFXTransaction {
	fitID := sgmlTagValue(block.body, "FITID")
	rawDate := sgmlTagValue(block.body, "DTTRADE")
	if rawDate == "" {
		rawDate = sgmlTagValue(block.body, "DTPOSTED")
	}

	if fitID == "" || rawDate == "" {
		return nil
	}
	date, ok := ParseOFXDate(rawDate)
	if !ok {
		return nil
	}

	txn := &models.OFXTransaction{
		TransactionID: fitID,
		Date:          date,
		Type:          "OTHER",
		Description:   sgmlTagValue(block.body, "MEMO"),
		Memo:          sgmlTagValue(block.body, "MEMO"),
	}
	if rawTotal := sgmlTagValue(block.body, "TOTAL"); rawTotal != "" {
		if amount, err := models.ParseAmount(rawTotal); err == nil {
			txn.Amount = amount
		}
	}
	return txn
}

// accountIDForOffset returns the id of the nearest account block preceding
// the given offset, or empty when none does.
func accountIDForOffset(accounts []positionedAccount, offset int) string {
	id := ""
	for _, pa := range accounts {
		if pa.start > offset {
			break
		}
		id = pa.account.AccountID
	}
	return id
}
