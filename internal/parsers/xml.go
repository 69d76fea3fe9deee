package parsers

import (
	"encoding/xml"
	"io"
	"strings"

	"golang-ofx-import-service/internal/models"
	"golang-ofx-import-service/pkg/errors"
	"golang-ofx-import-service/pkg/logger"
)

// xmlStrategy extracts accounts and transactions from well-formed OFX 2.x
// files with a streaming token walk. When the decoder chokes partway through
// (files that claim to be 2.x but carry 1.x quirks are common) it falls back
// to the tag-soup scanner, which handles both shapes.
type xmlStrategy struct {
	log logger.Logger
}

func newXMLStrategy() *xmlStrategy {
	return &xmlStrategy{log: logger.GetGlobalLogger().WithComponent("parser.xml")}
}

// accountBlockTags maps account container elements to their default type
var accountBlockTags = map[string]models.AccountType{
	"BANKACCTFROM": models.AccountTypeChecking,
	"CCACCTFROM":   models.AccountTypeCreditCard,
	"INVACCTFROM":  models.AccountTypeInvestment,
}

func (s *xmlStrategy) extract(content string) ([]models.OFXAccount, []models.OFXTransaction, []*errors.ImportError) {
	accounts, transactions, err := s.walkTokens(content)
	if err == nil {
		return accounts, transactions, nil
	}

	s.log.WithError(err).Warn("XML token walk failed, falling back to tag scan")
	fallback := &sgmlStrategy{}
	accounts, transactions, parseErrors := fallback.extract(content)
	return accounts, transactions, parseErrors
}

func (s *xmlStrategy) walkTokens(content string) ([]models.OFXAccount, []models.OFXTransaction, error) {
	decoder := xml.NewDecoder(strings.NewReader(content))

	var (
		accounts     []models.OFXAccount
		transactions []models.OFXTransaction

		currentAccountID string

		blockTag    string // open record container, empty outside one
		blockFields map[string]string
		fieldTag    string // open leaf element inside a record
	)

	flushBlock := func() {
		switch blockTag {
		case "BANKACCTFROM", "CCACCTFROM", "INVACCTFROM":
			if account, ok := buildAccount(blockTag, blockFields); ok {
				accounts = append(accounts, account)
				currentAccountID = account.AccountID
			}
		case "STMTTRN", "CCSTMTTRN":
			if txn, ok := buildStatementFields(blockFields); ok {
				txn.AccountID = currentAccountID
				transactions = append(transactions, *txn)
			}
		case "INVTRAN":
			if txn, ok := buildInvestmentFields(blockFields); ok {
				txn.AccountID = currentAccountID
				transactions = append(transactions, *txn)
			}
		}
		blockTag = ""
		blockFields = nil
		fieldTag = ""
	}

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			name := strings.ToUpper(t.Name.Local)
			if blockTag == "" {
				if _, isAccount := accountBlockTags[name]; isAccount || name == "STMTTRN" || name == "CCSTMTTRN" || name == "INVTRAN" {
					blockTag = name
					blockFields = make(map[string]string)
					continue
				}
			} else {
				fieldTag = name
			}
		case xml.EndElement:
			name := strings.ToUpper(t.Name.Local)
			if name == blockTag {
				flushBlock()
			} else if name == fieldTag {
				fieldTag = ""
			}
		case xml.CharData:
			if blockTag != "" && fieldTag != "" {
				blockFields[fieldTag] += strings.TrimSpace(string(t))
			}
		}
	}

	return accounts, transactions, nil
}

// buildAccount maps a completed account container to an OFXAccount. Blocks
// without an ACCTID are dropped.
func buildAccount(blockTag string, fields map[string]string) (models.OFXAccount, bool) {
	acctID := fields["ACCTID"]
	if acctID == "" {
		return models.OFXAccount{}, false
	}

	account := models.OFXAccount{
		AccountID:     acctID,
		AccountNumber: acctID,
		Type:          accountBlockTags[blockTag],
	}

	bankID := fields["BANKID"]
	if bankID == "" {
		bankID = fields["BROKERID"]
	}
	account.BankID = bankID
	account.RoutingNumber = bankID

	if rawType := fields["ACCTTYPE"]; rawType != "" {
		account.Type = models.ParseAccountType(rawType)
	}
	return account, true
}

// buildStatementFields maps a completed STMTTRN/CCSTMTTRN container. Records
// missing any of id, date, or amount are dropped without an error.
func buildStatementFields(fields map[string]string) (*models.OFXTransaction, bool) {
	fitID := fields["FITID"]
	rawDate := fields["DTPOSTED"]
	rawAmount := fields["TRNAMT"]
	if fitID == "" || rawDate == "" || rawAmount == "" {
		return nil, false
	}

	date, ok := ParseOFXDate(rawDate)
	if !ok {
		return nil, false
	}
	amount, err := models.ParseAmount(rawAmount)
	if err != nil {
		return nil, false
	}

	txnType := fields["TRNTYPE"]
	if txnType == "" {
		txnType = "OTHER"
	}

	return &models.OFXTransaction{
		TransactionID: fitID,
		Date:          date,
		Amount:        amount,
		Description:   fields["NAME"],
		Type:          txnType,
		CheckNumber:   fields["CHECKNUM"],
		Memo:          fields["MEMO"],
	}, true
}

// buildInvestmentFields maps a completed INVTRAN container
func buildInvestmentFields(fields map[string]string) (*models.OFXTransaction, bool) {
	fitID := fields["FITID"]
	rawDate := fields["DTTRADE"]
	if rawDate == "" {
		rawDate = fields["DTPOSTED"]
	}
	if fitID == "" || rawDate == "" {
		return nil, false
	}
	date, ok := ParseOFXDate(rawDate)
	if !ok {
		return nil, false
	}

	txn := &models.OFXTransaction{
		TransactionID: fitID,
		Date:          date,
		Type:          "OTHER",
		Description:   fields["MEMO"],
		Memo:          fields["MEMO"],
	}
	if rawTotal := fields["TOTAL"]; rawTotal != "" {
		if amount, err := models.ParseAmount(rawTotal); err == nil {
			txn.Amount = amount
		}
	}
	return txn, true
}
