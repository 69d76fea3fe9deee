package parsers

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-ofx-import-service/internal/models"
	"golang-ofx-import-service/pkg/errors"
)

const sgmlStatement = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII

<OFX>
<BANKMSGSRSV1>
<STMTTRNRS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>021000021
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101
<DTEND>20240131
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115
<TRNAMT>-45.50
<FITID>TXN001
<NAME>COFFEE SHOP PURCHASE
<MEMO>CARD 1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240120
<TRNAMT>2500.00
<FITID>TXN002
<NAME>PAYROLL DEPOSIT
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>2454.50
<DTASOF>20240131
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>
`

func TestParseSGMLStatement(t *testing.T) {
	result := NewParser().Parse(sgmlStatement)

	require.True(t, result.Success)
	assert.Equal(t, models.FormatSGML, result.Format)
	assert.Equal(t, models.Version1, result.Version)
	assert.Empty(t, result.Errors)

	require.Len(t, result.Accounts, 1)
	account := result.Accounts[0]
	assert.Equal(t, "1234567890", account.AccountID)
	assert.Equal(t, "021000021", account.BankID)
	assert.Equal(t, models.AccountTypeChecking, account.Type)

	require.Len(t, result.Transactions, 2)

	first := result.Transactions[0]
	assert.Equal(t, "TXN001", first.TransactionID)
	assert.Equal(t, "1234567890", first.AccountID)
	assert.Equal(t, "COFFEE SHOP PURCHASE", first.Description)
	assert.Equal(t, "DEBIT", first.Type)
	assert.Equal(t, "CARD 1234", first.Memo)
	assert.True(t, first.Amount.Equal(decimal.RequireFromString("-45.50")))
	assert.True(t, first.IsDebit())
	assert.Equal(t, "2024-01-15", first.Date.Format("2006-01-02"))

	second := result.Transactions[1]
	assert.Equal(t, "TXN002", second.TransactionID)
	assert.True(t, second.Amount.Equal(decimal.RequireFromString("2500.00")))
	assert.True(t, second.IsCredit())
}

func TestParseSGMLUnclosedTransactionTags(t *testing.T) {
	// Tag-soup files often omit </STMTTRN>; the next sibling bounds the record
	content := `OFXHEADER:100
<OFX>
<BANKMSGSRSV1>
<BANKACCTFROM>
<ACCTID>555
<STMTTRN>
<FITID>A1
<DTPOSTED>20240301
<TRNAMT>-10.00
<NAME>FIRST
<STMTTRN>
<FITID>A2
<DTPOSTED>20240302
<TRNAMT>-20.00
<NAME>SECOND
`
	result := NewParser().Parse(content)

	require.True(t, result.Success)
	require.Len(t, result.Transactions, 2)
	assert.Equal(t, "A1", result.Transactions[0].TransactionID)
	assert.Equal(t, "FIRST", result.Transactions[0].Description)
	assert.Equal(t, "A2", result.Transactions[1].TransactionID)
	assert.Equal(t, "SECOND", result.Transactions[1].Description)
}

func TestParsePartialSuccess(t *testing.T) {
	// The middle record is missing TRNAMT and is dropped without an error
	content := `OFXHEADER:100
<OFX>
<BANKMSGSRSV1>
<BANKACCTFROM>
<ACCTID>777
<STMTTRN>
<FITID>OK1
<DTPOSTED>20240301
<TRNAMT>-10.00
<STMTTRN>
<FITID>BROKEN
<DTPOSTED>20240302
<STMTTRN>
<FITID>OK2
<DTPOSTED>20240303
<TRNAMT>30.00
`
	result := NewParser().Parse(content)

	require.True(t, result.Success)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Transactions, 2)
	assert.Equal(t, "OK1", result.Transactions[0].TransactionID)
	assert.Equal(t, "OK2", result.Transactions[1].TransactionID)
}

func TestParseMalformedAmountRecorded(t *testing.T) {
	content := `OFXHEADER:100
<OFX>
<BANKMSGSRSV1>
<BANKACCTFROM>
<ACCTID>777
<STMTTRN>
<FITID>BAD
<DTPOSTED>20240301
<TRNAMT>not-a-number
`
	result := NewParser().Parse(content)

	require.True(t, result.Success)
	assert.Empty(t, result.Transactions)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, errors.TypeParsing, result.Errors[0].Type)
	assert.Equal(t, errors.CodeInvalidAmount, result.Errors[0].Code)
	assert.True(t, result.Errors[0].Recoverable)
}

func TestParseEmptyFile(t *testing.T) {
	result := NewParser().Parse("   \n  ")

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, errors.CodeEmptyFile, result.Errors[0].Code)
	assert.Equal(t, 2, result.Errors[0].GetExitCode())
}

const xmlStatement = `<?xml version="1.0" encoding="UTF-8"?>
<?OFX OFXHEADER="200" VERSION="211"?>
<OFX>
  <BANKMSGSRSV1>
    <STMTTRNRS>
      <STMTRS>
        <CURDEF>BRL</CURDEF>
        <BANKACCTFROM>
          <BANKID>341</BANKID>
          <ACCTID>98765-4</ACCTID>
          <ACCTTYPE>SAVINGS</ACCTTYPE>
        </BANKACCTFROM>
        <BANKTRANLIST>
          <STMTTRN>
            <TRNTYPE>XFER</TRNTYPE>
            <DTPOSTED>20240229120000[-3:BRT]</DTPOSTED>
            <TRNAMT>-300.25</TRNAMT>
            <FITID>BR001</FITID>
            <NAME>TED ENVIADA</NAME>
            <MEMO>TRANSFERENCIA</MEMO>
          </STMTTRN>
        </BANKTRANLIST>
      </STMTRS>
    </STMTTRNRS>
  </BANKMSGSRSV1>
</OFX>
`

func TestParseXMLStatement(t *testing.T) {
	result := NewParser().Parse(xmlStatement)

	require.True(t, result.Success)
	assert.Equal(t, models.FormatXML, result.Format)
	assert.Equal(t, models.Version2, result.Version)
	assert.InDelta(t, 0.95, result.Confidence, 0.001)

	require.Len(t, result.Accounts, 1)
	assert.Equal(t, "98765-4", result.Accounts[0].AccountID)
	assert.Equal(t, models.AccountTypeSavings, result.Accounts[0].Type)

	require.Len(t, result.Transactions, 1)
	txn := result.Transactions[0]
	assert.Equal(t, "BR001", txn.TransactionID)
	assert.Equal(t, "98765-4", txn.AccountID)
	assert.Equal(t, "XFER", txn.Type)
	assert.Equal(t, "2024-02-29", txn.Date.Format("2006-01-02"))
	assert.True(t, txn.Amount.Equal(decimal.RequireFromString("-300.25")))
}

func TestParseOrphanTransactionsGetUnknownAccount(t *testing.T) {
	content := `OFXHEADER:100
<OFX>
<BANKMSGSRSV1>
<STMTTRN>
<FITID>NOACCT
<DTPOSTED>20240301
<TRNAMT>-5.00
`
	result := NewParser().Parse(content)

	require.True(t, result.Success)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, models.UnknownAccountID, result.Transactions[0].AccountID)

	require.Len(t, result.Accounts, 1)
	assert.Equal(t, models.UnknownAccountID, result.Accounts[0].AccountID)
}

func TestParseCreditCardStatement(t *testing.T) {
	content := `OFXHEADER:100
<OFX>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<CCSTMTRS>
<CCACCTFROM>
<ACCTID>4111-XXXX
</CCACCTFROM>
<BANKTRANLIST>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240310
<TRNAMT>-99.90
<FITID>CC01
<NAME>STREAMING SERVICE
</STMTTRN>
</BANKTRANLIST>
`
	result := NewParser().Parse(content)

	require.True(t, result.Success)
	require.Len(t, result.Accounts, 1)
	assert.Equal(t, models.AccountTypeCreditCard, result.Accounts[0].Type)

	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "4111-XXXX", result.Transactions[0].AccountID)
}
