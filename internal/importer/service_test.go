package importer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-ofx-import-service/internal/models"
)

const serviceStatement = `OFXHEADER:100
DATA:OFXSGML
VERSION:102

<OFX>
<BANKMSGSRSV1>
<STMTTRNRS>
<STMTRS>
<BANKACCTFROM>
<BANKID>001
<ACCTID>12345
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115
<TRNAMT>-45.50
<FITID>SVC001
<NAME>COMPRA SUPERMERCADO
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240120
<TRNAMT>2500.00
<FITID>SVC002
<NAME>SALARIO EMPRESA LTDA
</STMTTRN>
</BANKTRANLIST>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>
`

func TestServiceEndToEnd(t *testing.T) {
	store := newTestStore()
	service, err := NewService(store, nil, nil)
	require.NoError(t, err)

	ctx := context.Background()

	// Parse
	parseResult := service.Parse(serviceStatement)
	require.True(t, parseResult.Success)
	assert.Len(t, parseResult.Transactions, 2)

	// Preview
	preview := service.Preview(ctx, serviceStatement, previewAccountID)
	require.True(t, preview.Success)
	assert.Equal(t, 2, preview.Summary.TotalTransactions)
	assert.Equal(t, 2, preview.Summary.CategorizedTransactions)

	// Import
	result := service.Import(ctx, serviceStatement, previewAccountID, nil)
	require.True(t, result.Success)
	committed, ok := result.Outcome.(Committed)
	require.True(t, ok)
	assert.Len(t, committed.Imported, 2)
	assert.Equal(t, 2, store.RawTransactionCount())

	batch, found := store.GetImportBatch(result.ImportBatchID)
	require.True(t, found)
	assert.Equal(t, models.BatchCompleted, batch.Status)

	// Importing the same statement again finds exact duplicates and skips them
	second := service.Import(ctx, serviceStatement, previewAccountID, nil)
	require.True(t, second.Success)
	committedAgain := second.Outcome.(Committed)
	assert.Empty(t, committedAgain.Imported)
	assert.Len(t, committedAgain.Skipped, 2)
	assert.Equal(t, 2, store.RawTransactionCount())
}

func TestServiceImportFailsForUnknownAccount(t *testing.T) {
	store := newTestStore()
	service, err := NewService(store, nil, nil)
	require.NoError(t, err)

	result := service.Import(context.Background(), serviceStatement, "no-such-account", nil)

	assert.False(t, result.Success)
	_, rolledBack := result.Outcome.(RolledBack)
	assert.True(t, rolledBack)
	assert.Equal(t, 0, store.RawTransactionCount())
}
