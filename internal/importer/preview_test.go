package importer

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-ofx-import-service/internal/categorizer"
	"golang-ofx-import-service/internal/matcher"
	"golang-ofx-import-service/internal/models"
	"golang-ofx-import-service/internal/parsers"
	"golang-ofx-import-service/internal/storage"
	"golang-ofx-import-service/internal/validator"
	"golang-ofx-import-service/pkg/errors"
)

const previewAccountID = "acct-1"

func newTestStore() *storage.MemoryStore {
	store := storage.NewMemoryStore()
	store.AddBankAccount(models.BankAccount{ID: previewAccountID, Name: "Checking", IsActive: true})
	store.AddCategory(models.Category{ID: "cat-expense", Name: "Expenses", Type: models.CategoryTypeExpense})
	store.AddCategory(models.Category{ID: "cat-income", Name: "Income", Type: models.CategoryTypeIncome})
	return store
}

func newTestBuilder(t *testing.T, store *storage.MemoryStore) *PreviewBuilder {
	t.Helper()
	detector, err := matcher.NewDetector(store, nil)
	require.NoError(t, err)
	return NewPreviewBuilder(store, detector, validator.New(), categorizer.New(nil))
}

func parsedResult(txns ...models.OFXTransaction) *parsers.ParseResult {
	return &parsers.ParseResult{
		Success:      true,
		Format:       models.FormatSGML,
		Version:      models.Version1,
		Transactions: txns,
	}
}

func previewTxn(id, amount, description string) models.OFXTransaction {
	return models.OFXTransaction{
		TransactionID: id,
		AccountID:     previewAccountID,
		Date:          time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		Amount:        decimal.RequireFromString(amount),
		Description:   description,
		Type:          "DEBIT",
	}
}

func TestBuildPreviewHappyPath(t *testing.T) {
	store := newTestStore()
	builder := newTestBuilder(t, store)

	preview := builder.BuildPreview(context.Background(),
		parsedResult(previewTxn("T1", "-45.50", "COFFEE SHOP")), previewAccountID)

	require.True(t, preview.Success)
	require.Len(t, preview.Transactions, 1)

	entry := preview.Transactions[0]
	assert.True(t, entry.IsValid)
	assert.False(t, entry.IsDuplicate)
	assert.Equal(t, models.ActionImport, entry.RecommendedAction)
	assert.True(t, entry.Categorization.IsAutomaticallyCategorized)

	assert.Equal(t, 1, preview.Summary.TotalTransactions)
	assert.Equal(t, 1, preview.Summary.ValidTransactions)
	assert.Equal(t, 1, preview.Summary.UniqueTransactions)
	assert.Equal(t, 1, preview.Summary.CategorizedTransactions)
}

func TestBuildPreviewExactDuplicateRecommendsSkip(t *testing.T) {
	store := newTestStore()
	store.SeedRawTransaction(models.RawTransaction{
		ID:                  "raw-1",
		BankAccountID:       previewAccountID,
		SourceTransactionID: "T1",
		Date:                time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		Amount:              decimal.RequireFromString("-45.50"),
		Description:         "COFFEE SHOP",
	})
	builder := newTestBuilder(t, store)

	preview := builder.BuildPreview(context.Background(),
		parsedResult(previewTxn("T1", "-45.50", "COFFEE SHOP")), previewAccountID)

	require.True(t, preview.Success)
	entry := preview.Transactions[0]
	assert.True(t, entry.IsDuplicate)
	assert.Equal(t, models.ActionSkip, entry.RecommendedAction)
	assert.Equal(t, 1, preview.Summary.DuplicateTransactions)
}

func TestBuildPreviewFuzzyDuplicateRecommendsReview(t *testing.T) {
	store := newTestStore()
	store.SeedRawTransaction(models.RawTransaction{
		ID:                  "raw-1",
		BankAccountID:       previewAccountID,
		SourceTransactionID: "OTHER-ID",
		Date:                time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC),
		Amount:              decimal.RequireFromString("-45.50"),
		Description:         "COFFEE SHOP",
	})
	builder := newTestBuilder(t, store)

	preview := builder.BuildPreview(context.Background(),
		parsedResult(previewTxn("T1", "-45.50", "COFFEE SHOP")), previewAccountID)

	entry := preview.Transactions[0]
	assert.True(t, entry.IsDuplicate)
	assert.False(t, entry.DuplicateMatches[0].IsExactMatch)
	assert.Equal(t, models.ActionReview, entry.RecommendedAction)
}

func TestBuildPreviewInvalidTransactionRecommendsReview(t *testing.T) {
	store := newTestStore()
	builder := newTestBuilder(t, store)

	broken := previewTxn("", "-10.00", "NO ID")
	preview := builder.BuildPreview(context.Background(), parsedResult(broken), previewAccountID)

	require.True(t, preview.Success)
	entry := preview.Transactions[0]
	assert.False(t, entry.IsValid)
	assert.Equal(t, models.ActionReview, entry.RecommendedAction)
	assert.Equal(t, 1, preview.Summary.InvalidTransactions)
}

func TestBuildPreviewUnknownAccount(t *testing.T) {
	builder := newTestBuilder(t, newTestStore())

	preview := builder.BuildPreview(context.Background(),
		parsedResult(previewTxn("T1", "-1.00", "X")), "missing-account")

	assert.False(t, preview.Success)
	assert.Empty(t, preview.Transactions)
	require.Len(t, preview.Errors, 1)
	assert.Equal(t, errors.CodeAccountNotFound, preview.Errors[0].Code)
}

func TestBuildPreviewInactiveAccount(t *testing.T) {
	store := newTestStore()
	store.AddBankAccount(models.BankAccount{ID: "frozen", Name: "Frozen", IsActive: false})
	builder := newTestBuilder(t, store)

	preview := builder.BuildPreview(context.Background(),
		parsedResult(previewTxn("T1", "-1.00", "X")), "frozen")

	assert.False(t, preview.Success)
	require.Len(t, preview.Errors, 1)
	assert.Equal(t, errors.CodeAccountInactive, preview.Errors[0].Code)
}

func TestBuildPreviewFailedParseShortCircuits(t *testing.T) {
	builder := newTestBuilder(t, newTestStore())

	parseResult := &parsers.ParseResult{
		Success: false,
		Errors:  []*errors.ImportError{errors.FileFormatError(errors.CodeEmptyFile, "file is empty")},
	}
	preview := builder.BuildPreview(context.Background(), parseResult, previewAccountID)

	assert.False(t, preview.Success)
	assert.Empty(t, preview.Transactions)
	require.Len(t, preview.Errors, 1)
	assert.Equal(t, errors.CodeEmptyFile, preview.Errors[0].Code)
}

func TestBuildPreviewIsIdempotent(t *testing.T) {
	store := newTestStore()
	store.SeedRawTransaction(models.RawTransaction{
		ID:                  "raw-1",
		BankAccountID:       previewAccountID,
		SourceTransactionID: "T1",
		Date:                time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		Amount:              decimal.RequireFromString("-45.50"),
		Description:         "COFFEE SHOP",
	})
	builder := newTestBuilder(t, store)

	input := parsedResult(
		previewTxn("T1", "-45.50", "COFFEE SHOP"),
		previewTxn("T2", "2500.00", "PAYROLL"),
	)

	first := builder.BuildPreview(context.Background(), input, previewAccountID)
	second := builder.BuildPreview(context.Background(), input, previewAccountID)

	assert.Equal(t, first.Summary, second.Summary)
}
