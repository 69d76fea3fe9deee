package categorizer

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-ofx-import-service/internal/models"
)

var testCategories = []models.Category{
	{ID: "cat-income", Name: "Rental Income", Type: models.CategoryTypeIncome},
	{ID: "cat-expense", Name: "General Expenses", Type: models.CategoryTypeExpense},
	{ID: "cat-transfer", Name: "Transfers", Type: models.CategoryTypeTransfer},
}

var testProperties = []models.Property{
	{ID: "prop-1", Code: "APT101", Address: "Rua das Flores 123"},
	{ID: "prop-2", Code: "CASA7", Address: "Av Paulista 900"},
}

func txn(txnType, description, memo, amount string) models.OFXTransaction {
	return models.OFXTransaction{
		TransactionID: "T1",
		Date:          time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Amount:        decimal.RequireFromString(amount),
		Description:   description,
		Memo:          memo,
		Type:          txnType,
	}
}

func TestTransferTypeCode(t *testing.T) {
	result := New(nil).Categorize(txn("XFER", "TED ENVIADA", "", "-300.00"), testCategories, nil)

	require.NotNil(t, result.SuggestedCategory)
	assert.Equal(t, models.CategoryTypeTransfer, result.SuggestedCategory.Type)
	// Type code says transfer, keyword agrees: boosted to the high keyword level
	assert.InDelta(t, ConfidenceKeywordTransferHigh, result.Confidence, 0.001)
	assert.True(t, result.IsAutomaticallyCategorized)
}

func TestIncomeTypeCodeWithPositiveAmount(t *testing.T) {
	result := New(nil).Categorize(txn("CREDIT", "UNREMARKABLE TEXT", "", "2500.00"), testCategories, nil)

	require.NotNil(t, result.SuggestedCategory)
	assert.Equal(t, models.CategoryTypeIncome, result.SuggestedCategory.Type)
	assert.InDelta(t, ConfidenceTypeIncome, result.Confidence, 0.001)
}

func TestExpenseTypeCodeWithNegativeAmount(t *testing.T) {
	result := New(nil).Categorize(txn("DEBIT", "UNREMARKABLE TEXT", "", "-45.50"), testCategories, nil)

	require.NotNil(t, result.SuggestedCategory)
	assert.Equal(t, models.CategoryTypeExpense, result.SuggestedCategory.Type)
	assert.InDelta(t, ConfidenceTypeExpense, result.Confidence, 0.001)
}

func TestAccentedKeywordMatches(t *testing.T) {
	result := New(nil).Categorize(txn("OTHER", "TRANSFERÊNCIA PIX", "", "-100.00"), testCategories, nil)

	require.NotNil(t, result.SuggestedCategory)
	assert.Equal(t, models.CategoryTypeTransfer, result.SuggestedCategory.Type)
}

func TestConsistentKeywordBoostsConfidence(t *testing.T) {
	// DEBIT sets EXPENSE at 0.70, the keyword raises it to 0.80
	result := New(nil).Categorize(txn("DEBIT", "COMPRA SUPERMERCADO", "", "-80.00"), testCategories, nil)

	require.NotNil(t, result.SuggestedCategory)
	assert.Equal(t, models.CategoryTypeExpense, result.SuggestedCategory.Type)
	assert.InDelta(t, ConfidenceKeywordExpenseHigh, result.Confidence, 0.001)
}

func TestSignFallback(t *testing.T) {
	result := New(nil).Categorize(txn("OTHER", "XYZQW", "", "-10.00"), testCategories, nil)

	require.NotNil(t, result.SuggestedCategory)
	assert.Equal(t, models.CategoryTypeExpense, result.SuggestedCategory.Type)
	assert.InDelta(t, ConfidenceSignFallback, result.Confidence, 0.001)
}

func TestSignFallbackRequiresCategoryOfThatType(t *testing.T) {
	incomeOnly := []models.Category{
		{ID: "cat-income", Name: "Income", Type: models.CategoryTypeIncome},
	}
	result := New(nil).Categorize(txn("OTHER", "XYZQW", "", "-10.00"), incomeOnly, nil)

	assert.Nil(t, result.SuggestedCategory)
	assert.False(t, result.IsAutomaticallyCategorized)
}

func TestPropertyMatchByCode(t *testing.T) {
	result := New(nil).Categorize(txn("CREDIT", "ALUGUEL RECEBIDO APT101", "", "1800.00"), testCategories, testProperties)

	require.NotNil(t, result.SuggestedProperty)
	assert.Equal(t, "prop-1", result.SuggestedProperty.ID)
	assert.GreaterOrEqual(t, result.Confidence, ConfidencePropertyFloor)
	assert.Contains(t, result.Reason, "APT101")
}

func TestPropertyMatchByAddress(t *testing.T) {
	result := New(nil).Categorize(txn("OTHER", "pagto av paulista 900", "", "-500.00"), testCategories, testProperties)

	require.NotNil(t, result.SuggestedProperty)
	assert.Equal(t, "prop-2", result.SuggestedProperty.ID)
}

func TestReasonTraceAccumulates(t *testing.T) {
	result := New(nil).Categorize(txn("DEBIT", "COMPRA FARMACIA APT101", "", "-30.00"), testCategories, testProperties)

	parts := strings.Split(result.Reason, " | ")
	assert.GreaterOrEqual(t, len(parts), 2)
}

func TestNoCategoriesAvailable(t *testing.T) {
	result := New(nil).Categorize(txn("DEBIT", "COMPRA", "", "-30.00"), nil, nil)

	assert.Nil(t, result.SuggestedCategory)
	assert.False(t, result.IsAutomaticallyCategorized)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestLoadKeywordsPartialOverride(t *testing.T) {
	yamlDoc := "income:\n  - bonus payout\n"
	keywords, err := LoadKeywords(strings.NewReader(yamlDoc))
	require.NoError(t, err)

	assert.Equal(t, []string{"bonus payout"}, keywords.Income)
	// Sections absent from the file keep the defaults
	assert.NotEmpty(t, keywords.Expense)
	assert.NotEmpty(t, keywords.Transfer)

	result := New(keywords).Categorize(txn("OTHER", "ANNUAL BONUS PAYOUT", "", "5000.00"), testCategories, nil)
	require.NotNil(t, result.SuggestedCategory)
	assert.Equal(t, models.CategoryTypeIncome, result.SuggestedCategory.Type)
}

func TestLoadKeywordsRejectsBadYAML(t *testing.T) {
	_, err := LoadKeywords(strings.NewReader("income: [unterminated"))
	assert.Error(t, err)
}
