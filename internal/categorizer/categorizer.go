// Package categorizer suggests a bookkeeping category and linked property for
// each parsed transaction. The heuristics are pure functions over an explicit
// snapshot of the available categories and properties; no storage access
// happens here. Suggestions are advisory: confidence never blocks an import.
package categorizer

import (
	"fmt"
	"strings"

	"golang-ofx-import-service/internal/models"
)

// Confidence levels assigned by the individual heuristics. Confidence only
// ever rises while the rules run; a weaker rule never downgrades a stronger
// earlier signal.
const (
	ConfidenceTypeTransfer = 0.85
	ConfidenceTypeIncome   = 0.75
	ConfidenceTypeExpense  = 0.70

	ConfidenceKeywordConsistent   = 0.85
	ConfidenceKeywordIncome       = 0.70
	ConfidenceKeywordExpenseHigh  = 0.80
	ConfidenceKeywordExpense      = 0.60
	ConfidenceKeywordTransferHigh = 0.90
	ConfidenceKeywordTransfer     = 0.80

	ConfidenceSignFallback  = 0.55
	ConfidencePropertyFloor = 0.60

	// ReviewedThreshold is the confidence at which an imported transaction is
	// auto-marked reviewed (when a category was also found).
	ReviewedThreshold = 0.8
)

// incomeTypeHints and expenseTypeHints are substrings of the free-form OFX
// TRNTYPE code that indicate the movement direction.
var (
	transferTypeHints = []string{"TRANSFER", "XFER"}
	incomeTypeHints   = []string{"CREDIT", "DEP", "DEPOSIT", "CR", "PAYMENT RECEIVED"}
	expenseTypeHints  = []string{"DEBIT", "DBT", "POS", "ATM", "WITHDRAWAL", "FEE"}
)

// Categorizer applies the categorization heuristics. The zero value is not
// usable; construct with New.
type Categorizer struct {
	keywords *KeywordSet
}

// New creates a categorizer. A nil keyword set uses the built-in bilingual
// defaults.
func New(keywords *KeywordSet) *Categorizer {
	if keywords == nil {
		keywords = DefaultKeywords()
	}
	return &Categorizer{keywords: keywords}
}

// Categorize suggests a category and property for one transaction given a
// snapshot of what is available. The reason field accumulates a
// pipe-separated trace of every rule that fired.
func (c *Categorizer) Categorize(txn models.OFXTransaction, categories []models.Category, properties []models.Property) models.TransactionCategorization {
	result := models.TransactionCategorization{}
	var reasons []string

	raise := func(candidate float64) {
		if candidate > result.Confidence {
			result.Confidence = candidate
		}
	}

	suggest := func(catType models.CategoryType, confidence float64, reason string) {
		category := firstCategoryOfType(categories, catType)
		if category == nil {
			return
		}
		if result.SuggestedCategory == nil || confidence > result.Confidence {
			result.SuggestedCategory = category
		}
		raise(confidence)
		reasons = append(reasons, reason)
	}

	// Rule 1: the source type code
	typeCode := strings.ToUpper(txn.Type)
	switch {
	case containsAny(typeCode, transferTypeHints):
		suggest(models.CategoryTypeTransfer, ConfidenceTypeTransfer,
			fmt.Sprintf("type %q indicates a transfer", txn.Type))
	case txn.IsCredit() && containsAny(typeCode, incomeTypeHints):
		suggest(models.CategoryTypeIncome, ConfidenceTypeIncome,
			fmt.Sprintf("type %q with a positive amount indicates income", txn.Type))
	case txn.IsDebit() && containsAny(typeCode, expenseTypeHints):
		suggest(models.CategoryTypeExpense, ConfidenceTypeExpense,
			fmt.Sprintf("type %q with a negative amount indicates an expense", txn.Type))
	}

	// Rule 2: description/memo keywords. A keyword consistent with rule 1's
	// pick strengthens it; an inconsistent one competes at lower confidence.
	text := foldText(txn.CombinedText())
	if keyword := firstKeyword(text, c.keywords.Transfer); keyword != "" {
		confidence := ConfidenceKeywordTransfer
		if suggestedType(result) == models.CategoryTypeTransfer {
			confidence = ConfidenceKeywordTransferHigh
		}
		suggest(models.CategoryTypeTransfer, confidence, fmt.Sprintf("transfer keyword %q", keyword))
	} else if keyword := firstKeyword(text, c.keywords.Income); keyword != "" {
		confidence := ConfidenceKeywordIncome
		if suggestedType(result) == models.CategoryTypeIncome {
			confidence = ConfidenceKeywordConsistent
		}
		suggest(models.CategoryTypeIncome, confidence, fmt.Sprintf("income keyword %q", keyword))
	} else if keyword := firstKeyword(text, c.keywords.Expense); keyword != "" {
		confidence := ConfidenceKeywordExpense
		if suggestedType(result) == models.CategoryTypeExpense {
			confidence = ConfidenceKeywordExpenseHigh
		}
		suggest(models.CategoryTypeExpense, confidence, fmt.Sprintf("expense keyword %q", keyword))
	}

	// Rule 3: amount sign, weakest signal, only when nothing else fired
	if result.SuggestedCategory == nil {
		if txn.IsCredit() {
			suggest(models.CategoryTypeIncome, ConfidenceSignFallback, "positive amount")
		} else if txn.IsDebit() {
			suggest(models.CategoryTypeExpense, ConfidenceSignFallback, "negative amount")
		}
	}

	// Rule 4: property code/address substring match, independent of 1-3
	for i := range properties {
		property := &properties[i]
		code := foldText(property.Code)
		address := foldText(property.Address)
		if (code != "" && strings.Contains(text, code)) ||
			(address != "" && strings.Contains(text, address)) {
			result.SuggestedProperty = property
			raise(ConfidencePropertyFloor)
			reasons = append(reasons, fmt.Sprintf("matched property %s", property.Code))
			break
		}
	}

	result.IsAutomaticallyCategorized = result.SuggestedCategory != nil
	result.Reason = strings.Join(reasons, " | ")
	return result
}

func suggestedType(result models.TransactionCategorization) models.CategoryType {
	if result.SuggestedCategory == nil {
		return ""
	}
	return result.SuggestedCategory.Type
}

func firstCategoryOfType(categories []models.Category, catType models.CategoryType) *models.Category {
	for i := range categories {
		if categories[i].Type == catType {
			return &categories[i]
		}
	}
	return nil
}

func containsAny(s string, hints []string) bool {
	for _, hint := range hints {
		if strings.Contains(s, hint) {
			return true
		}
	}
	return false
}
