// Package models defines the domain types shared by the OFX import pipeline:
// parsed statement data, duplicate-match results, categorization outcomes,
// and the persisted record types written by the import executor.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType represents the type of a bank account found in an OFX statement
type AccountType string

const (
	// AccountTypeChecking is the default account type for unrecognized values
	AccountTypeChecking AccountType = "CHECKING"
	// AccountTypeSavings represents a savings account
	AccountTypeSavings AccountType = "SAVINGS"
	// AccountTypeInvestment represents an investment account
	AccountTypeInvestment AccountType = "INVESTMENT"
	// AccountTypeCreditCard represents a credit card account
	AccountTypeCreditCard AccountType = "CREDITCARD"
)

// String returns the string representation of AccountType
func (t AccountType) String() string {
	return string(t)
}

// IsValid checks if the account type is one of the known values
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeInvestment, AccountTypeCreditCard:
		return true
	}
	return false
}

// ParseAccountType maps a raw OFX account type string to an AccountType.
// The match is case-insensitive; unrecognized values default to CHECKING.
func ParseAccountType(s string) AccountType {
	switch AccountType(strings.ToUpper(strings.TrimSpace(s))) {
	case AccountTypeSavings:
		return AccountTypeSavings
	case AccountTypeInvestment:
		return AccountTypeInvestment
	case AccountTypeCreditCard:
		return AccountTypeCreditCard
	default:
		return AccountTypeChecking
	}
}

// UnknownAccountID is the sentinel account id used when a statement carries
// transactions but no account block. Transactions are associated to it rather
// than dropped.
const UnknownAccountID = "UNKNOWN"

// OFXAccount represents an account block extracted from an OFX statement.
// It is ephemeral: it only exists to associate parsed transactions with the
// destination account during preview and import, and is never persisted.
type OFXAccount struct {
	AccountID     string      `json:"accountId"`
	BankID        string      `json:"bankId,omitempty"`
	Type          AccountType `json:"accountType"`
	AccountNumber string      `json:"accountNumber,omitempty"`
	RoutingNumber string      `json:"routingNumber,omitempty"`
}

// String returns a string representation of the OFXAccount
func (a *OFXAccount) String() string {
	return fmt.Sprintf("OFXAccount{ID: %s, Bank: %s, Type: %s}", a.AccountID, a.BankID, a.Type)
}

// OFXTransaction represents a single statement entry produced by the parser.
// Instances are immutable once parsed; downstream stages annotate them through
// wrapper records (TransactionPreview) instead of mutating them.
//
// Sign convention: positive amounts are credits/inflows, negative amounts are
// debits/outflows, regardless of the source file's representation.
type OFXTransaction struct {
	TransactionID string          `json:"transactionId"`
	AccountID     string          `json:"accountId"`
	Date          time.Time       `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	Type          string          `json:"type"`
	CheckNumber   string          `json:"checkNumber,omitempty"`
	Memo          string          `json:"memo,omitempty"`
}

// String returns a string representation of the OFXTransaction
func (t *OFXTransaction) String() string {
	return fmt.Sprintf("OFXTransaction{ID: %s, Amount: %s, Date: %s, Type: %s}",
		t.TransactionID, t.Amount.String(), t.Date.Format("2006-01-02"), t.Type)
}

// IsCredit returns true if the transaction is an inflow
func (t *OFXTransaction) IsCredit() bool {
	return t.Amount.IsPositive()
}

// IsDebit returns true if the transaction is an outflow
func (t *OFXTransaction) IsDebit() bool {
	return t.Amount.IsNegative()
}

// AbsoluteAmount returns the absolute value of the transaction amount
func (t *OFXTransaction) AbsoluteAmount() decimal.Decimal {
	return t.Amount.Abs()
}

// CombinedText returns description and memo joined for keyword scanning
func (t *OFXTransaction) CombinedText() string {
	if t.Memo == "" {
		return t.Description
	}
	return t.Description + " " + t.Memo
}

// OFXFormat identifies the syntax variant of an OFX file
type OFXFormat string

const (
	// FormatSGML is the OFX 1.x tag-soup variant with unclosed tags
	FormatSGML OFXFormat = "SGML"
	// FormatXML is the well-formed OFX 2.x variant
	FormatXML OFXFormat = "XML"
)

// OFXVersion identifies the OFX specification generation of a file
type OFXVersion string

const (
	// Version1 covers the OFX 1.x SGML releases
	Version1 OFXVersion = "1.x"
	// Version2 covers the OFX 2.x XML releases
	Version2 OFXVersion = "2.x"
)

// MatchCriterion names one signal that contributed to a duplicate match
type MatchCriterion string

const (
	CriterionSourceTransactionID MatchCriterion = "ofx_transaction_id"
	CriterionExactDate           MatchCriterion = "exact_date"
	CriterionSimilarDate         MatchCriterion = "similar_date"
	CriterionExactAmount         MatchCriterion = "exact_amount"
	CriterionExactDescription    MatchCriterion = "exact_description"
	CriterionSimilarDescription  MatchCriterion = "similar_description"
)

// DuplicateMatch pairs a parsed transaction with a stored transaction that
// may be the same real-world movement. Matches are created fresh on every
// detection run and never persisted.
type DuplicateMatch struct {
	Transaction  OFXTransaction   `json:"ofxTransaction"`
	Existing     *RawTransaction  `json:"existingTransaction"`
	Confidence   float64          `json:"confidence"`
	Criteria     []MatchCriterion `json:"matchCriteria"`
	IsExactMatch bool             `json:"isExactMatch"`
}

// HasCriterion reports whether the match fired the given criterion
func (m *DuplicateMatch) HasCriterion(c MatchCriterion) bool {
	for _, mc := range m.Criteria {
		if mc == c {
			return true
		}
	}
	return false
}

// CategoryType discriminates the kind of movement a category describes
type CategoryType string

const (
	CategoryTypeIncome     CategoryType = "INCOME"
	CategoryTypeExpense    CategoryType = "EXPENSE"
	CategoryTypeTransfer   CategoryType = "TRANSFER"
	CategoryTypeAdjustment CategoryType = "ADJUSTMENT"
)

// Category is a bookkeeping category available for auto-categorization
type Category struct {
	ID   string       `json:"id"`
	Name string       `json:"name"`
	Type CategoryType `json:"type"`
}

// Property is a linked property (rental unit, office, ...) whose code or
// address can be matched against transaction text
type Property struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	Address string `json:"address"`
}

// TransactionCategorization is the outcome of the auto-categorization
// heuristics for a single transaction. Category and property suggestions are
// advisory; Reason carries a pipe-separated trace of every rule that fired.
type TransactionCategorization struct {
	SuggestedCategory          *Category `json:"suggestedCategory,omitempty"`
	SuggestedProperty          *Property `json:"suggestedProperty,omitempty"`
	Confidence                 float64   `json:"confidence"`
	Reason                     string    `json:"reason"`
	IsAutomaticallyCategorized bool      `json:"isAutomaticallyCategorized"`
}

// RecommendedAction is the per-transaction recommendation of the preview stage
type RecommendedAction string

const (
	ActionImport RecommendedAction = "import"
	ActionSkip   RecommendedAction = "skip"
	ActionReview RecommendedAction = "review"
)

// IsValid checks if the action is one of the known values
func (a RecommendedAction) IsValid() bool {
	return a == ActionImport || a == ActionSkip || a == ActionReview
}

// TransactionPreview wraps one parsed transaction with the results of
// validation, duplicate detection, and categorization. It exists only within
// a single preview/import cycle.
type TransactionPreview struct {
	Transaction       OFXTransaction            `json:"transaction"`
	IsValid           bool                      `json:"isValid"`
	IsDuplicate       bool                      `json:"isDuplicate"`
	DuplicateMatches  []DuplicateMatch          `json:"duplicateMatches,omitempty"`
	Categorization    TransactionCategorization `json:"categorization"`
	RecommendedAction RecommendedAction         `json:"recommendedAction"`
}

// ImportBatchStatus is the lifecycle state of an ImportBatch
type ImportBatchStatus string

const (
	// BatchProcessing is set when the batch record is created, before any row is written
	BatchProcessing ImportBatchStatus = "PROCESSING"
	// BatchCompleted is the terminal state when all rows were attempted
	BatchCompleted ImportBatchStatus = "COMPLETED"
	// BatchFailed is the terminal state after a strict-mode abort or an escaped error
	BatchFailed ImportBatchStatus = "FAILED"
)

// ImportBatch tracks one execution of the import pipeline against one file
// and one destination account. It is created in PROCESSING state and updated
// exactly once to a terminal state.
type ImportBatch struct {
	ID               string            `json:"id"`
	FileName         string            `json:"fileName"`
	FileSize         int64             `json:"fileSize"`
	BankAccountID    string            `json:"bankAccountId"`
	StartDate        *time.Time        `json:"startDate,omitempty"`
	EndDate          *time.Time        `json:"endDate,omitempty"`
	TransactionCount int               `json:"transactionCount"`
	Status           ImportBatchStatus `json:"status"`
	FileType         OFXFormat         `json:"fileType"`
	OFXVersion       OFXVersion        `json:"ofxVersion,omitempty"`
	OFXBankID        string            `json:"ofxBankId,omitempty"`
	ErrorMessage     string            `json:"errorMessage,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
}

// RawTransaction is the persisted record of one successfully imported
// statement entry, before categorization. The (BankAccountID,
// SourceTransactionID) pair is unique in steady state, but uniqueness is
// enforced by the advisory duplicate check, not a storage constraint.
type RawTransaction struct {
	ID                  string          `json:"id"`
	ImportBatchID       string          `json:"importBatchId"`
	BankAccountID       string          `json:"bankAccountId"`
	SourceTransactionID string          `json:"sourceTransactionId"`
	Date                time.Time       `json:"date"`
	Amount              decimal.Decimal `json:"amount"`
	Description         string          `json:"description"`
	Type                string          `json:"type"`
	CheckNumber         string          `json:"checkNumber,omitempty"`
	Memo                string          `json:"memo,omitempty"`
	IsDuplicate         bool            `json:"isDuplicate"`
	CreatedAt           time.Time       `json:"createdAt"`
}

// String returns a string representation of the RawTransaction
func (r *RawTransaction) String() string {
	return fmt.Sprintf("RawTransaction{ID: %s, Source: %s, Amount: %s, Date: %s}",
		r.ID, r.SourceTransactionID, r.Amount.String(), r.Date.Format("2006-01-02"))
}

// ProcessedTransaction is the persisted record layered on a raw transaction
// carrying the categorization outcome. CategoryID and PropertyID are nil when
// no heuristic produced a suggestion.
type ProcessedTransaction struct {
	ID               string     `json:"id"`
	RawTransactionID string     `json:"rawTransactionId"`
	CategoryID       *string    `json:"categoryId,omitempty"`
	PropertyID       *string    `json:"propertyId,omitempty"`
	Details          string     `json:"details"`
	IsReviewed       bool       `json:"isReviewed"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// BankAccount is the destination account an import targets. Inactive accounts
// reject previews and imports before any work is done.
type BankAccount struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
}

// AmountTolerance is the maximum difference at which two amounts are
// considered equal by duplicate detection.
var AmountTolerance = decimal.NewFromFloat(0.01)

// AmountsEqual compares two amounts within AmountTolerance
func AmountsEqual(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(AmountTolerance)
}

// ParseAmount parses a statement amount string into a decimal, tolerating
// surrounding whitespace and a leading plus sign.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}
	s = strings.TrimPrefix(s, "+")
	// Some institutions emit comma decimal separators in 1.x files.
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount format '%s': %w", s, err)
	}
	return d, nil
}
