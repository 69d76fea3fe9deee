// Package validator applies field-level and business-rule checks to parsed
// transactions. Validation is a pure function over its inputs: it touches no
// storage and keeps no state, so the preview stage can run it on a snapshot.
package validator

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"golang-ofx-import-service/internal/models"
	"golang-ofx-import-service/pkg/errors"
)

// MaxAbsoluteAmount is the business-rule ceiling above which an amount is
// flagged for review. Amounts beyond it are suspicious but not rejected.
var MaxAbsoluteAmount = decimal.NewFromInt(1_000_000)

// Result partitions a batch of transactions into the valid set plus the
// errors found. Recoverable errors are warnings; their transactions stay in
// ValidTransactions. Non-recoverable errors exclude the transaction.
type Result struct {
	ValidTransactions []models.OFXTransaction `json:"validTransactions"`
	InvalidCount      int                     `json:"invalidCount"`
	Errors            []*errors.ImportError   `json:"errors,omitempty"`
}

// Validator checks parsed transactions against field and business rules.
// The now function is injectable for tests; the zero value is not usable,
// construct with New.
type Validator struct {
	now func() time.Time
}

// New creates a validator using the wall clock
func New() *Validator {
	return &Validator{now: time.Now}
}

// NewWithClock creates a validator with a fixed clock, for tests
func NewWithClock(now func() time.Time) *Validator {
	return &Validator{now: now}
}

// Validate checks every transaction and partitions the batch. The input
// slice is not modified; error TransactionIndex values refer to positions in
// the input.
func (v *Validator) Validate(transactions []models.OFXTransaction) *Result {
	result := &Result{}
	now := v.now()

	for i, txn := range transactions {
		txnErrors, valid := v.validateOne(txn, now)
		for _, err := range txnErrors {
			result.Errors = append(result.Errors, err.WithTransactionIndex(i))
		}
		if valid {
			result.ValidTransactions = append(result.ValidTransactions, txn)
		} else {
			result.InvalidCount++
		}
	}

	return result
}

// IsValid reports whether a single transaction passes all non-recoverable rules
func (v *Validator) IsValid(txn models.OFXTransaction) bool {
	_, valid := v.validateOne(txn, v.now())
	return valid
}

func (v *Validator) validateOne(txn models.OFXTransaction, now time.Time) ([]*errors.ImportError, bool) {
	var found []*errors.ImportError
	valid := true

	if txn.TransactionID == "" {
		found = append(found, errors.ValidationError(errors.CodeMissingField,
			"transactionId", "transaction is missing its source id", false))
		valid = false
	}

	if txn.Date.IsZero() {
		found = append(found, errors.ValidationError(errors.CodeMissingField,
			"date", "transaction is missing its date", false))
		valid = false
	} else if txn.Date.After(now) {
		found = append(found, errors.ValidationError(errors.CodeFutureDate,
			"date", fmt.Sprintf("transaction is dated in the future: %s", txn.Date.Format("2006-01-02")), true))
	}

	if txn.Amount.Abs().GreaterThan(MaxAbsoluteAmount) {
		found = append(found, errors.ValidationError(errors.CodeAmountOutOfRange,
			"amount", fmt.Sprintf("amount %s exceeds the plausible maximum", txn.Amount.String()), true))
	}

	if txn.Description == "" && txn.Memo == "" {
		found = append(found, errors.ValidationError(errors.CodeEmptyDescription,
			"description", "transaction has no description or memo", true))
	}

	return found, valid
}
