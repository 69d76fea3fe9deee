package importer

import (
	"fmt"
	"time"

	"golang-ofx-import-service/internal/models"
)

// DefaultBatchTimeout bounds the atomic unit of work for one batch. A batch
// that cannot commit within it is rolled back and marked FAILED rather than
// holding a write transaction open.
const DefaultBatchTimeout = 30 * time.Second

// Options control one import execution.
type Options struct {
	// BankAccountID is the destination account. Required.
	BankAccountID string `json:"bankAccountId"`

	// FileName and FileSize describe the source file for the batch record
	FileName string `json:"fileName,omitempty"`
	FileSize int64  `json:"fileSize,omitempty"`

	// ImportDuplicates lets transactions flagged as duplicates through
	// instead of skipping them.
	ImportDuplicates bool `json:"importDuplicates"`

	// ImportInvalidTransactions lets transactions that failed validation
	// through instead of skipping them.
	ImportInvalidTransactions bool `json:"importInvalidTransactions"`

	// CreateProcessedTransactions writes the categorization outcome row for
	// every imported transaction. Defaults to true.
	CreateProcessedTransactions bool `json:"createProcessedTransactions"`

	// StrictMode aborts and rolls back the whole batch on the first write
	// failure. Off by default: failures are isolated per transaction.
	StrictMode bool `json:"strictMode"`

	// TransactionActions overrides the preview's recommended action per
	// source transaction id. Overrides take precedence.
	TransactionActions map[string]models.RecommendedAction `json:"transactionActions,omitempty"`

	// TransactionCategories and TransactionProperties override the suggested
	// category/property per source transaction id.
	TransactionCategories map[string]string `json:"transactionCategories,omitempty"`
	TransactionProperties map[string]string `json:"transactionProperties,omitempty"`

	// BatchTimeout bounds the atomic unit of work. Zero uses DefaultBatchTimeout.
	BatchTimeout time.Duration `json:"batchTimeout,omitempty"`
}

// DefaultOptions returns the standard options for a destination account:
// duplicates and invalid transactions skipped, processed rows created,
// strict mode off.
func DefaultOptions(bankAccountID string) *Options {
	return &Options{
		BankAccountID:               bankAccountID,
		CreateProcessedTransactions: true,
		BatchTimeout:                DefaultBatchTimeout,
	}
}

// Validate checks the options for usability
func (o *Options) Validate() error {
	if o.BankAccountID == "" {
		return fmt.Errorf("bank account id is required")
	}
	for sourceID, action := range o.TransactionActions {
		if !action.IsValid() {
			return fmt.Errorf("invalid action %q for transaction %s", action, sourceID)
		}
	}
	if o.BatchTimeout < 0 {
		return fmt.Errorf("batch timeout cannot be negative")
	}
	return nil
}

// EffectiveTimeout returns the configured timeout or the default
func (o *Options) EffectiveTimeout() time.Duration {
	if o.BatchTimeout > 0 {
		return o.BatchTimeout
	}
	return DefaultBatchTimeout
}
