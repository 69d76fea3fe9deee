package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"golang-ofx-import-service/internal/categorizer"
	"golang-ofx-import-service/internal/models"
	"golang-ofx-import-service/internal/storage"
	"golang-ofx-import-service/pkg/errors"
	"golang-ofx-import-service/pkg/logger"
)

// FailedTransaction records one transaction whose write failed in non-strict
// mode.
type FailedTransaction struct {
	Transaction models.OFXTransaction `json:"transaction"`
	Error       *errors.ImportError   `json:"error"`
}

// ImportOutcome is the tagged result of the atomic unit of work: either the
// batch committed (possibly with per-transaction failures in non-strict
// mode), or everything was rolled back. The two cases are distinct types so
// an inconsistent combination cannot be represented.
type ImportOutcome interface {
	importOutcome()
}

// Committed is the outcome when the batch's unit of work committed
type Committed struct {
	Imported []models.OFXTransaction `json:"imported"`
	Skipped  []models.OFXTransaction `json:"skipped"`
	Failed   []FailedTransaction     `json:"failed"`
}

func (Committed) importOutcome() {}

// RolledBack is the outcome when no write of the batch was kept
type RolledBack struct {
	Reason *errors.ImportError `json:"reason"`
}

func (RolledBack) importOutcome() {}

// ImportResult is what the executor returns for one batch
type ImportResult struct {
	Success       bool                  `json:"success"`
	ImportBatchID string                `json:"importBatchId,omitempty"`
	Outcome       ImportOutcome         `json:"outcome"`
	Errors        []*errors.ImportError `json:"errors,omitempty"`
}

// Counts summarizes the outcome for reporting
func (r *ImportResult) Counts() (imported, skipped, failed int) {
	if committed, ok := r.Outcome.(Committed); ok {
		return len(committed.Imported), len(committed.Skipped), len(committed.Failed)
	}
	return 0, 0, 0
}

// Executor persists a previewed batch. All row writes for one batch happen
// inside a single storage transaction bounded by the options' timeout.
type Executor struct {
	store storage.Store
	log   logger.Logger
}

// NewExecutor creates an executor over the given store
func NewExecutor(store storage.Store) *Executor {
	return &Executor{
		store: store,
		log:   logger.GetGlobalLogger().WithComponent("executor"),
	}
}

// Execute runs one import batch. The batch record is created in PROCESSING
// state before any row is written and moved to exactly one terminal state at
// the end, including on panics and rollbacks.
func (e *Executor) Execute(ctx context.Context, preview *ImportPreview, options *Options) (result *ImportResult) {
	result = &ImportResult{}

	if options == nil {
		options = DefaultOptions(preview.BankAccountID)
	}
	if err := options.Validate(); err != nil {
		result.Outcome = RolledBack{Reason: errors.ValidationError(errors.CodeMissingField, "options", err.Error(), false)}
		result.Errors = append(result.Errors, result.Outcome.(RolledBack).Reason)
		return result
	}
	if !preview.Success {
		reason := errors.ValidationError(errors.CodeMissingField, "preview",
			"cannot import from a failed preview", false)
		result.Outcome = RolledBack{Reason: reason}
		result.Errors = append(result.Errors, reason)
		return result
	}

	batch := e.newBatch(preview, options)
	if err := e.store.CreateImportBatch(ctx, batch); err != nil {
		reason := errors.SystemError(errors.CodeStorageFailure, "batch creation", err)
		result.Outcome = RolledBack{Reason: reason}
		result.Errors = append(result.Errors, reason)
		return result
	}
	result.ImportBatchID = batch.ID

	// Every exit path below must leave the batch in a terminal state
	defer func() {
		if r := recover(); r != nil {
			e.log.Errorf("Import execution panicked: %v", r)
			reason := errors.SystemError(errors.CodeUnexpectedError, "import execution",
				fmt.Errorf("panic: %v", r))
			e.finishBatch(ctx, batch.ID, models.BatchFailed, reason.Message)
			result = &ImportResult{
				ImportBatchID: batch.ID,
				Outcome:       RolledBack{Reason: reason},
				Errors:        []*errors.ImportError{reason},
			}
		}
	}()

	toWrite, skipped := e.partition(preview, options)

	var (
		imported []models.OFXTransaction
		failed   []FailedTransaction
	)

	txErr := e.store.WithinTransaction(ctx, options.EffectiveTimeout(), func(txCtx context.Context, tx storage.TransactionWriter) error {
		progress := logger.NewProgressTracker("import", int64(len(toWrite)), 0)
		defer progress.Complete()

		for _, entry := range toWrite {
			if err := txCtx.Err(); err != nil {
				return errors.SystemError(errors.CodeTimeout, "import batch", err)
			}

			if err := e.writeTransaction(txCtx, tx, batch, entry, options); err != nil {
				if options.StrictMode {
					return err
				}
				failed = append(failed, FailedTransaction{Transaction: entry.Transaction, Error: err})
				progress.Increment()
				continue
			}
			imported = append(imported, entry.Transaction)
			progress.Increment()
		}
		return nil
	})

	if txErr != nil {
		reason := errors.WrapIfNeeded(txErr, "import batch")
		e.finishBatch(ctx, batch.ID, models.BatchFailed, reason.Message)
		result.Outcome = RolledBack{Reason: reason}
		result.Errors = append(result.Errors, reason)
		return result
	}

	e.finishBatch(ctx, batch.ID, models.BatchCompleted, "")

	for _, f := range failed {
		result.Errors = append(result.Errors, f.Error)
	}
	result.Outcome = Committed{Imported: imported, Skipped: skipped, Failed: failed}
	result.Success = len(failed) == 0 || !options.StrictMode

	e.log.WithFields(logger.Fields{
		"batch":    batch.ID,
		"imported": len(imported),
		"skipped":  len(skipped),
		"failed":   len(failed),
	}).Info("Import batch committed")

	return result
}

// newBatch builds the PROCESSING batch record, deriving the statement date
// range from the previewed transactions.
func (e *Executor) newBatch(preview *ImportPreview, options *Options) *models.ImportBatch {
	batch := &models.ImportBatch{
		ID:               uuid.NewString(),
		FileName:         options.FileName,
		FileSize:         options.FileSize,
		BankAccountID:    options.BankAccountID,
		TransactionCount: len(preview.Transactions),
		Status:           models.BatchProcessing,
		FileType:         preview.Format,
		OFXVersion:       preview.Version,
		CreatedAt:        time.Now().UTC(),
	}

	for _, entry := range preview.Transactions {
		date := entry.Transaction.Date
		if date.IsZero() {
			continue
		}
		if batch.StartDate == nil || date.Before(*batch.StartDate) {
			d := date
			batch.StartDate = &d
		}
		if batch.EndDate == nil || date.After(*batch.EndDate) {
			d := date
			batch.EndDate = &d
		}
	}
	return batch
}

// partition splits the preview into entries to write and entries skipped
// without a write attempt. Disallowed invalid/duplicate entries are filtered
// first; action overrides are resolved for the remainder.
func (e *Executor) partition(preview *ImportPreview, options *Options) (toWrite []models.TransactionPreview, skipped []models.OFXTransaction) {
	for _, entry := range preview.Transactions {
		if !entry.IsValid && !options.ImportInvalidTransactions {
			skipped = append(skipped, entry.Transaction)
			continue
		}
		if entry.IsDuplicate && !options.ImportDuplicates {
			skipped = append(skipped, entry.Transaction)
			continue
		}

		action := entry.RecommendedAction
		if override, ok := options.TransactionActions[entry.Transaction.TransactionID]; ok {
			action = override
		}
		if action == models.ActionSkip {
			skipped = append(skipped, entry.Transaction)
			continue
		}
		toWrite = append(toWrite, entry)
	}
	return toWrite, skipped
}

// writeTransaction persists the raw row and, when enabled, the processed row
// for one previewed transaction.
func (e *Executor) writeTransaction(ctx context.Context, tx storage.TransactionWriter, batch *models.ImportBatch, entry models.TransactionPreview, options *Options) *errors.ImportError {
	txn := entry.Transaction

	raw := &models.RawTransaction{
		ID:                  uuid.NewString(),
		ImportBatchID:       batch.ID,
		BankAccountID:       options.BankAccountID,
		SourceTransactionID: txn.TransactionID,
		Date:                txn.Date,
		Amount:              txn.Amount,
		Description:         txn.Description,
		Type:                txn.Type,
		CheckNumber:         txn.CheckNumber,
		Memo:                txn.Memo,
		IsDuplicate:         entry.IsDuplicate,
		CreatedAt:           time.Now().UTC(),
	}
	if err := tx.CreateRawTransaction(ctx, raw); err != nil {
		return errors.SystemError(errors.CodeStorageFailure, "raw transaction write", err).
			WithContext("source_transaction_id", txn.TransactionID)
	}

	if !options.CreateProcessedTransactions {
		return nil
	}

	processed := &models.ProcessedTransaction{
		ID:               uuid.NewString(),
		RawTransactionID: raw.ID,
		Details:          entry.Categorization.Reason,
		CreatedAt:        time.Now().UTC(),
	}

	if categoryID, ok := options.TransactionCategories[txn.TransactionID]; ok {
		processed.CategoryID = &categoryID
	} else if entry.Categorization.SuggestedCategory != nil {
		id := entry.Categorization.SuggestedCategory.ID
		processed.CategoryID = &id
	}
	if propertyID, ok := options.TransactionProperties[txn.TransactionID]; ok {
		processed.PropertyID = &propertyID
	} else if entry.Categorization.SuggestedProperty != nil {
		id := entry.Categorization.SuggestedProperty.ID
		processed.PropertyID = &id
	}

	processed.IsReviewed = entry.Categorization.Confidence >= categorizer.ReviewedThreshold &&
		processed.CategoryID != nil

	if err := tx.CreateProcessedTransaction(ctx, processed); err != nil {
		return errors.SystemError(errors.CodeStorageFailure, "processed transaction write", err).
			WithContext("source_transaction_id", txn.TransactionID)
	}
	return nil
}

// finishBatch moves the batch to its terminal state; a failure here is
// logged but never masks the import outcome.
func (e *Executor) finishBatch(ctx context.Context, batchID string, status models.ImportBatchStatus, errorMessage string) {
	if err := e.store.UpdateImportBatchStatus(ctx, batchID, status, errorMessage); err != nil {
		e.log.WithError(err).WithField("batch", batchID).Error("Failed to update batch status")
	}
}
