// Package storage defines the persistence boundary of the import pipeline
// and provides a SQLite-backed implementation plus an in-memory one for
// tests. Readers and writers are separate interfaces so the read-only stages
// (duplicate detection, categorization) cannot accidentally mutate state.
package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"golang-ofx-import-service/internal/models"
)

// ErrNotFound is returned by lookups that matched no row
var ErrNotFound = errors.New("record not found")

// TransactionReader is the read side of the store, consumed by duplicate
// detection, categorization, and preview building.
type TransactionReader interface {
	// GetBankAccount fetches a destination account by id. Returns ErrNotFound
	// when the account does not exist.
	GetBankAccount(ctx context.Context, id string) (*models.BankAccount, error)

	// GetRawTransactionBySourceID looks up a stored transaction by its
	// (bankAccountID, sourceTransactionID) pair. Returns ErrNotFound when no
	// such row exists.
	GetRawTransactionBySourceID(ctx context.Context, bankAccountID, sourceTransactionID string) (*models.RawTransaction, error)

	// ListRawTransactions returns stored transactions for an account whose
	// date falls in [from, to] inclusive.
	ListRawTransactions(ctx context.Context, bankAccountID string, from, to time.Time) ([]models.RawTransaction, error)

	// ListCategories returns every bookkeeping category
	ListCategories(ctx context.Context) ([]models.Category, error)

	// ListActiveProperties returns the properties available for matching
	ListActiveProperties(ctx context.Context) ([]models.Property, error)
}

// TransactionWriter is the write side of the store, consumed by the import
// executor. Row writes issued through the writer passed to WithinTransaction
// are atomic per batch.
type TransactionWriter interface {
	// CreateImportBatch persists a new batch record
	CreateImportBatch(ctx context.Context, batch *models.ImportBatch) error

	// UpdateImportBatchStatus moves a batch to a terminal state, recording the
	// error message when the batch failed.
	UpdateImportBatchStatus(ctx context.Context, id string, status models.ImportBatchStatus, errorMessage string) error

	// CreateRawTransaction persists one imported statement entry
	CreateRawTransaction(ctx context.Context, txn *models.RawTransaction) error

	// CreateProcessedTransaction persists the categorization outcome for an
	// imported entry.
	CreateProcessedTransaction(ctx context.Context, txn *models.ProcessedTransaction) error
}

// Store is the full persistence contract. WithinTransaction runs fn inside
// one storage-level transaction bounded by the given timeout; returning an
// error from fn rolls back every write it issued. Batch status updates are
// intentionally issued outside WithinTransaction so a rolled-back batch can
// still be marked FAILED.
type Store interface {
	TransactionReader
	TransactionWriter

	WithinTransaction(ctx context.Context, timeout time.Duration, fn func(ctx context.Context, tx TransactionWriter) error) error

	Close() error
}
