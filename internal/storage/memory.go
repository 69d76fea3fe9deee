package storage

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"golang-ofx-import-service/internal/models"
)

// MemoryStore is an in-memory Store used by tests and by dry runs against no
// database. Writes inside WithinTransaction are buffered and only applied
// when the transaction function succeeds, mirroring the rollback behavior of
// the SQL store.
type MemoryStore struct {
	mu sync.RWMutex

	accounts   map[string]models.BankAccount
	batches    map[string]models.ImportBatch
	raw        []models.RawTransaction
	processed  []models.ProcessedTransaction
	categories []models.Category
	properties []models.Property

	// FailRawCreateFor lists source transaction ids whose raw-transaction
	// write fails with an injected error. Test hook.
	FailRawCreateFor map[string]bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:         make(map[string]models.BankAccount),
		batches:          make(map[string]models.ImportBatch),
		FailRawCreateFor: make(map[string]bool),
	}
}

// Seed helpers

// AddBankAccount registers a destination account
func (m *MemoryStore) AddBankAccount(account models.BankAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
}

// AddCategory registers a bookkeeping category
func (m *MemoryStore) AddCategory(category models.Category) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories = append(m.categories, category)
}

// AddProperty registers a property for keyword matching
func (m *MemoryStore) AddProperty(property models.Property) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.properties = append(m.properties, property)
}

// SeedRawTransaction inserts a stored transaction directly, bypassing the
// transactional path.
func (m *MemoryStore) SeedRawTransaction(txn models.RawTransaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = append(m.raw, txn)
}

// Inspection helpers

// RawTransactionCount returns the number of stored raw transactions
func (m *MemoryStore) RawTransactionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.raw)
}

// ProcessedTransactionCount returns the number of stored processed transactions
func (m *MemoryStore) ProcessedTransactionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.processed)
}

// GetImportBatch returns a stored batch by id
func (m *MemoryStore) GetImportBatch(id string) (*models.ImportBatch, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	batch, ok := m.batches[id]
	if !ok {
		return nil, false
	}
	return &batch, true
}

// TransactionReader

func (m *MemoryStore) GetBankAccount(_ context.Context, id string) (*models.BankAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &account, nil
}

func (m *MemoryStore) GetRawTransactionBySourceID(_ context.Context, bankAccountID, sourceTransactionID string) (*models.RawTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.raw {
		if m.raw[i].BankAccountID == bankAccountID && m.raw[i].SourceTransactionID == sourceTransactionID {
			txn := m.raw[i]
			return &txn, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListRawTransactions(_ context.Context, bankAccountID string, from, to time.Time) ([]models.RawTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []models.RawTransaction
	for i := range m.raw {
		txn := m.raw[i]
		if txn.BankAccountID != bankAccountID {
			continue
		}
		if txn.Date.Before(from) || txn.Date.After(to) {
			continue
		}
		result = append(result, txn)
	}
	return result, nil
}

func (m *MemoryStore) ListCategories(_ context.Context) ([]models.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Category(nil), m.categories...), nil
}

func (m *MemoryStore) ListActiveProperties(_ context.Context) ([]models.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Property(nil), m.properties...), nil
}

// TransactionWriter (direct, non-transactional path)

func (m *MemoryStore) CreateImportBatch(_ context.Context, batch *models.ImportBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[batch.ID] = *batch
	return nil
}

func (m *MemoryStore) UpdateImportBatchStatus(_ context.Context, id string, status models.ImportBatchStatus, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch, ok := m.batches[id]
	if !ok {
		return ErrNotFound
	}
	batch.Status = status
	batch.ErrorMessage = errorMessage
	m.batches[id] = batch
	return nil
}

func (m *MemoryStore) CreateRawTransaction(_ context.Context, txn *models.RawTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailRawCreateFor[txn.SourceTransactionID] {
		return errors.Errorf("injected write failure for %s", txn.SourceTransactionID)
	}
	m.raw = append(m.raw, *txn)
	return nil
}

func (m *MemoryStore) CreateProcessedTransaction(_ context.Context, txn *models.ProcessedTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed = append(m.processed, *txn)
	return nil
}

// memoryTx buffers writes until the transaction function returns successfully
type memoryTx struct {
	store     *MemoryStore
	raw       []models.RawTransaction
	processed []models.ProcessedTransaction
	batches   []models.ImportBatch
}

func (t *memoryTx) CreateImportBatch(_ context.Context, batch *models.ImportBatch) error {
	t.batches = append(t.batches, *batch)
	return nil
}

func (t *memoryTx) UpdateImportBatchStatus(_ context.Context, id string, status models.ImportBatchStatus, errorMessage string) error {
	for i := range t.batches {
		if t.batches[i].ID == id {
			t.batches[i].Status = status
			t.batches[i].ErrorMessage = errorMessage
			return nil
		}
	}
	return t.store.UpdateImportBatchStatus(context.Background(), id, status, errorMessage)
}

func (t *memoryTx) CreateRawTransaction(_ context.Context, txn *models.RawTransaction) error {
	t.store.mu.RLock()
	fail := t.store.FailRawCreateFor[txn.SourceTransactionID]
	t.store.mu.RUnlock()
	if fail {
		return errors.Errorf("injected write failure for %s", txn.SourceTransactionID)
	}
	t.raw = append(t.raw, *txn)
	return nil
}

func (t *memoryTx) CreateProcessedTransaction(_ context.Context, txn *models.ProcessedTransaction) error {
	t.processed = append(t.processed, *txn)
	return nil
}

// WithinTransaction runs fn with a buffering writer. The buffer is committed
// only when fn returns nil and the deadline has not expired.
func (m *MemoryStore) WithinTransaction(ctx context.Context, timeout time.Duration, fn func(ctx context.Context, tx TransactionWriter) error) error {
	txCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		txCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx := &memoryTx{store: m}
	if err := fn(txCtx, tx); err != nil {
		return err
	}
	if err := txCtx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = append(m.raw, tx.raw...)
	m.processed = append(m.processed, tx.processed...)
	for _, batch := range tx.batches {
		m.batches[batch.ID] = batch
	}
	return nil
}

// Close is a no-op for the in-memory store
func (m *MemoryStore) Close() error {
	return nil
}
