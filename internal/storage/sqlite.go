package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"golang-ofx-import-service/internal/models"
	"golang-ofx-import-service/pkg/logger"
)

// SQLiteStore is the production Store backed by an embedded SQLite database.
// Amounts are stored as decimal strings to avoid float drift.
type SQLiteStore struct {
	db  *sql.DB
	log logger.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS bank_accounts (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	is_active  INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS categories (
	id    TEXT PRIMARY KEY,
	name  TEXT NOT NULL,
	type  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS properties (
	id         TEXT PRIMARY KEY,
	code       TEXT NOT NULL,
	address    TEXT NOT NULL DEFAULT '',
	is_active  INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS import_batches (
	id                TEXT PRIMARY KEY,
	file_name         TEXT NOT NULL DEFAULT '',
	file_size         INTEGER NOT NULL DEFAULT 0,
	bank_account_id   TEXT NOT NULL,
	start_date        TEXT,
	end_date          TEXT,
	transaction_count INTEGER NOT NULL DEFAULT 0,
	status            TEXT NOT NULL,
	file_type         TEXT NOT NULL DEFAULT '',
	ofx_version       TEXT NOT NULL DEFAULT '',
	ofx_bank_id       TEXT NOT NULL DEFAULT '',
	error_message     TEXT NOT NULL DEFAULT '',
	created_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS raw_transactions (
	id                    TEXT PRIMARY KEY,
	import_batch_id       TEXT NOT NULL,
	bank_account_id       TEXT NOT NULL,
	source_transaction_id TEXT NOT NULL,
	date                  TEXT NOT NULL,
	amount                TEXT NOT NULL,
	description           TEXT NOT NULL DEFAULT '',
	type                  TEXT NOT NULL DEFAULT '',
	check_number          TEXT NOT NULL DEFAULT '',
	memo                  TEXT NOT NULL DEFAULT '',
	is_duplicate          INTEGER NOT NULL DEFAULT 0,
	created_at            TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_raw_source
	ON raw_transactions(bank_account_id, source_transaction_id);
CREATE INDEX IF NOT EXISTS idx_raw_date
	ON raw_transactions(bank_account_id, date);

CREATE TABLE IF NOT EXISTS processed_transactions (
	id                 TEXT PRIMARY KEY,
	raw_transaction_id TEXT NOT NULL,
	category_id        TEXT,
	property_id        TEXT,
	details            TEXT NOT NULL DEFAULT '',
	is_reviewed        INTEGER NOT NULL DEFAULT 0,
	created_at         TEXT NOT NULL
);
`

// NewSQLiteStore opens (creating if necessary) the database at path and
// bootstraps the schema. Use ":memory:" for an ephemeral database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	// SQLite serializes writers; a single connection avoids SQLITE_BUSY
	// surprises under the write transaction.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL; PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "configuring database")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "bootstrapping schema")
	}

	return &SQLiteStore{
		db:  db,
		log: logger.GetGlobalLogger().WithComponent("storage"),
	}, nil
}

// Close releases the underlying database handle
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// dbExecutor abstracts *sql.DB and *sql.Tx so the writer methods run both
// inside and outside a transaction.
type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const timeLayout = time.RFC3339

// TransactionReader

func (s *SQLiteStore) GetBankAccount(ctx context.Context, id string) (*models.BankAccount, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, is_active FROM bank_accounts WHERE id = ?`, id)

	var account models.BankAccount
	var active int
	if err := row.Scan(&account.ID, &account.Name, &active); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "querying bank account")
	}
	account.IsActive = active != 0
	return &account, nil
}

func (s *SQLiteStore) GetRawTransactionBySourceID(ctx context.Context, bankAccountID, sourceTransactionID string) (*models.RawTransaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, import_batch_id, bank_account_id, source_transaction_id,
		       date, amount, description, type, check_number, memo,
		       is_duplicate, created_at
		FROM raw_transactions
		WHERE bank_account_id = ? AND source_transaction_id = ?
		LIMIT 1`, bankAccountID, sourceTransactionID)

	txn, err := scanRawTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "querying raw transaction by source id")
	}
	return txn, nil
}

func (s *SQLiteStore) ListRawTransactions(ctx context.Context, bankAccountID string, from, to time.Time) ([]models.RawTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, import_batch_id, bank_account_id, source_transaction_id,
		       date, amount, description, type, check_number, memo,
		       is_duplicate, created_at
		FROM raw_transactions
		WHERE bank_account_id = ? AND date >= ? AND date <= ?
		ORDER BY date`, bankAccountID, from.UTC().Format(timeLayout), to.UTC().Format(timeLayout))
	if err != nil {
		return nil, errors.Wrap(err, "querying raw transactions")
	}
	defer rows.Close()

	var result []models.RawTransaction
	for rows.Next() {
		txn, err := scanRawTransaction(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning raw transaction")
		}
		result = append(result, *txn)
	}
	return result, rows.Err()
}

func (s *SQLiteStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, type FROM categories ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "querying categories")
	}
	defer rows.Close()

	var result []models.Category
	for rows.Next() {
		var category models.Category
		var catType string
		if err := rows.Scan(&category.ID, &category.Name, &catType); err != nil {
			return nil, errors.Wrap(err, "scanning category")
		}
		category.Type = models.CategoryType(catType)
		result = append(result, category)
	}
	return result, rows.Err()
}

func (s *SQLiteStore) ListActiveProperties(ctx context.Context) ([]models.Property, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, code, address FROM properties WHERE is_active = 1 ORDER BY code`)
	if err != nil {
		return nil, errors.Wrap(err, "querying properties")
	}
	defer rows.Close()

	var result []models.Property
	for rows.Next() {
		var property models.Property
		if err := rows.Scan(&property.ID, &property.Code, &property.Address); err != nil {
			return nil, errors.Wrap(err, "scanning property")
		}
		result = append(result, property)
	}
	return result, rows.Err()
}

// TransactionWriter (autocommit path)

func (s *SQLiteStore) CreateImportBatch(ctx context.Context, batch *models.ImportBatch) error {
	return createImportBatch(ctx, s.db, batch)
}

func (s *SQLiteStore) UpdateImportBatchStatus(ctx context.Context, id string, status models.ImportBatchStatus, errorMessage string) error {
	return updateImportBatchStatus(ctx, s.db, id, status, errorMessage)
}

func (s *SQLiteStore) CreateRawTransaction(ctx context.Context, txn *models.RawTransaction) error {
	return createRawTransaction(ctx, s.db, txn)
}

func (s *SQLiteStore) CreateProcessedTransaction(ctx context.Context, txn *models.ProcessedTransaction) error {
	return createProcessedTransaction(ctx, s.db, txn)
}

// sqliteTx adapts *sql.Tx to the TransactionWriter interface
type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) CreateImportBatch(ctx context.Context, batch *models.ImportBatch) error {
	return createImportBatch(ctx, t.tx, batch)
}

func (t *sqliteTx) UpdateImportBatchStatus(ctx context.Context, id string, status models.ImportBatchStatus, errorMessage string) error {
	return updateImportBatchStatus(ctx, t.tx, id, status, errorMessage)
}

func (t *sqliteTx) CreateRawTransaction(ctx context.Context, txn *models.RawTransaction) error {
	return createRawTransaction(ctx, t.tx, txn)
}

func (t *sqliteTx) CreateProcessedTransaction(ctx context.Context, txn *models.ProcessedTransaction) error {
	return createProcessedTransaction(ctx, t.tx, txn)
}

// WithinTransaction runs fn inside one database transaction with a deadline.
// An error from fn, or the deadline expiring, rolls back every write fn
// issued.
func (s *SQLiteStore) WithinTransaction(ctx context.Context, timeout time.Duration, fn func(ctx context.Context, tx TransactionWriter) error) error {
	txCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		txCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := s.db.BeginTx(txCtx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}

	if err := fn(txCtx, &sqliteTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.WithError(rbErr).Error("Rollback failed")
		}
		return err
	}
	if err := txCtx.Err(); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.WithError(rbErr).Error("Rollback failed")
		}
		return err
	}

	return errors.Wrap(tx.Commit(), "committing transaction")
}

// Shared statement helpers

func createImportBatch(ctx context.Context, db dbExecutor, batch *models.ImportBatch) error {
	var start, end interface{}
	if batch.StartDate != nil {
		start = batch.StartDate.UTC().Format(timeLayout)
	}
	if batch.EndDate != nil {
		end = batch.EndDate.UTC().Format(timeLayout)
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO import_batches
			(id, file_name, file_size, bank_account_id, start_date, end_date,
			 transaction_count, status, file_type, ofx_version, ofx_bank_id,
			 error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		batch.ID, batch.FileName, batch.FileSize, batch.BankAccountID,
		start, end, batch.TransactionCount, string(batch.Status),
		string(batch.FileType), string(batch.OFXVersion), batch.OFXBankID,
		batch.ErrorMessage, batch.CreatedAt.UTC().Format(timeLayout))
	return errors.Wrap(err, "inserting import batch")
}

func updateImportBatchStatus(ctx context.Context, db dbExecutor, id string, status models.ImportBatchStatus, errorMessage string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE import_batches SET status = ?, error_message = ? WHERE id = ?`,
		string(status), errorMessage, id)
	if err != nil {
		return errors.Wrap(err, "updating import batch")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "checking update result")
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func createRawTransaction(ctx context.Context, db dbExecutor, txn *models.RawTransaction) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO raw_transactions
			(id, import_batch_id, bank_account_id, source_transaction_id,
			 date, amount, description, type, check_number, memo,
			 is_duplicate, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.ImportBatchID, txn.BankAccountID, txn.SourceTransactionID,
		txn.Date.UTC().Format(timeLayout), txn.Amount.String(),
		txn.Description, txn.Type, txn.CheckNumber, txn.Memo,
		boolToInt(txn.IsDuplicate), txn.CreatedAt.UTC().Format(timeLayout))
	return errors.Wrap(err, "inserting raw transaction")
}

func createProcessedTransaction(ctx context.Context, db dbExecutor, txn *models.ProcessedTransaction) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO processed_transactions
			(id, raw_transaction_id, category_id, property_id, details,
			 is_reviewed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.RawTransactionID, txn.CategoryID, txn.PropertyID,
		txn.Details, boolToInt(txn.IsReviewed), txn.CreatedAt.UTC().Format(timeLayout))
	return errors.Wrap(err, "inserting processed transaction")
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRawTransaction(row rowScanner) (*models.RawTransaction, error) {
	var txn models.RawTransaction
	var date, amount, createdAt string
	var duplicate int

	if err := row.Scan(&txn.ID, &txn.ImportBatchID, &txn.BankAccountID,
		&txn.SourceTransactionID, &date, &amount, &txn.Description,
		&txn.Type, &txn.CheckNumber, &txn.Memo, &duplicate, &createdAt); err != nil {
		return nil, err
	}

	parsedDate, err := time.Parse(timeLayout, date)
	if err != nil {
		return nil, errors.Wrap(err, "parsing stored date")
	}
	txn.Date = parsedDate

	parsedAmount, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, errors.Wrap(err, "parsing stored amount")
	}
	txn.Amount = parsedAmount

	if parsedCreated, err := time.Parse(timeLayout, createdAt); err == nil {
		txn.CreatedAt = parsedCreated
	}
	txn.IsDuplicate = duplicate != 0
	return &txn, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
