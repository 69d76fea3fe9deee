package storage

import (
	"context"

	"github.com/pkg/errors"

	"golang-ofx-import-service/internal/models"
)

// Administrative writes used by the CLI to prepare a database for imports.
// They are not part of the pipeline's Store contract.

// CreateBankAccount registers a destination account
func (s *SQLiteStore) CreateBankAccount(ctx context.Context, account *models.BankAccount) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bank_accounts (id, name, is_active) VALUES (?, ?, ?)`,
		account.ID, account.Name, boolToInt(account.IsActive))
	return errors.Wrap(err, "inserting bank account")
}

// CreateCategory registers a bookkeeping category
func (s *SQLiteStore) CreateCategory(ctx context.Context, category *models.Category) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, type) VALUES (?, ?, ?)`,
		category.ID, category.Name, string(category.Type))
	return errors.Wrap(err, "inserting category")
}

// CreateProperty registers a property used for keyword matching
func (s *SQLiteStore) CreateProperty(ctx context.Context, property *models.Property) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO properties (id, code, address, is_active) VALUES (?, ?, ?, 1)`,
		property.ID, property.Code, property.Address)
	return errors.Wrap(err, "inserting property")
}
