// Package parsers turns raw OFX statement files into domain transactions.
// It detects the format variant (1.x SGML tag soup or 2.x XML), validates the
// document structure, and extracts accounts and transactions with the
// strategy matching the detected variant. Extraction is lenient: records
// missing required fields are dropped and the parse still succeeds with
// whatever was recoverable.
package parsers

import (
	"golang-ofx-import-service/internal/models"
	"golang-ofx-import-service/pkg/errors"
	"golang-ofx-import-service/pkg/logger"
)

// formatStrategy is the per-variant extraction step
type formatStrategy interface {
	extract(content string) ([]models.OFXAccount, []models.OFXTransaction, []*errors.ImportError)
}

// ParseResult carries everything a parse produced: the detected variant, the
// extracted records, and any recoverable per-record errors. Success is false
// only for file-level failures; a file that yielded zero transactions but had
// valid structure still parses successfully.
type ParseResult struct {
	Success      bool                    `json:"success"`
	Format       models.OFXFormat        `json:"format"`
	Version      models.OFXVersion       `json:"version,omitempty"`
	Confidence   float64                 `json:"confidence"`
	Accounts     []models.OFXAccount     `json:"accounts"`
	Transactions []models.OFXTransaction `json:"transactions"`
	Errors       []*errors.ImportError   `json:"errors,omitempty"`
}

// ErrorSummary aggregates the result's errors for reporting
func (r *ParseResult) ErrorSummary() *errors.Summary {
	return errors.NewSummary(r.Errors)
}

// FirstError returns the first recorded error, or nil
func (r *ParseResult) FirstError() *errors.ImportError {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

// Parser is the entry point for statement parsing. It is stateless and safe
// for concurrent use.
type Parser struct {
	log logger.Logger
}

// NewParser creates a parser using the global logger
func NewParser() *Parser {
	return &Parser{log: logger.GetGlobalLogger().WithComponent("parser")}
}

// Parse processes one statement file end to end: format detection, structural
// validation, extraction, and account association.
func (p *Parser) Parse(content string) *ParseResult {
	detection, detectErr := DetectFormat(content)
	if detectErr != nil {
		p.log.WithError(detectErr).Error("Format detection failed")
		return &ParseResult{Success: false, Errors: []*errors.ImportError{detectErr}}
	}

	result := &ParseResult{
		Format:     detection.Format,
		Version:    detection.Version,
		Confidence: detection.Confidence,
	}

	p.log.WithFields(logger.Fields{
		"format":     detection.Format,
		"version":    detection.Version,
		"confidence": detection.Confidence,
	}).Debug("Detected statement format")

	if structErr := ValidateStructure(content, detection.Format); structErr != nil {
		p.log.WithError(structErr).Error("Structural validation failed")
		result.Errors = append(result.Errors, structErr)
		return result
	}

	var strategy formatStrategy
	if detection.Format == models.FormatXML {
		strategy = newXMLStrategy()
	} else {
		strategy = &sgmlStrategy{}
	}

	accounts, transactions, parseErrors := strategy.extract(content)
	result.Accounts = accounts
	result.Transactions = transactions
	result.Errors = append(result.Errors, parseErrors...)

	p.associateOrphans(result)
	result.Success = true

	p.log.WithFields(logger.Fields{
		"accounts":     len(result.Accounts),
		"transactions": len(result.Transactions),
		"errors":       len(result.Errors),
	}).Info("Statement parsed")

	return result
}

// associateOrphans assigns transactions that no account block preceded to the
// sentinel UNKNOWN account, synthesizing that account when needed. Statements
// with transactions but no account block at all are valid input.
func (p *Parser) associateOrphans(result *ParseResult) {
	orphans := 0
	for i := range result.Transactions {
		if result.Transactions[i].AccountID == "" {
			result.Transactions[i].AccountID = models.UnknownAccountID
			orphans++
		}
	}
	if orphans == 0 {
		return
	}

	for _, account := range result.Accounts {
		if account.AccountID == models.UnknownAccountID {
			return
		}
	}
	result.Accounts = append(result.Accounts, models.OFXAccount{
		AccountID:     models.UnknownAccountID,
		AccountNumber: models.UnknownAccountID,
		Type:          models.AccountTypeChecking,
	})
	p.log.WithField("transactions", orphans).Warn("Transactions without an account block were attached to the UNKNOWN account")
}
