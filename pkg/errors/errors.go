// Package errors defines the error taxonomy used across the OFX import
// pipeline. Every failure surfaced to a caller is an *ImportError carrying a
// type, a stable code, and a recoverable flag; unexpected errors are wrapped
// into SYSTEM-typed errors at the service boundary so no raw error crosses it.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorType represents the category of an import error
type ErrorType string

const (
	// TypeFileFormat covers unreadable, empty, or structurally undetectable input
	TypeFileFormat ErrorType = "FILE_FORMAT"
	// TypeParsing covers malformed records and tag mismatches within a readable file
	TypeParsing ErrorType = "PARSING"
	// TypeValidation covers missing/invalid fields and business-rule violations
	TypeValidation ErrorType = "VALIDATION"
	// TypeSystem covers unexpected orchestration or storage failures
	TypeSystem ErrorType = "SYSTEM"
)

// ErrorCode represents specific error codes within types
type ErrorCode string

const (
	// File format errors
	CodeEmptyFile          ErrorCode = "EMPTY_FILE"
	CodeUndetectableFormat ErrorCode = "UNDETECTABLE_FORMAT"
	CodeMissingStructure   ErrorCode = "MISSING_STRUCTURE"

	// Parsing errors
	CodeMalformedRecord ErrorCode = "MALFORMED_RECORD"
	CodeTagMismatch     ErrorCode = "TAG_MISMATCH"
	CodeInvalidDate     ErrorCode = "INVALID_DATE"
	CodeInvalidAmount   ErrorCode = "INVALID_AMOUNT"

	// Validation errors
	CodeMissingField      ErrorCode = "MISSING_FIELD"
	CodeFutureDate        ErrorCode = "FUTURE_DATE"
	CodeAmountOutOfRange  ErrorCode = "AMOUNT_OUT_OF_RANGE"
	CodeEmptyDescription  ErrorCode = "EMPTY_DESCRIPTION"
	CodeAccountNotFound   ErrorCode = "ACCOUNT_NOT_FOUND"
	CodeAccountInactive   ErrorCode = "ACCOUNT_INACTIVE"

	// System errors
	CodeUnexpectedError ErrorCode = "UNEXPECTED_ERROR"
	CodeStorageFailure  ErrorCode = "STORAGE_FAILURE"
	CodeTimeout         ErrorCode = "TIMEOUT"
)

// Context provides additional information about the error
type Context map[string]interface{}

// ImportError is the structured error type for all pipeline failures.
// Line and TransactionIndex are optional position hints (-1 when unknown).
type ImportError struct {
	Type             ErrorType         `json:"type"`
	Code             ErrorCode         `json:"code"`
	Message          string            `json:"message"`
	Line             int               `json:"line,omitempty"`
	TransactionIndex int               `json:"transactionIndex,omitempty"`
	Recoverable      bool              `json:"recoverable"`
	Context          Context           `json:"context,omitempty"`
	Cause            error             `json:"-"`
	StackTrace       errors.StackTrace `json:"-"`
}

// Error implements the error interface
func (e *ImportError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s/%s] %s (line %d)", e.Type, e.Code, e.Message, e.Line)
	}
	return fmt.Sprintf("[%s/%s] %s", e.Type, e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *ImportError) Unwrap() error {
	return e.Cause
}

// WithLine records the input line the error was detected at
func (e *ImportError) WithLine(line int) *ImportError {
	e.Line = line
	return e
}

// WithTransactionIndex records the index of the transaction the error belongs to
func (e *ImportError) WithTransactionIndex(index int) *ImportError {
	e.TransactionIndex = index
	return e
}

// WithContext adds context information to the error
func (e *ImportError) WithContext(key string, value interface{}) *ImportError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// GetExitCode returns an appropriate process exit code for the error
func (e *ImportError) GetExitCode() int {
	switch e.Type {
	case TypeFileFormat:
		return 2
	case TypeParsing, TypeValidation:
		return 3
	case TypeSystem:
		return 5
	default:
		return 1
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates a new ImportError
func New(errType ErrorType, code ErrorCode, message string) *ImportError {
	return &ImportError{
		Type:             errType,
		Code:             code,
		Message:          message,
		TransactionIndex: -1,
		StackTrace:       errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ImportError context
func Wrap(err error, errType ErrorType, code ErrorCode, message string) *ImportError {
	if err == nil {
		return nil
	}
	return &ImportError{
		Type:             errType,
		Code:             code,
		Message:          message,
		TransactionIndex: -1,
		Cause:            err,
		StackTrace:       errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// Specific error constructors

// FileFormatError creates a non-recoverable file-level error
func FileFormatError(code ErrorCode, message string) *ImportError {
	return New(TypeFileFormat, code, message)
}

// ParsingError creates a recoverable per-record parsing error
func ParsingError(code ErrorCode, message string) *ImportError {
	e := New(TypeParsing, code, message)
	e.Recoverable = true
	return e
}

// ValidationError creates a validation error; recoverable controls whether the
// transaction stays in the valid set
func ValidationError(code ErrorCode, field, message string, recoverable bool) *ImportError {
	e := New(TypeValidation, code, message)
	e.Recoverable = recoverable
	return e.WithContext("field", field)
}

// SystemError creates a non-recoverable system error, wrapping the cause when present
func SystemError(code ErrorCode, operation string, err error) *ImportError {
	message := fmt.Sprintf("unexpected failure during %s", operation)
	if code == CodeStorageFailure {
		message = fmt.Sprintf("storage failure during %s", operation)
	}
	if code == CodeTimeout {
		message = fmt.Sprintf("timed out during %s", operation)
	}

	var result *ImportError
	if err != nil {
		result = Wrap(err, TypeSystem, code, message)
	} else {
		result = New(TypeSystem, code, message)
	}
	return result.WithContext("operation", operation)
}

// IsImportError checks if an error is an *ImportError
func IsImportError(err error) bool {
	_, ok := err.(*ImportError)
	return ok
}

// AsImportError extracts an ImportError from an error chain
func AsImportError(err error) (*ImportError, bool) {
	var importErr *ImportError
	if errors.As(err, &importErr) {
		return importErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error into a SYSTEM error unless it already is an ImportError
func WrapIfNeeded(err error, operation string) *ImportError {
	if err == nil {
		return nil
	}
	if importErr, ok := AsImportError(err); ok {
		return importErr
	}
	return SystemError(CodeUnexpectedError, operation, err)
}

// Summary aggregates a list of errors by type and code for reporting
type Summary struct {
	Total  int               `json:"total"`
	ByType map[ErrorType]int `json:"by_type"`
	ByCode map[ErrorCode]int `json:"by_code"`
	Errors []*ImportError    `json:"errors"`
}

// NewSummary creates a summary over the given errors
func NewSummary(errs []*ImportError) *Summary {
	summary := &Summary{
		Total:  len(errs),
		ByType: make(map[ErrorType]int),
		ByCode: make(map[ErrorCode]int),
		Errors: errs,
	}
	for _, err := range errs {
		summary.ByType[err.Type]++
		summary.ByCode[err.Code]++
	}
	return summary
}

// Error returns a formatted message describing the whole summary
func (s *Summary) Error() string {
	if s.Total == 0 {
		return "no errors"
	}
	if s.Total == 1 {
		return s.Errors[0].Error()
	}
	var parts []string
	for errType, count := range s.ByType {
		parts = append(parts, fmt.Sprintf("%s: %d", errType, count))
	}
	return fmt.Sprintf("%d errors occurred (%s)", s.Total, strings.Join(parts, ", "))
}

// HasType checks if the summary contains errors of the given type
func (s *Summary) HasType(errType ErrorType) bool {
	return s.ByType[errType] > 0
}

// GetExitCode returns the highest priority exit code from all errors
func (s *Summary) GetExitCode() int {
	if s.Total == 0 {
		return 0
	}
	maxCode := 1
	for _, err := range s.Errors {
		if code := err.GetExitCode(); code > maxCode {
			maxCode = code
		}
	}
	return maxCode
}
