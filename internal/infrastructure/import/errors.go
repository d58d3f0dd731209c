package csvimport

import (
	"errors"
	"fmt"
	"strings"
)

// Row-level error codes surfaced to import callers
const (
	ErrCodeRequiredField   = "ERR_IMPORT_REQUIRED_FIELD"
	ErrCodeInvalidType     = "ERR_IMPORT_INVALID_TYPE"
	ErrCodeInvalidRange    = "ERR_IMPORT_INVALID_RANGE"
	ErrCodeDuplicateInFile = "ERR_IMPORT_DUPLICATE_IN_FILE"
	ErrCodeMalformedRow    = "ERR_IMPORT_MALFORMED_ROW"
	ErrCodePersistFailed   = "ERR_IMPORT_PERSIST_FAILED"
)

var (
	// ErrEmptyFile is returned when the CSV file has no content
	ErrEmptyFile = errors.New("CSV file is empty")

	// ErrInvalidEncoding is returned when the file is not valid UTF-8
	ErrInvalidEncoding = errors.New("invalid file encoding")

	// ErrMissingHeader is returned when the CSV file has no header row
	ErrMissingHeader = errors.New("CSV file missing header row")

	// ErrMissingColumns is returned when required columns are absent
	ErrMissingColumns = errors.New("CSV file missing required columns")
)

// RowError describes a problem with a specific row and column.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// ErrorCollection accumulates row errors up to a cap while still counting
// the overflow.
type ErrorCollection struct {
	errors     []RowError
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates a collection retaining at most maxErrors entries.
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{
		errors:    make([]RowError, 0, maxErrors),
		maxErrors: maxErrors,
	}
}

// Add records an error.
func (ec *ErrorCollection) Add(err RowError) {
	ec.totalCount++
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// AddRequired records a missing required field.
func (ec *ErrorCollection) AddRequired(row int, column string) {
	ec.Add(RowError{
		Row: row, Column: column, Code: ErrCodeRequiredField,
		Message: fmt.Sprintf("field '%s' is required", column),
	})
}

// AddType records a value that failed to parse as the expected type.
func (ec *ErrorCollection) AddType(row int, column, expectedType, value string) {
	ec.Add(RowError{
		Row: row, Column: column, Code: ErrCodeInvalidType,
		Message: fmt.Sprintf("expected %s", expectedType),
		Value:   value,
	})
}

// AddRange records a value outside its permitted range.
func (ec *ErrorCollection) AddRange(row int, column, constraint, value string) {
	ec.Add(RowError{
		Row: row, Column: column, Code: ErrCodeInvalidRange,
		Message: constraint,
		Value:   value,
	})
}

// AddDuplicate records a value repeated earlier in the same file.
func (ec *ErrorCollection) AddDuplicate(row int, column, value string) {
	ec.Add(RowError{
		Row: row, Column: column, Code: ErrCodeDuplicateInFile,
		Message: fmt.Sprintf("duplicate value '%s' found in file", value),
		Value:   value,
	})
}

// Errors returns the retained errors.
func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

// TotalCount returns all errors seen, including dropped overflow.
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

// HasErrors reports whether anything was recorded.
func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// IsTruncated reports whether errors beyond the cap were dropped.
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.totalCount > ec.maxErrors
}

func (ec *ErrorCollection) String() string {
	if !ec.HasErrors() {
		return "no errors"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d error(s) found", ec.totalCount))
	if ec.IsTruncated() {
		sb.WriteString(fmt.Sprintf(" (showing first %d)", ec.maxErrors))
	}
	sb.WriteString(":\n")
	for _, err := range ec.errors {
		sb.WriteString("  - " + err.Error() + "\n")
	}
	return sb.String()
}
