package voucher

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrDuplicateCode = errors.New("voucher_code already exists")
	ErrNotFound      = errors.New("voucher not found")
	ErrFormat        = errors.New("invalid CSV format")
)

// ValidationError carries the per-field messages of a rejected candidate.
type ValidationError struct {
	Fields ValidationErrors
}

func (e *ValidationError) Error() string {
	field, msg := e.Fields.First()
	if field == "" {
		return ErrValidation.Error()
	}

	return msg
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// FormatError is returned when a CSV header lacks required columns.
// The whole import is aborted before any row is processed.
type FormatError struct {
	Missing []string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid CSV format: missing required columns: %s", strings.Join(e.Missing, ", "))
}

func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}
