// Package errors provides the structured error type used across the
// generator, warehouse and publishing layers. Every error carries a
// category, a code and a retryable flag.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by the stage that raised them.
type ErrorCategory string

const (
	ErrCategoryConfig     ErrorCategory = "CONFIG"
	ErrCategoryGeneration ErrorCategory = "GENERATION"
	ErrCategoryStorage    ErrorCategory = "STORAGE"
	ErrCategoryWarehouse  ErrorCategory = "WAREHOUSE"
	ErrCategoryExport     ErrorCategory = "EXPORT"
	ErrCategoryInternal   ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Config codes
	CodeInvalidConfig  = "INVALID_CONFIG"
	CodeInvalidWeights = "INVALID_WEIGHTS"

	// Generation codes
	CodeInvariantViolated = "INVARIANT_VIOLATED"

	// Storage codes
	CodeUploadFailed   = "UPLOAD_FAILED"
	CodeDownloadFailed = "DOWNLOAD_FAILED"
	CodeObjectNotFound = "OBJECT_NOT_FOUND"

	// Warehouse codes
	CodeLoadFailed        = "LOAD_FAILED"
	CodeMaterializeFailed = "MATERIALIZE_FAILED"
	CodeCheckFailed       = "CHECK_FAILED"

	// Export codes
	CodeWriteFailed = "WRITE_FAILED"
	CodeReadFailed  = "READ_FAILED"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// Error is the structured error type used throughout the module.
type Error struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new Error.
func New(category ErrorCategory, code, message string) *Error {
	return &Error{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new Error wrapping cause.
func Wrap(category ErrorCategory, code, message string, cause error) *Error {
	e := New(category, code, message)
	e.Cause = cause
	return e
}

// WithDetails returns a copy of the error with additional details.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetCategory extracts the category from an error chain, or "".
func GetCategory(err error) ErrorCategory {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return ""
}

// GetCode extracts the code from an error chain, or "".
func GetCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Only object transfers can fail transiently; generation is pure.
func isRetryable(category ErrorCategory, code string) bool {
	return category == ErrCategoryStorage &&
		(code == CodeUploadFailed || code == CodeDownloadFailed)
}

func NewConfigError(code, message string) *Error {
	return New(ErrCategoryConfig, code, message)
}

func NewStorageError(code, message string, cause error) *Error {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewWarehouseError(code, message string, cause error) *Error {
	return Wrap(ErrCategoryWarehouse, code, message, cause)
}

func NewExportError(code, message string, cause error) *Error {
	return Wrap(ErrCategoryExport, code, message, cause)
}

func NewInternalError(message string, cause error) *Error {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
