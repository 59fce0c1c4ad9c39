// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes following domain-driven design
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Validation errors (400)
	CodeValidation = "VALIDATION_ERROR"

	// Business rule violations (422)
	CodeBusinessRule             = "BUSINESS_RULE_VIOLATION"
	CodeInsufficientStock        = "INSUFFICIENT_STOCK"
	CodeInsufficientStockRevert  = "INSUFFICIENT_STOCK_TO_REVERT"
	CodeNegativeValuationRevert  = "NEGATIVE_VALUATION_ON_REVERT"
	CodeInvalidStatusTransition  = "INVALID_STATUS_TRANSITION"
	CodeReprocessNonConvergence  = "REPROCESSING_NON_CONVERGENCE"

	// Concurrency (409, retryable)
	CodeConcurrencyConflict    = "CONCURRENCY_CONFLICT"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"
)

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, quantities, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewBusinessRule creates a business rule violation error (422)
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewInsufficientStock is returned when an outgoing movement would drive
// the on-hand quantity below zero.
func NewInsufficientStock(productID string, requested, available string) *AppError {
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    "Insufficient stock",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"product_id": productID,
			"requested":  requested,
			"available":  available,
		},
	}
}

// NewInsufficientStockToRevert is returned by the revert guard when
// reverting a movement would drive the on-hand quantity below zero.
func NewInsufficientStockToRevert(productID string, reverting, available string) *AppError {
	return &AppError{
		Code:       CodeInsufficientStockRevert,
		Message:    "Insufficient stock to revert movement",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"product_id": productID,
			"reverting":  reverting,
			"available":  available,
		},
	}
}

// NewNegativeValuationOnRevert is returned by the revert guard when
// reverting a movement would leave the remaining stock with a negative
// implied value.
func NewNegativeValuationOnRevert(productID string, revertValue, stockValue string) *AppError {
	return &AppError{
		Code:       CodeNegativeValuationRevert,
		Message:    "Revert would leave stock with negative valuation",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"product_id":   productID,
			"revert_value": revertValue,
			"stock_value":  stockValue,
		},
	}
}

// NewConcurrencyConflict wraps a serialization failure reported by the
// database. The operation failed cleanly and may be retried by the caller.
func NewConcurrencyConflict(err error) *AppError {
	return &AppError{
		Code:       CodeConcurrencyConflict,
		Message:    "Operation conflicted with a concurrent transaction. Retry.",
		HTTPStatus: http.StatusConflict,
		Err:        err,
	}
}

// NewConcurrentModification creates an optimistic locking error
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified by another user. Please refresh and try again.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewReprocessingNonConvergence is returned when the reprocessing engine
// exhausts its pass budget without reaching a fixed point.
func NewReprocessingNonConvergence(storeID, productID string, passes int) *AppError {
	return &AppError{
		Code:       CodeReprocessNonConvergence,
		Message:    "Ledger reprocessing did not converge",
		HTTPStatus: http.StatusInternalServerError,
		Details: map[string]any{
			"store_id":   storeID,
			"product_id": productID,
			"passes":     passes,
		},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsCode checks whether the error carries the given application code.
func IsCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// IsConcurrencyConflict reports whether the error is a retryable
// serialization conflict.
func IsConcurrencyConflict(err error) bool {
	return IsCode(err, CodeConcurrencyConflict)
}
