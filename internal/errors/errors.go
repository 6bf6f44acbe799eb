// Package errors provides custom error types for the Moneta API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Category errors.
var (
	ErrCategoryNotFound  = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrCategoryInUse     = &AppError{Code: "CATEGORY_IN_USE", Message: "Category is used by existing transactions or budgets", StatusCode: http.StatusConflict}
	ErrCategoryImmutable = &AppError{Code: "CATEGORY_IMMUTABLE", Message: "System default categories cannot be modified", StatusCode: http.StatusForbidden}
)

// Transaction errors.
var (
	ErrTransactionNotFound    = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrInvalidTransactionType = &AppError{Code: "INVALID_TRANSACTION_TYPE", Message: "Unsupported transaction type", StatusCode: http.StatusBadRequest}
	ErrInvalidRecurringDay    = &AppError{Code: "INVALID_RECURRING_DAY", Message: "Recurring transactions require a recurring day between 1 and 31", StatusCode: http.StatusBadRequest}
)

// Budget errors.
var (
	ErrBudgetNotFound  = &AppError{Code: "BUDGET_NOT_FOUND", Message: "Budget not found", StatusCode: http.StatusNotFound}
	ErrDuplicateBudget = &AppError{Code: "DUPLICATE_BUDGET", Message: "A budget already exists for this category and month", StatusCode: http.StatusConflict}
)

// Goal errors.
var (
	ErrGoalNotFound    = &AppError{Code: "GOAL_NOT_FOUND", Message: "Goal not found", StatusCode: http.StatusNotFound}
	ErrInvalidGoalDate = &AppError{Code: "INVALID_GOAL_DATE", Message: "Goal end date must be after start date", StatusCode: http.StatusBadRequest}
)

// Goal share errors.
var (
	ErrShareNotFound        = &AppError{Code: "SHARE_NOT_FOUND", Message: "Goal share not found", StatusCode: http.StatusNotFound}
	ErrDuplicateShare       = &AppError{Code: "DUPLICATE_SHARE", Message: "This goal is already shared with that user", StatusCode: http.StatusConflict}
	ErrSelfShare            = &AppError{Code: "SELF_SHARE", Message: "A goal cannot be shared with its owner or inviter", StatusCode: http.StatusConflict}
	ErrShareAlreadyResolved = &AppError{Code: "SHARE_ALREADY_RESOLVED", Message: "This invitation has already been accepted or rejected", StatusCode: http.StatusConflict}
	ErrInvalidShareRole     = &AppError{Code: "INVALID_SHARE_ROLE", Message: "Unknown share role", StatusCode: http.StatusBadRequest}
)
