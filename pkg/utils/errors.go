package utils

import (
	"fmt"
)

// AppError application error structure
type AppError struct {
	Code    ResponseCode `json:"code"`
	Message string       `json:"message"`
	Err     error        `json:"-"`
}

// Error implement error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("code: %d, message: %s, error: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("code: %d, message: %s", e.Code, e.Message)
}

// Unwrap implement errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is lets predefined errors match wrapped copies carrying the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError create new application error
func NewError(code ResponseCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// WrapError wrap error
func WrapError(err error, code ResponseCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Predefined errors
var (
	// Parameter errors
	ErrInvalidParam = NewError(CodeInvalidParam, "invalid parameter")

	// Account related errors
	ErrProfileNotFound    = NewError(CodeProfileNotFound, "profile not found")
	ErrProfileNotApproved = NewError(CodeProfileNotApproved, "profile not approved")

	// Product and stock related errors
	ErrProductNotFound    = NewError(CodeProductNotFound, "product not found")
	ErrProductNotApproved = NewError(CodeProductNotApproved, "product not approved for sale")
	ErrInsufficientStock  = NewError(CodeInsufficientStock, "insufficient stock")

	// Order and payment related errors
	ErrOrderNotFound       = NewError(CodeOrderNotFound, "order not found")
	ErrIllegalTransition   = NewError(CodeIllegalTransition, "illegal order status transition")
	ErrTransactionNotFound = NewError(CodeTransactionNotFound, "transaction not found")
	ErrAmountExceedsTotal  = NewError(CodeAmountExceedsTotal, "amount exceeds order total")
	ErrOrderNotCancellable = NewError(CodeOrderNotCancellable, "order can no longer be cancelled")

	// System errors
	ErrInternalError       = NewError(CodeInternalError, "internal server error")
	ErrDatabaseError       = NewError(CodeDatabaseError, "database error")
	ErrConstraintViolation = NewError(CodeConstraintViolation, "store rejected value")
	ErrRateLimit           = NewError(CodeRateLimit, "rate limit exceeded")
)

// IsAppError check if it's an application error
func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

// GetErrorCode get error code
func GetErrorCode(err error) ResponseCode {
	if appErr, ok := IsAppError(err); ok {
		return appErr.Code
	}
	return CodeInternalError
}

// GetErrorMessage get error message
func GetErrorMessage(err error) string {
	if appErr, ok := IsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}
