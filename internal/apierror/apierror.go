// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import "net/http"

// Stable business error codes. Clients branch on Code, never on Detail.
const (
	CodeValidation              = "VALIDATION_ERROR"
	CodeNotFound                = "NOT_FOUND"
	CodeProductNotFound         = "PRODUCT_NOT_FOUND"
	CodeInsufficientStock       = "INSUFFICIENT_STOCK"
	CodeCustomerRequired        = "CUSTOMER_REQUIRED"
	CodeCreditLimitExceeded     = "CREDIT_LIMIT_EXCEEDED"
	CodeNoOpenShift             = "NO_OPEN_SHIFT"
	CodeShiftAlreadyOpen        = "SHIFT_ALREADY_OPEN"
	CodeShiftNotOpen            = "SHIFT_NOT_OPEN"
	CodeNotOpen                 = "NOT_OPEN"
	CodeRegisterNotFound        = "REGISTER_NOT_FOUND"
	CodeAlreadyCancelled        = "ALREADY_CANCELLED"
	CodeAlreadyRefunded         = "ALREADY_REFUNDED"
	CodeQuantityExceedsOriginal = "QUANTITY_EXCEEDS_ORIGINAL"
	CodeInvalidAmount           = "INVALID_AMOUNT"
	CodeForbidden               = "FORBIDDEN"
	CodeInternal                = "INTERNAL"
)

// Error is the canonical error envelope for all 4xx/5xx HTTP responses.
// It doubles as the business-error type returned by services: handlers
// type-assert on it to pick the HTTP status.
type Error struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

func (e *Error) Error() string { return e.Detail }

func New(code, detail string) *Error {
	return &Error{Code: code, Detail: detail}
}

// Internal hides the cause of an unexpected failure from the client.
func Internal() *Error {
	return &Error{Code: CodeInternal, Detail: "internal server error"}
}

// Status maps a business code to its HTTP status.
func (e *Error) Status() int {
	switch e.Code {
	case CodeNotFound, CodeProductNotFound, CodeRegisterNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodeAlreadyCancelled, CodeAlreadyRefunded, CodeShiftAlreadyOpen:
		return http.StatusConflict
	case CodeValidation:
		return http.StatusUnprocessableEntity
	case CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// ValidationError wraps multiple field errors from request binding.
type ValidationError struct {
	Code   string            `json:"code"`
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Code: CodeValidation, Detail: "validation failed", Fields: fields}
}
