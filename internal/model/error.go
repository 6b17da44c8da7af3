package model

import "fmt"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON             = "INVALID_JSON"
	ErrCodeInvalidRequest          = "INVALID_REQUEST"
	ErrCodeUnauthorised            = "UNAUTHORIZED"
	ErrCodeForbidden               = "FORBIDDEN"
	ErrCodeRateLimited             = "RATE_LIMITED"
	ErrCodeProductNotFound         = "PRODUCT_NOT_FOUND"
	ErrCodeSlugTaken               = "SLUG_TAKEN"
	ErrCodeInsufficientStock       = "INSUFFICIENT_STOCK"
	ErrCodeOrderNotFound           = "ORDER_NOT_FOUND"
	ErrCodeOrderStateConflict      = "ORDER_STATE_CONFLICT"
	ErrCodePaymentInitiationFailed = "PAYMENT_INITIATION_FAILED"
	ErrCodeSignatureInvalid        = "SIGNATURE_INVALID"
	ErrCodeAmountMismatch          = "AMOUNT_MISMATCH"
	ErrCodeUploadRejected          = "UPLOAD_REJECTED"
	ErrCodeInternalError           = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrInvalidRequest          = NewDomainError(ErrCodeInvalidRequest, "Invalid request")
	ErrUnauthenticated         = NewDomainError(ErrCodeUnauthorised, "Unauthorized")
	ErrForbidden               = NewDomainError(ErrCodeForbidden, "Admin permissions required")
	ErrRateLimited             = NewDomainError(ErrCodeRateLimited, "Too many requests. Please try again later.")
	ErrProductNotFound         = NewDomainError(ErrCodeProductNotFound, "One or more products not found")
	ErrSlugTaken               = NewDomainError(ErrCodeSlugTaken, "Slug already in use")
	ErrInsufficientStock       = NewDomainError(ErrCodeInsufficientStock, "Insufficient stock")
	ErrOrderNotFound           = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrOrderStateConflict      = NewDomainError(ErrCodeOrderStateConflict, "Order is not pending")
	ErrPaymentInitiationFailed = NewDomainError(ErrCodePaymentInitiationFailed, "Checkout failed. Please try again.")
	ErrSignatureInvalid        = NewDomainError(ErrCodeSignatureInvalid, "Invalid signature")
	ErrAmountMismatch          = NewDomainError(ErrCodeAmountMismatch, "Amount mismatch")
	ErrUploadRejected          = NewDomainError(ErrCodeUploadRejected, "Upload rejected")
)

// InvalidRequest returns an error matching ErrInvalidRequest with a specific reason.
func InvalidRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// InsufficientStockError reports a cart line that exceeds the product's stock.
// It matches ErrInsufficientStock under errors.Is.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for %s. Only %d available.", e.ProductName, e.Available)
}

// Is reports whether target is ErrInsufficientStock.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
