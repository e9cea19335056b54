// utils/errors.go
package utils

import "github.com/gofiber/fiber/v2"

// ErrorCode is the enumerated taxonomy used across all services. Controllers
// never pick HTTP statuses by hand — they go through StatusForCode.
type ErrorCode string

const (
	CodeValidationError     ErrorCode = "VALIDATION_ERROR"
	CodeUnauthorized        ErrorCode = "UNAUTHORIZED"
	CodeForbidden           ErrorCode = "FORBIDDEN"
	CodeUserNotFound        ErrorCode = "USER_NOT_FOUND"
	CodeDuplicateEmail      ErrorCode = "DUPLICATE_EMAIL"
	CodeAdNotFound          ErrorCode = "AD_NOT_FOUND"
	CodeBlogNotFound        ErrorCode = "BLOG_NOT_FOUND"
	CodePurchaseNotFound    ErrorCode = "PURCHASE_NOT_FOUND"
	CodeRatioNotFound       ErrorCode = "RATIO_NOT_FOUND"
	CodeInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
	CodeInvalidSignature    ErrorCode = "INVALID_SIGNATURE"
	CodePaymentError        ErrorCode = "PAYMENT_ERROR"
	CodeUploadError         ErrorCode = "UPLOAD_ERROR"
	CodeDatabaseError       ErrorCode = "DATABASE_ERROR"
	CodeInternalServerError ErrorCode = "INTERNAL_SERVER_ERROR"
)

// statusByCode maps error codes to HTTP statuses. Unmapped codes fall back to 500.
var statusByCode = map[ErrorCode]int{
	CodeValidationError:     fiber.StatusBadRequest,
	CodeUnauthorized:        fiber.StatusUnauthorized,
	CodeForbidden:           fiber.StatusForbidden,
	CodeUserNotFound:        fiber.StatusNotFound,
	CodeDuplicateEmail:      fiber.StatusConflict,
	CodeAdNotFound:          fiber.StatusNotFound,
	CodeBlogNotFound:        fiber.StatusNotFound,
	CodePurchaseNotFound:    fiber.StatusNotFound,
	CodeRatioNotFound:       fiber.StatusBadRequest,
	CodeInsufficientBalance: fiber.StatusBadRequest,
	CodeInvalidSignature:    fiber.StatusUnauthorized,
	CodePaymentError:        fiber.StatusBadGateway,
	CodeUploadError:         fiber.StatusInternalServerError,
	CodeDatabaseError:       fiber.StatusInternalServerError,
	CodeInternalServerError: fiber.StatusInternalServerError,
}

func StatusForCode(code ErrorCode) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return fiber.StatusInternalServerError
}

// AppError carries a code plus a human message. Details holds the underlying
// cause (e.g. the repository error string) and is surfaced in the envelope.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return string(e.Code) + ": " + e.Message + " (" + e.Details + ")"
	}
	return string(e.Code) + ": " + e.Message
}

func NewError(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// WrapError rewraps an infra error with a domain code, preserving the
// underlying message as details.
func WrapError(code ErrorCode, message string, err error) *AppError {
	appErr := &AppError{Code: code, Message: message}
	if err != nil {
		appErr.Details = err.Error()
	}
	return appErr
}
