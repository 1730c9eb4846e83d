package services

import "fmt"

// Error codes surfaced to controllers. Controllers map these onto HTTP
// status codes; see controllers package.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeJobNotFound       = "JOB_NOT_FOUND"
	CodePrinterNotFound   = "PRINTER_NOT_FOUND"
	CodeVersionConflict   = "VERSION_CONFLICT"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeDatabase          = "DATABASE_ERROR"
)

// ServiceError is a domain error with a stable code and a human-readable
// message safe to return to clients.
type ServiceError struct {
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a client error for malformed input
func NewValidationError(format string, args ...interface{}) *ServiceError {
	return &ServiceError{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError creates a not-found error with the given code
func NewNotFoundError(code, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message}
}

// NewConflictError creates a conflict error with the given code
func NewConflictError(code, format string, args ...interface{}) *ServiceError {
	return &ServiceError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewDatabaseError wraps a storage failure
func NewDatabaseError(message string, err error) *ServiceError {
	return &ServiceError{Code: CodeDatabase, Message: message, Err: err}
}

// ErrorCode extracts the service error code, or CodeDatabase for
// unclassified errors.
func ErrorCode(err error) string {
	if se, ok := err.(*ServiceError); ok {
		return se.Code
	}
	return CodeDatabase
}

// IsNotFound reports whether err is a not-found service error
func IsNotFound(err error) bool {
	code := ErrorCode(err)
	return code == CodeJobNotFound || code == CodePrinterNotFound
}

// IsConflict reports whether err is a version or transition conflict
func IsConflict(err error) bool {
	code := ErrorCode(err)
	return code == CodeVersionConflict || code == CodeInvalidTransition
}
