package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError by code and message so wrapped sentinels
// still satisfy errors.Is.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeAlreadyExists       = "ALREADY_EXISTS"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeInvalidOperation    = "INVALID_OPERATION"
	ErrCodeExtractionFailed    = "EXTRACTION_FAILED"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
)

// Validation errors
var (
	ErrMissingFile          = NewDomainError(ErrCodeValidation, "document file is required")
	ErrMissingQuery         = NewDomainError(ErrCodeValidation, "query is required")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrTenantNotFound   = NewDomainError(ErrCodeNotFound, "tenant not found")
	ErrAPIKeyNotFound   = NewDomainError(ErrCodeNotFound, "api key not found")
)

// Already exists errors
var (
	ErrTenantAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "tenant already exists")
	ErrAPIKeyAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "api key already exists")
)

// Authorization errors
var (
	ErrAPIKeyRevoked = NewDomainError(ErrCodeUnauthorized, "api key has been revoked")
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)

// Pipeline errors
var (
	ErrExtractionFailed     = NewDomainError(ErrCodeExtractionFailed, "failed to extract text from document")
	ErrUnsupportedFileType  = NewDomainError(ErrCodeExtractionFailed, "unsupported document type")
	ErrRetrievalFailed      = NewDomainError(ErrCodeUpstreamUnavailable, "failed to embed query for retrieval")
	ErrUpstreamUnavailable  = NewDomainError(ErrCodeUpstreamUnavailable, "upstream model provider unavailable")
	ErrStorageOperationFail = NewDomainError(ErrCodeInternalError, "storage operation failed")
	ErrStorageNotConfigured = NewDomainError(ErrCodeInvalidOperation, "object storage not configured")
)
