package domain

import "fmt"

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

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
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
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAcquisition   = "ACQUISITION_ERROR"
	ErrCodeUpstream      = "UPSTREAM_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrInvalidSourceType    = NewDomainError(ErrCodeValidation, "invalid source type")
	ErrEmptyQuestion        = NewDomainError(ErrCodeValidation, "question cannot be empty")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrSourceNotFound  = NewDomainError(ErrCodeNotFound, "source not found")
	ErrMessageNotFound = NewDomainError(ErrCodeNotFound, "message not found")
)

// Acquisition errors
var (
	// ErrNoContent is returned in strict acquisition mode when every
	// fetch strategy was exhausted without producing text.
	ErrNoContent = NewDomainError(ErrCodeAcquisition, "no content could be acquired for url")
)

// Upstream service errors
var (
	ErrEmbeddingFailed  = NewDomainError(ErrCodeUpstream, "embedding service call failed")
	ErrCompletionFailed = NewDomainError(ErrCodeUpstream, "completion service call failed")
	ErrVectorStoreFail  = NewDomainError(ErrCodeUpstream, "vector store operation failed")
)
