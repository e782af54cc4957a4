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
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeExtraction    = "EXTRACTION_ERROR"
	ErrCodeEmbedding     = "EMBEDDING_ERROR"
	ErrCodeStore         = "STORE_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrMissingUnitID    = NewDomainError(ErrCodeValidation, "unit_id is required")
	ErrMissingChannelID = NewDomainError(ErrCodeValidation, "channel_id is required")
	ErrMissingAuthorID  = NewDomainError(ErrCodeValidation, "author_id is required")
	ErrMissingQuestion  = NewDomainError(ErrCodeValidation, "question is required")
	ErrEmptyThread      = NewDomainError(ErrCodeValidation, "thread contains no messages")
)

// Not found errors
var (
	ErrUnitNotFound = NewDomainError(ErrCodeNotFound, "content unit not found")
)

// Authorization errors
var (
	ErrInvalidAPIToken = NewDomainError(ErrCodeUnauthorized, "invalid api token")
)

// Pipeline errors
var (
	ErrEmbeddingFailed  = NewDomainError(ErrCodeEmbedding, "embedding generation failed")
	ErrStoreFailed      = NewDomainError(ErrCodeStore, "vector store write failed")
	ErrGenerationFailed = NewDomainError(ErrCodeInternalError, "answer generation failed")
)
