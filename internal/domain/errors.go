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
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeTaskNotReady     = "TASK_NOT_READY"
	ErrCodeTaskFailed       = "TASK_FAILED"
	ErrCodeAllFilesFailed   = "ALL_FILES_FAILED"
	ErrCodeUnavailable      = "UNAVAILABLE"
	ErrCodeDownloadFailed   = "DOWNLOAD_FAILED"
	ErrCodeExtraction       = "EXTRACTION_FAILED"
	ErrCodeGeneration       = "GENERATION_FAILED"
)

// Validation errors
var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidTaskStatus    = NewDomainError(ErrCodeValidation, "invalid task status")
	ErrInvalidDifficulty    = NewDomainError(ErrCodeValidation, "invalid difficulty")
)

// Not found errors
var (
	ErrTaskNotFound  = NewDomainError(ErrCodeNotFound, "task not found")
	ErrCacheMiss     = NewDomainError(ErrCodeNotFound, "cache entry not found")
	ErrObjectMissing = NewDomainError(ErrCodeNotFound, "storage object not found")
)

// Authorization errors
var (
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)

// Operation errors
var (
	ErrTaskNotReady         = NewDomainError(ErrCodeTaskNotReady, "task has not finished yet")
	ErrGeneratorUnavailable = NewDomainError(ErrCodeUnavailable, "question generator is not configured")
	ErrStorageOperationFail = NewDomainError(ErrCodeInternalError, "storage operation failed")
)

// ExtractionError reports that a source could not be turned into text.
// It is fatal for that document only.
type ExtractionError struct {
	Source string
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("extract %s: %s", e.Source, e.Reason)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// DownloadError reports that a remote source file was unreachable.
type DownloadError struct {
	URL    string
	Status int
	Err    error
}

func (e *DownloadError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("download %s: status %d: %v", e.URL, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("download %s: status %d", e.URL, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("download %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("download %s: failed", e.URL)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// GenerationError reports a failed completion call. Status is the HTTP status
// returned by the endpoint, or 0 when no response was received.
type GenerationError struct {
	Status int
	Detail string
}

func (e *GenerationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("generation failed (status %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("generation failed: %s", e.Detail)
}

// Timeout reports whether the call was cut off by its deadline.
func (e *GenerationError) Timeout() bool {
	return e.Status == 0 && e.Detail == GenerationTimeoutDetail
}

// GenerationTimeoutDetail is the detail carried by a GenerationError caused by
// the per-call deadline.
const GenerationTimeoutDetail = "request timed out"

// ValidationError reports a question that violates its shape invariants.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid question %s: %s", e.Field, e.Reason)
}

// IsPerFileError reports whether err should be recorded against one file
// instead of failing the whole request.
func IsPerFileError(err error) bool {
	var extractErr *ExtractionError
	var downloadErr *DownloadError
	return errors.As(err, &extractErr) || errors.As(err, &downloadErr)
}
