package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/quizgen/internal/domain"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

var statusByCode = map[string]int{
	domain.ErrCodeValidation:       http.StatusBadRequest,
	domain.ErrCodeInvalidOperation: http.StatusBadRequest,
	domain.ErrCodeUnauthorized:     http.StatusUnauthorized,
	domain.ErrCodeNotFound:         http.StatusNotFound,
	domain.ErrCodeTaskNotReady:     http.StatusConflict,
	domain.ErrCodeTaskFailed:       http.StatusUnprocessableEntity,
	domain.ErrCodeAllFilesFailed:   http.StatusUnprocessableEntity,
	domain.ErrCodeDownloadFailed:   http.StatusUnprocessableEntity,
	domain.ErrCodeExtraction:       http.StatusUnprocessableEntity,
	domain.ErrCodeGeneration:       http.StatusBadGateway,
	domain.ErrCodeUnavailable:      http.StatusServiceUnavailable,
	domain.ErrCodeInternalError:    http.StatusInternalServerError,
}

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// ErrorCode returns the machine-readable code for err, or "" when err
// carries none.
func ErrorCode(err error) string {
	var (
		domainErr     *domain.DomainError
		downloadErr   *domain.DownloadError
		extractErr    *domain.ExtractionError
		generationErr *domain.GenerationError
	)
	switch {
	case errors.As(err, &domainErr):
		return domainErr.Code
	case errors.As(err, &downloadErr):
		return domain.ErrCodeDownloadFailed
	case errors.As(err, &extractErr):
		return domain.ErrCodeExtraction
	case errors.As(err, &generationErr):
		return domain.ErrCodeGeneration
	}
	return ""
}

// DomainErrorToHTTP maps an error to its HTTP status. Unknown codes and
// plain errors are 500.
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if status, ok := statusByCode[ErrorCode(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// HandleError writes err with its mapped status and code.
func HandleError(w http.ResponseWriter, err error) {
	JSON(w, DomainErrorToHTTP(err), ErrorResponse{
		Error: err.Error(),
		Code:  ErrorCode(err),
	})
}
