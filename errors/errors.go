package errors

import (
	"fmt"
	"net/http"
)

// AppError is the custom error type carried from usecases to HTTP handlers.
type AppError struct {
	Raw      error
	HTTPCode int
	Code     ErrorCode
	Message  string
	Details  map[string]string
}

// Error implements error interface
func (e AppError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code.String(), e.Message, e.Raw)
	}
	return fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is/As.
func (e AppError) Unwrap() error {
	return e.Raw
}

// WithDetail adds a detail to the error
func (e AppError) WithDetail(key, value string) AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// General Errors

func ErrInternal(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_INTERNAL,
		Message:  "Internal server error",
	}
}

func ErrInvalidArgument(message string) AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_ARGUMENT,
		Message:  message,
	}
}

func ErrInvalidPayload() AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_PAYLOAD,
		Message:  "Invalid payload",
	}
}

func ErrNotFound(resource string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_NOT_FOUND,
		Message:  fmt.Sprintf("%s not found", resource),
	}
}

// Segmentation Errors

// ErrEmptyTranscript rejects a segmentation request carrying no utterances.
// Raised before any oracle call is made.
func ErrEmptyTranscript() AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_EMPTY_TRANSCRIPT,
		Message:  "No utterances provided",
	}
}

// ErrOracleFailed signals exhausted retries against the oracle for a pass
// that has no safe default answer.
func ErrOracleFailed(pass string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadGateway,
		Code:     ErrorCode_ORACLE_FAILED,
		Message:  "Oracle call failed",
	}.WithDetail("pass", pass)
}

// ErrOracleBadJSON signals a response that could not be parsed as JSON.
func ErrOracleBadJSON(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadGateway,
		Code:     ErrorCode_ORACLE_BAD_JSON,
		Message:  "Oracle returned invalid JSON",
	}
}

// Transcription Errors

func ErrTranscriptionFailed(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadGateway,
		Code:     ErrorCode_TRANSCRIPTION_FAILED,
		Message:  "Audio transcription failed",
	}
}

func ErrTranscriptionDisabled() AppError {
	return AppError{
		HTTPCode: http.StatusServiceUnavailable,
		Code:     ErrorCode_TRANSCRIPTION_DISABLED,
		Message:  "Transcription provider is not configured",
	}
}

// Export / Persistence Errors

func ErrExportFailed(videoID string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_EXPORT_FAILED,
		Message:  "Failed to write export artifact",
	}.WithDetail("video_id", videoID)
}

func ErrDBQueryFailed(operation string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_DB_QUERY_FAILED,
		Message:  "Database query failed",
	}.WithDetail("operation", operation)
}
