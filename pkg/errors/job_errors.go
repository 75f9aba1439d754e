package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode identifies a class of job failure.
type ErrorCode string

const (
	// ErrInvalidJobFormat means the trigger payload was missing required fields.
	ErrInvalidJobFormat ErrorCode = "INVALID_JOB_FORMAT"
	// ErrFetch means the source transcript could not be read.
	ErrFetch ErrorCode = "FETCH_FAILED"
	// ErrSegmentTranslation is logged for a single failed segment; it never aborts a job.
	ErrSegmentTranslation ErrorCode = "SEGMENT_TRANSLATION_FAILED"
	// ErrStore means an output artifact could not be persisted.
	ErrStore ErrorCode = "STORE_FAILED"
	// ErrUnexpected covers everything else caught at the job boundary.
	ErrUnexpected ErrorCode = "UNEXPECTED_ERROR"
)

// JobError represents a structured error raised while processing a job.
type JobError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	JobID     string                 `json:"job_id,omitempty"`
	Stage     string                 `json:"stage,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface.
func (je *JobError) Error() string {
	msg := je.Message
	if je.Cause != nil {
		msg = fmt.Sprintf("%s: %v", je.Message, je.Cause)
	}
	if je.Stage != "" {
		return fmt.Sprintf("[%s] %s: %s", je.Code, je.Stage, msg)
	}
	return fmt.Sprintf("[%s]: %s", je.Code, msg)
}

// Unwrap returns the underlying cause error.
func (je *JobError) Unwrap() error {
	return je.Cause
}

// NewJobError creates a new structured job error.
func NewJobError(code ErrorCode, message string) *JobError {
	return &JobError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Context:   make(map[string]interface{}),
	}
}

// WithJobID adds the job ID to the error.
func (je *JobError) WithJobID(jobID string) *JobError {
	je.JobID = jobID
	return je
}

// WithStage records the pipeline stage the error was raised in.
func (je *JobError) WithStage(stage string) *JobError {
	je.Stage = stage
	return je
}

// WithCause adds the underlying cause error.
func (je *JobError) WithCause(err error) *JobError {
	je.Cause = err
	return je
}

// WithContext adds arbitrary context to the error.
func (je *JobError) WithContext(key string, value interface{}) *JobError {
	je.Context[key] = value
	return je
}

// IsJobError reports whether err is, or wraps, a JobError.
func IsJobError(err error) (*JobError, bool) {
	var je *JobError
	if stderrors.As(err, &je) {
		return je, true
	}
	return nil, false
}

// HasErrorCode checks if an error carries a specific error code.
func HasErrorCode(err error, code ErrorCode) bool {
	if je, ok := IsJobError(err); ok {
		return je.Code == code
	}
	return false
}

// WrapError wraps a regular error as a JobError.
func WrapError(err error, code ErrorCode, message string) *JobError {
	return NewJobError(code, message).WithCause(err)
}

// HTTPStatus maps an error to the status code the HTTP layer reports.
// Malformed payloads are client errors; everything else is a server error.
func HTTPStatus(err error) int {
	if HasErrorCode(err, ErrInvalidJobFormat) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func NewInvalidJobFormatError(reason string) *JobError {
	return NewJobError(ErrInvalidJobFormat, "Invalid event format").
		WithContext("reason", reason)
}

func NewFetchError(bucket, object string, cause error) *JobError {
	return NewJobError(ErrFetch, "failed to fetch source transcript").
		WithContext("bucket", bucket).
		WithContext("object", object).
		WithCause(cause)
}

func NewStoreError(bucket, key string, cause error) *JobError {
	return NewJobError(ErrStore, "failed to store artifact").
		WithContext("bucket", bucket).
		WithContext("key", key).
		WithCause(cause)
}

func NewSegmentTranslationError(index int, target string, cause error) *JobError {
	return NewJobError(ErrSegmentTranslation, "segment translation failed").
		WithContext("segment", index).
		WithContext("target", target).
		WithCause(cause)
}
