package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error kinds. Every concrete error below unwraps to exactly one of them so
// callers can branch with errors.Is.
var (
	ErrAuth          = errors.New("not authorized")
	ErrRequest       = errors.New("request failed")
	ErrValidation    = errors.New("validation failed")
	ErrWorkflow      = errors.New("workflow violation")
	ErrDataIntegrity = errors.New("data integrity violation")

	// ErrMissingBaseURL is wrapped by the RequestError returned when no
	// backend URL was configured.
	ErrMissingBaseURL = errors.New("backend base URL is not configured")
)

// Kind classifies an error for the presentation layer
type Kind string

const (
	KindNone          Kind = ""
	KindAuth          Kind = "AUTH_ERROR"
	KindRequest       Kind = "REQUEST_ERROR"
	KindValidation    Kind = "VALIDATION_ERROR"
	KindWorkflow      Kind = "WORKFLOW_ERROR"
	KindDataIntegrity Kind = "DATA_INTEGRITY_ERROR"
)

// Classify maps err onto its Kind. Unknown errors are reported as request errors.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrWorkflow):
		return KindWorkflow
	case errors.Is(err, ErrDataIntegrity):
		return KindDataIntegrity
	default:
		return KindRequest
	}
}

// AuthError is returned when the backend answers 401 or 403. The session has
// already been cleared by the time a caller sees it.
type AuthError struct {
	StatusCode int       `json:"status_code"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Message    string    `json:"message,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Error implements the error interface
func (e *AuthError) Error() string {
	return fmt.Sprintf("%s %s: not authorized (status %d)", e.Method, e.Path, e.StatusCode)
}

func (e *AuthError) Unwrap() error { return ErrAuth }

// RequestError covers every non-auth failure: non-2xx statuses, transport
// errors, timeouts and local rejections such as an unsupported method.
// StatusCode is zero when no response was received.
type RequestError struct {
	StatusCode int       `json:"status_code,omitempty"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Message    string    `json:"message"`
	RequestID  string    `json:"request_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Err        error     `json:"-"`
}

// Error implements the error interface
func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Message)
}

// Is reports ErrRequest as the kind while Unwrap exposes the cause.
func (e *RequestError) Is(target error) bool { return target == ErrRequest }

func (e *RequestError) Unwrap() error { return e.Err }

// FieldError is one failing (field, reason) pair.
type FieldError struct {
	Field  string      `json:"field"`
	Reason string      `json:"reason"`
	Value  interface{} `json:"value,omitempty"`
}

// ValidationError carries every failing field of a rejected write.
type ValidationError struct {
	Entity string       `json:"entity"`
	Fields []FieldError `json:"fields"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Reason))
	}
	return fmt.Sprintf("invalid %s: %s", e.Entity, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Has reports whether field is among the failures.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// WorkflowError rejects a mutation of a non-editable report or an illegal
// status change. From and To are empty when not applicable. Err, when set,
// is the specific rule that rejected the change.
type WorkflowError struct {
	ReportID int64        `json:"report_id,omitempty"`
	Status   ReportStatus `json:"status"`
	From     ReportStatus `json:"from,omitempty"`
	To       ReportStatus `json:"to,omitempty"`
	Message  string       `json:"message"`
	Err      error        `json:"-"`
}

// Error implements the error interface
func (e *WorkflowError) Error() string {
	if e.To != "" {
		return fmt.Sprintf("invalid status transition %q -> %q: %s", e.From, e.To, e.Message)
	}
	return fmt.Sprintf("report %d is %q: %s", e.ReportID, e.Status, e.Message)
}

func (e *WorkflowError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrWorkflow, e.Err}
	}
	return []error{ErrWorkflow}
}

// DataIntegrityError reports a sub-entity whose id does not match the
// reference held by its report.
type DataIntegrityError struct {
	ReportID int64  `json:"report_id"`
	Part     string `json:"part"`
	Expected int64  `json:"expected"`
	Actual   int64  `json:"actual"`
}

// Error implements the error interface
func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("report %d: %s id mismatch: expected %d, got %d", e.ReportID, e.Part, e.Expected, e.Actual)
}

func (e *DataIntegrityError) Unwrap() error { return ErrDataIntegrity }

// PartialFetchError is returned when the report was read but at least one of
// its linked entities could not be.
type PartialFetchError struct {
	ReportID int64            `json:"report_id"`
	Failures map[string]error `json:"-"`
}

// Parts lists the failed parts in a stable order.
func (e *PartialFetchError) Parts() []string {
	var parts []string
	for _, name := range []string{"reporter", "patient", "disease"} {
		if _, ok := e.Failures[name]; ok {
			parts = append(parts, name)
		}
	}
	return parts
}

// Error implements the error interface
func (e *PartialFetchError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, part := range e.Parts() {
		msgs = append(msgs, fmt.Sprintf("%s: %v", part, e.Failures[part]))
	}
	return fmt.Sprintf("report %d incomplete: %s", e.ReportID, strings.Join(msgs, "; "))
}

// Is makes a partial fetch classify as a request failure.
func (e *PartialFetchError) Is(target error) bool { return target == ErrRequest }
