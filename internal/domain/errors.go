package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failure independently of where it happened.
type Kind string

const (
	KindClientInput       Kind = "client_input"
	KindMethodNotAllowed  Kind = "method_not_allowed"
	KindRateLimited       Kind = "rate_limited"
	KindUpstreamTransport Kind = "upstream_transport"
	KindUpstreamJob       Kind = "upstream_job"
	KindUpstreamShape     Kind = "upstream_shape"
	KindConfiguration     Kind = "configuration"
	KindTimeout           Kind = "timeout"
	KindCancelled         Kind = "cancelled"
	KindInternal          Kind = "internal"
)

// Stage is the orchestration step a failure is attributed to.
type Stage string

const (
	StageValidation    Stage = "validation"
	StageDispatchStart Stage = "dispatch-start"
	StagePoll          Stage = "poll"
	StageFetch         Stage = "fetch"
	StageEncode        Stage = "encode"
)

// Message codes. Handlers localize them; the core never renders text for callers.
const (
	CodeMethodNotAllowed      = "method_not_allowed"
	CodeInvalidPayload        = "invalid_payload"
	CodePromptAndTypeRequired = "prompt_and_type_required"
	CodeInvalidType           = "invalid_type"
	CodeImageRequestFailed    = "image_request_failed"
	CodeImageUnavailable      = "image_unavailable"
	CodeVideoStartFailed      = "video_start_failed"
	CodeVideoPollFailed       = "video_poll_failed"
	CodeVideoJobFailed        = "video_job_failed"
	CodeVideoUnavailable      = "video_unavailable"
	CodeVideoFetchFailed      = "video_fetch_failed"
	CodeVideoEncodeFailed     = "video_encode_failed"
	CodeVideoTimeout          = "video_timeout"
	CodeUpstreamTimeout       = "upstream_timeout"
	CodeCancelled             = "cancelled"
	CodeRateLimited           = "rate_limited"
	CodeMissingCredential     = "missing_credential"
	CodeInternal              = "internal"
)

// StatusClientClosedRequest is reported when the caller went away mid-request.
const StatusClientClosedRequest = 499

// Error is the normalized failure produced by every stage. Detail is passed
// through to callers verbatim and never interpreted.
type Error struct {
	Kind           Kind
	Stage          Stage
	Code           string
	UpstreamStatus int
	Detail         json.RawMessage
	Err            error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Stage != "" {
		b.WriteString(" at ")
		b.WriteString(string(e.Stage))
	}
	if e.Code != "" {
		b.WriteString(" (")
		b.WriteString(e.Code)
		b.WriteString(")")
	}
	if e.UpstreamStatus != 0 {
		fmt.Fprintf(&b, ": upstream status %d", e.UpstreamStatus)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the failure onto the outward status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindClientInput:
		return http.StatusBadRequest
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindCancelled:
		return StatusClientClosedRequest
	case KindUpstreamTransport:
		if e.UpstreamStatus >= 400 && e.UpstreamStatus < 500 {
			return e.UpstreamStatus
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ClientFault reports whether the caller is to blame.
func (e *Error) ClientFault() bool {
	status := e.HTTPStatus()
	return status >= 400 && status < 500 && e.Kind != KindCancelled
}

// NewClientError builds a validation failure.
func NewClientError(code string, err error) *Error {
	return &Error{Kind: KindClientInput, Stage: StageValidation, Code: code, Err: err}
}

// Normalize converts any error into an *Error. Existing *Error values are
// returned as-is; context errors become cancellation or timeout outcomes.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	switch {
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindCancelled, Code: CodeCancelled, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Code: CodeUpstreamTimeout, Err: err}
	}
	return &Error{Kind: KindInternal, Code: CodeInternal, Err: err}
}

// RawDetail turns an upstream body into a pass-through diagnostic. Bodies that
// are not JSON are kept as a JSON string; empty bodies yield nil.
func RawDetail(body []byte) json.RawMessage {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil
	}
	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	encoded, err := json.Marshal(trimmed)
	if err != nil {
		return nil
	}
	return encoded
}
