// Package errs provides structured error types and helpers for traderdesk.
package errs

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

// Code identifies the failure category at the gateway call boundary.
type Code string

const (
	// CodeNotFound indicates the requested resource does not exist.
	CodeNotFound Code = "not_found"
	// CodeValidationRejected indicates the request was refused, locally or by the gateway.
	CodeValidationRejected Code = "validation_rejected"
	// CodeNetworkUnavailable indicates a transport failure or timeout.
	CodeNetworkUnavailable Code = "network_unavailable"
	// CodeServerError indicates a gateway-side failure or an unreadable response.
	CodeServerError Code = "server_error"
	// CodeInvalid indicates invalid arguments supplied by the caller.
	CodeInvalid Code = "invalid_request"
	// CodeUnavailable indicates a local component is closed or saturated.
	CodeUnavailable Code = "unavailable"
)

// E captures structured error information produced across traderdesk.
type E struct {
	Resource  string
	Code      Code
	HTTP      int
	Message   string
	RequestID string
	Metadata  map[string]string

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error envelope for the resource and error code.
func New(resource string, code Code, opts ...Option) *E {
	e := &E{
		Resource:  strings.TrimSpace(resource),
		Code:      code,
		HTTP:      0,
		Message:   "",
		RequestID: "",
		Metadata:  nil,
		cause:     nil,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithMessage attaches a human-readable message to the error.
func WithMessage(message string) Option {
	trimmed := strings.TrimSpace(message)
	return func(e *E) {
		e.Message = trimmed
	}
}

// WithHTTP records the associated HTTP status code.
func WithHTTP(status int) Option {
	return func(e *E) {
		e.HTTP = status
	}
}

// WithRequestID records the correlation id sent with the failed request.
func WithRequestID(id string) Option {
	trimmed := strings.TrimSpace(id)
	return func(e *E) {
		e.RequestID = trimmed
	}
}

// WithCause sets the underlying cause error.
func WithCause(err error) Option {
	return func(e *E) {
		e.cause = err
	}
}

// WithField appends a single metadata key/value pair.
func WithField(key, value string) Option {
	return func(e *E) {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			return
		}
		if e.Metadata == nil {
			e.Metadata = make(map[string]string, 1)
		}
		e.Metadata[trimmedKey] = strings.TrimSpace(value)
	}
}

func (e *E) Error() string {
	if e == nil {
		return "<nil>"
	}
	var parts []string

	resource := strings.TrimSpace(e.Resource)
	if resource == "" {
		resource = "unknown"
	}
	parts = append(parts, "resource="+resource)

	code := strings.TrimSpace(string(e.Code))
	if code == "" {
		code = "unknown"
	}
	parts = append(parts, "code="+code)

	if e.HTTP > 0 {
		parts = append(parts, "http="+strconv.Itoa(e.HTTP))
	}
	if e.Message != "" {
		parts = append(parts, "message="+strconv.Quote(e.Message))
	}
	if e.RequestID != "" {
		parts = append(parts, "request_id="+e.RequestID)
	}
	if len(e.Metadata) > 0 {
		keys := make([]string, 0, len(e.Metadata))
		for k := range e.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+"="+strconv.Quote(e.Metadata[k]))
		}
		parts = append(parts, "fields="+strings.Join(pairs, ","))
	}
	if e.cause != nil {
		parts = append(parts, "cause="+strconv.Quote(e.cause.Error()))
	}

	return strings.Join(parts, " ")
}

func (e *E) Unwrap() error { return e.cause }

// KindOf returns the code of the first envelope in the error chain, or
// CodeServerError when the chain carries none.
func KindOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *E
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	return CodeServerError
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && KindOf(err) == code
}

// Rejected returns a locally produced ValidationRejected error.
func Rejected(resource, msg string) *E {
	return New(resource, CodeValidationRejected, WithMessage(msg))
}
