// Package apperr defines the error taxonomy shared across the HTTP surface,
// the lifecycle manager and the subscription state machine. Handlers map an
// *Error to the uniform envelope in internal/http/response by inspecting
// its Kind; everything else is reported as Internal.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind names one of the error categories from the error taxonomy.
type Kind string

const (
	Validation          Kind = "Validation"
	AuthRequired        Kind = "AuthRequired"
	AuthFailed          Kind = "AuthFailed"
	Unentitled          Kind = "Unentitled"
	Forbidden           Kind = "Forbidden"
	NotFound            Kind = "NotFound"
	Conflict            Kind = "Conflict"
	RateLimited         Kind = "RateLimited"
	UpstreamUnreachable Kind = "UpstreamUnreachable"
	NotRunning          Kind = "NotRunning"
	ProviderDown        Kind = "ProviderDown"
	Internal            Kind = "Internal"

	// The lifecycle manager's component contract (spec §4.5) names these
	// more specific failure kinds. Each maps to the same status code as
	// the coarser taxonomy kind it specializes, but keeps the distinct
	// name the spec's error envelope is tested against.
	NameConflict  Kind = "NameConflict"  // 409, specializes Conflict
	LimitReached  Kind = "LimitReached"  // 400, specializes Validation
	InvalidLimits Kind = "InvalidLimits" // 400, specializes Validation
	EngineError   Kind = "EngineError"   // 500, a daemon-side failure
	ImageMissing  Kind = "ImageMissing"  // 500, specializes EngineError
)

var statusByKind = map[Kind]int{
	Validation:          http.StatusBadRequest,
	AuthRequired:        http.StatusUnauthorized,
	AuthFailed:          http.StatusUnauthorized,
	Unentitled:          http.StatusForbidden,
	Forbidden:           http.StatusForbidden,
	NotFound:            http.StatusNotFound,
	Conflict:            http.StatusConflict,
	RateLimited:         http.StatusTooManyRequests,
	UpstreamUnreachable: http.StatusBadGateway,
	NotRunning:          http.StatusServiceUnavailable,
	ProviderDown:        http.StatusServiceUnavailable,
	Internal:            http.StatusInternalServerError,

	NameConflict:  http.StatusConflict,
	LimitReached:  http.StatusBadRequest,
	InvalidLimits: http.StatusBadRequest,
	EngineError:   http.StatusInternalServerError,
	ImageMissing:  http.StatusInternalServerError,
}

// Error is a taxonomy-tagged application error. Message is safe to return
// to the client; it must never contain secret material.
type Error struct {
	Kind    Kind
	Message string
	Details any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status code for e.Kind, defaulting to 500 for an
// unrecognized kind (should not happen for a *Error constructed via New).
func (e *Error) Status() int {
	if status, ok := statusByKind[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// New builds an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error that wraps cause. cause's text is never included in
// Message; callers that want it surfaced must log it separately.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// WithDetails attaches structured detail (e.g. per-field validation
// messages) to an existing *Error and returns it for chaining.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// As reports whether err (or something it wraps) is an *Error, returning it.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// KindOf returns the Kind of err if it is an *Error, else Internal.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return Internal
}
