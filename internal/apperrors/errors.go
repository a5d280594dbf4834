package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies failures so callers can decide between surfacing,
// re-fetching, or retrying the business operation.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindClientError        Kind = "client_error"
	KindConflict           Kind = "conflict"
	KindInvalidTransition  Kind = "invalid_transition"
	KindPreconditionFailed Kind = "precondition_failed"
	KindServiceUnavailable Kind = "service_unavailable"
	KindTimeout            Kind = "timeout"
)

// Error is the typed error carried across the service, repository and
// transport layers. Service names the logical origin (orders, menu,
// table-bill) for cross-service failures; it is empty for local errors.
type Error struct {
	Kind    Kind
	Service string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("%s: %s: %s", e.Service, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes two taxonomy errors match on Kind, so sentinel-style checks
// like errors.Is(err, apperrors.NotFound("", "")) work.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

func NotFound(service, format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Service: service, Message: fmt.Sprintf(format, args...)}
}

func ClientError(service, format string, args ...interface{}) *Error {
	return &Error{Kind: KindClientError, Service: service, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func InvalidTransition(from, to string) *Error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf("invalid status transition from %s to %s", from, to)}
}

func PreconditionFailed(format string, args ...interface{}) *Error {
	return &Error{Kind: KindPreconditionFailed, Message: fmt.Sprintf(format, args...)}
}

func ServiceUnavailable(service string, err error) *Error {
	return &Error{
		Kind:    KindServiceUnavailable,
		Service: service,
		Message: fmt.Sprintf("%s service is currently unavailable", service),
		Err:     err,
	}
}

func Timeout(service string, err error) *Error {
	return &Error{
		Kind:    KindTimeout,
		Service: service,
		Message: fmt.Sprintf("%s service did not respond in time", service),
		Err:     err,
	}
}

// IsKind reports whether err is a taxonomy error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// Retryable reports whether the failure is worth retrying at the
// transport level. Only unavailability and timeouts qualify; 4xx-class
// and business-rule failures never do.
func Retryable(err error) bool {
	return IsKind(err, KindServiceUnavailable) || IsKind(err, KindTimeout)
}
