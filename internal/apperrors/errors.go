// Package apperrors defines the error taxonomy shared by services and handlers.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so handlers can pick a status code without
// inspecting messages.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindAuthorization
	KindUnauthenticated
	KindRateLimit
	KindInvalidMedia
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindAuthorization:
		return "authorization"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindRateLimit:
		return "rate_limit"
	case KindInvalidMedia:
		return "invalid_media"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind, so errors.Is(err, Conflict(""))
// works as a kind check.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newErr(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error { return newErr(KindValidation, format, args...) }
func NotFound(format string, args ...any) *Error   { return newErr(KindNotFound, format, args...) }
func Conflict(format string, args ...any) *Error   { return newErr(KindConflict, format, args...) }
func Authorization(format string, args ...any) *Error {
	return newErr(KindAuthorization, format, args...)
}
func Unauthenticated(format string, args ...any) *Error {
	return newErr(KindUnauthenticated, format, args...)
}
func RateLimit(format string, args ...any) *Error { return newErr(KindRateLimit, format, args...) }
func InvalidMedia(format string, args ...any) *Error {
	return newErr(KindInvalidMedia, format, args...)
}

// Transient wraps a store or infrastructure failure. The caller should retry.
func Transient(err error) *Error {
	return &Error{Kind: KindTransient, Message: "temporary failure, please retry", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// Classify returns err unchanged when it already carries a kind and wraps
// it as Transient otherwise.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return Transient(err)
}
