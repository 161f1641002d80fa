// Package apperr defines the error taxonomy shared by the gateway, the
// scheduling components and the HTTP layer.
package apperr

import (
	"errors"
	"net/http"
)

// Kind sentinels. Every error leaving a component wraps exactly one of them.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrTokenExpired        = errors.New("token expired")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrInvalidArguments    = errors.New("invalid arguments")
	ErrNotFound            = errors.New("not found")
	ErrInternal            = errors.New("internal error")
)

var kinds = []error{
	ErrUnauthorized,
	ErrTokenExpired,
	ErrUpstreamUnavailable,
	ErrInvalidArguments,
	ErrNotFound,
	ErrInternal,
}

// Error carries the failing operation, its kind and an optional cause.
type Error struct {
	Op   string
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New builds an error of the given kind with a message.
func New(op string, kind error, msg string) error {
	return &Error{Op: op, Kind: kind, Msg: msg}
}

// Wrap attaches op and kind to err. A nil err yields nil. An err that already
// carries a kind keeps it.
func Wrap(op string, kind error, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return &Error{Op: op, Kind: ae.Kind, Err: err}
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf returns the kind sentinel of err, or ErrInternal when none is found.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrInternal
}

// Code returns the stable machine-readable name of the error's kind.
func Code(err error) string {
	switch KindOf(err) {
	case ErrUnauthorized:
		return "unauthorized"
	case ErrTokenExpired:
		return "token_expired"
	case ErrUpstreamUnavailable:
		return "upstream_unavailable"
	case ErrInvalidArguments:
		return "invalid_arguments"
	case ErrNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// HTTPStatus maps the error's kind onto a response status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case ErrUnauthorized, ErrTokenExpired:
		return http.StatusUnauthorized
	case ErrInvalidArguments:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Invalid is shorthand for an InvalidArguments error.
func Invalid(op, msg string) error { return New(op, ErrInvalidArguments, msg) }

// NotFound is shorthand for a NotFound error.
func NotFound(op, msg string) error { return New(op, ErrNotFound, msg) }
