package core

import (
	"errors"
	"net/http"
	"strings"
)

// ErrorKind classifies operation failures.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindConflict   ErrorKind = "conflict"
	KindNotFound   ErrorKind = "not_found"
	KindRejected   ErrorKind = "rejected"
)

// Sentinels for errors.Is against *Error values of each kind.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
)

// Error is a failure that carries an HTTP-style status code.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrConflict:
		return e.Kind == KindConflict
	case ErrNotFound:
		return e.Kind == KindNotFound
	}
	return false
}

// Validation returns a 400 error.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: msg}
}

// Conflict returns a 409 error.
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Status: http.StatusConflict, Message: msg}
}

// ConflictWrap returns a 409 error wrapping a storage-level cause.
func ConflictWrap(msg string, err error) *Error {
	return &Error{Kind: KindConflict, Status: http.StatusConflict, Message: msg, Err: err}
}

// NotFound returns a 404 error.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: msg}
}

// Reject returns an error carrying an arbitrary status. Well-known statuses
// map onto their kinds.
func Reject(status int, msg string) *Error {
	kind := KindRejected
	switch status {
	case http.StatusBadRequest:
		kind = KindValidation
	case http.StatusNotFound:
		kind = KindNotFound
	case http.StatusConflict:
		kind = KindConflict
	}
	return &Error{Kind: kind, Status: status, Message: msg}
}

// statusPattern maps a storage error text onto a status when the driver did
// not already translate it.
type statusPattern struct {
	pattern string
	status  int
}

// statusPatterns are matched case-insensitively; first match wins.
var statusPatterns = []statusPattern{
	{pattern: "duplicate key", status: http.StatusConflict},
	{pattern: "unique constraint", status: http.StatusConflict},
	{pattern: "violates unique", status: http.StatusConflict},
	{pattern: "e11000", status: http.StatusConflict},
}

// StatusOf returns the status carried by err, falling back to known storage
// error patterns and finally to 500.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var e *Error
	if errors.As(err, &e) && e.Status != 0 {
		return e.Status
	}

	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) && sc.StatusCode() != 0 {
		return sc.StatusCode()
	}

	lower := strings.ToLower(err.Error())
	for _, p := range statusPatterns {
		if strings.Contains(lower, p.pattern) {
			return p.status
		}
	}

	return http.StatusInternalServerError
}
