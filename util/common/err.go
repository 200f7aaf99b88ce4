// Package common holds the error kinds shared by services and controllers.
package common

import (
	"errors"
	"fmt"

	"github.com/postscript-blog/postscript/logger"
)

// Error kinds. Services wrap one of these with %w and controllers classify with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrAuth       = errors.New("authentication error")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrToken      = errors.New("invalid or expired token")
	ErrSession    = errors.New("session error")
	ErrServer     = errors.New("server error")
)

// KindError carries a user-facing message and the kind it belongs to.
type KindError struct {
	Kind    error
	Message string
	Details []string
	cause   error
}

func (e *KindError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Message
}

func (e *KindError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Kind, e.cause}
	}
	return []error{e.Kind}
}

func newKind(kind error, format string, a ...any) error {
	return &KindError{Kind: kind, Message: fmt.Sprintf(format, a...)}
}

func Validation(format string, a ...any) error { return newKind(ErrValidation, format, a...) }
func Auth(format string, a ...any) error       { return newKind(ErrAuth, format, a...) }
func Forbidden(format string, a ...any) error  { return newKind(ErrForbidden, format, a...) }
func NotFound(format string, a ...any) error   { return newKind(ErrNotFound, format, a...) }
func Conflict(format string, a ...any) error   { return newKind(ErrConflict, format, a...) }
func Token(format string, a ...any) error      { return newKind(ErrToken, format, a...) }

// Validations reports every failing rule at once.
func Validations(details []string) error {
	msg := "invalid input"
	if len(details) == 1 {
		msg = details[0]
	}
	return &KindError{Kind: ErrValidation, Message: msg, Details: details}
}

// Server wraps an unexpected failure. The cause is kept for logging but is not shown to users.
func Server(cause error, format string, a ...any) error {
	return &KindError{Kind: ErrServer, Message: fmt.Sprintf(format, a...), cause: cause}
}

// Session wraps a session store failure.
func Session(cause error) error {
	return &KindError{Kind: ErrSession, Message: "could not update session", cause: cause}
}

// Message returns the user-facing text of err. Unknown errors collapse to a generic message.
func Message(err error) string {
	var ke *KindError
	if errors.As(err, &ke) {
		if ke.Kind == ErrServer || ke.Kind == ErrSession || ke.Message == "" {
			return "something went wrong, please try again"
		}
		return ke.Message
	}
	return "something went wrong, please try again"
}

// Details returns the per-rule messages of a validation error, if any.
func Details(err error) []string {
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Details
	}
	return nil
}

// Combine joins the non-nil errors.
func Combine(errs ...error) error {
	return errors.Join(errs...)
}

// Recover is deferred at the top of background goroutines; it logs and swallows a panic.
func Recover(msg string) any {
	panicErr := recover()
	if panicErr != nil {
		if msg != "" {
			logger.Error(msg, "panic:", panicErr)
		}
	}
	return panicErr
}
