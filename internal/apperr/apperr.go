package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindPersistence Kind = iota
	KindValidation
	KindNotFound
	KindReconciliation
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindReconciliation:
		return "reconciliation"
	default:
		return "persistence"
	}
}

// Error is the typed failure returned by the service layer. Message is safe to
// show to clients; Err carries the underlying cause for logs.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// WithStatus overrides the HTTP status derived from the kind.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

func Reconciliation(format string, args ...any) *Error {
	return &Error{Kind: KindReconciliation, Status: http.StatusUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// Persistence wraps an unexpected store failure. The message is generic on purpose;
// cause stays in Err.
func Persistence(op string, err error) *Error {
	return &Error{
		Kind:    KindPersistence,
		Status:  http.StatusInternalServerError,
		Message: "Something went wrong, please try again later",
		Err:     fmt.Errorf("%s: %w", op, err),
	}
}

// From classifies any error. Errors that are not *Error become persistence errors.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Persistence("unclassified", err)
}

func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
