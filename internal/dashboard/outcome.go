package dashboard

import (
	"fmt"

	"github.com/nfrund/userhome/internal/domain"
)

// OutcomeKind says how a dialog submission ended.
type OutcomeKind int

const (
	// Closed: the operation succeeded and the dialog goes away.
	Closed OutcomeKind = iota + 1
	// Invalid: the dialog stays open, optionally marking one field.
	Invalid
	// Redirect: the failure was not anticipated; the page is replaced by the
	// error page of Status.
	Redirect
)

// Validation keys shown next to form fields.
const (
	KeyDuplicate = "duplicate"
)

// Outcome is the typed result of a dialog submission.
type Outcome[T any] struct {
	Kind   OutcomeKind
	Result T
	// Field and Code describe an Invalid outcome. Both may be empty, in which
	// case the dialog simply stays open.
	Field string
	Code  string
	// Status is set on Redirect.
	Status int
}

func closed[T any](result T) Outcome[T] {
	return Outcome[T]{Kind: Closed, Result: result}
}

func invalid[T any](field, code string) Outcome[T] {
	return Outcome[T]{Kind: Invalid, Field: field, Code: code}
}

func redirect[T any](err error) Outcome[T] {
	return Outcome[T]{Kind: Redirect, Status: domain.StatusOf(err)}
}

// ErrorPath is the error page for a status, e.g. /error404.
func ErrorPath(status int) string {
	return fmt.Sprintf("/error%d", status)
}

// RedirectPath is the error page of a Redirect outcome.
func (o Outcome[T]) RedirectPath() string {
	return ErrorPath(o.Status)
}
