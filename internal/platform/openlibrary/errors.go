package openlibrary

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches errors for ISBNs Open Library has no edition for.
	ErrNotFound = errors.New("openlibrary: edition not found")
	// ErrUnavailable matches transport failures, non-success statuses other
	// than 404, and undecodable bodies.
	ErrUnavailable = errors.New("openlibrary: provider unavailable")
)

type Kind int

const (
	KindNotFound Kind = iota + 1
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error is returned by every failed lookup.
type Error struct {
	Kind       Kind
	ISBN       string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("openlibrary: isbn %s: %s", e.ISBN, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrUnavailable:
		return e.Kind == KindUnavailable
	}
	return false
}

func notFound(isbn string) *Error {
	return &Error{Kind: KindNotFound, ISBN: isbn, StatusCode: 404}
}

func unavailable(isbn string, status int, err error) *Error {
	return &Error{Kind: KindUnavailable, ISBN: isbn, StatusCode: status, Err: err}
}
