package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that must decide how to surface it.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindForbidden
	KindUnauthorized
	KindCapacity
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	case KindCapacity:
		return "capacity_exceeded"
	default:
		return "internal"
	}
}

// KindError tags an error with a Kind. Sentinels built with New are compared by identity.
type KindError struct {
	kind Kind
	err  error
}

func (e *KindError) Error() string { return e.err.Error() }
func (e *KindError) Unwrap() error { return e.err }
func (e *KindError) Kind() Kind    { return e.kind }

// New returns a kinded sentinel error.
func New(kind Kind, msg string) error {
	return &KindError{kind: kind, err: errors.New(msg)}
}

// Newf is New with formatting. %w verbs keep the wrapped error reachable.
func Newf(kind Kind, format string, args ...any) error {
	return &KindError{kind: kind, err: fmt.Errorf(format, args...)}
}

// WithKind tags err with kind without changing its message.
func WithKind(err error, kind Kind) error {
	if err == nil {
		return nil
	}
	return &KindError{kind: kind, err: err}
}

// KindOf reports the outermost kind found in the chain, or KindInternal.
func KindOf(err error) Kind {
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return KindInternal
}

// IsKind reports whether err carries kind anywhere in its outermost kinded wrapper.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
