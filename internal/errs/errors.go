// Package errs holds the error taxonomy shared by every layer. Callers match on
// the sentinels with errors.Is; the structured Error carries the offending
// entity so a caller can render a message without parsing strings.
package errs

import (
	"errors"
	"fmt"
)

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound = errors.New("not_found")
	// ErrInvalid marks validation failures: the entity is never persisted.
	ErrInvalid = errors.New("invalid")
	// ErrIllegalState marks a lifecycle transition that is not allowed from the current state.
	ErrIllegalState = errors.New("illegal_state")
	// ErrConflict marks a uniqueness violation.
	ErrConflict = errors.New("conflict")
	// ErrImmutable indicates an attempt to change a posted journal or an identity field.
	ErrImmutable = errors.New("immutable")
)

// Error is a classified failure about one entity.
type Error struct {
	Kind   error
	Entity string
	ID     string
	Msg    string
}

func (e *Error) Error() string {
	var b []byte
	b = append(b, e.Entity...)
	if e.ID != "" {
		b = append(b, ' ')
		b = append(b, e.ID...)
	}
	if e.Msg != "" {
		if len(b) > 0 {
			b = append(b, ": "...)
		}
		b = append(b, e.Msg...)
	}
	if len(b) == 0 {
		return e.Kind.Error()
	}
	return string(b)
}

// Unwrap exposes the sentinel so errors.Is works across layers.
func (e *Error) Unwrap() error { return e.Kind }

func newErr(kind error, entity string, id any, format string, args ...any) *Error {
	e := &Error{Kind: kind, Entity: entity, ID: idString(id)}
	if format != "" {
		e.Msg = fmt.Sprintf(format, args...)
	}
	return e
}

// NotFound reports a missing entity.
func NotFound(entity string, id any) error {
	return newErr(ErrNotFound, entity, id, "not found")
}

// Invalid reports a validation failure.
func Invalid(entity string, id any, format string, args ...any) error {
	return newErr(ErrInvalid, entity, id, format, args...)
}

// IllegalState reports a rejected lifecycle transition.
func IllegalState(entity string, id any, format string, args ...any) error {
	return newErr(ErrIllegalState, entity, id, format, args...)
}

// Conflict reports a uniqueness violation.
func Conflict(entity string, id any, format string, args ...any) error {
	return newErr(ErrConflict, entity, id, format, args...)
}

// Immutable reports an attempt to alter something that may never change.
func Immutable(entity string, id any, format string, args ...any) error {
	return newErr(ErrImmutable, entity, id, format, args...)
}

// As returns the structured error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf names the taxonomy bucket err falls into; "internal" when unclassified.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalid):
		return "validation"
	case errors.Is(err, ErrIllegalState):
		return "illegal_state"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrImmutable):
		return "immutable"
	default:
		return "internal"
	}
}

func idString(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
