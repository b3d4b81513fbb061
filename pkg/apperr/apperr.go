// Package apperr is the error taxonomy shared by the use-case layer and the HTTP boundary.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a failure for uniform handling at the presentation boundary.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindConflict     Kind = "conflict"
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindInternal     Kind = "internal"
)

// Error is the canonical application error.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	// Fields maps a violated field name to its message (Validation only).
	Fields map[string]string
	Cause  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Kind)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Kind)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Kind)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// Field returns the first violated field in name order, or "".
func (e *Error) Field() string {
	if len(e.Fields) == 0 {
		return ""
	}
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names[0]
}

// New builds an error of the given kind.
func New(kind Kind, op, message string) error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap annotates cause with kind. A nil cause yields nil.
func Wrap(kind Kind, op string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Message: cause.Error(), Cause: cause}
}

// Validation builds a Validation error naming the violated fields.
func Validation(op string, fields map[string]string) error {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, k := range names {
		parts = append(parts, k+": "+fields[k])
	}
	return &Error{Kind: KindValidation, Op: op, Message: strings.Join(parts, "; "), Fields: fields}
}

// NotFound is shorthand for New(KindNotFound, op, message).
func NotFound(op, message string) error { return New(KindNotFound, op, message) }

// Forbidden is shorthand for New(KindForbidden, op, message).
func Forbidden(op, message string) error { return New(KindForbidden, op, message) }

// Conflict is shorthand for New(KindConflict, op, message).
func Conflict(op, message string) error { return New(KindConflict, op, message) }

// Unauthorized is shorthand for New(KindUnauthorized, op, message).
func Unauthorized(op, message string) error { return New(KindUnauthorized, op, message) }

// KindOf extracts the kind. Errors outside the taxonomy are Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if !errors.As(err, &appErr) {
		return KindInternal
	}
	return appErr.Kind
}

// IsKind reports whether err carries kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
