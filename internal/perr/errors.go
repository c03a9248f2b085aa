// Package perr provides the structured error type used throughout the
// partitioner module. Every error surfaced across a host callback boundary
// carries a taxonomy kind, a message, and an optional cause.
package perr

import (
	"errors"
	"fmt"
)

// Kind classifies an error by the taxonomy in spec.md §7.
type Kind string

const (
	KindInvalidInterval                Kind = "InvalidInterval"
	KindMalformedColumnDeclaration     Kind = "MalformedColumnDeclaration"
	KindNoPartitionColumn              Kind = "NoPartitionColumn"
	KindMultiplePartitionColumns       Kind = "MultiplePartitionColumns"
	KindUnsupportedPartitionColumnType Kind = "UnsupportedPartitionColumnType"
	KindPartitionColumnTypeMismatch    Kind = "PartitionColumnTypeMismatch"
	KindTimestampOutOfRange            Kind = "TimestampOutOfRange"
	KindCatalogCorrupt                 Kind = "CatalogCorrupt"
	KindPartitionMissing               Kind = "PartitionMissing"
	KindPartitionCreateFailed          Kind = "PartitionCreateFailed"
	KindAmbiguousDelete                Kind = "AmbiguousDelete"
	KindPushdownUnsupported            Kind = "PushdownUnsupported"
)

// Error is the structured error type. Its Error() string is prefixed with
// the taxonomy kind so host-side logs and %w-wrapped error chains stay
// greppable, mirroring the teacher's [CATEGORY:CODE] convention.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *Error with the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// New creates an Error with no cause.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error wrapping cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind from an error chain, or "" if it is not one of ours.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err is a *Error of kind k.
func Is(err error, k Kind) bool {
	return KindOf(err) == k
}
