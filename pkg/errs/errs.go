// Package errs classifies errors raised across storage, embedding, and
// engine boundaries into the fixed taxonomy used by the MCP layer to decide
// response formatting (§7): NotFound, Validation, Conflict, StorageError,
// EmbedError, Transient. Package-level sentinel errors still live where the
// donor puts them (storage.ErrNotFound, llm.ErrCircuitOpen, ...); this
// package only adds the cross-cutting Kind lookup on top of them.
package errs

import (
	"errors"
	"fmt"
)

// Kind is one of the six error categories in the error taxonomy (§7).
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindStorageError Kind = "storage_error"
	KindEmbedError   Kind = "embed_error"
	KindTransient    Kind = "transient"
)

// kindError pairs an error with an explicit Kind, constructed via the
// New/Wrap helpers below. Callers needing to test for a kind should use
// KindOf or errors.Is against the wrapped sentinel, not a type assertion on
// this unexported type.
type kindError struct {
	kind Kind
	err  error
}

func (e *kindError) Error() string { return e.err.Error() }
func (e *kindError) Unwrap() error { return e.err }

// Kind reports this error's classification, satisfying the kinder
// interface that KindOf probes for.
func (e *kindError) Kind() Kind { return e.kind }

// kinder is implemented by any error that knows its own Kind, including
// kindError and any package-local type that chooses to implement it
// directly instead of going through New/Wrap.
type kinder interface {
	Kind() Kind
}

// New returns an error of the given kind wrapping a formatted message, in
// the donor's fmt.Errorf-at-the-call-site style.
func New(kind Kind, format string, args ...interface{}) error {
	return &kindError{kind: kind, err: fmt.Errorf(format, args...)}
}

// Wrap attaches kind to an existing error, preserving it for errors.Is and
// errors.As via Unwrap.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: err}
}

// NotFound, Validation, Conflict, StorageErr, EmbedErr, and Transient are
// shorthand constructors for the six kinds.
func NotFound(format string, args ...interface{}) error {
	return New(KindNotFound, format, args...)
}

func Validation(format string, args ...interface{}) error {
	return New(KindValidation, format, args...)
}

func Conflict(format string, args ...interface{}) error {
	return New(KindConflict, format, args...)
}

func StorageErr(err error) error {
	return Wrap(KindStorageError, err)
}

func EmbedErr(err error) error {
	return Wrap(KindEmbedError, err)
}

func Transient(err error) error {
	return Wrap(KindTransient, err)
}

// KindOf walks err's Unwrap chain looking for the first error that reports
// a Kind, returning ("", false) if none is found — e.g. a bare
// fmt.Errorf from a validation check that was never routed through New.
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if k, ok := err.(kinder); ok {
			return k.Kind(), true
		}
		err = errors.Unwrap(err)
	}
	return "", false
}

// IsNotFound, IsValidation, IsConflict report whether err (or something it
// wraps) carries the matching Kind. These exist for the common call sites;
// less frequent kinds should use KindOf directly.
func IsNotFound(err error) bool   { return hasKind(err, KindNotFound) }
func IsValidation(err error) bool { return hasKind(err, KindValidation) }
func IsConflict(err error) bool   { return hasKind(err, KindConflict) }

func hasKind(err error, want Kind) bool {
	k, ok := KindOf(err)
	return ok && k == want
}
