// Package muxerr defines the error taxonomy shared by every multiplexer
// component: layout, window, session, persistence and I/O failures.
package muxerr

import (
	"fmt"
)

// Kind classifies a multiplexer error so callers can switch on cause
// without string matching.
type Kind int

const (
	// KindLayout marks a structural layout constraint violation, such as
	// splitting a pane too small to split further.
	KindLayout Kind = iota
	// KindPaneNotFound marks a reference to a pane id absent from the tree.
	KindPaneNotFound
	// KindWindowNotFound marks a reference to a window index out of range.
	KindWindowNotFound
	// KindSession marks an operation that requires a non-empty session.
	KindSession
	// KindPersistence marks a serialization or filesystem failure.
	KindPersistence
	// KindIO marks an underlying socket or filesystem I/O failure.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindLayout:
		return "layout error"
	case KindPaneNotFound:
		return "pane not found"
	case KindWindowNotFound:
		return "window not found"
	case KindSession:
		return "session error"
	case KindPersistence:
		return "persistence error"
	case KindIO:
		return "io error"
	default:
		return "unknown error"
	}
}

// Error is the concrete error type returned by multiplexer packages.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so callers
// can use errors.Is(err, muxerr.New(muxerr.KindPaneNotFound, "")) style
// checks, or more commonly errors.As plus a Kind comparison.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// New builds an Error with no underlying cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an Error that carries an underlying cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// PaneNotFound builds the PaneNotFound(u32) error from spec.md §7.
func PaneNotFound(id uint32) *Error {
	return New(KindPaneNotFound, fmt.Sprintf("pane %d", id))
}

// WindowNotFound builds the WindowNotFound(usize) error from spec.md §7.
func WindowNotFound(idx int) *Error {
	return New(KindWindowNotFound, fmt.Sprintf("window index %d", idx))
}
