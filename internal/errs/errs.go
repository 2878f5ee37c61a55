// Package errs defines the error taxonomy shared by the backup, restore and
// binlog packages.
//
// Every failure a run can report maps to exactly one Kind. Kinds are part of
// the tool's observable behavior: the CLI prints them and callers branch on
// them with Is, so new failure modes get a new Kind rather than a bare
// fmt.Errorf.
package errs

import (
	"errors"
	"fmt"
)

// Kind categorizes a run failure.
type Kind string

const (
	// Connection indicates the live server could not be reached.
	Connection Kind = "CONNECTION"

	// UnsupportedVersion indicates the server is outside the supported
	// major-version family.
	UnsupportedVersion Kind = "UNSUPPORTED_VERSION"

	// ToolVersionMismatch indicates the snapshot tool's version does not
	// match the server's.
	ToolVersionMismatch Kind = "TOOL_VERSION_MISMATCH"

	// ToolInvocation indicates an external tool exited nonzero or did not
	// produce its expected output.
	ToolInvocation Kind = "TOOL_INVOCATION"

	// CoordinateNotFound indicates the snapshot header scan hit its line
	// bound without finding a replication coordinate marker.
	CoordinateNotFound Kind = "COORDINATE_NOT_FOUND"

	// Parse indicates a malformed position record.
	Parse Kind = "PARSE"

	// NotReady indicates an incremental run with no prior full backup.
	NotReady Kind = "NOT_READY"

	// Consistency indicates the segment catalog and the live write tip
	// disagree.
	Consistency Kind = "CONSISTENCY"

	// NoBackupFound indicates a recovery destination holds no full artifact.
	NoBackupFound Kind = "NO_BACKUP_FOUND"

	// Restore indicates a replay step failed.
	Restore Kind = "RESTORE"
)

// Error is a run failure with a Kind attached. It wraps an underlying cause
// when one exists.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with the given kind and formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Is reports whether err, or any error it wraps, carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind carried by err, or the empty string when err has
// none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
