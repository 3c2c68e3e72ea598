// Package fault classifies the failures the bot reports to operators.
//
// Each failure carries a Kind so callers can decide whether to halt, isolate
// or just report it. Nothing here is exposed outside the process except the
// plain status text produced by Status.
package fault

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is the category of a failure.
type Kind int

const (
	// Network means a remote endpoint was unreachable or answered with a
	// non-success status.
	Network Kind = iota + 1
	// Config means a required local file or setting is missing.
	Config
	// Filesystem means a rename, copy or write failed on disk.
	Filesystem
	// Load means a single loadable unit failed to import or register.
	Load
	// Auth means the platform rejected the session login.
	Auth
)

func (k Kind) String() string {
	switch k {
	case Network:
		return "network"
	case Config:
		return "config"
	case Filesystem:
		return "filesystem"
	case Load:
		return "load"
	case Auth:
		return "auth"
	default:
		return "unknown"
	}
}

// Error is a classified failure.
type Error struct {
	Kind Kind
	// Op names the step that failed, e.g. "fetch version" or "rename backup".
	Op string
	// Path is the file or URL involved, if any.
	Path string
	Err  error
	// Fatal marks failures that left the install in a state the operator
	// has to repair by hand.
	Fatal bool
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg = fmt.Sprintf("%s %s", msg, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a classified error for op.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf returns a classified error with a formatted cause.
func Newf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.Errorf(format, args...)}
}

// WithPath returns a classified error that names the path it concerns.
func WithPath(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Is reports whether any error in err's chain is a fault of the given kind.
func Is(err error, kind Kind) bool {
	var f *Error
	if errors.As(err, &f) {
		return f.Kind == kind
	}
	return false
}

// IsFatal reports whether err left the install needing manual repair.
func IsFatal(err error) bool {
	var f *Error
	if errors.As(err, &f) {
		return f.Fatal
	}
	return false
}

// Status converts err into the plain message shown to an interactive caller.
func Status(err error) string {
	if err == nil {
		return ""
	}
	if IsFatal(err) {
		return fmt.Sprintf("Update failed and needs manual attention: %v", err)
	}
	return fmt.Sprintf("Update failed: %v", err)
}
