// Package errs defines the error kinds a manifest generation run can fail
// with. Every kind is terminal: a run that returns an *Error produced no
// manifest.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a generation failure. Kinds are strings so that they read
// well in logs and CLI output.
type Kind string

const (
	// KindMalformedDescriptor indicates a recognized descriptor key (or an
	// identity override line) carried a value that could not be parsed.
	KindMalformedDescriptor Kind = "MALFORMED_DESCRIPTOR"

	// KindIdentifierNotFound indicates a reference or object line had no GUID.
	KindIdentifierNotFound Kind = "IDENTIFIER_NOT_FOUND"

	// KindVersionTokenNotFound indicates a reference or object line had no
	// #major.minor# type library version marker.
	KindVersionTokenNotFound Kind = "VERSION_TOKEN_NOT_FOUND"

	// KindInvalidComponentType indicates a project or file of the wrong type
	// for the requested operation.
	KindInvalidComponentType Kind = "INVALID_COMPONENT_TYPE"

	// KindComponentNotResolvable indicates the component directory has no
	// file registered for a required type library.
	KindComponentNotResolvable Kind = "COMPONENT_NOT_RESOLVABLE"

	// KindVersionInfoUnavailable indicates a binary without a version resource.
	KindVersionInfoUnavailable Kind = "VERSION_INFO_UNAVAILABLE"

	// KindTypeLibraryUnavailable indicates type library introspection failed.
	KindTypeLibraryUnavailable Kind = "TYPE_LIBRARY_UNAVAILABLE"

	// KindInputFileMissing indicates a declared input path does not exist.
	KindInputFileMissing Kind = "INPUT_FILE_MISSING"

	// KindInvalidOptions indicates the caller supplied an unusable configuration.
	KindInvalidOptions Kind = "INVALID_OPTIONS"
)

// Error is a classified generation failure.
type Error struct {
	Kind    Kind
	Message string
	Path    string // input file the failure relates to, if any
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind around a cause.
func Wrap(err error, kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// WithPath returns e with Path set.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or "" when err
// carries no kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
