// Package errors provides the categorised error type used across the report
// pipeline so the CLI can tell misconfiguration from broken invariants.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Category classifies an Error.
type Category string

const (
	// CategoryConfig covers prefix mismatches, bad config files and flags.
	CategoryConfig Category = "config"
	// CategoryInput covers unreadable or malformed coverage tracefiles.
	CategoryInput Category = "input"
	// CategoryInvariant should be unreachable with a correctly built tree.
	CategoryInvariant Category = "invariant"

	CategoryFileSystem Category = "filesystem"
	CategoryStorage    Category = "storage"
	CategoryInternal   Category = "internal"
)

// Error is a categorised error. Path and Prefix name the offending record
// path and the expected prefix when they are known.
type Error struct {
	Category Category
	Message  string
	Path     string
	Prefix   string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with a formatted message.
func New(category Category, format string, args ...any) *Error {
	return &Error{Category: category, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error around cause.
func Wrap(cause error, category Category, format string, args ...any) *Error {
	return &Error{Category: category, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Config creates a configuration error.
func Config(format string, args ...any) *Error {
	return New(CategoryConfig, format, args...)
}

// Input creates an input error.
func Input(format string, args ...any) *Error {
	return New(CategoryInput, format, args...)
}

// Invariant creates an invariant violation.
func Invariant(format string, args ...any) *Error {
	return New(CategoryInvariant, format, args...)
}

// FileSystem wraps a failure to read or write report files.
func FileSystem(cause error, format string, args ...any) *Error {
	return Wrap(cause, CategoryFileSystem, format, args...)
}

// Storage wraps a snapshot database failure.
func Storage(cause error, format string, args ...any) *Error {
	return Wrap(cause, CategoryStorage, format, args...)
}

// PrefixMismatch is the configuration error raised when a record path does
// not start with the declared root prefix.
func PrefixMismatch(prefix, path string) *Error {
	e := Config("Some tested files do not start with the prefix '%s'. For example, %s", prefix, path)
	e.Path = path
	e.Prefix = prefix
	return e
}

// WithPath records the offending path.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// IsCategory reports whether err, or anything it wraps, is an *Error of
// the given category.
func IsCategory(err error, category Category) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Category == category
	}
	return false
}

// CategoryOf returns the category of the first *Error in err's chain, or ""
// when there is none.
func CategoryOf(err error) Category {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Category
	}
	return ""
}

// ExitCode maps an error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch CategoryOf(err) {
	case CategoryInput:
		return 2
	case CategoryConfig:
		return 7
	case CategoryInvariant:
		return 10
	case CategoryFileSystem:
		return 11
	case CategoryStorage:
		return 12
	default:
		return 1
	}
}
