// Package reporter collects the diagnostics the pickle engine produces
// while parsing, indexing, and rewriting a bundle of files. Hard errors
// abort the run once reported; warnings are accumulated and returned
// alongside a successful result.
package reporter

import (
	"errors"
	"fmt"

	"github.com/pulp-platform/svpickle/span"
)

// ErrInvalidSource is returned by top-level pickle operations when one or
// more hard errors were reported during the run.
var ErrInvalidSource = errors.New("pickle failed: invalid source")

// ErrorWithPos is an error tied to a specific source position.
type ErrorWithPos interface {
	error
	Position() span.Pos
	Path() string
	Unwrap() error
}

// Error creates a new ErrorWithPos from the given path, position, and
// underlying error.
func Error(path string, pos span.Pos, err error) ErrorWithPos {
	return errorWithPos{path: path, pos: pos, underlying: err}
}

// Errorf is like Error but builds the underlying error with fmt.Errorf.
func Errorf(path string, pos span.Pos, format string, args ...interface{}) ErrorWithPos {
	return errorWithPos{path: path, pos: pos, underlying: fmt.Errorf(format, args...)}
}

type errorWithPos struct {
	path       string
	pos        span.Pos
	underlying error
}

func (e errorWithPos) Error() string {
	if e.pos == (span.Pos{}) {
		return fmt.Sprintf("%s: %v", e.path, e.underlying)
	}
	return fmt.Sprintf("%s:%d:%d: %v", e.path, e.pos.Line, e.pos.Col, e.underlying)
}

func (e errorWithPos) Position() span.Pos { return e.pos }
func (e errorWithPos) Path() string       { return e.path }
func (e errorWithPos) Unwrap() error      { return e.underlying }

var _ ErrorWithPos = errorWithPos{}

// PreprocessFailedError wraps a macro/conditional-compilation failure.
type PreprocessFailedError struct {
	Path string
	Err  error
}

func (e *PreprocessFailedError) Error() string {
	return fmt.Sprintf("%s: preprocessing failed: %v", e.Path, e.Err)
}
func (e *PreprocessFailedError) Unwrap() error { return e.Err }

// ParseFailedError wraps a structural scan failure at a known position.
type ParseFailedError struct {
	Path string
	Pos  span.Pos
	Err  error
}

func (e *ParseFailedError) Error() string {
	return fmt.Sprintf("%s:%d:%d: parse failed: %v", e.Path, e.Pos.Line, e.Pos.Col, e.Err)
}
func (e *ParseFailedError) Unwrap() error { return e.Err }

// DuplicateDeclarationError reports that Name was declared more than once
// across the bundle.
type DuplicateDeclarationError struct {
	Name         string
	Path         string
	Pos          span.Pos
	PreviousPath string
	PreviousPos  span.Pos
}

func (e *DuplicateDeclarationError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %q already declared at %s:%d:%d",
		e.Path, e.Pos.Line, e.Pos.Col, e.Name, e.PreviousPath, e.PreviousPos.Line, e.PreviousPos.Col)
}

// TopNotFoundError reports that a requested top-level module/interface
// name does not appear among the indexed declarations.
type TopNotFoundError struct {
	Name string
}

func (e *TopNotFoundError) Error() string {
	return fmt.Sprintf("top %q not found among declarations", e.Name)
}

// LibraryNotFoundWarning reports a usage that could not be resolved
// against any library search path. It is a warning, not a hard error: the
// emitted manifest still lists the name in its undefined set.
type LibraryNotFoundWarning struct {
	Name string
}

func (e *LibraryNotFoundWarning) Error() string {
	return fmt.Sprintf("%q not found in declarations or library search paths", e.Name)
}

// CycleError reports a dependency cycle discovered while computing
// topological emission order.
type CycleError struct {
	Names []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %v", e.Names)
}

// EditOverlapError reports that two edits computed for the same file
// overlap in byte range. This is promoted to a hard, reported error
// rather than silently dropping one of the edits.
type EditOverlapError struct {
	Path   string
	First  span.Span
	Second span.Span
}

func (e *EditOverlapError) Error() string {
	return fmt.Sprintf("%s: overlapping edits at [%d,%d) and [%d,%d)",
		e.Path, e.First.Offset, e.First.End(), e.Second.Offset, e.Second.End())
}

// TypeMismatchWarning reports that a name was used in a way inconsistent
// with its declared kind (e.g. a package instantiated like a module).
type TypeMismatchWarning struct {
	Name     string
	Declared string
	Used     string
}

func (e *TypeMismatchWarning) Error() string {
	return fmt.Sprintf("%q declared as %s but used as %s", e.Name, e.Declared, e.Used)
}
