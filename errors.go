package srcjs

import (
	"errors"
	"fmt"

	"github.com/oxhq/srcjs/ast"
	"github.com/oxhq/srcjs/convert"
	"github.com/oxhq/srcjs/lowering"
)

// ErrorKind enumerates the failure classes of Conversion never
// tries to recover: the first error aborts the run with SRC location data.
type ErrorKind string

const (
	// ErrParse surfaces the external parser's first error verbatim.
	ErrParse ErrorKind = "parse"
	// ErrUnknownNode means a node kind reached a dispatcher with no handler.
	ErrUnknownNode ErrorKind = "unknown_node"
	// ErrUnsupported flags constructs the target cannot express.
	ErrUnsupported ErrorKind = "unsupported"
	// ErrSecurity flags x-strings encountered without a binding option.
	ErrSecurity ErrorKind = "security"
	// ErrFilter wraps a filter failure with the offending node's location.
	ErrFilter ErrorKind = "filter"
)

// Error is the single error type the public API returns: a human-readable
// message plus SRC file/line/column.
type Error struct {
	Kind    ErrorKind
	Message string
	File    string
	Line    int
	Column  int
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.fileOrSource(), e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.fileOrSource(), e.Message)
}

func (e *Error) fileOrSource() string {
	if e.File != "" {
		return e.File
	}
	return "(source)"
}

// wrapError folds the internal error types into *Error, preserving
// location where the inner error carries one.
func wrapError(err error, file string) error {
	if err == nil {
		return nil
	}
	var conv *Error
	if errors.As(err, &conv) {
		return conv
	}
	var unsupported *convert.UnsupportedError
	if errors.As(err, &unsupported) {
		e := &Error{Kind: ErrUnsupported, Message: unsupported.What, File: file}
		if unsupported.Loc != nil {
			e.Line = unsupported.Loc.Line
			e.Column = unsupported.Loc.Column
		}
		return e
	}
	var lower *lowering.LoweringError
	if errors.As(err, &lower) {
		return &Error{Kind: ErrUnknownNode, Message: lower.Error(), File: file}
	}
	return &Error{Kind: ErrUnknownNode, Message: err.Error(), File: file}
}

func securityError(loc *ast.Location, file string) *Error {
	e := &Error{
		Kind:    ErrSecurity,
		Message: "x-string requires the binding option",
		File:    file,
	}
	if loc != nil {
		e.Line = loc.Line
		e.Column = loc.Column
	}
	return e
}
