// SPDX-License-Identifier: MPL-2.0

package luabundle

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEntryNotFound is the sentinel error wrapped by EntryNotFoundError.
	ErrEntryNotFound = errors.New("entry file not found")
	// ErrUnresolvedModule is the sentinel error wrapped by UnresolvedModuleError.
	ErrUnresolvedModule = errors.New("unresolved module")
	// ErrDynamicReference is the sentinel error wrapped by DynamicReferenceError.
	ErrDynamicReference = errors.New("non-literal require")
	// ErrParse is the sentinel error wrapped by ParseError.
	ErrParse = errors.New("lua syntax error")
)

type (
	// DynamicReference locates a require whose argument is not a string literal.
	DynamicReference struct {
		// Module is the name of the module containing the call.
		Module string
		// File is the source file containing the call.
		File string
		// Line is the 1-based line of the call.
		Line int
		// Expr describes the argument expression.
		Expr string
	}

	// EntryNotFoundError is returned when the entry file does not exist.
	EntryNotFoundError struct {
		Path string
		Err  error
	}

	// UnresolvedModuleError is returned when a literal require matches none
	// of the search path templates.
	UnresolvedModuleError struct {
		Name  string
		From  string
		Line  int
		Tried []string
	}

	// DynamicReferenceError is returned under PolicyAbort.
	DynamicReferenceError struct {
		Ref DynamicReference
	}

	// ParseError is returned when a module or a produced bundle is not valid Lua.
	ParseError struct {
		File string
		Err  error
	}
)

// String renders the reference as "non-literal require in `mod' at file:line (expr)".
func (r DynamicReference) String() string {
	return fmt.Sprintf("non-literal require in `%s' at %s:%d (%s)", r.Module, r.File, r.Line, r.Expr)
}

// Error implements the error interface.
func (e *EntryNotFoundError) Error() string {
	return fmt.Sprintf("entry file %s: %v", e.Path, e.Err)
}

// Unwrap returns ErrEntryNotFound for errors.Is.
func (e *EntryNotFoundError) Unwrap() error { return ErrEntryNotFound }

// Error implements the error interface.
func (e *UnresolvedModuleError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "module %q required from %s:%d not found", e.Name, e.From, e.Line)
	if len(e.Tried) > 0 {
		sb.WriteString(" (tried ")
		sb.WriteString(strings.Join(e.Tried, ", "))
		sb.WriteString(")")
	}
	return sb.String()
}

// Unwrap returns ErrUnresolvedModule for errors.Is.
func (e *UnresolvedModuleError) Unwrap() error { return ErrUnresolvedModule }

// Error implements the error interface.
func (e *DynamicReferenceError) Error() string {
	return e.Ref.String()
}

// Unwrap returns ErrDynamicReference for errors.Is.
func (e *DynamicReferenceError) Unwrap() error { return ErrDynamicReference }

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

// Unwrap returns ErrParse for errors.Is.
func (e *ParseError) Unwrap() error { return ErrParse }
