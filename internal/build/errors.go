// SPDX-License-Identifier: MPL-2.0

package build

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks errors caused by the project configuration rather
// than by sources or tools. They always abort the whole task.
var ErrConfiguration = errors.New("configuration error")

type (
	// UnknownRecipeError is returned for a distributable whose kind has no
	// recipe.
	UnknownRecipeError struct {
		Output string
		Kind   string
	}

	// InvalidOutputError is returned when a distributable output path is not
	// a clean relative path.
	InvalidOutputError struct {
		Output string
		Err    error
	}

	// UnsafeStagingError is returned when the staging directory would remove
	// the project itself or a filesystem root.
	UnsafeStagingError struct {
		Path string
	}
)

// Error implements the error interface.
func (e *UnknownRecipeError) Error() string {
	return fmt.Sprintf("distributable %q: unknown recipe kind %q", e.Output, e.Kind)
}

// Unwrap returns ErrConfiguration for errors.Is.
func (e *UnknownRecipeError) Unwrap() error { return ErrConfiguration }

// Error implements the error interface.
func (e *InvalidOutputError) Error() string {
	return fmt.Sprintf("distributable %q: %v", e.Output, e.Err)
}

// Unwrap returns ErrConfiguration and the path validation error.
func (e *InvalidOutputError) Unwrap() []error { return []error{ErrConfiguration, e.Err} }

// Error implements the error interface.
func (e *UnsafeStagingError) Error() string {
	return fmt.Sprintf("refusing to use %s as the staging directory", e.Path)
}

// Unwrap returns ErrConfiguration for errors.Is.
func (e *UnsafeStagingError) Unwrap() error { return ErrConfiguration }
