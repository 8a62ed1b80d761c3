// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrInvalidRelPath is the sentinel error wrapped by InvalidRelPathError.
var ErrInvalidRelPath = errors.New("invalid install path")

type (
	// InvalidRelPathError describes an install-relative path that cannot be
	// placed below the plugin root on every supported platform.
	InvalidRelPathError struct {
		Path   string
		Reason string
	}
)

// windowsReservedNames are filenames that cannot be used on Windows.
// These names are reserved by the operating system regardless of file extension.
var windowsReservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true,
	"LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// Error implements the error interface.
func (e *InvalidRelPathError) Error() string {
	return fmt.Sprintf("install path %q: %s", e.Path, e.Reason)
}

// Unwrap returns ErrInvalidRelPath for errors.Is.
func (e *InvalidRelPathError) Unwrap() error { return ErrInvalidRelPath }

// IsWindowsReservedName checks if a filename is a Windows reserved name.
// It handles filenames with extensions by checking just the base name portion.
func IsWindowsReservedName(name string) bool {
	upper := strings.ToUpper(name)
	if idx := strings.Index(upper, "."); idx != -1 {
		upper = upper[:idx]
	}
	return windowsReservedNames[upper]
}

// ValidateRelPath checks a slash-separated path that will be joined below
// the plugin root. The path must be relative, stay inside the root and use
// only components that are legal on Windows, so one configuration installs
// on every platform.
func ValidateRelPath(rel string) error {
	if strings.TrimSpace(rel) == "" {
		return &InvalidRelPathError{Path: rel, Reason: "must not be empty"}
	}
	slashed := strings.ReplaceAll(rel, `\`, "/")
	if strings.HasPrefix(slashed, "/") || (len(slashed) > 1 && slashed[1] == ':') {
		return &InvalidRelPathError{Path: rel, Reason: "must be relative"}
	}
	cleaned := path.Clean(slashed)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return &InvalidRelPathError{Path: rel, Reason: "must stay inside the plugin root"}
	}
	for _, part := range strings.Split(cleaned, "/") {
		if IsWindowsReservedName(part) {
			return &InvalidRelPathError{Path: rel, Reason: fmt.Sprintf("%q is a reserved name on Windows", part)}
		}
		if strings.ContainsAny(part, `<>:"|?*`) {
			return &InvalidRelPathError{Path: rel, Reason: fmt.Sprintf("%q contains characters not allowed on Windows", part)}
		}
	}
	return nil
}
