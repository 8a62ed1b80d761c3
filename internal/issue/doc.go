// SPDX-License-Identifier: MPL-2.0

// Package issue provides user-facing error reporting for fusionkit.
//
// ActionableError carries the failed operation, the resource involved and
// remediation hints. The issue catalog holds longer Markdown guidance for
// well-known failure classes (missing tools, unsupported hosts, unresolved
// Lua modules), rendered to the terminal with glamour.
package issue
