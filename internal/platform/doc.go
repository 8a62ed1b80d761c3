// SPDX-License-Identifier: MPL-2.0

// Package platform locates the host application's per-user plugin directory
// and checks install-relative paths for portability.
//
// The plugin root is derived purely from the operating system identifier, the
// user's home directory and, on Windows only, the APPDATA environment
// variable. Nothing in this package touches the filesystem; callers create
// directories before writing into the returned root.
package platform
