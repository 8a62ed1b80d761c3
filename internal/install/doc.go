// SPDX-License-Identifier: MPL-2.0

// Package install copies staged distributables into the host application's
// plugin directory and removes them again.
package install
