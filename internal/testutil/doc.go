// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by fusionkit tests: fixture trees,
// fake external tools and environment overrides that fail the test on error.
package testutil
