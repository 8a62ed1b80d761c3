// SPDX-License-Identifier: MPL-2.0

// Package build runs the project's build pipeline: lint, clean, then one
// recipe per declared distributable in declared order, writing outputs to the
// staging directory. It also runs the Lua test harness.
//
// The Orchestrator works from a config.Config snapshot handed to it at
// construction; it keeps no package-level state.
package build
