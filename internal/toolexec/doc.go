// SPDX-License-Identifier: MPL-2.0

// Package toolexec runs the external collaborators of a build (the Lua
// linter and interpreter) as blocking child processes.
//
// A run resolves the tool through PATH, streams its standard output and
// standard error line by line to the caller's writers while it runs, and
// reports the exit status. An optional timeout kills tools that hang.
//
// Errors follow the sentinel + typed error pattern:
//
//	_, err := runner.Run(ctx, toolexec.Invocation{Name: "luacheck", Args: args})
//	var execErr *toolexec.ExecError
//	switch {
//	case errors.Is(err, toolexec.ErrToolMissing):
//	    // not installed
//	case errors.As(err, &execErr) && execErr.Code == 1:
//	    // warnings only
//	}
package toolexec
