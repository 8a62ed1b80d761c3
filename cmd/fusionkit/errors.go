// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/fusionkit/fusionkit/internal/build"
	"github.com/fusionkit/fusionkit/internal/config"
	"github.com/fusionkit/fusionkit/internal/issue"
	"github.com/fusionkit/fusionkit/internal/luabundle"
	"github.com/fusionkit/fusionkit/internal/platform"
	"github.com/fusionkit/fusionkit/internal/toolexec"
)

const (
	// exitFailure is the exit status for errors without a more specific code.
	exitFailure toolexec.ExitCode = 1
	// exitConfiguration marks failures caused by the project configuration.
	exitConfiguration toolexec.ExitCode = 2
	// exitInterrupted follows the shell convention for SIGINT.
	exitInterrupted toolexec.ExitCode = 130
)

// classifyError maps a task failure to its issue catalog entry. The zero Id
// means no entry applies.
func classifyError(err error) issue.Id {
	var unknownRecipe *build.UnknownRecipeError

	switch {
	case errors.Is(err, toolexec.ErrToolMissing):
		return issue.ToolNotFoundId
	case errors.Is(err, toolexec.ErrToolExecution):
		return issue.ToolFailedId
	case errors.Is(err, platform.ErrUnsupportedPlatform):
		return issue.HostNotSupportedId
	case errors.Is(err, platform.ErrMissingEnv):
		return issue.AppDataMissingId
	case errors.Is(err, luabundle.ErrEntryNotFound):
		return issue.EntryNotFoundId
	case errors.Is(err, luabundle.ErrUnresolvedModule):
		return issue.ModuleNotFoundId
	case errors.Is(err, luabundle.ErrDynamicReference):
		return issue.DynamicRequireId
	case errors.Is(err, luabundle.ErrParse):
		return issue.LuaSyntaxErrorId
	case errors.As(err, &unknownRecipe):
		return issue.UnknownRecipeId
	case errors.Is(err, platform.ErrInvalidRelPath):
		return issue.InvalidOutputPathId
	case isConfigError(err):
		return issue.ConfigLoadFailedId
	}
	return 0
}

// exitCodeFor propagates a failing child's exit status and otherwise
// distinguishes configuration errors from everything else.
func exitCodeFor(err error) toolexec.ExitCode {
	var execErr *toolexec.ExecError
	switch {
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.As(err, &execErr) && !execErr.TimedOut && execErr.Code.Validate() == nil && !execErr.Code.IsSuccess():
		return execErr.Code
	case isConfigError(err):
		return exitConfiguration
	}
	return exitFailure
}

func isConfigError(err error) bool {
	if errors.Is(err, build.ErrConfiguration) || errors.Is(err, config.ErrInvalidConfig) {
		return true
	}
	var ae *issue.ActionableError
	return errors.As(err, &ae) && (ae.Operation == opLoadConfig || ae.Operation == opValidateConfig)
}

// Operations used by the config package's actionable errors.
const (
	opLoadConfig     = "load project configuration"
	opValidateConfig = "validate project configuration"
)

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// fail reports err on stderr, followed in verbose mode by the matching
// issue guidance, and returns the ExitError carrying the process status.
func (a *App) fail(err error, verbose bool) error {
	code := exitCodeFor(err)
	if code == exitInterrupted {
		fmt.Fprintf(a.stderr, "%s interrupted\n", WarningStyle.Render("!"))
		return &ExitError{Code: code}
	}

	fmt.Fprintf(a.stderr, "%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))
	if id := classifyError(err); verbose && id != 0 {
		if rendered, renderErr := issue.Get(id).Render("dark"); renderErr == nil {
			fmt.Fprint(a.stderr, rendered)
		}
	}
	return &ExitError{Code: code}
}
