// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fusionkit/fusionkit/internal/toolexec"

	"mvdan.cc/sh/v3/shell"
)

// LintWarningsExit is the linter exit status meaning "warnings only".
const LintWarningsExit toolexec.ExitCode = 1

type (
	// LintOptions control a Lint call.
	LintOptions struct {
		// Permissive treats a warnings-only exit status as success.
		Permissive bool
		// TolerateMissing skips linting when the linter is not installed.
		TolerateMissing bool
	}

	// LintReport describes how linting ended.
	LintReport struct {
		// Ran is false when linting was skipped.
		Ran bool
		// Warnings is set when the linter reported warnings only.
		Warnings bool
		// Targets are the directories that were linted.
		Targets []string
	}
)

// Lint runs the configured linter over the configured target directories.
// Exit 0 is clean, exit 1 means warnings (success when permissive) and any
// other status is a *toolexec.ExecError.
func (o *Orchestrator) Lint(ctx context.Context, opts LintOptions) (LintReport, error) {
	args, err := shell.Fields(o.cfg.Lint.Args, os.Getenv)
	if err != nil {
		return LintReport{}, fmt.Errorf("%w: lint.args: %w", ErrConfiguration, err)
	}

	var targets []string
	for _, target := range o.cfg.Lint.Targets {
		if info, err := os.Stat(o.cfg.Path(target)); err == nil && info.IsDir() {
			targets = append(targets, target)
			continue
		}
		o.logger.Debug("lint target missing, skipping", "target", target)
	}
	if len(targets) == 0 {
		o.logger.Info("nothing to lint", "targets", o.cfg.Lint.Targets)
		return LintReport{}, nil
	}

	_, err = o.runner.Run(ctx, toolexec.Invocation{
		Name:    o.cfg.Lint.Tool,
		Args:    append(args, targets...),
		Dir:     o.cfg.Dir,
		Timeout: o.cfg.Lint.Timeout,
	})
	report := LintReport{Ran: true, Targets: targets}
	if err == nil {
		return report, nil
	}

	if errors.Is(err, toolexec.ErrToolMissing) && opts.TolerateMissing {
		o.logger.Warn("linter not found, skipping lint", "tool", o.cfg.Lint.Tool)
		return LintReport{Targets: targets}, nil
	}

	var execErr *toolexec.ExecError
	if errors.As(err, &execErr) && !execErr.TimedOut && execErr.Code == LintWarningsExit && opts.Permissive {
		o.logger.Warn("linter reported warnings", "tool", o.cfg.Lint.Tool)
		report.Warnings = true
		return report, nil
	}
	return report, fmt.Errorf("lint: %w", err)
}
