// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/fusionkit/fusionkit/internal/build"

	"github.com/spf13/cobra"
)

func newLintCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var permissive bool
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Run the linter over the source directories",
		Long: `Run the linter (luacheck by default) over the configured targets.

A missing linter is an error here, unlike during build. With --permissive,
an exit status reporting warnings only counts as success.`,
		Args: cobra.NoArgs,
		RunE: app.projectRunE(flags, func(cmd *cobra.Command, p *project) error {
			report, err := p.orch.Lint(cmd.Context(), build.LintOptions{Permissive: permissive})
			if err != nil {
				return err
			}
			switch {
			case !report.Ran:
				fmt.Fprintf(app.stdout, "%s Nothing to lint\n", SubtitleStyle.Render("-"))
			case report.Warnings:
				fmt.Fprintf(app.stdout, "%s Lint passed with warnings (%s)\n", WarningStyle.Render("!"), strings.Join(report.Targets, ", "))
			default:
				fmt.Fprintf(app.stdout, "%s Lint passed (%s)\n", SuccessStyle.Render("✓"), strings.Join(report.Targets, ", "))
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&permissive, "permissive", false, "treat a warnings-only linter exit status as success")
	return cmd
}

func newTestCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run the Lua test files with the configured interpreter",
		Long: `Run every file matched by test.files with the configured interpreter.

LUA_PATH is set so tests can require modules from the source and library
directories. The first failing file stops the run.`,
		Args: cobra.NoArgs,
		RunE: app.projectRunE(flags, func(cmd *cobra.Command, p *project) error {
			report, err := p.orch.Test(cmd.Context(), build.TestOptions{Timeout: timeout})
			if err != nil {
				return err
			}
			if len(report.Files) == 0 {
				fmt.Fprintf(app.stdout, "%s No test files found\n", SubtitleStyle.Render("-"))
				return nil
			}
			fmt.Fprintf(app.stdout, "%s %d test file(s) passed\n", SuccessStyle.Render("✓"), len(report.Passed))
			return nil
		}),
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-file timeout (default from test.timeout)")
	return cmd
}
