// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fusionkit/fusionkit/internal/watch"

	"github.com/spf13/cobra"
)

func newWatchCommand(app *App, flags *rootFlagValues) *cobra.Command {
	bf := &buildFlagValues{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Install now and again whenever the sources change",
		Long: `Install now and again whenever a file matching watch.patterns changes.

Changes made while an install is running are collected and trigger exactly
one more install when it finishes. A failing install is reported and the
watch continues. Press Ctrl+C to stop.`,
		Args: cobra.NoArgs,
		RunE: app.projectRunE(flags, func(cmd *cobra.Command, p *project) error {
			return runWatch(cmd.Context(), app, p, bf, flags.verbose)
		}),
	}
	addBuildFlags(cmd, bf)
	return cmd
}

func runWatch(ctx context.Context, app *App, p *project, bf *buildFlagValues, verbose bool) error {
	// Resolve the plugin root up front; an unsupported host cannot recover.
	root, err := p.install.Root()
	if err != nil {
		return err
	}

	ignore := slices.Clone(p.cfg.Watch.Ignore)
	for _, dir := range []string{p.orch.StagingDir(), root} {
		if pattern, ok := ignorePattern(p.cfg.Dir, dir); ok {
			ignore = append(ignore, pattern)
		}
	}

	w, err := watch.New(watch.Config{
		Patterns:    p.cfg.Watch.Patterns,
		Ignore:      ignore,
		Debounce:    p.cfg.Watch.Debounce,
		ClearScreen: p.cfg.Watch.ClearScreen,
		BaseDir:     p.cfg.Dir,
		Stdout:      app.stdout,
		Logger:      p.logger.WithPrefix(LogPrefix + "/watch"),
		OnChange: func(ctx context.Context, changed []string) error {
			if changed == nil {
				fmt.Fprintf(app.stdout, "%s Initial install\n", PathStyle.Render("→"))
			} else {
				fmt.Fprintf(app.stdout, "%s Detected %d change(s), reinstalling\n", PathStyle.Render("→"), len(changed))
				p.logger.Debug("changed", "paths", strings.Join(changed, ","))
			}
			report, err := p.install.Install(ctx, bf.options())
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New(formatErrorForDisplay(err, verbose))
			}
			printArtifacts(app, p, report.Build)
			fmt.Fprintf(app.stdout, "%s Installed %d distributable(s) into %s\n\n", SuccessStyle.Render("✓"),
				len(report.Installed), PathStyle.Render(report.Root))
			return nil
		},
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(app.stdout, "%s Watching %s for changes (Ctrl+C to stop)\n",
		PathStyle.Render("→"), strings.Join(p.cfg.Watch.Patterns, ", "))
	return w.Run(ctx)
}

// ignorePattern returns a pattern covering dir when it lies inside the
// project directory.
func ignorePattern(projectDir, dir string) (string, bool) {
	rel, err := filepath.Rel(projectDir, dir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", false
	}
	return filepath.ToSlash(rel) + "/**", true
}
