// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/fusionkit/fusionkit/internal/build"

	"github.com/spf13/cobra"
)

// buildFlagValues holds the flags shared by build and install.
type buildFlagValues struct {
	skipLint bool
	strict   bool
}

func (f *buildFlagValues) options() build.BuildOptions {
	return build.BuildOptions{SkipLint: f.skipLint, Strict: f.strict}
}

func addBuildFlags(cmd *cobra.Command, f *buildFlagValues) {
	cmd.Flags().BoolVar(&f.skipLint, "skip-lint", false, "do not run the linter before bundling")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "fail on non-literal require calls instead of warning")
}

func newBuildCommand(app *App, flags *rootFlagValues) *cobra.Command {
	bf := &buildFlagValues{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Lint the sources and bundle every distributable",
		Long: `Lint the sources and bundle every distributable into the staging directory.

The linter runs first when it is installed; warnings do not fail the build.
The staging directory is then recreated and each distributable is bundled
in the order declared in fusionkit.cue.`,
		Args: cobra.NoArgs,
		RunE: app.projectRunE(flags, func(cmd *cobra.Command, p *project) error {
			return runBuild(cmd, app, p, bf)
		}),
	}
	addBuildFlags(cmd, bf)
	return cmd
}

func runBuild(cmd *cobra.Command, app *App, p *project, bf *buildFlagValues) error {
	report, err := p.orch.Build(cmd.Context(), bf.options())
	if err != nil {
		return err
	}
	printArtifacts(app, p, report)
	return nil
}

func printArtifacts(app *App, p *project, report *build.BuildReport) {
	for _, a := range report.Artifacts {
		rel, err := filepath.Rel(p.cfg.Dir, a.Path)
		if err != nil {
			rel = a.Path
		}
		fmt.Fprintf(app.stdout, "%s %s %s\n", SuccessStyle.Render("✓"), PathStyle.Render(filepath.ToSlash(rel)),
			SubtitleStyle.Render(fmt.Sprintf("(%d modules, %d bytes)", a.Modules, a.Size)))
	}
	if n := len(report.Warnings); n > 0 {
		fmt.Fprintf(app.stdout, "%s %d non-literal require call(s) left to the host\n", WarningStyle.Render("!"), n)
	}
}

func newCleanCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the staging directory",
		Args:  cobra.NoArgs,
		RunE: app.projectRunE(flags, func(cmd *cobra.Command, p *project) error {
			if err := p.orch.Clean(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "%s Removed %s\n", SuccessStyle.Render("✓"), PathStyle.Render(p.cfg.Project.StagingDir))
			return nil
		}),
	}
}
