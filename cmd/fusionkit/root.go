// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app. Running the root
// command without a subcommand performs a build.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}
	buildFlags := &buildFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "fusionkit",
		Short: "Bundle, test and install Lua plugins for Fusion",
		Long: TitleStyle.Render("fusionkit") + SubtitleStyle.Render(" - Bundle, test and install Lua plugins for Fusion") + `

fusionkit inlines a Lua plugin's modules into single-file scripts,
lints and tests the sources, and installs the result into the DaVinci
Resolve Fusion plugin directory for the current platform.

The project is described by 'fusionkit.cue' in the project directory.

` + SubtitleStyle.Render("Examples:") + `
  fusionkit                 Build every distributable into the staging directory
  fusionkit install         Build and copy the scripts into Fusion
  fusionkit watch           Reinstall whenever lib/ or src/ changes
  fusionkit config show     Show the effective configuration`,
		Args: cobra.NoArgs,
		RunE: app.projectRunE(flags, func(cmd *cobra.Command, p *project) error {
			return runBuild(cmd, app, p, buildFlags)
		}),
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	pf.StringVar(&flags.configPath, "config", "", "project file (default is <dir>/fusionkit.cue)")
	pf.StringVarP(&flags.dir, "dir", "C", "", "project directory (default is the working directory)")
	addBuildFlags(rootCmd, buildFlags)

	rootCmd.AddCommand(
		newBuildCommand(app, flags),
		newCleanCommand(app, flags),
		newInstallCommand(app, flags),
		newUninstallCommand(app, flags),
		newWatchCommand(app, flags),
		newLintCommand(app, flags),
		newTestCommand(app, flags),
		newInitCommand(app, flags),
		newConfigCommand(app, flags),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// errorHandler prints nothing for *ExitError, which the failing command has
// already reported. Other errors, such as bad flags, get fang's rendering.
func errorHandler(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// Execute runs the CLI and exits with the status of the failed task, if any.
// This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(errorHandler),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}
