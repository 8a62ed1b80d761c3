// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/fusionkit/fusionkit/internal/config"
	"github.com/fusionkit/fusionkit/internal/issue"

	"github.com/spf13/cobra"
)

func newInitCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default fusionkit.cue in the project directory",
		Long: `Create a default fusionkit.cue in the project directory.

The generated file lists every setting with its default value: one
distributable bundled from src/main.lua, modules searched in lib/, and the
DaVinci Resolve Fusion plugin layout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := flags.dir
			if dir == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				dir = wd
			}

			path, err := config.WriteDefault(dir, force)
			if err != nil {
				cmd.SilenceUsage = true
				return app.fail(issue.NewErrorContext().
					WithOperation("create project file").
					WithSuggestion("Use --force to overwrite the existing file").
					Wrap(err).
					BuildError(), flags.verbose)
			}

			fmt.Fprintf(app.stdout, "%s Created %s\n", SuccessStyle.Render("✓"), path)
			fmt.Fprintln(app.stdout)
			fmt.Fprintln(app.stdout, SubtitleStyle.Render("Next steps:"))
			fmt.Fprintln(app.stdout, "  1. Put the plugin entry script in src/ and shared modules in lib/")
			fmt.Fprintln(app.stdout, "  2. Run 'fusionkit' to bundle into dist/")
			fmt.Fprintln(app.stdout, "  3. Run 'fusionkit install' to copy the scripts into Fusion")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing fusionkit.cue")
	return cmd
}
