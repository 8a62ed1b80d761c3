// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/fusionkit/fusionkit/internal/config"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `fusionkit config` command tree.
func newConfigCommand(app *App, flags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the project configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration and install locations",
		Long: `Show the effective configuration after defaults, fusionkit.cue and
FUSIONKIT_* environment overrides are merged, followed by where each
distributable is staged and installed.`,
		Args: cobra.NoArgs,
		RunE: app.projectRunE(flags, func(cmd *cobra.Command, p *project) error {
			return showConfig(app, p)
		}),
	})

	return cfgCmd
}

func showConfig(app *App, p *project) error {
	out := app.stdout
	fmt.Fprintln(out, TitleStyle.Render("Project configuration"))
	fmt.Fprintf(out, "%s: %s\n", PathStyle.Render("Project dir"), p.cfg.Dir)
	if p.cfg.File != "" {
		fmt.Fprintf(out, "%s: %s\n", PathStyle.Render("Config file"), p.cfg.File)
	} else {
		fmt.Fprintf(out, "%s: %s\n", PathStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, config.GenerateCUE(p.cfg))
	fmt.Fprintln(out)

	fmt.Fprintln(out, TitleStyle.Render("Install locations"))
	targets, err := p.install.Targets()
	if err != nil {
		// The configuration itself is still worth showing on hosts without
		// a plugin directory.
		fmt.Fprintf(out, "%s %s\n", WarningStyle.Render("!"), formatErrorForDisplay(err, false))
		return nil
	}
	root, err := p.install.Root()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %s\n", PathStyle.Render("Plugin root"), root)
	for _, t := range targets {
		fmt.Fprintf(out, "  %s\n    staged:    %s\n    installed: %s\n", t.Output, t.Staged, t.Installed)
	}
	return nil
}
