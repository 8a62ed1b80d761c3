// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInstallCommand(app *App, flags *rootFlagValues) *cobra.Command {
	bf := &buildFlagValues{}
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Build and copy the distributables into the Fusion plugin directory",
		Long: `Build and copy the distributables into the Fusion plugin directory.

The plugin directory depends on the platform:
  - macOS: ~/Library/Application Support/Blackmagic Design/DaVinci Resolve/Fusion
  - Linux: ~/.local/share/DaVinciResolve/Fusion
  - Windows: %APPDATA%\Blackmagic Design\DaVinci Resolve\Fusion

Set host.plugin_root in fusionkit.cue (or FUSIONKIT_HOST_PLUGIN_ROOT) to
install somewhere else.`,
		Args: cobra.NoArgs,
		RunE: app.projectRunE(flags, func(cmd *cobra.Command, p *project) error {
			report, err := p.install.Install(cmd.Context(), bf.options())
			if err != nil {
				return err
			}
			printArtifacts(app, p, report.Build)
			for _, t := range report.Installed {
				fmt.Fprintf(app.stdout, "%s Installed %s\n", SuccessStyle.Render("✓"), PathStyle.Render(t.Installed))
			}
			return nil
		}),
	}
	addBuildFlags(cmd, bf)
	return cmd
}

func newUninstallCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the installed distributables from the Fusion plugin directory",
		Long: `Remove the installed distributables from the Fusion plugin directory.

Files that are not installed are skipped. Directories left empty are
removed, but the plugin directory itself is kept.`,
		Args: cobra.NoArgs,
		RunE: app.projectRunE(flags, func(cmd *cobra.Command, p *project) error {
			report, err := p.install.Uninstall(cmd.Context())
			if err != nil {
				return err
			}
			for _, t := range report.Removed {
				fmt.Fprintf(app.stdout, "%s Removed %s\n", SuccessStyle.Render("✓"), PathStyle.Render(t.Installed))
			}
			for _, t := range report.Absent {
				fmt.Fprintf(app.stdout, "%s Not installed %s\n", SubtitleStyle.Render("-"), SubtitleStyle.Render(t.Installed))
			}
			return nil
		}),
	}
}
