// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/fusionkit/fusionkit/internal/build"
	"github.com/fusionkit/fusionkit/internal/config"
	"github.com/fusionkit/fusionkit/internal/install"
	"github.com/fusionkit/fusionkit/internal/platform"
	"github.com/fusionkit/fusionkit/internal/toolexec"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// LogPrefix prefixes every log line.
const LogPrefix = "fusionkit"

type (
	// App wires CLI services and shared dependencies. Command handlers
	// receive it and load the project through it.
	App struct {
		Config config.Provider
		env    platform.Env
		stdout io.Writer
		stderr io.Writer
	}

	// Dependencies defines the injection points for building an App. Zero
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Env    platform.Env
		Stdout io.Writer
		Stderr io.Writer
	}

	// project is one loaded project with its task services.
	project struct {
		cfg     *config.Config
		logger  *log.Logger
		orch    *build.Orchestrator
		install *install.Manager
	}

	// rootFlagValues holds the persistent flags shared by every command.
	rootFlagValues struct {
		verbose    bool
		configPath string
		dir        string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Env.GOOS == "" {
		deps.Env = platform.HostEnv()
	}
	return &App{
		Config: deps.Config,
		env:    deps.Env,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
}

func (a *App) newLogger(verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Prefix: LogPrefix,
		Level:  level,
	})
}

// openProject loads the configuration selected by the root flags and
// builds the services operating on it.
func (a *App) openProject(ctx context.Context, flags *rootFlagValues) (*project, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{
		ProjectDir:     flags.dir,
		ConfigFilePath: flags.configPath,
	})
	if err != nil {
		return nil, err
	}

	logger := a.newLogger(flags.verbose)
	logger.Debug("loaded configuration", "dir", cfg.Dir, "file", cfg.File)

	runner := toolexec.NewRunner(a.stdout, a.stderr, toolexec.WithLogger(logger))
	orch := build.New(*cfg, runner, build.WithLogger(logger))
	return &project{
		cfg:     cfg,
		logger:  logger,
		orch:    orch,
		install: install.New(orch, install.WithEnv(a.env), install.WithLogger(logger)),
	}, nil
}

// projectRunE adapts a task into a cobra RunE: it opens the project, runs
// the task and reports failures through fail.
func (a *App) projectRunE(flags *rootFlagValues, task func(cmd *cobra.Command, p *project) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		p, err := a.openProject(cmd.Context(), flags)
		if err == nil {
			err = task(cmd, p)
		}
		if err == nil {
			return nil
		}
		cmd.SilenceUsage = true
		return a.fail(err, flags.verbose)
	}
}
