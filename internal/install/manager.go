// SPDX-License-Identifier: MPL-2.0

package install

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fusionkit/fusionkit/internal/build"
	"github.com/fusionkit/fusionkit/internal/platform"

	"github.com/charmbracelet/log"
)

type (
	// Manager installs and uninstalls the project's distributables.
	Manager struct {
		orch   *build.Orchestrator
		env    platform.Env
		logger *log.Logger
	}

	// Option configures a Manager.
	Option func(*Manager)

	// Target pairs a distributable's staged file with its installed location.
	Target struct {
		Output    string
		Staged    string
		Installed string
	}

	// InstallReport summarizes an install.
	InstallReport struct {
		Build     *build.BuildReport
		Root      string
		Installed []Target
	}

	// UninstallReport summarizes an uninstall.
	UninstallReport struct {
		Root    string
		Removed []Target
		// Absent lists targets that were not installed.
		Absent []Target
	}
)

// WithEnv replaces the process environment used to locate the plugin root.
func WithEnv(env platform.Env) Option {
	return func(m *Manager) {
		m.env = env
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// New creates a Manager that builds through orch.
func New(orch *build.Orchestrator, opts ...Option) *Manager {
	m := &Manager{orch: orch, env: platform.HostEnv()}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = log.New(io.Discard)
	}
	return m
}

// Root resolves the plugin root for the configured host.
func (m *Manager) Root() (string, error) {
	cfg := m.orch.Config()
	host := platform.Host{
		Vendor:   cfg.Host.Vendor,
		App:      cfg.Host.App,
		LinuxApp: cfg.Host.LinuxApp,
		Subdir:   cfg.Host.Subdir,
	}
	if cfg.Host.PluginRoot != "" {
		host.OverrideRoot = cfg.Path(cfg.Host.PluginRoot)
	}
	return platform.PluginRoot(m.env, host)
}

// Targets validates every output path and returns the staged and installed
// location of each distributable, in declared order.
func (m *Manager) Targets() ([]Target, error) {
	if err := m.orch.ValidateOutputs(); err != nil {
		return nil, err
	}
	root, err := m.Root()
	if err != nil {
		return nil, err
	}
	cfg := m.orch.Config()
	targets := make([]Target, 0, len(cfg.Distributables))
	for _, d := range cfg.Distributables {
		targets = append(targets, Target{
			Output:    d.Output,
			Staged:    m.orch.StagedPath(d),
			Installed: filepath.Join(root, filepath.FromSlash(d.Output)),
		})
	}
	return targets, nil
}

// Install builds the project and copies every distributable below the
// plugin root, replacing existing files. The plugin root is resolved before
// building, so an unsupported host fails without touching the filesystem.
func (m *Manager) Install(ctx context.Context, opts build.BuildOptions) (*InstallReport, error) {
	targets, err := m.Targets()
	if err != nil {
		return nil, err
	}
	root, err := m.Root()
	if err != nil {
		return nil, err
	}

	buildReport, err := m.orch.Build(ctx, opts)
	if err != nil {
		return nil, err
	}

	report := &InstallReport{Build: buildReport, Root: root}
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("install canceled: %w", err)
		}
		if err := copyFile(t.Staged, t.Installed); err != nil {
			return report, fmt.Errorf("install %s: %w", t.Output, err)
		}
		m.logger.Info("Installed", "path", t.Installed)
		report.Installed = append(report.Installed, t)
	}
	return report, nil
}

// Uninstall removes every installed distributable. Missing files are
// skipped, so running it twice is harmless. Directories below the plugin
// root that are left empty are removed; the root itself is kept.
func (m *Manager) Uninstall(ctx context.Context) (*UninstallReport, error) {
	targets, err := m.Targets()
	if err != nil {
		return nil, err
	}
	root, err := m.Root()
	if err != nil {
		return nil, err
	}

	report := &UninstallReport{Root: root}
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("uninstall canceled: %w", err)
		}
		err := os.Remove(t.Installed)
		switch {
		case err == nil:
			m.logger.Info("Uninstalled", "path", t.Installed)
			report.Removed = append(report.Removed, t)
			m.pruneEmptyDirs(root, filepath.Dir(t.Installed))
		case errors.Is(err, os.ErrNotExist):
			m.logger.Debug("not installed", "path", t.Installed)
			report.Absent = append(report.Absent, t)
		default:
			return report, fmt.Errorf("uninstall %s: %w", t.Output, err)
		}
	}
	return report, nil
}

// pruneEmptyDirs removes dir and its parents while they are empty, stopping
// at root.
func (m *Manager) pruneEmptyDirs(root, dir string) {
	root = filepath.Clean(root)
	for dir = filepath.Clean(dir); dir != root; dir = filepath.Dir(dir) {
		rel, err := filepath.Rel(root, dir)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			m.logger.Debug("leaving plugin directory", "path", dir, "error", err)
			return
		}
		m.logger.Debug("removed empty plugin directory", "path", dir)
	}
}

// copyFile copies src to dst through a temporary file in dst's directory, so
// the host never reads a half-written plugin.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create plugin directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, in); err != nil {
		return err
	}
	if err = tmp.Chmod(0o644); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
