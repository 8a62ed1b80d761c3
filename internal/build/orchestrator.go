// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/fusionkit/fusionkit/internal/config"
	"github.com/fusionkit/fusionkit/internal/luabundle"
	"github.com/fusionkit/fusionkit/internal/platform"
	"github.com/fusionkit/fusionkit/internal/toolexec"

	"github.com/charmbracelet/log"
)

type (
	// ToolRunner runs external tools to completion.
	ToolRunner interface {
		Run(ctx context.Context, inv toolexec.Invocation) (toolexec.Result, error)
	}

	// Orchestrator runs build tasks for one project configuration.
	Orchestrator struct {
		cfg     config.Config
		runner  ToolRunner
		bundler *luabundle.Bundler
		logger  *log.Logger
	}

	// Option configures an Orchestrator.
	Option func(*Orchestrator)

	// BuildOptions control a single Build call.
	BuildOptions struct {
		// SkipLint skips the lint step.
		SkipLint bool
		// Strict escalates non-literal requires to errors regardless of the
		// configured policy.
		Strict bool
	}

	// Artifact is one written distributable.
	Artifact struct {
		// Output is the distributable's relative output path.
		Output string
		// Path is the absolute path of the staged file.
		Path string
		// Modules is the number of modules inlined.
		Modules int
		// Size is the file size in bytes.
		Size int
	}

	// BuildReport summarizes a successful build.
	BuildReport struct {
		Lint      LintReport
		Artifacts []Artifact
		// Warnings are non-literal requires tolerated by the warn policy.
		Warnings []luabundle.DynamicReference
	}
)

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithBundler shares a Bundler, and with it the parse cache, across builds.
func WithBundler(b *luabundle.Bundler) Option {
	return func(o *Orchestrator) {
		o.bundler = b
	}
}

// New creates an Orchestrator for a configuration snapshot. The
// distributables table is copied, so later changes to cfg are not observed.
func New(cfg config.Config, runner ToolRunner, opts ...Option) *Orchestrator {
	cfg.Distributables = slices.Clone(cfg.Distributables)
	cfg.Project.SearchPaths = slices.Clone(cfg.Project.SearchPaths)
	cfg.Project.Externals = slices.Clone(cfg.Project.Externals)

	o := &Orchestrator{cfg: cfg, runner: runner}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = log.New(io.Discard)
	}
	if o.bundler == nil {
		o.bundler = luabundle.New(luabundle.WithLogger(o.logger))
	}
	return o
}

// Config returns the configuration snapshot.
func (o *Orchestrator) Config() config.Config {
	return o.cfg
}

// StagingDir returns the absolute staging directory.
func (o *Orchestrator) StagingDir() string {
	return o.cfg.Path(o.cfg.Project.StagingDir)
}

// StagedPath returns where the build writes a distributable.
func (o *Orchestrator) StagedPath(d config.Distributable) string {
	return filepath.Join(o.StagingDir(), filepath.FromSlash(d.Output))
}

// ValidateOutputs checks every distributable output path before any
// filesystem access.
func (o *Orchestrator) ValidateOutputs() error {
	for _, d := range o.cfg.Distributables {
		if err := platform.ValidateRelPath(d.Output); err != nil {
			return &InvalidOutputError{Output: d.Output, Err: err}
		}
	}
	return nil
}

// Build lints (unless skipped), cleans the staging directory and produces
// every distributable in declared order. The first failure aborts the build.
func (o *Orchestrator) Build(ctx context.Context, opts BuildOptions) (*BuildReport, error) {
	if err := o.ValidateOutputs(); err != nil {
		return nil, err
	}
	bundleOpts, err := o.bundleOptions(opts.Strict)
	if err != nil {
		return nil, err
	}

	report := &BuildReport{}
	if !opts.SkipLint {
		lint, err := o.Lint(ctx, LintOptions{Permissive: true, TolerateMissing: true})
		if err != nil {
			return nil, err
		}
		report.Lint = lint
	}

	if err := o.Clean(ctx); err != nil {
		return nil, err
	}

	for _, d := range o.cfg.Distributables {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("build canceled: %w", err)
		}

		switch d.Recipe() {
		case config.RecipeBundle:
			artifact, warnings, err := o.buildBundle(d, bundleOpts)
			if err != nil {
				return nil, err
			}
			report.Artifacts = append(report.Artifacts, artifact)
			report.Warnings = append(report.Warnings, warnings...)
		default:
			return nil, &UnknownRecipeError{Output: d.Output, Kind: d.Kind}
		}
	}
	return report, nil
}

func (o *Orchestrator) bundleOptions(strict bool) (luabundle.Options, error) {
	policy, err := luabundle.ParsePolicy(string(o.cfg.Project.DynamicRequires))
	if err != nil {
		return luabundle.Options{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if strict {
		policy = luabundle.PolicyAbort
	}
	dialect := luabundle.Dialect(o.cfg.Project.Dialect)
	if err := dialect.Validate(); err != nil {
		return luabundle.Options{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return luabundle.Options{
		BaseDir:     o.cfg.Dir,
		SearchPaths: o.cfg.Project.SearchPaths,
		Policy:      policy,
		Dialect:     dialect,
		Externals:   o.cfg.Project.Externals,
	}, nil
}

func (o *Orchestrator) buildBundle(d config.Distributable, opts luabundle.Options) (Artifact, []luabundle.DynamicReference, error) {
	entry := o.cfg.Path(filepath.Join(o.cfg.Project.SrcDir, filepath.FromSlash(d.Entry)))

	res, err := o.bundler.Bundle(entry, opts)
	if err != nil {
		return Artifact{}, nil, fmt.Errorf("bundle %s: %w", d.Output, err)
	}
	for _, w := range res.Warnings {
		o.logger.Warn(w.String())
	}
	if err := luabundle.Verify(res.Source, d.Output); err != nil {
		return Artifact{}, nil, fmt.Errorf("verify %s: %w", d.Output, err)
	}

	path := o.StagedPath(d)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Artifact{}, nil, fmt.Errorf("create staging directory: %w", err)
	}
	if err := os.WriteFile(path, res.Source, 0o644); err != nil {
		return Artifact{}, nil, fmt.Errorf("write %s: %w", d.Output, err)
	}

	o.logger.Info("Created a Lua bundle", "path", path, "modules", len(res.Modules), "warnings", len(res.Warnings))
	return Artifact{Output: d.Output, Path: path, Modules: len(res.Modules), Size: len(res.Source)}, res.Warnings, nil
}

// Clean removes the staging directory. A missing directory is not an error.
func (o *Orchestrator) Clean(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	staging := o.StagingDir()
	if err := o.checkStaging(staging); err != nil {
		return err
	}
	if err := os.RemoveAll(staging); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clean %s: %w", staging, err)
	}
	o.logger.Debug("cleaned staging directory", "path", staging)
	return nil
}

// checkStaging refuses to clean the project directory, one of its parents,
// or a filesystem root.
func (o *Orchestrator) checkStaging(staging string) error {
	clean := filepath.Clean(staging)
	if filepath.Dir(clean) == clean {
		return &UnsafeStagingError{Path: staging}
	}
	rel, err := filepath.Rel(clean, filepath.Clean(o.cfg.Dir))
	if err == nil && !isOutside(rel) {
		return &UnsafeStagingError{Path: staging}
	}
	return nil
}

// isOutside reports whether a filepath.Rel result leaves its base.
func isOutside(rel string) bool {
	return rel == ".." || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator)
}
