// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fusionkit/fusionkit/internal/issue"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "fusionkit"
	// ConfigFileName is the project file name (without extension).
	ConfigFileName = "fusionkit"
	// ConfigFileExt is the project file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides, e.g. FUSIONKIT_HOST_PLUGIN_ROOT.
	EnvPrefix = "FUSIONKIT"
	// DotEnvFile is loaded from the project directory before configuration.
	DotEnvFile = ".env"
)

//go:embed config_schema.cue
var configSchema string

// FileName returns the default project file name.
func FileName() string {
	return ConfigFileName + "." + ConfigFileExt
}

// loadWithOptions performs option-driven config loading. It never touches
// package-level state, so concurrent loads for different projects are safe
// apart from the process environment shared through .env files.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	dir := opts.ProjectDir
	if dir == "" {
		dir = "."
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve project directory: %w", err)
	}

	if !opts.SkipDotEnv {
		if err := loadDotEnv(filepath.Join(dir, DotEnvFile)); err != nil {
			return nil, err
		}
	}

	v := newViper()

	resolvedPath := ""
	if opts.ConfigFilePath != "" {
		path := opts.ConfigFilePath
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		if !fileExists(path) {
			return nil, issue.NewErrorContext().
				WithOperation("load project configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Run 'fusionkit init' to create a default " + FileName()).
				Wrap(fmt.Errorf("config file not found: %s", path)).
				BuildError()
		}
		resolvedPath = path
	} else if path := filepath.Join(dir, FileName()); fileExists(path) {
		resolvedPath = path
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load project configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Compare with the output of 'fusionkit config show'").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Dir = dir
	cfg.File = resolvedPath

	if valid, errs := cfg.IsValid(); !valid {
		return nil, issue.NewErrorContext().
			WithOperation("validate project configuration").
			WithResource(displayName(resolvedPath)).
			WithSuggestion("Environment overrides use the " + EnvPrefix + "_ prefix; check them too").
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, nil
}

// newViper returns a Viper instance holding the defaults and bound to the
// FUSIONKIT_ environment.
func newViper() *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("project.src_dir", defaults.Project.SrcDir)
	v.SetDefault("project.lib_dir", defaults.Project.LibDir)
	v.SetDefault("project.staging_dir", defaults.Project.StagingDir)
	v.SetDefault("project.search_paths", defaults.Project.SearchPaths)
	v.SetDefault("project.dialect", string(defaults.Project.Dialect))
	v.SetDefault("project.dynamic_requires", string(defaults.Project.DynamicRequires))
	v.SetDefault("project.externals", defaults.Project.Externals)
	v.SetDefault("distributables", distributableMaps(defaults.Distributables))
	v.SetDefault("lint.tool", defaults.Lint.Tool)
	v.SetDefault("lint.args", defaults.Lint.Args)
	v.SetDefault("lint.targets", defaults.Lint.Targets)
	v.SetDefault("lint.timeout", defaults.Lint.Timeout)
	v.SetDefault("test.interpreter", defaults.Test.Interpreter)
	v.SetDefault("test.files", defaults.Test.Files)
	v.SetDefault("test.timeout", defaults.Test.Timeout)
	v.SetDefault("watch.patterns", defaults.Watch.Patterns)
	v.SetDefault("watch.ignore", defaults.Watch.Ignore)
	v.SetDefault("watch.debounce", defaults.Watch.Debounce)
	v.SetDefault("watch.clear_screen", defaults.Watch.ClearScreen)
	v.SetDefault("host.vendor", defaults.Host.Vendor)
	v.SetDefault("host.app", defaults.Host.App)
	v.SetDefault("host.linux_app", defaults.Host.LinuxApp)
	v.SetDefault("host.subdir", defaults.Host.Subdir)
	v.SetDefault("host.plugin_root", defaults.Host.PluginRoot)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func distributableMaps(ds []Distributable) []map[string]any {
	out := make([]map[string]any, 0, len(ds))
	for _, d := range ds {
		out = append(out, map[string]any{"output": d.Output, "kind": d.Kind, "entry": d.Entry})
	}
	return out
}

// loadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func loadDotEnv(path string) error {
	if !fileExists(path) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return issue.NewErrorContext().
			WithOperation("load environment file").
			WithResource(path).
			WithSuggestion("Use KEY=VALUE lines; quote values containing spaces").
			Wrap(err).
			BuildError()
	}
	return nil
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper. Fields are optional, so validation uses
// Concrete(false) and decodes into a map rather than a struct.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) > maxConfigFileSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", path, len(data), maxConfigFileSize)
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func displayName(path string) string {
	if path == "" {
		return "defaults"
	}
	return path
}

// WriteDefault writes the default project file into dir. An existing file is
// only replaced when force is set.
func WriteDefault(dir string, force bool) (string, error) {
	path := filepath.Join(dir, FileName())
	if !force && fileExists(path) {
		return path, fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return path, fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
}

// GenerateCUE renders cfg as a project file accepted by the schema.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// fusionkit project configuration\n")
	sb.WriteString("// Run 'fusionkit config show' to print the effective values.\n\n")

	sb.WriteString("project: {\n")
	fmt.Fprintf(&sb, "\tsrc_dir:          %q\n", cfg.Project.SrcDir)
	fmt.Fprintf(&sb, "\tlib_dir:          %q\n", cfg.Project.LibDir)
	fmt.Fprintf(&sb, "\tstaging_dir:      %q\n", cfg.Project.StagingDir)
	fmt.Fprintf(&sb, "\tsearch_paths:     %s\n", cueList(cfg.Project.SearchPaths))
	fmt.Fprintf(&sb, "\tdialect:          %q\n", string(cfg.Project.Dialect))
	fmt.Fprintf(&sb, "\tdynamic_requires: %q\n", string(cfg.Project.DynamicRequires))
	fmt.Fprintf(&sb, "\texternals:        %s\n", cueList(cfg.Project.Externals))
	sb.WriteString("}\n")

	sb.WriteString("\ndistributables: [\n")
	for _, d := range cfg.Distributables {
		fmt.Fprintf(&sb, "\t{output: %q, kind: %q, entry: %q},\n", d.Output, d.Recipe(), d.Entry)
	}
	sb.WriteString("]\n")

	sb.WriteString("\nlint: {\n")
	fmt.Fprintf(&sb, "\ttool:    %q\n", cfg.Lint.Tool)
	fmt.Fprintf(&sb, "\targs:    %q\n", cfg.Lint.Args)
	fmt.Fprintf(&sb, "\ttargets: %s\n", cueList(cfg.Lint.Targets))
	if cfg.Lint.Timeout > 0 {
		fmt.Fprintf(&sb, "\ttimeout: %q\n", cfg.Lint.Timeout.String())
	}
	sb.WriteString("}\n")

	sb.WriteString("\ntest: {\n")
	fmt.Fprintf(&sb, "\tinterpreter: %q\n", cfg.Test.Interpreter)
	fmt.Fprintf(&sb, "\tfiles:       %s\n", cueList(cfg.Test.Files))
	if cfg.Test.Timeout > 0 {
		fmt.Fprintf(&sb, "\ttimeout:     %q\n", cfg.Test.Timeout.String())
	}
	sb.WriteString("}\n")

	sb.WriteString("\nwatch: {\n")
	fmt.Fprintf(&sb, "\tpatterns:     %s\n", cueList(cfg.Watch.Patterns))
	fmt.Fprintf(&sb, "\tignore:       %s\n", cueList(cfg.Watch.Ignore))
	fmt.Fprintf(&sb, "\tdebounce:     %q\n", durationString(cfg.Watch.Debounce))
	fmt.Fprintf(&sb, "\tclear_screen: %v\n", cfg.Watch.ClearScreen)
	sb.WriteString("}\n")

	sb.WriteString("\nhost: {\n")
	fmt.Fprintf(&sb, "\tvendor:    %q\n", cfg.Host.Vendor)
	fmt.Fprintf(&sb, "\tapp:       %q\n", cfg.Host.App)
	fmt.Fprintf(&sb, "\tlinux_app: %q\n", cfg.Host.LinuxApp)
	fmt.Fprintf(&sb, "\tsubdir:    %q\n", cfg.Host.Subdir)
	if cfg.Host.PluginRoot != "" {
		fmt.Fprintf(&sb, "\tplugin_root: %q\n", cfg.Host.PluginRoot)
	}
	sb.WriteString("}\n")

	return sb.String()
}

func cueList(items []string) string {
	quoted := make([]string, 0, len(items))
	for _, item := range items {
		quoted = append(quoted, fmt.Sprintf("%q", item))
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func durationString(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	return d.String()
}
