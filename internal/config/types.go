// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const (
	// RecipeBundle inlines an entry script and its requires into one file.
	RecipeBundle = "bundle"

	// DialectLuaJIT is the interpreter embedded in Fusion.
	DialectLuaJIT Dialect = "LuaJIT"
	// DialectLua51 is PUC Lua 5.1.
	DialectLua51 Dialect = "5.1"

	// DynamicWarn reports non-literal requires and keeps building.
	DynamicWarn DynamicPolicy = "warn"
	// DynamicAbort fails the build on a non-literal require.
	DynamicAbort DynamicPolicy = "abort"
)

var (
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidDialect is returned for an unknown Dialect.
	ErrInvalidDialect = errors.New("invalid dialect")
	// ErrInvalidDynamicPolicy is returned for an unknown DynamicPolicy.
	ErrInvalidDynamicPolicy = errors.New("invalid dynamic require policy")
	// ErrInvalidDistributable is returned for an incomplete distributable entry.
	ErrInvalidDistributable = errors.New("invalid distributable")
)

type (
	// Dialect names the Lua flavour the bundle targets.
	Dialect string

	// DynamicPolicy decides what a non-literal require does to a build.
	DynamicPolicy string

	// InvalidConfigError collects field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the project configuration.
	Config struct {
		Project        ProjectConfig   `json:"project" mapstructure:"project"`
		Distributables []Distributable `json:"distributables" mapstructure:"distributables"`
		Lint           LintConfig      `json:"lint" mapstructure:"lint"`
		Test           TestConfig      `json:"test" mapstructure:"test"`
		Watch          WatchConfig     `json:"watch" mapstructure:"watch"`
		Host           HostConfig      `json:"host" mapstructure:"host"`

		// Dir is the absolute project directory all relative paths hang off.
		Dir string `json:"-" mapstructure:"-"`
		// File is the project file that was loaded, empty when only defaults
		// and environment overrides apply.
		File string `json:"-" mapstructure:"-"`
	}

	// ProjectConfig locates sources and controls bundling.
	ProjectConfig struct {
		// SrcDir holds the entry scripts.
		SrcDir string `json:"src_dir" mapstructure:"src_dir"`
		// LibDir holds shared library modules.
		LibDir string `json:"lib_dir" mapstructure:"lib_dir"`
		// StagingDir receives build outputs. It is removed by clean.
		StagingDir string `json:"staging_dir" mapstructure:"staging_dir"`
		// SearchPaths are package.path style templates relative to Dir.
		SearchPaths []string `json:"search_paths" mapstructure:"search_paths"`
		// Dialect is the target interpreter flavour.
		Dialect Dialect `json:"dialect" mapstructure:"dialect"`
		// DynamicRequires is the policy for non-literal requires.
		DynamicRequires DynamicPolicy `json:"dynamic_requires" mapstructure:"dynamic_requires"`
		// Externals are modules the host interpreter provides.
		Externals []string `json:"externals" mapstructure:"externals"`
	}

	// Distributable is one build output.
	Distributable struct {
		// Output is the path relative to both the staging directory and the
		// plugin root.
		Output string `json:"output" mapstructure:"output"`
		// Kind selects the recipe; empty means RecipeBundle.
		Kind string `json:"kind" mapstructure:"kind"`
		// Entry is the entry script relative to Project.SrcDir.
		Entry string `json:"entry" mapstructure:"entry"`
	}

	// LintConfig configures the external linter.
	LintConfig struct {
		Tool    string        `json:"tool" mapstructure:"tool"`
		Args    string        `json:"args" mapstructure:"args"`
		Targets []string      `json:"targets" mapstructure:"targets"`
		Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
	}

	// TestConfig configures the Lua test harness.
	TestConfig struct {
		Interpreter string        `json:"interpreter" mapstructure:"interpreter"`
		Files       []string      `json:"files" mapstructure:"files"`
		Timeout     time.Duration `json:"timeout" mapstructure:"timeout"`
	}

	// WatchConfig configures watch mode.
	WatchConfig struct {
		Patterns    []string      `json:"patterns" mapstructure:"patterns"`
		Ignore      []string      `json:"ignore" mapstructure:"ignore"`
		Debounce    time.Duration `json:"debounce" mapstructure:"debounce"`
		ClearScreen bool          `json:"clear_screen" mapstructure:"clear_screen"`
	}

	// HostConfig names the host application's directories.
	HostConfig struct {
		Vendor   string `json:"vendor" mapstructure:"vendor"`
		App      string `json:"app" mapstructure:"app"`
		LinuxApp string `json:"linux_app" mapstructure:"linux_app"`
		Subdir   string `json:"subdir" mapstructure:"subdir"`
		// PluginRoot replaces the per-OS plugin directory when set.
		PluginRoot string `json:"plugin_root" mapstructure:"plugin_root"`
	}
)

// DefaultConfig returns the built-in configuration, matching the layout of
// the Voice Hopper plugin repository.
func DefaultConfig() *Config {
	return &Config{
		Project: ProjectConfig{
			SrcDir:          "src",
			LibDir:          "lib",
			StagingDir:      "dist",
			SearchPaths:     []string{"lib/?.lua"},
			Dialect:         DialectLuaJIT,
			DynamicRequires: DynamicWarn,
			Externals:       []string{},
		},
		Distributables: []Distributable{
			{Output: "Scripts/Utility/Voice Hopper.lua", Kind: RecipeBundle, Entry: "main.lua"},
		},
		Lint: LintConfig{
			Tool:    "luacheck",
			Args:    "--cache",
			Targets: []string{"src", "lib"},
		},
		Test: TestConfig{
			Interpreter: "luajit",
			Files:       []string{"test/**/*_test.lua"},
		},
		Watch: WatchConfig{
			Patterns: []string{"lib/**", "src/**"},
			Ignore:   []string{},
		},
		Host: HostConfig{
			Vendor:   "Blackmagic Design",
			App:      "DaVinci Resolve",
			LinuxApp: "DaVinciResolve",
			Subdir:   "Fusion",
		},
	}
}

// Recipe returns the recipe kind, defaulting to RecipeBundle.
func (d Distributable) Recipe() string {
	if d.Kind == "" {
		return RecipeBundle
	}
	return d.Kind
}

// IsValid reports whether the entry names an output and an entry script.
// The recipe kind is checked by the build, which owns the recipe table.
func (d Distributable) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(d.Output) == "" {
		errs = append(errs, fmt.Errorf("%w: output must not be empty", ErrInvalidDistributable))
	}
	if d.Recipe() == RecipeBundle && strings.TrimSpace(d.Entry) == "" {
		errs = append(errs, fmt.Errorf("%w: %s: bundle entry must not be empty", ErrInvalidDistributable, d.Output))
	}
	return len(errs) == 0, errs
}

// IsValid reports whether d is a supported dialect.
func (d Dialect) IsValid() (bool, []error) {
	switch d {
	case DialectLuaJIT, DialectLua51:
		return true, nil
	default:
		return false, []error{fmt.Errorf("%w: %q (expected %s or %s)", ErrInvalidDialect, string(d), DialectLuaJIT, DialectLua51)}
	}
}

// IsValid reports whether p is a known policy.
func (p DynamicPolicy) IsValid() (bool, []error) {
	switch p {
	case DynamicWarn, DynamicAbort:
		return true, nil
	default:
		return false, []error{fmt.Errorf("%w: %q (expected warn or abort)", ErrInvalidDynamicPolicy, string(p))}
	}
}

// IsValid validates the fields CUE cannot see after environment overrides:
// enum values, distributable completeness and duplicate outputs.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Project.Dialect.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Project.DynamicRequires.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if strings.TrimSpace(c.Project.StagingDir) == "" {
		errs = append(errs, errors.New("project.staging_dir must not be empty"))
	}

	seen := make(map[string]int, len(c.Distributables))
	for i, d := range c.Distributables {
		if valid, fieldErrs := d.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
		if first, dup := seen[d.Output]; dup && d.Output != "" {
			errs = append(errs, fmt.Errorf("%w: distributables[%d] duplicates the output of distributables[%d] (%q)",
				ErrInvalidDistributable, i, first, d.Output))
			continue
		}
		seen[d.Output] = i
	}

	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidConfig followed by the field errors, so errors.Is
// matches both the sentinel and the specific field sentinel.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// Path joins rel onto the project directory unless it is already absolute.
func (c *Config) Path(rel string) string {
	if rel == "" {
		return c.Dir
	}
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.Dir, filepath.FromSlash(rel))
}
