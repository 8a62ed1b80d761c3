// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/fusionkit/fusionkit/internal/issue"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// unsetForTest clears key for the duration of the test and restores it on
// cleanup.
func unsetForTest(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatal(err)
	}
}

func load(t *testing.T, opts LoadOptions) (*Config, error) {
	t.Helper()
	return NewProvider().Load(context.Background(), opts)
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, err := load(t, LoadOptions{ProjectDir: dir})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	want := DefaultConfig()
	if cfg.File != "" {
		t.Errorf("File = %q, want empty without a project file", cfg.File)
	}
	if cfg.Dir != dir {
		t.Errorf("Dir = %q, want %q", cfg.Dir, dir)
	}
	if cfg.Project.SrcDir != want.Project.SrcDir || cfg.Project.StagingDir != want.Project.StagingDir {
		t.Errorf("project = %+v", cfg.Project)
	}
	if !slices.Equal(cfg.Project.SearchPaths, want.Project.SearchPaths) {
		t.Errorf("SearchPaths = %v", cfg.Project.SearchPaths)
	}
	if cfg.Project.Dialect != DialectLuaJIT || cfg.Project.DynamicRequires != DynamicWarn {
		t.Errorf("dialect/policy = %q/%q", cfg.Project.Dialect, cfg.Project.DynamicRequires)
	}
	if len(cfg.Distributables) != 1 || cfg.Distributables[0] != want.Distributables[0] {
		t.Errorf("Distributables = %+v", cfg.Distributables)
	}
	if cfg.Lint.Tool != "luacheck" || cfg.Lint.Args != "--cache" {
		t.Errorf("lint = %+v", cfg.Lint)
	}
	if cfg.Test.Interpreter != "luajit" || !slices.Equal(cfg.Test.Files, []string{"test/**/*_test.lua"}) {
		t.Errorf("test = %+v", cfg.Test)
	}
	if !slices.Equal(cfg.Watch.Patterns, []string{"lib/**", "src/**"}) || cfg.Watch.Debounce != 0 {
		t.Errorf("watch = %+v", cfg.Watch)
	}
	if cfg.Host.Vendor != "Blackmagic Design" || cfg.Host.LinuxApp != "DaVinciResolve" {
		t.Errorf("host = %+v", cfg.Host)
	}
}

func TestLoad_ProjectFileOverridesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName()), `
project: {
	staging_dir: "out"
	search_paths: ["lib/?.lua", "lib/?/init.lua"]
	externals: ["ffi"]
}
distributables: [
	{output: "Scripts/Comp/A.lua", entry: "a.lua"},
	{output: "Scripts/Comp/B.lua", kind: "bundle", entry: "b.lua"},
]
watch: debounce: "250ms"
`)

	cfg, err := load(t, LoadOptions{ProjectDir: dir})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.File != filepath.Join(dir, FileName()) {
		t.Errorf("File = %q", cfg.File)
	}
	if cfg.Project.StagingDir != "out" || cfg.Project.SrcDir != "src" {
		t.Errorf("project = %+v", cfg.Project)
	}
	if !slices.Equal(cfg.Project.SearchPaths, []string{"lib/?.lua", "lib/?/init.lua"}) {
		t.Errorf("SearchPaths = %v", cfg.Project.SearchPaths)
	}
	if !slices.Equal(cfg.Project.Externals, []string{"ffi"}) {
		t.Errorf("Externals = %v", cfg.Project.Externals)
	}
	if len(cfg.Distributables) != 2 {
		t.Fatalf("Distributables = %+v", cfg.Distributables)
	}
	if d := cfg.Distributables[0]; d.Output != "Scripts/Comp/A.lua" || d.Recipe() != RecipeBundle || d.Entry != "a.lua" {
		t.Errorf("Distributables[0] = %+v", d)
	}
	if cfg.Watch.Debounce != 250*time.Millisecond {
		t.Errorf("Debounce = %v", cfg.Watch.Debounce)
	}
	if !slices.Equal(cfg.Watch.Patterns, []string{"lib/**", "src/**"}) {
		t.Errorf("unset sections must keep defaults, got %v", cfg.Watch.Patterns)
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown field", `project: colour: "red"`, "colour"},
		{"bad dialect", `project: dialect: "5.4"`, "project.dialect"},
		{"bad duration", `watch: debounce: "soon"`, "watch.debounce"},
		{"syntax error", `project: {`, FileName()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, FileName()), tt.content)

			_, err := load(t, LoadOptions{ProjectDir: dir})
			if err == nil {
				t.Fatal("expected an error")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) || ae.Operation != "load project configuration" {
				t.Errorf("expected an actionable load error, got %T: %v", err, err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ci", "release.cue"), `project: staging_dir: "release"`)

	cfg, err := load(t, LoadOptions{ProjectDir: dir, ConfigFilePath: filepath.Join("ci", "release.cue")})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Project.StagingDir != "release" {
		t.Errorf("StagingDir = %q", cfg.Project.StagingDir)
	}

	_, err = load(t, LoadOptions{ProjectDir: dir, ConfigFilePath: "missing.cue"})
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("missing explicit file: got %v", err)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName()), `
distributables: [
	{output: "Scripts/x.lua", entry: "a.lua"},
	{output: "Scripts/x.lua", entry: "b.lua"},
]
`)
	_, err := load(t, LoadOptions{ProjectDir: dir})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	var ice *InvalidConfigError
	if !errors.As(err, &ice) || len(ice.FieldErrors) != 1 || !errors.Is(ice.FieldErrors[0], ErrInvalidDistributable) {
		t.Errorf("expected one duplicate output field error, got %v", err)
	}
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	root := t.TempDir()
	t.Setenv("FUSIONKIT_HOST_PLUGIN_ROOT", root)
	t.Setenv("FUSIONKIT_PROJECT_DYNAMIC_REQUIRES", "abort")

	cfg, err := load(t, LoadOptions{ProjectDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Host.PluginRoot != root {
		t.Errorf("PluginRoot = %q, want %q", cfg.Host.PluginRoot, root)
	}
	if cfg.Project.DynamicRequires != DynamicAbort {
		t.Errorf("DynamicRequires = %q", cfg.Project.DynamicRequires)
	}

	t.Setenv("FUSIONKIT_PROJECT_DIALECT", "5.4")
	if _, err := load(t, LoadOptions{ProjectDir: t.TempDir()}); !errors.Is(err, ErrInvalidDialect) {
		t.Errorf("invalid dialect from env: got %v", err)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	unsetForTest(t, "FUSIONKIT_LINT_TOOL")
	t.Setenv("FUSIONKIT_TEST_INTERPRETER", "luajit-2.1")

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, DotEnvFile), "FUSIONKIT_LINT_TOOL=selene\nFUSIONKIT_TEST_INTERPRETER=lua5.1\n")

	cfg, err := load(t, LoadOptions{ProjectDir: dir})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Lint.Tool != "selene" {
		t.Errorf("Lint.Tool = %q, want value from .env", cfg.Lint.Tool)
	}
	if cfg.Test.Interpreter != "luajit-2.1" {
		t.Errorf("Test.Interpreter = %q, an existing variable must win over .env", cfg.Test.Interpreter)
	}
}

func TestLoad_DotEnvSkipped(t *testing.T) {
	unsetForTest(t, "FUSIONKIT_LINT_TOOL")

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, DotEnvFile), "FUSIONKIT_LINT_TOOL=selene\n")

	cfg, err := load(t, LoadOptions{ProjectDir: dir, SkipDotEnv: true})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Lint.Tool != "luacheck" {
		t.Errorf("Lint.Tool = %q, .env must not be read", cfg.Lint.Tool)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{ProjectDir: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestGenerateCUE_LoadsBack(t *testing.T) {
	t.Parallel()

	src := DefaultConfig()
	src.Watch.Debounce = 1500 * time.Millisecond
	src.Host.PluginRoot = "/tmp/fusion"
	src.Lint.Timeout = time.Minute

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName()), GenerateCUE(src))

	cfg, err := load(t, LoadOptions{ProjectDir: dir, SkipDotEnv: true})
	if err != nil {
		t.Fatalf("generated file does not load: %v\n%s", err, GenerateCUE(src))
	}
	if cfg.Watch.Debounce != src.Watch.Debounce || cfg.Host.PluginRoot != src.Host.PluginRoot || cfg.Lint.Timeout != time.Minute {
		t.Errorf("round trip lost values: %+v %+v %+v", cfg.Watch, cfg.Host, cfg.Lint)
	}
}

func TestWriteDefault(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, err := WriteDefault(dir, false)
	if err != nil {
		t.Fatalf("WriteDefault() error: %v", err)
	}
	if path != filepath.Join(dir, FileName()) {
		t.Errorf("path = %q", path)
	}
	if _, err := WriteDefault(dir, false); err == nil {
		t.Error("second WriteDefault without force should fail")
	}
	if _, err := WriteDefault(dir, true); err != nil {
		t.Errorf("WriteDefault(force) error: %v", err)
	}
}

func TestConfigPath(t *testing.T) {
	t.Parallel()

	cfg := &Config{Dir: filepath.FromSlash("/work/plugin")}
	if got, want := cfg.Path("src/main.lua"), filepath.Join(cfg.Dir, "src", "main.lua"); got != want {
		t.Errorf("Path(rel) = %q, want %q", got, want)
	}
	abs := filepath.Join(t.TempDir(), "x")
	if got := cfg.Path(abs); got != abs {
		t.Errorf("Path(abs) = %q", got)
	}
	if got := cfg.Path(""); got != cfg.Dir {
		t.Errorf("Path(\"\") = %q", got)
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   []string
		want string
	}{
		{nil, ""},
		{[]string{"project", "dialect"}, "project.dialect"},
		{[]string{"distributables", "0", "output"}, "distributables[0].output"},
	}
	for _, tt := range tests {
		if got := formatPath(tt.in); got != tt.want {
			t.Errorf("formatPath(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
