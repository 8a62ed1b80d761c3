// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"path/filepath"
	"slices"
	"testing"
)

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v0.3.0"
		Commit = "9f1c2ab"
		BuildDate = "2026-03-02T09:30:00Z"

		want := "v0.3.0 (commit: 9f1c2ab, built: 2026-03-02T09:30:00Z)"
		if got := getVersionString(); got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		Version = "dev"
		if got := getVersionString(); got != "dev (built from source)" {
			t.Errorf("getVersionString() = %q", got)
		}
	})
}

func TestRootCommandTree(t *testing.T) {
	t.Parallel()

	root := NewRootCommand(NewApp(Dependencies{}))
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"build", "clean", "install", "uninstall", "watch", "lint", "test", "init", "config"} {
		if !slices.Contains(names, want) {
			t.Errorf("missing %q command, have %v", want, names)
		}
	}

	for _, flag := range []string{"verbose", "config", "dir"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing persistent flag --%s", flag)
		}
	}
	if root.Flags().Lookup("skip-lint") == nil {
		t.Error("the default build task should accept --skip-lint")
	}
}

func TestIgnorePattern(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	tests := []struct {
		name string
		dir  string
		want string
		ok   bool
	}{
		{"staging", filepath.Join(project, "dist"), "dist/**", true},
		{"nested", filepath.Join(project, "build", "out"), "build/out/**", true},
		{"project itself", project, "", false},
		{"outside", t.TempDir(), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ignorePattern(project, tt.dir)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ignorePattern(%q) = %q, %v; want %q, %v", tt.dir, got, ok, tt.want, tt.ok)
			}
		})
	}
}
