// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"errors"
	"os/exec"
	"slices"
	"testing"

	"github.com/fusionkit/fusionkit/internal/toolexec"
)

func TestLint_ExitCodes(t *testing.T) {
	t.Parallel()

	missing := &toolexec.MissingToolError{Tool: "luacheck", Err: exec.ErrNotFound}
	tests := []struct {
		name         string
		runErr       error
		opts         LintOptions
		wantErr      error
		wantRan      bool
		wantWarnings bool
	}{
		{name: "clean", wantRan: true},
		{
			name:         "warnings permissive",
			runErr:       &toolexec.ExecError{Tool: "luacheck", Code: 1},
			opts:         LintOptions{Permissive: true},
			wantRan:      true,
			wantWarnings: true,
		},
		{
			name:    "warnings strict",
			runErr:  &toolexec.ExecError{Tool: "luacheck", Code: 1},
			wantErr: toolexec.ErrToolExecution,
		},
		{
			name:    "errors permissive",
			runErr:  &toolexec.ExecError{Tool: "luacheck", Code: 2},
			opts:    LintOptions{Permissive: true},
			wantErr: toolexec.ErrToolExecution,
		},
		{
			name:    "timeout is never tolerated",
			runErr:  &toolexec.ExecError{Tool: "luacheck", Code: 1, TimedOut: true},
			opts:    LintOptions{Permissive: true},
			wantErr: toolexec.ErrToolExecution,
		},
		{
			name:   "missing tolerated",
			runErr: missing,
			opts:   LintOptions{TolerateMissing: true},
		},
		{
			name:    "missing fatal",
			runErr:  missing,
			wantErr: toolexec.ErrToolMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := newProject(t, pluginTree)
			runner := &fakeRunner{results: map[string]error{"luacheck": tt.runErr}}
			report, err := New(cfg, runner).Lint(context.Background(), tt.opts)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Lint() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lint() error: %v", err)
			}
			if report.Ran != tt.wantRan || report.Warnings != tt.wantWarnings {
				t.Errorf("report = %+v", report)
			}
		})
	}
}

func TestLint_ArgsAndTargets(t *testing.T) {
	t.Parallel()

	cfg := newProject(t, map[string]string{"src/main.lua": "return 1"})
	cfg.Lint.Args = `--cache --std luajit --globals "fusion comp"`
	cfg.Lint.Targets = []string{"src", "lib"}
	runner := &fakeRunner{}

	report, err := New(cfg, runner).Lint(context.Background(), LintOptions{})
	if err != nil {
		t.Fatalf("Lint() error: %v", err)
	}
	want := []string{"--cache", "--std", "luajit", "--globals", "fusion comp", "src"}
	if len(runner.calls) != 1 || !slices.Equal(runner.calls[0].Args, want) {
		t.Errorf("args = %+v, want %v", runner.calls, want)
	}
	if !slices.Equal(report.Targets, []string{"src"}) {
		t.Errorf("Targets = %v, missing directories must be skipped", report.Targets)
	}
}

func TestLint_NoTargets(t *testing.T) {
	t.Parallel()

	cfg := newProject(t, nil)
	runner := &fakeRunner{}
	report, err := New(cfg, runner).Lint(context.Background(), LintOptions{})
	if err != nil || report.Ran || len(runner.calls) != 0 {
		t.Errorf("Lint() = %+v, %v; calls %d", report, err, len(runner.calls))
	}
}

func TestLint_BadArgs(t *testing.T) {
	t.Parallel()

	cfg := newProject(t, pluginTree)
	cfg.Lint.Args = `--cache "unterminated`
	_, err := New(cfg, &fakeRunner{}).Lint(context.Background(), LintOptions{})
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}
