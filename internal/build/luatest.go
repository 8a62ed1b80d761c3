// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fusionkit/fusionkit/internal/toolexec"

	"github.com/bmatcuk/doublestar/v4"
)

// LuaPathEnv is the interpreter's module search path variable.
const LuaPathEnv = "LUA_PATH"

type (
	// TestOptions control a Test call.
	TestOptions struct {
		// Timeout bounds each test file; zero uses the configured timeout.
		Timeout time.Duration
	}

	// TestReport lists the test files found and those that passed.
	TestReport struct {
		Files  []string
		Passed []string
	}
)

// TestFiles returns the project-relative test files matched by the
// configured patterns, deduplicated and in lexical order.
func (o *Orchestrator) TestFiles() ([]string, error) {
	fsys := os.DirFS(o.cfg.Dir)
	var files []string
	for _, pattern := range o.cfg.Test.Files {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: test.files: invalid pattern %q", ErrConfiguration, pattern)
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("match %q: %w", pattern, err)
		}
		files = append(files, matches...)
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

// LuaPath returns the LUA_PATH value searching the source directory, then the
// library directory, then the interpreter defaults.
func (o *Orchestrator) LuaPath() string {
	src := filepath.Join(o.cfg.Path(o.cfg.Project.SrcDir), "?.lua")
	lib := filepath.Join(o.cfg.Path(o.cfg.Project.LibDir), "?.lua")
	return strings.Join([]string{src, lib, ""}, ";") + ";"
}

// Test runs the interpreter once per test file. The first failing file stops
// the run; a missing interpreter is an error. Finding no test files is not.
func (o *Orchestrator) Test(ctx context.Context, opts TestOptions) (*TestReport, error) {
	files, err := o.TestFiles()
	if err != nil {
		return nil, err
	}
	report := &TestReport{Files: files}
	if len(files) == 0 {
		o.logger.Info("no test files found", "patterns", o.cfg.Test.Files)
		return report, nil
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = o.cfg.Test.Timeout
	}
	env := []string{LuaPathEnv + "=" + o.LuaPath()}

	for _, file := range files {
		o.logger.Debug("running test file", "file", file)
		_, err := o.runner.Run(ctx, toolexec.Invocation{
			Name:    o.cfg.Test.Interpreter,
			Args:    []string{filepath.FromSlash(file)},
			Dir:     o.cfg.Dir,
			Env:     env,
			Timeout: timeout,
		})
		if err != nil {
			return report, fmt.Errorf("test %s: %w", file, err)
		}
		report.Passed = append(report.Passed, file)
	}
	o.logger.Info("tests passed", "files", len(report.Passed))
	return report, nil
}
