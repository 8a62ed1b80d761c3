// SPDX-License-Identifier: MPL-2.0

package toolexec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// waitDelay bounds how long Run waits for the output pipes to drain after the
// child has been killed on timeout or cancellation.
const waitDelay = 2 * time.Second

var (
	// ErrToolMissing is the sentinel error wrapped by MissingToolError.
	ErrToolMissing = errors.New("tool not found")
	// ErrToolExecution is the sentinel error wrapped by ExecError.
	ErrToolExecution = errors.New("tool execution failed")
)

type (
	// Invocation describes one blocking run of an external tool.
	Invocation struct {
		// Name is the executable name, looked up through PATH, or a path to it.
		Name string
		// Args are the command-line arguments.
		Args []string
		// Dir is the working directory. Empty means the current directory.
		Dir string
		// Env holds extra KEY=VALUE entries layered over the process environment.
		Env []string
		// Timeout kills the tool when it runs longer. Zero disables the limit.
		Timeout time.Duration
	}

	// Result reports how a tool run ended.
	Result struct {
		// Path is the resolved executable path.
		Path string
		// ExitCode is the child's exit status.
		ExitCode ExitCode
		// Duration is the wall-clock run time.
		Duration time.Duration
	}

	// MissingToolError is returned when the executable cannot be found.
	MissingToolError struct {
		Tool string
		Err  error
	}

	// ExecError is returned when the tool ran but did not succeed: it exited
	// non-zero, was killed on timeout, or could not be started.
	ExecError struct {
		Tool     string
		Code     ExitCode
		TimedOut bool
		Timeout  time.Duration
		Err      error
	}

	// Runner runs external tools one at a time, streaming their output.
	Runner struct {
		stdout   io.Writer
		stderr   io.Writer
		logger   *log.Logger
		lookPath func(string) (string, error)
	}

	// Option configures a Runner.
	Option func(*Runner)
)

// Error implements the error interface.
func (e *MissingToolError) Error() string {
	return fmt.Sprintf("%s: not found in PATH", e.Tool)
}

// Unwrap returns ErrToolMissing for errors.Is.
func (e *MissingToolError) Unwrap() error { return ErrToolMissing }

// Error implements the error interface.
func (e *ExecError) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf("%s: timed out after %s", e.Tool, e.Timeout)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Tool, e.Err)
	default:
		return fmt.Sprintf("%s: exited with status %s", e.Tool, e.Code)
	}
}

// Unwrap returns ErrToolExecution for errors.Is.
func (e *ExecError) Unwrap() error { return ErrToolExecution }

// WithLogger sets the logger used for debug tracing of invocations.
func WithLogger(logger *log.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithLookPath replaces exec.LookPath. Used by tests.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(r *Runner) {
		r.lookPath = fn
	}
}

// NewRunner creates a Runner that forwards child output to stdout and stderr.
// nil writers default to os.Stdout / os.Stderr.
func NewRunner(stdout, stderr io.Writer, opts ...Option) *Runner {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	r := &Runner{
		stdout:   stdout,
		stderr:   stderr,
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.New(io.Discard)
	}
	return r
}

// LookPath resolves a tool name to an executable path.
func (r *Runner) LookPath(name string) (string, error) {
	path, err := r.lookPath(name)
	if err != nil {
		return "", &MissingToolError{Tool: name, Err: err}
	}
	return path, nil
}

// Run executes the tool and blocks until it exits. Output is forwarded line by
// line while the tool runs. A non-zero exit yields both a Result carrying the
// code and an ExecError.
func (r *Runner) Run(ctx context.Context, inv Invocation) (Result, error) {
	path, err := r.LookPath(inv.Name)
	if err != nil {
		return Result{}, err
	}

	runCtx := ctx
	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	var mu sync.Mutex
	stdout := &lineWriter{mu: &mu, dst: r.stdout}
	stderr := &lineWriter{mu: &mu, dst: r.stderr}

	cmd := exec.CommandContext(runCtx, path, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay
	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}

	r.logger.Debug("running tool", "tool", inv.Name, "args", strings.Join(inv.Args, " "), "dir", inv.Dir)

	start := time.Now()
	runErr := cmd.Run()
	flushErr := errors.Join(stdout.Flush(), stderr.Flush())
	result := Result{Path: path, Duration: time.Since(start)}

	if runErr == nil {
		if flushErr != nil {
			return result, fmt.Errorf("%s: forward output: %w", inv.Name, flushErr)
		}
		return result, nil
	}

	if inv.Timeout > 0 && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.ExitCode = 1
		return result, &ExecError{Tool: inv.Name, Code: 1, TimedOut: true, Timeout: inv.Timeout}
	}
	if ctx.Err() != nil {
		return result, fmt.Errorf("%s: %w", inv.Name, ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		code := ExitCode(exitErr.ExitCode())
		if err := code.Validate(); err != nil {
			// Killed by a signal: ExitCode() reports -1.
			code = 1
		}
		result.ExitCode = code
		return result, &ExecError{Tool: inv.Name, Code: code}
	}

	result.ExitCode = 1
	return result, &ExecError{Tool: inv.Name, Code: 1, Err: runErr}
}
