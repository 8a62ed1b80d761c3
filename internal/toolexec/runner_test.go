// SPDX-License-Identifier: MPL-2.0

package toolexec

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
}

func TestRunner_Success(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	var stdout, stderr bytes.Buffer
	r := NewRunner(&stdout, &stderr)

	res, err := r.Run(context.Background(), Invocation{
		Name: "sh",
		Args: []string{"-c", "echo one; echo two; echo oops >&2"},
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !res.ExitCode.IsSuccess() {
		t.Errorf("ExitCode = %s, want 0", res.ExitCode)
	}
	if got := stdout.String(); got != "one\ntwo\n" {
		t.Errorf("stdout = %q", got)
	}
	if got := stderr.String(); got != "oops\n" {
		t.Errorf("stderr = %q", got)
	}
}

func TestRunner_NonZeroExit(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	r := NewRunner(&bytes.Buffer{}, &bytes.Buffer{})
	res, err := r.Run(context.Background(), Invocation{Name: "sh", Args: []string{"-c", "exit 3"}})
	if !errors.Is(err, ErrToolExecution) {
		t.Fatalf("expected ErrToolExecution, got %v", err)
	}
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *ExecError, got %T", err)
	}
	if execErr.Code != 3 || res.ExitCode != 3 {
		t.Errorf("exit code = %d / %d, want 3", execErr.Code, res.ExitCode)
	}
	if execErr.TimedOut {
		t.Error("TimedOut must be false")
	}
}

func TestRunner_MissingTool(t *testing.T) {
	t.Parallel()

	r := NewRunner(&bytes.Buffer{}, &bytes.Buffer{}, WithLookPath(func(name string) (string, error) {
		return "", errors.New("executable file not found in $PATH")
	}))
	_, err := r.Run(context.Background(), Invocation{Name: "luacheck"})
	if !errors.Is(err, ErrToolMissing) {
		t.Fatalf("expected ErrToolMissing, got %v", err)
	}
	if !strings.Contains(err.Error(), "luacheck") {
		t.Errorf("error should name the tool: %v", err)
	}
}

func TestRunner_Timeout(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	r := NewRunner(&bytes.Buffer{}, &bytes.Buffer{})
	start := time.Now()
	_, err := r.Run(context.Background(), Invocation{
		Name:    "sh",
		Args:    []string{"-c", "sleep 10"},
		Timeout: 100 * time.Millisecond,
	})
	var execErr *ExecError
	if !errors.As(err, &execErr) || !execErr.TimedOut {
		t.Fatalf("expected timed-out ExecError, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout not enforced, run took %s", elapsed)
	}
}

func TestRunner_ParentCancellation(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	r := NewRunner(&bytes.Buffer{}, &bytes.Buffer{})
	_, err := r.Run(ctx, Invocation{Name: "sh", Args: []string{"-c", "sleep 10"}, Timeout: time.Minute})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunner_EnvAndDir(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	dir := t.TempDir()
	var stdout bytes.Buffer
	r := NewRunner(&stdout, &bytes.Buffer{})

	_, err := r.Run(context.Background(), Invocation{
		Name: "sh",
		Args: []string{"-c", `printf '%s|%s\n' "$LUA_PATH" "$(pwd -P)"`},
		Dir:  dir,
		Env:  []string{"LUA_PATH=src/?.lua;lib/?.lua;;"},
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	got := stdout.String()
	if !strings.HasPrefix(got, "src/?.lua;lib/?.lua;;|") {
		t.Errorf("LUA_PATH not forwarded: %q", got)
	}
}

// recordingWriter records each Write call separately so tests can observe
// that output arrives one complete line at a time.
type recordingWriter struct {
	mu     sync.Mutex
	writes []string
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes = append(w.writes, string(p))
	return len(p), nil
}

func TestLineWriter_SplitsAndFlushes(t *testing.T) {
	t.Parallel()

	rec := &recordingWriter{}
	w := &lineWriter{mu: &sync.Mutex{}, dst: rec}

	for _, chunk := range []string{"al", "pha\nbe", "ta\ngam", "ma"} {
		if _, err := w.Write([]byte(chunk)); err != nil {
			t.Fatalf("Write(%q) error: %v", chunk, err)
		}
	}
	if want := []string{"alpha\n", "beta\n"}; !slices.Equal(rec.writes, want) {
		t.Fatalf("writes before flush = %q, want %q", rec.writes, want)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
	if want := []string{"alpha\n", "beta\n", "gamma"}; !slices.Equal(rec.writes, want) {
		t.Errorf("writes after flush = %q, want %q", rec.writes, want)
	}
}

func TestExitCode_Validate(t *testing.T) {
	t.Parallel()

	for _, code := range []ExitCode{0, 1, 255} {
		if err := code.Validate(); err != nil {
			t.Errorf("ExitCode(%d).Validate() = %v", code, err)
		}
	}
	for _, code := range []ExitCode{-1, 256} {
		if err := code.Validate(); !errors.Is(err, ErrInvalidExitCode) {
			t.Errorf("ExitCode(%d).Validate() = %v, want ErrInvalidExitCode", code, err)
		}
	}
}
