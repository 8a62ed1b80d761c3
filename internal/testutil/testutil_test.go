// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestWriteTreeAndListFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	WriteTree(t, dir, map[string]string{
		"b.lua":        "b",
		"lib/a.lua":    "a",
		"lib/ui/w.lua": "w",
	})

	want := []string{"b.lua", "lib/a.lua", "lib/ui/w.lua"}
	if got := ListFiles(t, dir); !slices.Equal(got, want) {
		t.Errorf("ListFiles() = %v, want %v", got, want)
	}
	if got := ReadFile(t, filepath.Join(dir, "lib", "a.lua")); got != "a" {
		t.Errorf("ReadFile() = %q", got)
	}
	if got := ListFiles(t, filepath.Join(dir, "missing")); got != nil {
		t.Errorf("ListFiles(missing) = %v, want nil", got)
	}
}

func TestFakeTool(t *testing.T) {
	t.Parallel()

	path := FakeTool(t, t.TempDir(), "greet", `echo "hello $1"`)
	out, err := exec.Command(path, "fusion").Output()
	if err != nil {
		t.Fatalf("fake tool failed: %v", err)
	}
	if got := strings.TrimSpace(string(out)); got != "hello fusion" {
		t.Errorf("output = %q", got)
	}
}

func TestSetHomeDir(t *testing.T) {
	dir := t.TempDir()
	SetHomeDir(t, dir)

	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("UserHomeDir() error: %v", err)
	}
	if home != dir {
		t.Errorf("UserHomeDir() = %q, want %q", home, dir)
	}
}
