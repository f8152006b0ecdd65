package runtimepath

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDir_UsesXDGRuntimeDirWhenSet(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if got != td {
		t.Fatalf("Dir() = %q, want %q", got, td)
	}
}

func TestDir_FallbacksWhenXDGRuntimeDirMissing(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if got == "" {
		t.Fatal("Dir() returned empty path")
	}

	wantRun := fmt.Sprintf("/run/user/%d", os.Getuid())
	wantTmp := fmt.Sprintf("/tmp/topthumb-runtime-%d", os.Getuid())
	if got != wantRun && got != wantTmp {
		t.Fatalf("Dir() = %q, want %q or %q", got, wantRun, wantTmp)
	}
}

func TestSocketPath(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	socket, err := SocketPath(4242)
	if err != nil {
		t.Fatalf("SocketPath() error: %v", err)
	}
	if !strings.HasSuffix(socket, "/topthumb-4242.sock") {
		t.Fatalf("SocketPath() = %q, missing suffix", socket)
	}
}

func TestListSockets_OnlyPreviewSockets(t *testing.T) {
	// Unix socket paths are length limited; keep the directory short.
	td, err := os.MkdirTemp("", "tt")
	if err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(td) })
	t.Setenv("XDG_RUNTIME_DIR", td)

	for _, pid := range []int{300, 12} {
		path, err := SocketPath(pid)
		if err != nil {
			t.Fatalf("SocketPath: %v", err)
		}
		ln, err := net.Listen("unix", path)
		if err != nil {
			t.Fatalf("listen: %v", err)
		}
		t.Cleanup(func() { ln.Close() })
	}
	// Regular files and foreign names are ignored.
	if err := os.WriteFile(filepath.Join(td, "topthumb-77.sock"), nil, 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(td, "other.sock"), nil, 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ListSockets()
	if err != nil {
		t.Fatalf("ListSockets: %v", err)
	}
	if len(got) != 2 || got[0].PID != 12 || got[1].PID != 300 {
		t.Fatalf("unexpected instances: %+v", got)
	}
}

func TestParseSocketName(t *testing.T) {
	tests := []struct {
		name string
		pid  int
		ok   bool
	}{
		{"topthumb-1.sock", 1, true},
		{"topthumb-.sock", 0, false},
		{"topthumb-abc.sock", 0, false},
		{"topthumb-0.sock", 0, false},
		{"other-1.sock", 0, false},
	}
	for _, tt := range tests {
		pid, ok := parseSocketName(tt.name)
		if pid != tt.pid || ok != tt.ok {
			t.Fatalf("parseSocketName(%q) = %d, %v; want %d, %v", tt.name, pid, ok, tt.pid, tt.ok)
		}
	}
}
