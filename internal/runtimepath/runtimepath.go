package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	socketPrefix = "topthumb-"
	socketSuffix = ".sock"
)

// Dir returns the runtime directory used for IPC sockets. Priority:
// 1) XDG_RUNTIME_DIR (if set)
// 2) /run/user/<uid> (if present)
// 3) /tmp/topthumb-runtime-<uid> (created)
func Dir() (string, error) {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return runtimeDir, nil
	}

	uid := os.Getuid()
	runUserDir := fmt.Sprintf("/run/user/%d", uid)
	if info, err := os.Stat(runUserDir); err == nil && info.IsDir() {
		return runUserDir, nil
	}

	tmpDir := fmt.Sprintf("/tmp/topthumb-runtime-%d", uid)
	if err := os.MkdirAll(tmpDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	return tmpDir, nil
}

// SocketPath returns the IPC socket path of the preview process with the
// given pid.
func SocketPath(pid int) (string, error) {
	runtimeDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(runtimeDir, fmt.Sprintf("%s%d%s", socketPrefix, pid, socketSuffix)), nil
}

// Instance is a discovered preview socket.
type Instance struct {
	PID    int
	Socket string
}

// ListSockets returns every preview socket in the runtime directory, ordered
// by pid. Sockets of exited processes are included; callers find out when
// they dial.
func ListSockets() ([]Instance, error) {
	runtimeDir, err := Dir()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(runtimeDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read runtime dir: %w", err)
	}

	var out []Instance
	for _, entry := range entries {
		pid, ok := parseSocketName(entry.Name())
		if !ok || entry.Type()&os.ModeSocket == 0 {
			continue
		}
		out = append(out, Instance{PID: pid, Socket: filepath.Join(runtimeDir, entry.Name())})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].PID < out[j].PID
	})
	return out, nil
}

func parseSocketName(name string) (int, bool) {
	if !strings.HasPrefix(name, socketPrefix) || !strings.HasSuffix(name, socketSuffix) {
		return 0, false
	}
	digits := strings.TrimSuffix(strings.TrimPrefix(name, socketPrefix), socketSuffix)
	pid, err := strconv.Atoi(digits)
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}
