// Package picker resolves a title query with several matches down to the one
// window the user wants to preview.
package picker

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/1broseidon/topthumb/internal/platform"
)

var (
	// ErrQuit is returned when the user quits instead of picking a window.
	ErrQuit = errors.New("selection cancelled")
	// ErrNoWindows is returned when the query matched nothing.
	ErrNoWindows = errors.New("no windows found")
)

const tableHeader = "    Num    PID       Window Title"

// Choose returns the only match directly. With several matches it prints a
// numbered table to out and reads selections from in until one is valid. A
// line starting with q or Q, or the end of input, quits.
func Choose(windows []platform.Window, in io.Reader, out io.Writer) (platform.Window, error) {
	switch len(windows) {
	case 0:
		return platform.Window{}, ErrNoWindows
	case 1:
		return windows[0], nil
	}

	fmt.Fprintf(out, "Found %d windows that match:\n", len(windows))
	PrintTable(out, windows)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "Please make a selection (q to quit): ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			if err := scanner.Err(); err != nil {
				return platform.Window{}, fmt.Errorf("failed to read selection: %w", err)
			}
			return platform.Window{}, ErrQuit
		}

		line := scanner.Text()
		if strings.HasPrefix(line, "q") || strings.HasPrefix(line, "Q") {
			return platform.Window{}, ErrQuit
		}

		index, ok := parseSelection(line, len(windows))
		if ok {
			return windows[index], nil
		}
		fmt.Fprintf(out, "Invalid input, '%s'!\n", line)
	}
}

// PrintTable writes the numbered window table used by the prompt.
func PrintTable(out io.Writer, windows []platform.Window) {
	fmt.Fprintln(out, tableHeader)
	for i, w := range windows {
		fmt.Fprintln(out, formatRow(i, w))
	}
}

func parseSelection(line string, count int) (int, bool) {
	index, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || index < 0 || index >= count {
		return 0, false
	}
	return index, true
}

func formatRow(index int, w platform.Window) string {
	return fmt.Sprintf("    %3d    %06d    %s", index, w.PID, w.Title)
}
