package picker

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/1broseidon/topthumb/internal/platform"
)

const quitOption = -1

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// ForTerminal returns a chooser for the process's stdio: an interactive
// select when both stdin and stdout are terminals, the line prompt otherwise.
func ForTerminal() func([]platform.Window) (platform.Window, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
		return chooseInteractive
	}
	return func(windows []platform.Window) (platform.Window, error) {
		return Choose(windows, os.Stdin, os.Stdout)
	}
}

func chooseInteractive(windows []platform.Window) (platform.Window, error) {
	if len(windows) < 2 {
		return Choose(windows, nil, nil)
	}

	options := make([]huh.Option[int], 0, len(windows)+1)
	for i, w := range windows {
		options = append(options, huh.NewOption(formatRow(i, w), i))
	}
	options = append(options, huh.NewOption("    Quit", quitOption))

	selected := 0
	err := huh.NewSelect[int]().
		Title(titleStyle.Render(fmt.Sprintf("Found %d windows that match:", len(windows)))).
		Description(headerStyle.Render(tableHeader)).
		Options(options...).
		Value(&selected).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return platform.Window{}, ErrQuit
	}
	if err != nil {
		return platform.Window{}, fmt.Errorf("selection failed: %w", err)
	}
	if selected == quitOption || selected < 0 || selected >= len(windows) {
		return platform.Window{}, ErrQuit
	}
	return windows[selected], nil
}
