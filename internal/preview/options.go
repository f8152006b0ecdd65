package preview

import (
	"fmt"

	"github.com/1broseidon/topthumb/internal/config"
	"github.com/1broseidon/topthumb/internal/hotkeys"
	"github.com/1broseidon/topthumb/internal/platform"
	"github.com/1broseidon/topthumb/internal/thumbnail"
)

// Chooser picks the window to track out of the title query's matches.
type Chooser func(windows []platform.Window) (platform.Window, error)

// FindTarget runs the title query and lets choose settle on one window.
func FindTarget(locator platform.WindowLocator, query string, choose Chooser) (platform.Window, error) {
	windows, err := locator.FindWindowsByTitle(query)
	if err != nil {
		return platform.Window{}, fmt.Errorf("failed to list windows: %w", err)
	}
	if choose == nil {
		choose = firstWindow
	}
	return choose(windows)
}

func firstWindow(windows []platform.Window) (platform.Window, error) {
	if len(windows) == 0 {
		return platform.Window{}, fmt.Errorf("no matching windows")
	}
	return windows[0], nil
}

// ControllerOptions maps config onto the controller's initial thumbnail
// properties.
func ControllerOptions(cfg *config.Config) []thumbnail.Option {
	return []thumbnail.Option{
		thumbnail.WithOpacity(uint8(cfg.Opacity)),
		thumbnail.WithSourceClientAreaOnly(cfg.SourceClientAreaOnly),
		thumbnail.WithSnipColor(platform.Color(cfg.SnipColor)),
	}
}

// KeyBindings returns the preview window's key bindings. Keys left empty in
// the config are skipped by hotkeys.Handler.RegisterAll.
func KeyBindings(cfg *config.Config, session *Session) []hotkeys.Binding {
	return []hotkeys.Binding{
		{
			Name: "reset",
			Key:  cfg.ResetKey,
			Action: func() {
				session.Handle(thumbnail.Message{Kind: thumbnail.MessageReset})
			},
		},
		{
			Name: "quit",
			Key:  cfg.QuitKey,
			Action: func() {
				session.Handle(thumbnail.Message{Kind: thumbnail.MessageClose})
			},
		},
	}
}
