package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultTitle     = "topthumb"
	DefaultOpacity   = 255
	DefaultSnipColor = 0xff0000
	DefaultResetKey  = "r"
	DefaultQuitKey   = "q"
	DefaultLogLevel  = "info"

	// MaxRefreshIntervalMS caps the optional repaint timer.
	MaxRefreshIntervalMS = 60_000
)

// Config is the effective preview configuration.
type Config struct {
	// Title is the preview window title.
	Title string `yaml:"title"`
	// Topmost keeps the preview above other windows.
	Topmost bool `yaml:"topmost"`
	// AllDesktops shows the preview on every virtual desktop.
	AllDesktops bool `yaml:"all_desktops"`
	// Opacity of the mirrored content, 0-255.
	Opacity int `yaml:"opacity"`
	// SourceClientAreaOnly mirrors the tracked client window without its frame.
	SourceClientAreaOnly bool `yaml:"source_client_area_only"`
	// SnipColor is the crop border color as 0xRRGGBB.
	SnipColor uint32 `yaml:"snip_color"`
	// ResetKey restores the full view after a crop. Empty disables it.
	ResetKey string `yaml:"reset_key"`
	// QuitKey closes the preview. Empty disables it.
	QuitKey string `yaml:"quit_key"`
	// RefreshIntervalMS adds a timer repaint on top of damage events. 0 disables it.
	RefreshIntervalMS int `yaml:"refresh_interval_ms"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// Display overrides $DISPLAY.
	Display string `yaml:"display,omitempty"`
}

// ValidationError reports an invalid config value and where it came from.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Source.Kind == SourceEnv && e.Source.Name != "" {
		return fmt.Sprintf("$%s: %s: %v", e.Source.Name, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Title:     DefaultTitle,
		Topmost:   true,
		Opacity:   DefaultOpacity,
		SnipColor: DefaultSnipColor,
		ResetKey:  DefaultResetKey,
		QuitKey:   DefaultQuitKey,
		LogLevel:  DefaultLogLevel,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return &ValidationError{Path: "title", Err: fmt.Errorf("title must not be empty")}
	}
	if c.Opacity < 0 || c.Opacity > 255 {
		return &ValidationError{Path: "opacity", Err: fmt.Errorf("opacity must be between 0 and 255")}
	}
	if c.SnipColor > 0xffffff {
		return &ValidationError{Path: "snip_color", Err: fmt.Errorf("snip_color must be a 0xRRGGBB value")}
	}
	if c.RefreshIntervalMS < 0 || c.RefreshIntervalMS > MaxRefreshIntervalMS {
		return &ValidationError{Path: "refresh_interval_ms", Err: fmt.Errorf("refresh_interval_ms must be between 0 and %d", MaxRefreshIntervalMS)}
	}
	if c.ResetKey != "" && c.ResetKey == c.QuitKey {
		return &ValidationError{Path: "quit_key", Err: fmt.Errorf("quit_key must differ from reset_key")}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, error")}
	}
	return nil
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
