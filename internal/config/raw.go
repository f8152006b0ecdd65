package config

// RawConfig mirrors Config with optional fields so a file only overrides the
// keys it sets.
type RawConfig struct {
	Title                *string `yaml:"title"`
	Topmost              *bool   `yaml:"topmost"`
	AllDesktops          *bool   `yaml:"all_desktops"`
	Opacity              *int    `yaml:"opacity"`
	SourceClientAreaOnly *bool   `yaml:"source_client_area_only"`
	SnipColor            *uint32 `yaml:"snip_color"`
	ResetKey             *string `yaml:"reset_key"`
	QuitKey              *string `yaml:"quit_key"`
	RefreshIntervalMS    *int    `yaml:"refresh_interval_ms"`
	LogLevel             *string `yaml:"log_level"`
	Display              *string `yaml:"display"`
}

// apply overlays every set field of raw onto cfg.
func (raw RawConfig) apply(cfg *Config) {
	if raw.Title != nil {
		cfg.Title = *raw.Title
	}
	if raw.Topmost != nil {
		cfg.Topmost = *raw.Topmost
	}
	if raw.AllDesktops != nil {
		cfg.AllDesktops = *raw.AllDesktops
	}
	if raw.Opacity != nil {
		cfg.Opacity = *raw.Opacity
	}
	if raw.SourceClientAreaOnly != nil {
		cfg.SourceClientAreaOnly = *raw.SourceClientAreaOnly
	}
	if raw.SnipColor != nil {
		cfg.SnipColor = *raw.SnipColor
	}
	if raw.ResetKey != nil {
		cfg.ResetKey = *raw.ResetKey
	}
	if raw.QuitKey != nil {
		cfg.QuitKey = *raw.QuitKey
	}
	if raw.RefreshIntervalMS != nil {
		cfg.RefreshIntervalMS = *raw.RefreshIntervalMS
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = *raw.LogLevel
	}
	if raw.Display != nil {
		cfg.Display = *raw.Display
	}
}
