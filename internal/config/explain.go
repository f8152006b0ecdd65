package config

import (
	"fmt"
)

// Explain returns the effective value of a top-level key and where it came
// from: the config file, an environment override or the defaults.
func Explain(res *LoadResult, key string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if key == "" {
		return nil, Source{}, fmt.Errorf("key is empty")
	}

	value, err := lookupValue(res.Config, key)
	if err != nil {
		return nil, Source{}, err
	}
	if src, ok := res.Sources[key]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

func lookupValue(cfg *Config, key string) (any, error) {
	switch key {
	case "title":
		return cfg.Title, nil
	case "topmost":
		return cfg.Topmost, nil
	case "all_desktops":
		return cfg.AllDesktops, nil
	case "opacity":
		return cfg.Opacity, nil
	case "source_client_area_only":
		return cfg.SourceClientAreaOnly, nil
	case "snip_color":
		return fmt.Sprintf("0x%06x", cfg.SnipColor), nil
	case "reset_key":
		return cfg.ResetKey, nil
	case "quit_key":
		return cfg.QuitKey, nil
	case "refresh_interval_ms":
		return cfg.RefreshIntervalMS, nil
	case "log_level":
		return cfg.LogLevel, nil
	case "display":
		return cfg.Display, nil
	default:
		return nil, fmt.Errorf("unknown config key %q", key)
	}
}
