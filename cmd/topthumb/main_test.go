package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/1broseidon/topthumb/internal/config"
	"github.com/1broseidon/topthumb/internal/ipc"
	"github.com/1broseidon/topthumb/internal/picker"
)

func TestParseCropArgs(t *testing.T) {
	crop, err := parseCropArgs([]string{"10", "20", "110", "220"})
	if err != nil {
		t.Fatalf("parseCropArgs: %v", err)
	}
	if crop != (ipc.CropPayload{Left: 10, Top: 20, Right: 110, Bottom: 220}) {
		t.Fatalf("unexpected crop %+v", crop)
	}

	// Reversed corners are kept as given; the preview normalizes them.
	if _, err := parseCropArgs([]string{"110", "220", "10", "20"}); err != nil {
		t.Fatalf("reversed corners: %v", err)
	}

	for _, args := range [][]string{
		{"1", "2", "3"},
		{"a", "2", "3", "4"},
		{"5", "0", "5", "10"},
		{"0", "7", "10", "7"},
	} {
		if _, err := parseCropArgs(args); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

func TestPreviewExitCode(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var out bytes.Buffer
	if code := previewExitCode(fmt.Errorf("choose: %w", picker.ErrNoWindows), &out, logger); code != 1 {
		t.Fatalf("expected exit 1 for no windows, got %d", code)
	}
	if out.String() != "No windows found!\n" {
		t.Fatalf("unexpected output %q", out.String())
	}

	out.Reset()
	if code := previewExitCode(picker.ErrQuit, &out, logger); code != 0 {
		t.Fatalf("expected exit 0 on quit, got %d", code)
	}
	if code := previewExitCode(nil, &out, logger); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if code := previewExitCode(errors.New("boom"), &out, logger); code != 1 {
		t.Fatalf("expected exit 1 on failure, got %d", code)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no stdout output, got %q", out.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"info":  slog.LevelInfo,
		"":      slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFormatSource(t *testing.T) {
	cases := []struct {
		src  config.Source
		want string
	}{
		{config.Source{Kind: config.SourceFile, File: "/c.yaml", Line: 3, Column: 5}, "file:/c.yaml:3:5"},
		{config.Source{Kind: config.SourceFile, File: "/c.yaml"}, "file:/c.yaml"},
		{config.Source{Kind: config.SourceEnv, Name: "TOPTHUMB_LOG_LEVEL"}, "env:TOPTHUMB_LOG_LEVEL"},
		{config.Source{Kind: config.SourceDefault}, "default"},
	}
	for _, tc := range cases {
		if got := formatSource(tc.src); got != tc.want {
			t.Fatalf("formatSource(%+v) = %q, want %q", tc.src, got, tc.want)
		}
	}
}

func TestFormatRect(t *testing.T) {
	got := formatRect(ipc.RectData{Left: 10, Top: 20, Right: 110, Bottom: 70})
	if got != "(10,20)-(110,70) 100x50" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestInitConfig_WritesDefaults(t *testing.T) {
	t.Setenv(config.EnvLogLevel, "")
	t.Setenv(config.EnvDisplay, "")
	path := filepath.Join(t.TempDir(), "topthumb", "config.yaml")

	written, err := initConfig(path, false)
	if err != nil {
		t.Fatalf("initConfig: %v", err)
	}
	if written != path {
		t.Fatalf("expected %s, got %s", path, written)
	}

	res, err := config.LoadFromPath(path)
	if err != nil {
		t.Fatalf("load written config: %v", err)
	}
	if *res.Config != *config.DefaultConfig() {
		t.Fatalf("expected defaults, got %+v", res.Config)
	}

	if _, err := initConfig(path, false); err == nil {
		t.Fatalf("expected existing file to be refused without force")
	}
	if _, err := initConfig(path, true); err != nil {
		t.Fatalf("initConfig with force: %v", err)
	}
}
