package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/heatcap/heatcap"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func writeFrame(t *testing.T, path string, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRun_AssembleMode(t *testing.T) {
	root := t.TempDir()
	day := "2026-10-16"
	targets := []string{"SP500", "WORLD", "FULL"}
	for _, target := range targets {
		writeFrame(t, filepath.Join(root, day, target, "0000.png"), color.RGBA{R: 255, A: 255})
		writeFrame(t, filepath.Join(root, day, target, "0001.png"), color.RGBA{G: 255, A: 255})
	}

	f, err := parseFlags([]string{"-path", root, "-assemble", day, "-clean=false"})
	if err != nil {
		t.Fatal(err)
	}
	if err := run(context.Background(), discardLogger(), f); err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, target := range targets {
		if _, err := os.Stat(filepath.Join(root, day, target+".gif")); err != nil {
			t.Errorf("%s.gif: %v", target, err)
		}
		if _, err := os.Stat(filepath.Join(root, day, target, "0000.png")); err != nil {
			t.Errorf("%s screenshots should be kept with -clean=false: %v", target, err)
		}
	}
}

func TestRun_AssembleModeEmptyDay(t *testing.T) {
	root := t.TempDir()
	f, err := parseFlags([]string{"-path", root, "-assemble", "2026-10-16"})
	if err != nil {
		t.Fatal(err)
	}
	err = run(context.Background(), discardLogger(), f)
	if !errors.Is(err, heatcap.ErrNoFrames) {
		t.Fatalf("got %v, want ErrNoFrames", err)
	}
}

func TestRun_InvalidDelay(t *testing.T) {
	f, err := parseFlags([]string{"-path", t.TempDir(), "-delay", "4"})
	if err != nil {
		t.Fatal(err)
	}
	err = run(context.Background(), discardLogger(), f)
	if !errors.Is(err, heatcap.ErrInvalidConfig) {
		t.Fatalf("got %v, want ErrInvalidConfig", err)
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "heatcap.yaml")
	yaml := "path: " + dir + "\ndelay: 120\nduration: 80\nclean: false\n"
	if err := os.WriteFile(yamlPath, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := parseFlags([]string{"-config", yamlPath, "-delay", "30"})
	if err != nil {
		t.Fatal(err)
	}
	env := map[string]string{"HEATCAP_DELAY": "90", "HEATCAP_DURATION": "100"}
	cfg, err := loadConfig(f, func(k string) string { return env[k] })
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Delay != 30 {
		t.Errorf("delay: got %d, want 30 (flag beats env and file)", cfg.Delay)
	}
	if cfg.Duration != 100 {
		t.Errorf("duration: got %d, want 100 (env beats file)", cfg.Duration)
	}
	if cfg.Clean {
		t.Error("clean: file value false should survive an unset flag default")
	}
	if cfg.Path != dir {
		t.Errorf("path: got %s", cfg.Path)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	f, err := parseFlags([]string{"-path", "/srv/heatmaps"})
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(f, func(string) string { return "" })
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Delay != 60 || cfg.Duration != 50 || !cfg.Clean {
		t.Fatalf("defaults: delay=%d duration=%d clean=%v", cfg.Delay, cfg.Duration, cfg.Clean)
	}
	if cfg.Path != "/srv/heatmaps" {
		t.Fatalf("path: got %s", cfg.Path)
	}
}

func TestLoadConfig_StatusImpliesJournal(t *testing.T) {
	f, err := parseFlags([]string{"-path", "/srv/heatmaps", "-status-addr", ":8089", "-webhook", "http://hook"})
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(f, func(string) string { return "" })
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Journal.Path != filepath.Join("/srv/heatmaps", ".heatcap.db") {
		t.Fatalf("journal: got %q", cfg.Journal.Path)
	}
	last := cfg.Sinks[len(cfg.Sinks)-1]
	if last.Type != "webhook" || last.URL != "http://hook" {
		t.Fatalf("webhook sink: got %+v", last)
	}
}
