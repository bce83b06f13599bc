package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := Default()
	cfg.Path = t.TempDir()
	return cfg
}

func TestDefault_Valid(t *testing.T) {
	cfg := validConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Delay != 60 || cfg.Duration != 50 || !cfg.Clean {
		t.Fatalf("defaults: delay=%d duration=%d clean=%v", cfg.Delay, cfg.Duration, cfg.Clean)
	}
}

func TestValidate_Ranges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"delay min", func(c *Config) { c.Delay = 5 }, true},
		{"delay max", func(c *Config) { c.Delay = 3600 }, true},
		{"delay below", func(c *Config) { c.Delay = 4 }, false},
		{"delay above", func(c *Config) { c.Delay = 3601 }, false},
		{"duration min", func(c *Config) { c.Duration = 1 }, true},
		{"duration max", func(c *Config) { c.Duration = 10000 }, true},
		{"duration zero", func(c *Config) { c.Duration = 0 }, false},
		{"duration above", func(c *Config) { c.Duration = 10001 }, false},
		{"empty path", func(c *Config) { c.Path = "" }, false},
		{"missing path", func(c *Config) { c.Path = filepath.Join(c.Path, "nope") }, false},
		{"bad timezone", func(c *Config) { c.Market.Timezone = "Mars/Olympus" }, false},
		{"open after close", func(c *Config) { c.Market.Open = "17:00" }, false},
		{"bad open", func(c *Config) { c.Market.Open = "9h30" }, false},
		{"early close before open", func(c *Config) { c.Market.EarlyClose = "09:00" }, false},
		{"early close at open", func(c *Config) { c.Market.EarlyClose = "09:30" }, false},
		{"early close afternoon", func(c *Config) { c.Market.EarlyClose = "13:00" }, true},
		{"negative retries", func(c *Config) { c.Capture.Retries = -1 }, false},
		{"unknown sink", func(c *Config) { c.Sinks = []SinkConfig{{Type: "nats"}} }, false},
		{"webhook without url", func(c *Config) { c.Sinks = []SinkConfig{{Type: "webhook"}} }, false},
		{"webhook", func(c *Config) { c.Sinks = []SinkConfig{{Type: "webhook", URL: "http://x"}} }, true},
		{"webhook negative queue", func(c *Config) { c.Sinks = []SinkConfig{{Type: "webhook", URL: "http://x", Queue: -1}} }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, ErrInvalid) {
					t.Fatalf("error should wrap ErrInvalid: %v", err)
				}
			}
		})
	}
}

func TestValidate_PathIsFile(t *testing.T) {
	cfg := validConfig(t)
	f := filepath.Join(cfg.Path, "file")
	if err := os.WriteFile(f, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.Path = f
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "not a directory") {
		t.Fatalf("got %v, want not a directory", err)
	}
}

func TestLoadFile_OverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "heatcap.yaml")
	yaml := `
path: /srv/heatmaps
delay: 120
clean: false
capture:
  retries: 2
  wait_timeout: 5s
sinks:
  - type: webhook
    url: http://localhost:9000/hook
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Path != "/srv/heatmaps" || cfg.Delay != 120 {
		t.Errorf("path/delay: got %s/%d", cfg.Path, cfg.Delay)
	}
	if cfg.Clean {
		t.Error("explicit clean: false should survive the defaults")
	}
	if cfg.Duration != 50 {
		t.Errorf("duration should keep default 50, got %d", cfg.Duration)
	}
	if cfg.Capture.Retries != 2 || cfg.Capture.WaitTimeout != 5*time.Second {
		t.Errorf("capture: got %+v", cfg.Capture)
	}
	if cfg.Capture.Selector != "#canvas-wrapper" {
		t.Errorf("selector default lost: %q", cfg.Capture.Selector)
	}
	if len(cfg.Sinks) != 1 || cfg.Sinks[0].Type != "webhook" {
		t.Errorf("sinks: got %+v", cfg.Sinks)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"HEATCAP_DELAY":           "30",
		"HEATCAP_CLEAN":           "false",
		"HEATCAP_MARKET_CALENDAR": "false",
		"HEATCAP_WEBHOOK":         "http://hook",
		"HEATCAP_CAPTURE_RETRIES": "3",

		"HEATCAP_MARKET_EARLY_CLOSE":         "12:00",
		"HEATCAP_MARKET_RECHECK_AFTER_CLOSE": "1h",
	}
	cfg := Default()
	if err := cfg.ApplyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatal(err)
	}
	if cfg.Delay != 30 || cfg.Clean || cfg.Market.Calendar || cfg.Capture.Retries != 3 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Market.EarlyClose != "12:00" || cfg.Market.RecheckAfterClose != time.Hour {
		t.Fatalf("market overrides not applied: %+v", cfg.Market)
	}
	if len(cfg.Sinks) != 2 || cfg.Sinks[1].URL != "http://hook" {
		t.Fatalf("webhook sink: got %+v", cfg.Sinks)
	}
}

func TestApplyEnv_Malformed(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(func(k string) string {
		if k == "HEATCAP_DELAY" {
			return "soon"
		}
		return ""
	})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("got %v, want ErrInvalid", err)
	}
	if cfg.Delay != 60 {
		t.Fatalf("malformed value should not be applied, got %d", cfg.Delay)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("HEATCAP_TEST_ONLY_KEY=42\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("HEATCAP_TEST_ONLY_KEY") })
	if err := LoadEnvFile(path); err != nil {
		t.Fatal(err)
	}
	if os.Getenv("HEATCAP_TEST_ONLY_KEY") != "42" {
		t.Fatal("dotenv value not loaded")
	}
}

func TestExchange(t *testing.T) {
	cfg := Default()
	ex, err := cfg.Exchange()
	if err != nil {
		t.Fatal(err)
	}
	if ex.Location.String() != "America/New_York" || ex.Open.String() != "09:30" || ex.Close.String() != "16:00" {
		t.Fatalf("exchange: got %+v", ex)
	}
	if !ex.Calendar {
		t.Fatal("calendar should default on")
	}
}
