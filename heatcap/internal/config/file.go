// Package config handles heatcap configuration: compiled defaults, an
// optional YAML file and HEATCAP_* environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultUserAgent is the fixed user agent presented to the heatmap pages.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/60.0.3112.50 Safari/537.36"

// Config is the top-level heatcap configuration.
type Config struct {
	Path     string        `yaml:"path"`
	Delay    int           `yaml:"delay"`    // seconds between ticks
	Duration int           `yaml:"duration"` // GIF frame duration, milliseconds
	Clean    bool          `yaml:"clean"`
	Browser  BrowserConfig `yaml:"browser"`
	Market   MarketConfig  `yaml:"market"`
	Capture  CaptureConfig `yaml:"capture"`
	Journal  JournalConfig `yaml:"journal"`
	Status   StatusConfig  `yaml:"status"`
	Sinks    []SinkConfig  `yaml:"sinks"`
}

// BrowserConfig controls the Chrome session.
type BrowserConfig struct {
	Extension        string        `yaml:"extension"` // unpacked content-blocking extension dir
	UserAgent        string        `yaml:"user_agent"`
	Remote           string        `yaml:"remote"` // ws:// control URL of an already running Chrome
	Bin              string        `yaml:"bin"`
	Stealth          bool          `yaml:"stealth"`
	NoSandbox        bool          `yaml:"no_sandbox"`
	WindowWidth      int           `yaml:"window_width"`
	WindowHeight     int           `yaml:"window_height"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
	RecycleInterval  time.Duration `yaml:"recycle_interval"` // 0 = never
}

// MarketConfig describes the exchange session.
type MarketConfig struct {
	Timezone          string        `yaml:"timezone"`
	Open              string        `yaml:"open"`  // HH:MM
	Close             string        `yaml:"close"` // HH:MM
	EarlyClose        string        `yaml:"early_close"`
	RecheckAfterClose time.Duration `yaml:"recheck_after_close"`
	Calendar          bool          `yaml:"calendar"`
}

// CaptureConfig tunes one screenshot.
type CaptureConfig struct {
	Selector        string        `yaml:"selector"`
	WaitTimeout     time.Duration `yaml:"wait_timeout"`
	NavigateTimeout time.Duration `yaml:"navigate_timeout"`
	Retries         int           `yaml:"retries"`
	RetryBackoff    time.Duration `yaml:"retry_backoff"`
}

// JournalConfig enables the SQLite journal.
type JournalConfig struct {
	Path string `yaml:"path"` // empty = off
}

// StatusConfig enables the read-only status API.
type StatusConfig struct {
	Addr string `yaml:"addr"` // empty = off
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | webhook
	URL  string `yaml:"url"`  // for webhook

	// Webhook delivery queue length and the time Close waits for it to
	// drain. Zero keeps the sink defaults.
	Queue int           `yaml:"queue"`
	Drain time.Duration `yaml:"drain"`
}

// Default returns the compiled defaults.
func Default() *Config {
	return &Config{
		Delay:    60,
		Duration: 50,
		Clean:    true,
		Browser: BrowserConfig{
			UserAgent:    DefaultUserAgent,
			Stealth:      true,
			NoSandbox:    true,
			WindowWidth:  1920,
			WindowHeight: 1080,
		},
		Market: MarketConfig{
			Timezone:          "America/New_York",
			Open:              "09:30",
			Close:             "16:00",
			EarlyClose:        "13:00",
			RecheckAfterClose: 63000 * time.Second,
			Calendar:          true,
		},
		Capture: CaptureConfig{
			Selector:        "#canvas-wrapper",
			WaitTimeout:     3 * time.Second,
			NavigateTimeout: 30 * time.Second,
			RetryBackoff:    2 * time.Second,
		},
		Sinks: []SinkConfig{{Type: "stdout"}},
	}
}

// LoadFile reads a YAML configuration file over the compiled defaults. Keys
// absent from the file keep their default value.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults fills fields that a file may have zeroed explicitly and that
// have no meaningful zero value.
func (c *Config) applyDefaults() {
	if c.Browser.UserAgent == "" {
		c.Browser.UserAgent = DefaultUserAgent
	}
	if c.Browser.WindowWidth <= 0 {
		c.Browser.WindowWidth = 1920
	}
	if c.Browser.WindowHeight <= 0 {
		c.Browser.WindowHeight = 1080
	}
	if c.Market.Timezone == "" {
		c.Market.Timezone = "America/New_York"
	}
	if c.Market.RecheckAfterClose <= 0 {
		c.Market.RecheckAfterClose = 63000 * time.Second
	}
	if c.Capture.Selector == "" {
		c.Capture.Selector = "#canvas-wrapper"
	}
	if c.Capture.WaitTimeout <= 0 {
		c.Capture.WaitTimeout = 3 * time.Second
	}
	if c.Capture.NavigateTimeout <= 0 {
		c.Capture.NavigateTimeout = 30 * time.Second
	}
	if c.Capture.RetryBackoff <= 0 {
		c.Capture.RetryBackoff = 2 * time.Second
	}
}
