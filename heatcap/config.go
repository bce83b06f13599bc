package heatcap

import (
	"github.com/hazyhaar/heatcap/heatcap/internal/config"
)

// Config is the top-level heatcap configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls the Chrome session.
type BrowserConfig = config.BrowserConfig

// MarketConfig describes the exchange session.
type MarketConfig = config.MarketConfig

// CaptureConfig tunes one screenshot.
type CaptureConfig = config.CaptureConfig

// JournalConfig enables the SQLite journal.
type JournalConfig = config.JournalConfig

// StatusConfig enables the status API.
type StatusConfig = config.StatusConfig

// SinkConfig defines an output backend.
type SinkConfig = config.SinkConfig

// ErrInvalidConfig wraps every configuration validation failure.
var ErrInvalidConfig = config.ErrInvalid

// DefaultConfig returns the compiled defaults.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfigFile reads a YAML configuration file over the defaults.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// LoadEnvFile loads a dotenv file into the process environment.
func LoadEnvFile(path string) error {
	return config.LoadEnvFile(path)
}
