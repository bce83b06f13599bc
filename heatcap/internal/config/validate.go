package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hazyhaar/heatcap/heatcap/internal/clock"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Delay and duration bounds, inclusive.
const (
	MinDelay    = 5
	MaxDelay    = 3600
	MinDuration = 1
	MaxDuration = 10000
)

// Validate checks the configuration and returns the first problem found,
// wrapped in ErrInvalid.
func (c *Config) Validate() error {
	if c.Path == "" {
		return invalid("path is required")
	}
	fi, err := os.Stat(c.Path)
	if err != nil {
		return invalid("path does not exist: %s", c.Path)
	}
	if !fi.IsDir() {
		return invalid("path is not a directory: %s", c.Path)
	}

	if c.Delay < MinDelay || c.Delay > MaxDelay {
		return invalid("delay must be between %d and %d seconds, got %d", MinDelay, MaxDelay, c.Delay)
	}
	if c.Duration < MinDuration || c.Duration > MaxDuration {
		return invalid("duration must be between %d and %d ms, got %d", MinDuration, MaxDuration, c.Duration)
	}

	if c.Browser.Extension != "" {
		fi, err := os.Stat(c.Browser.Extension)
		if err != nil || !fi.IsDir() {
			return invalid("browser.extension is not a directory: %s", c.Browser.Extension)
		}
	}

	if _, err := c.Exchange(); err != nil {
		return err
	}

	if c.Capture.Retries < 0 {
		return invalid("capture.retries must be >= 0, got %d", c.Capture.Retries)
	}

	for i, s := range c.Sinks {
		switch s.Type {
		case "stdout":
		case "webhook":
			if s.URL == "" {
				return invalid("sinks[%d]: webhook requires url", i)
			}
			if s.Queue < 0 || s.Drain < 0 {
				return invalid("sinks[%d]: webhook queue and drain must be >= 0", i)
			}
		default:
			return invalid("sinks[%d]: unknown type %q", i, s.Type)
		}
	}
	return nil
}

// Exchange builds the market clock's exchange from the market section.
func (c *Config) Exchange() (clock.Exchange, error) {
	loc, err := time.LoadLocation(c.Market.Timezone)
	if err != nil {
		return clock.Exchange{}, invalid("market.timezone %q: %v", c.Market.Timezone, err)
	}
	open, err := clock.ParseTimeOfDay(c.Market.Open)
	if err != nil {
		return clock.Exchange{}, invalid("market.open: %v", err)
	}
	closeAt, err := clock.ParseTimeOfDay(c.Market.Close)
	if err != nil {
		return clock.Exchange{}, invalid("market.close: %v", err)
	}
	if !open.Before(closeAt) {
		return clock.Exchange{}, invalid("market.open %s must be before market.close %s", open, closeAt)
	}
	early := closeAt
	if c.Market.EarlyClose != "" {
		early, err = clock.ParseTimeOfDay(c.Market.EarlyClose)
		if err != nil {
			return clock.Exchange{}, invalid("market.early_close: %v", err)
		}
		if !open.Before(early) {
			return clock.Exchange{}, invalid("market.early_close %s must be after market.open %s", early, open)
		}
	}
	return clock.Exchange{
		Name:       loc.String(),
		Location:   loc,
		Open:       open,
		Close:      closeAt,
		EarlyClose: early,
		Calendar:   c.Market.Calendar,
	}, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
