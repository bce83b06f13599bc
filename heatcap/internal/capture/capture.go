// Package capture runs one capture tick: one element screenshot per target,
// written under the day directory with the tick's shared sequence index.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/heatcap/heatcap/internal/layout"
)

// Shooter takes one element screenshot. *browser.Manager implements it.
type Shooter interface {
	Shoot(ctx context.Context, url, selector string, wait time.Duration) ([]byte, error)
}

// Config configures a Capturer.
type Config struct {
	Root    string
	Targets []layout.Target // default: layout.Targets()

	// Selector is the element captured on every page. Default: #canvas-wrapper.
	Selector string

	// Wait bounds how long the element may take to become visible. Default: 3s.
	Wait time.Duration

	// Retries is the number of extra attempts per target. 0 keeps the first
	// failure fatal.
	Retries int

	// RetryBackoff is the first retry delay, doubled on each attempt. Default: 2s.
	RetryBackoff time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if len(c.Targets) == 0 {
		c.Targets = layout.Targets()
	}
	if c.Selector == "" {
		c.Selector = "#canvas-wrapper"
	}
	if c.Wait <= 0 {
		c.Wait = 3 * time.Second
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 2 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Shot is one screenshot written to disk.
type Shot struct {
	Target string
	Seq    int
	Path   string
	Bytes  int
	Took   time.Duration
}

// Capturer writes the screenshots of a tick.
type Capturer struct {
	cfg   Config
	shoot shotFunc
}

// New creates a Capturer around s.
func New(s Shooter, cfg Config) *Capturer {
	cfg.defaults()
	return &Capturer{
		cfg:   cfg,
		shoot: withRetry(cfg.Retries, cfg.RetryBackoff, cfg.Logger)(s.Shoot),
	}
}

// Targets returns the targets captured on every tick, in order.
func (c *Capturer) Targets() []layout.Target {
	out := make([]layout.Target, len(c.cfg.Targets))
	copy(out, c.cfg.Targets)
	return out
}

// Tick captures every target in order and writes <root>/<day>/<target>/<seq>.png.
// The first failure stops the tick; shots already written are returned with
// the error.
func (c *Capturer) Tick(ctx context.Context, day string, seq int) ([]Shot, error) {
	shots := make([]Shot, 0, len(c.cfg.Targets))
	for _, t := range c.cfg.Targets {
		if err := ctx.Err(); err != nil {
			return shots, err
		}

		start := time.Now()
		data, err := c.shoot(ctx, t.URL, c.cfg.Selector, c.cfg.Wait)
		if err != nil {
			return shots, fmt.Errorf("capture: %s: %w", t.Name, err)
		}

		path := layout.FramePath(c.cfg.Root, day, t.Name, seq)
		if err := layout.WriteFileAtomic(path, data); err != nil {
			return shots, fmt.Errorf("capture: %s: %w", t.Name, err)
		}

		shot := Shot{Target: t.Name, Seq: seq, Path: path, Bytes: len(data), Took: time.Since(start)}
		c.cfg.Logger.Debug("capture: shot written", "target", t.Name, "seq", seq, "path", path, "bytes", len(data), "took", shot.Took)
		shots = append(shots, shot)
	}
	return shots, nil
}
