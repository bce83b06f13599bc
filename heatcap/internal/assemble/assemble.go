// Package assemble turns one day's screenshots into one looping GIF per
// target and optionally removes the source screenshots afterwards.
package assemble

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"log/slog"
	"os"

	"github.com/hazyhaar/heatcap/heatcap/internal/layout"
)

// ErrNoFrames is returned when a target directory is missing or holds no
// screenshots.
var ErrNoFrames = errors.New("assemble: no frames")

// Config configures an Assembler.
type Config struct {
	Root    string
	Targets []layout.Target // default: layout.Targets()

	// DurationMs is the display time of every frame, in milliseconds.
	DurationMs int

	// Clean removes each target's screenshot directory once every target
	// of the day has been encoded.
	Clean bool

	// MemoryWarnBytes is the decoded size of a target's frames above which a
	// warning is logged before encoding. Default: 1 GiB.
	MemoryWarnBytes int64

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if len(c.Targets) == 0 {
		c.Targets = layout.Targets()
	}
	if c.DurationMs <= 0 {
		c.DurationMs = 50
	}
	if c.MemoryWarnBytes <= 0 {
		c.MemoryWarnBytes = 1 << 30
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Animation describes one written GIF.
type Animation struct {
	Target    string
	Path      string
	SourceDir string
	Frames    int
	Bytes     int
	Cleaned   bool // SourceDir was removed
}

// Assembler encodes day directories into animations.
type Assembler struct {
	cfg Config
}

// New creates an Assembler.
func New(cfg Config) *Assembler {
	cfg.defaults()
	return &Assembler{cfg: cfg}
}

// Assemble writes <root>/<day>/<target>.gif for every target. Any failure
// stops assembly and skips cleanup for the whole day.
func (a *Assembler) Assemble(ctx context.Context, day string) ([]Animation, error) {
	log := a.cfg.Logger
	out := make([]Animation, 0, len(a.cfg.Targets))

	for _, t := range a.cfg.Targets {
		anim, err := a.encodeTarget(ctx, day, t.Name)
		if err != nil {
			return out, err
		}
		log.Info("assemble: animation written", "day", day, "target", t.Name, "frames", anim.Frames, "path", anim.Path)
		out = append(out, anim)
	}

	if !a.cfg.Clean {
		return out, nil
	}
	for i := range out {
		if err := os.RemoveAll(out[i].SourceDir); err != nil {
			return out, fmt.Errorf("assemble: cleanup %s: %w", out[i].SourceDir, err)
		}
		out[i].Cleaned = true
		log.Info("assemble: screenshots removed", "day", day, "target", out[i].Target, "dir", out[i].SourceDir)
	}
	return out, nil
}

func (a *Assembler) encodeTarget(ctx context.Context, day, target string) (Animation, error) {
	dir := layout.TargetDir(a.cfg.Root, day, target)
	paths, err := layout.Frames(dir)
	if err != nil {
		return Animation{}, fmt.Errorf("assemble: %s: %w", target, err)
	}
	if len(paths) == 0 {
		return Animation{}, fmt.Errorf("%w: %s", ErrNoFrames, dir)
	}

	delay := centiseconds(a.cfg.DurationMs)
	g := &gif.GIF{LoopCount: 0}
	var size image.Point

	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			return Animation{}, err
		}
		img, err := decodeFrame(p)
		if err != nil {
			return Animation{}, err
		}
		if i == 0 {
			size = img.Bounds().Size()
			if size.X == 0 || size.Y == 0 {
				return Animation{}, fmt.Errorf("assemble: %s: empty first frame", p)
			}
			// Every paletted frame stays in memory until EncodeAll.
			if need := palettedBytes(len(paths), size); need > a.cfg.MemoryWarnBytes {
				a.cfg.Logger.Warn("assemble: large animation held in memory",
					"day", day, "target", target, "frames", len(paths),
					"width", size.X, "height", size.Y, "bytes", need)
			}
		}
		g.Image = append(g.Image, toPaletted(img, size))
		g.Delay = append(g.Delay, delay)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		return Animation{}, fmt.Errorf("assemble: encode %s: %w", target, err)
	}

	path := layout.AnimationPath(a.cfg.Root, day, target)
	if err := layout.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return Animation{}, fmt.Errorf("assemble: %s: %w", target, err)
	}

	return Animation{
		Target:    target,
		Path:      path,
		SourceDir: dir,
		Frames:    len(paths),
		Bytes:     buf.Len(),
	}, nil
}
