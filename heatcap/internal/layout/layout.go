// Package layout owns the on-disk shape of a heatcap output root: the fixed
// capture targets and the paths of day directories, screenshots and
// animations.
//
//	<root>/<YYYY-MM-DD>/<TARGET>/0000.png
//	<root>/<YYYY-MM-DD>/<TARGET>.gif
package layout

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DayFormat is the layout of day directory names.
const DayFormat = "2006-01-02"

// FrameExt is the screenshot extension. Matching is case-sensitive.
const FrameExt = ".png"

// AnimationExt is the extension of assembled animations.
const AnimationExt = ".gif"

// Target is one heatmap variant: a name that doubles as its directory name,
// and the page it is captured from.
type Target struct {
	Name string
	URL  string
}

var targets = []Target{
	{Name: "SP500", URL: "https://finviz.com/map.ashx?t=sec"},
	{Name: "WORLD", URL: "https://finviz.com/map.ashx?t=geo"},
	{Name: "FULL", URL: "https://finviz.com/map.ashx?t=sec_all"},
}

// Targets returns the fixed capture targets in capture order.
func Targets() []Target {
	out := make([]Target, len(targets))
	copy(out, targets)
	return out
}

// DayDir is the directory holding one day's target directories and animations.
func DayDir(root, day string) string {
	return filepath.Join(root, day)
}

// TargetDir is the directory holding one target's screenshots for a day.
func TargetDir(root, day, target string) string {
	return filepath.Join(root, day, target)
}

// FrameName formats a sequence index as a fixed-width file name so that
// lexical order equals capture order.
func FrameName(seq int) string {
	return fmt.Sprintf("%04d%s", seq, FrameExt)
}

// FramePath is the path of one screenshot.
func FramePath(root, day, target string, seq int) string {
	return filepath.Join(root, day, target, FrameName(seq))
}

// AnimationPath is the path of a target's animation for a day.
func AnimationPath(root, day, target string) string {
	return filepath.Join(root, day, target+AnimationExt)
}

// Frames lists the screenshot files of dir in lexical order. A missing
// directory yields an empty list and no error.
func Frames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("layout: read %s: %w", dir, err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), FrameExt) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// NextSeq returns one past the highest screenshot index found in any target
// directory of day, or 0 when the day has no screenshots yet. Files whose
// base name is not a decimal index are ignored.
func NextSeq(root, day string, ts []Target) (int, error) {
	next := 0
	for _, t := range ts {
		frames, err := Frames(TargetDir(root, day, t.Name))
		if err != nil {
			return 0, err
		}
		for _, f := range frames {
			n, err := strconv.Atoi(strings.TrimSuffix(filepath.Base(f), FrameExt))
			if err != nil || n < 0 {
				continue
			}
			if n+1 > next {
				next = n + 1
			}
		}
	}
	return next, nil
}

// WriteFileAtomic writes data to a temp file next to path and renames it into
// place, creating parent directories as needed. Readers never observe a
// partially written file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("layout: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("layout: create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("layout: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("layout: close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("layout: rename %s: %w", path, err)
	}
	return nil
}
