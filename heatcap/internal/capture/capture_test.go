package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/heatcap/heatcap/internal/layout"
)

// fakeShooter returns the URL as the screenshot body and fails the URLs
// listed in fail for the first failN calls each.
type fakeShooter struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]int
}

func (f *fakeShooter) Shoot(_ context.Context, url, selector string, wait time.Duration) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if f.fail[url] > 0 {
		f.fail[url]--
		return nil, errors.New("element not visible")
	}
	return []byte(url), nil
}

func TestTick_OneFilePerTargetSharedSeq(t *testing.T) {
	root := t.TempDir()
	fs := &fakeShooter{}
	c := New(fs, Config{Root: root})

	for seq := 0; seq < 2; seq++ {
		shots, err := c.Tick(context.Background(), "2026-10-19", seq)
		if err != nil {
			t.Fatal(err)
		}
		if len(shots) != 3 {
			t.Fatalf("tick %d: got %d shots, want 3", seq, len(shots))
		}
		for _, s := range shots {
			if s.Seq != seq {
				t.Errorf("tick %d: shot %s has seq %d", seq, s.Target, s.Seq)
			}
		}
	}

	for _, tg := range layout.Targets() {
		frames, err := layout.Frames(layout.TargetDir(root, "2026-10-19", tg.Name))
		if err != nil {
			t.Fatal(err)
		}
		if len(frames) != 2 {
			t.Fatalf("%s: got %d frames, want 2", tg.Name, len(frames))
		}
		if filepath.Base(frames[0]) != "0000.png" || filepath.Base(frames[1]) != "0001.png" {
			t.Errorf("%s: frames %v", tg.Name, frames)
		}
		data, _ := os.ReadFile(frames[1])
		if string(data) != tg.URL {
			t.Errorf("%s: content %q, want %q", tg.Name, data, tg.URL)
		}
	}

	// Targets are visited in fixed order.
	want := []string{layout.Targets()[0].URL, layout.Targets()[1].URL, layout.Targets()[2].URL}
	for i, u := range want {
		if fs.calls[i] != u {
			t.Errorf("call %d: got %s, want %s", i, fs.calls[i], u)
		}
	}
}

func TestTick_FailureStopsTick(t *testing.T) {
	root := t.TempDir()
	world := layout.Targets()[1].URL
	fs := &fakeShooter{fail: map[string]int{world: 1}}
	c := New(fs, Config{Root: root})

	shots, err := c.Tick(context.Background(), "2026-10-19", 0)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(shots) != 1 || shots[0].Target != "SP500" {
		t.Fatalf("got %+v, want only SP500 written", shots)
	}
	if len(fs.calls) != 2 {
		t.Fatalf("FULL should not be attempted: calls %v", fs.calls)
	}
	if _, err := os.Stat(layout.FramePath(root, "2026-10-19", "FULL", 0)); !os.IsNotExist(err) {
		t.Fatal("FULL frame should not exist")
	}
}

func TestTick_RetryRecovers(t *testing.T) {
	root := t.TempDir()
	sp := layout.Targets()[0].URL
	fs := &fakeShooter{fail: map[string]int{sp: 2}}
	c := New(fs, Config{Root: root, Retries: 2, RetryBackoff: time.Millisecond})

	shots, err := c.Tick(context.Background(), "2026-10-19", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(shots) != 3 {
		t.Fatalf("got %d shots, want 3", len(shots))
	}
	if len(fs.calls) != 5 {
		t.Fatalf("calls: got %d, want 5 (3 for SP500, 1 each for the others)", len(fs.calls))
	}
}

func TestTick_RetriesExhausted(t *testing.T) {
	sp := layout.Targets()[0].URL
	fs := &fakeShooter{fail: map[string]int{sp: 5}}
	c := New(fs, Config{Root: t.TempDir(), Retries: 1, RetryBackoff: time.Millisecond})

	if _, err := c.Tick(context.Background(), "2026-10-19", 0); err == nil {
		t.Fatal("expected error after retries")
	}
	if len(fs.calls) != 2 {
		t.Fatalf("calls: got %d, want 2", len(fs.calls))
	}
}

func TestTick_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fs := &fakeShooter{}
	c := New(fs, Config{Root: t.TempDir()})
	if _, err := c.Tick(ctx, "2026-10-19", 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if len(fs.calls) != 0 {
		t.Fatal("no shot should be taken after cancel")
	}
}

type slowShooter struct{ d time.Duration }

func (s slowShooter) Shoot(ctx context.Context, url, _ string, _ time.Duration) ([]byte, error) {
	time.Sleep(s.d)
	return []byte(url), nil
}

func TestTick_RecordsShotDuration(t *testing.T) {
	c := New(slowShooter{d: 5 * time.Millisecond}, Config{Root: t.TempDir()})
	shots, err := c.Tick(context.Background(), "2026-10-19", 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range shots {
		if s.Took < 5*time.Millisecond {
			t.Errorf("%s: took %s, want at least the shooter's 5ms", s.Target, s.Took)
		}
	}
}
