package browser

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher/flags"
)

func TestNewLauncher_Flags(t *testing.T) {
	ext := t.TempDir()
	cfg := Config{
		UserAgent: "heatcap-test/1.0",
		Extension: ext,
		NoSandbox: true,
	}
	cfg.defaults()

	l, err := newLauncher(cfg)
	if err != nil {
		t.Fatal(err)
	}

	if got := l.Get(flags.Headless); got != "new" {
		t.Errorf("headless: got %q, want new", got)
	}
	if got := l.Get("user-agent"); got != "heatcap-test/1.0" {
		t.Errorf("user-agent: got %q", got)
	}
	if got := l.Get("window-size"); got != "1920,1080" {
		t.Errorf("window-size: got %q, want 1920,1080", got)
	}
	abs, _ := filepath.Abs(ext)
	if got := l.Get("load-extension"); got != abs {
		t.Errorf("load-extension: got %q, want %q", got, abs)
	}
	if got := l.Get("disable-extensions-except"); got != abs {
		t.Errorf("disable-extensions-except: got %q, want %q", got, abs)
	}
	for _, f := range []flags.Flag{"start-maximized", "disable-gpu", "disable-popup-blocking", "dns-prefetch-disable", flags.NoSandbox} {
		if !l.Has(f) {
			t.Errorf("missing flag %s", f)
		}
	}
}

func TestNewLauncher_NoExtension(t *testing.T) {
	cfg := Config{}
	cfg.defaults()
	l, err := newLauncher(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if l.Has("load-extension") {
		t.Error("load-extension set without an extension dir")
	}
	if l.Has(flags.NoSandbox) {
		t.Error("no-sandbox set while disabled")
	}
}

func TestShouldBlock(t *testing.T) {
	set := map[string]bool{"fonts": true, "media": true}
	cases := map[string]bool{
		"Font":       true,
		"Media":      true,
		"Image":      false,
		"Stylesheet": false,
		"Document":   false,
	}
	for typ, want := range cases {
		if got := shouldBlock(set, typ); got != want {
			t.Errorf("%s: got %v, want %v", typ, got, want)
		}
	}
}

func TestRecycleDue(t *testing.T) {
	m := NewManager(Config{RecycleInterval: time.Hour})
	now := time.Now()

	if m.recycleDue(now) {
		t.Fatal("never-started browser should not be due")
	}
	m.startAt = now.Add(-59 * time.Minute)
	if m.recycleDue(now) {
		t.Fatal("59m uptime should not be due")
	}
	m.startAt = now.Add(-time.Hour)
	if !m.recycleDue(now) {
		t.Fatal("1h uptime should be due")
	}

	never := NewManager(Config{})
	never.startAt = now.Add(-100 * time.Hour)
	if never.recycleDue(now) {
		t.Fatal("zero interval means never")
	}
}

func TestClosedManager(t *testing.T) {
	m := NewManager(Config{})
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := m.Start(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Start: got %v, want ErrClosed", err)
	}
	if _, err := m.Shoot(ctx, "about:blank", "body", time.Second); !errors.Is(err, ErrClosed) {
		t.Errorf("Shoot: got %v, want ErrClosed", err)
	}
	if err := m.Recycle(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Recycle: got %v, want ErrClosed", err)
	}
}
