// Package browser owns the single Chrome session used for screenshots:
// launch (or connect to a remote instance) via Rod, one reused page, an
// optional time-based recycle, and shutdown.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("browser: manager is closed")

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// Bin is the Chrome binary. Empty = let the launcher find or fetch one.
	Bin string

	// UserAgent is sent on every request. Required.
	UserAgent string

	// Extension is an unpacked extension directory loaded at launch, typically
	// an ad blocker. Empty = none.
	Extension string

	// NoSandbox passes --no-sandbox, needed when running as root.
	NoSandbox bool

	// WindowWidth and WindowHeight size the window, which is also the
	// viewport. Default: 1920x1080.
	WindowWidth  int
	WindowHeight int

	// Stealth creates the page through go-rod/stealth.
	Stealth bool

	// ResourceBlocking lists resource types to block (images, fonts, media, stylesheets).
	ResourceBlocking []string

	// RecycleInterval is the maximum lifetime of a Chrome process. 0 = never.
	RecycleInterval time.Duration

	// NavigateTimeout bounds one navigation. Default: 30s.
	NavigateTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.WindowWidth <= 0 {
		c.WindowWidth = 1920
	}
	if c.WindowHeight <= 0 {
		c.WindowHeight = 1080
	}
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager manages the Chrome lifecycle. All methods are safe for concurrent
// use, though heatcap drives it from a single goroutine.
type Manager struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	page    *rod.Page
	router  *rod.HijackRouter
	startAt time.Time
	closed  bool
}

// NewManager creates a browser Manager. Call Start to launch Chrome.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start launches Chrome (or connects to a remote instance).
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.browser != nil {
		return nil
	}
	return m.startLocked(ctx)
}

// Recycle kills Chrome and starts a fresh one. The page is recreated on the
// next shot.
func (m *Manager) Recycle(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	return m.recycleLocked(ctx)
}

// Close shuts down Chrome.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.cleanup()
}

func (m *Manager) startLocked(ctx context.Context) error {
	b, err := m.launch(ctx)
	if err != nil {
		return err
	}
	m.browser = b
	m.startAt = time.Now()
	return nil
}

// newLauncher builds the local Chrome command line from cfg. It does not
// start anything.
func newLauncher(cfg Config) (*launcher.Launcher, error) {
	l := launcher.New().
		HeadlessNew(true).
		NoSandbox(cfg.NoSandbox).
		Set("start-maximized").
		Set("window-size", fmt.Sprintf("%d,%d", cfg.WindowWidth, cfg.WindowHeight)).
		Set("disable-gpu").
		Set("disable-popup-blocking").
		Set("dns-prefetch-disable").
		Set("disable-blink-features", "AutomationControlled")

	if cfg.UserAgent != "" {
		l = l.Set("user-agent", cfg.UserAgent)
	}
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}
	if cfg.Extension != "" {
		dir, err := filepath.Abs(cfg.Extension)
		if err != nil {
			return nil, fmt.Errorf("browser: extension path: %w", err)
		}
		l = l.Set("load-extension", dir).
			Set("disable-extensions-except", dir)
	}
	return l, nil
}

func (m *Manager) launch(ctx context.Context) (*rod.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := m.cfg.Logger

	var wsURL string

	if m.cfg.RemoteURL != "" {
		wsURL = m.cfg.RemoteURL
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l, err := newLauncher(m.cfg)
		if err != nil {
			return nil, err
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL, "extension", m.cfg.Extension != "")
	}

	// No default device: the window size is the viewport.
	b := rod.New().ControlURL(wsURL).NoDefaultDevice()
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("browser: ignore cert errors failed", "error", err)
	}

	return b, nil
}

// pageLocked returns the reused page, creating it on first use.
func (m *Manager) pageLocked() (*rod.Page, error) {
	if m.page != nil {
		return m.page, nil
	}

	var page *rod.Page
	var err error
	if m.cfg.Stealth {
		page, err = stealth.Page(m.browser)
	} else {
		page, err = m.browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create page: %w", err)
	}

	if m.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: m.cfg.UserAgent}); err != nil {
			page.Close()
			return nil, fmt.Errorf("browser: set user agent: %w", err)
		}
	}

	if len(m.cfg.ResourceBlocking) > 0 {
		router, err := applyResourceBlocking(page, m.cfg.ResourceBlocking)
		if err != nil {
			m.cfg.Logger.Warn("browser: resource blocking failed", "error", err)
		} else {
			m.router = router
		}
	}

	m.page = page
	return page, nil
}

// recycleDue reports whether the running Chrome has outlived RecycleInterval.
func (m *Manager) recycleDue(now time.Time) bool {
	return m.cfg.RecycleInterval > 0 && !m.startAt.IsZero() && now.Sub(m.startAt) >= m.cfg.RecycleInterval
}

func (m *Manager) recycleLocked(ctx context.Context) error {
	log := m.cfg.Logger
	log.Info("browser: recycling", "uptime", time.Since(m.startAt))

	if err := m.cleanup(); err != nil {
		log.Warn("browser: cleanup during recycle", "error", err)
	}

	if err := m.startLocked(ctx); err != nil {
		return fmt.Errorf("browser: relaunch: %w", err)
	}

	log.Info("browser: recycled successfully")
	return nil
}

func (m *Manager) cleanup() error {
	if m.router != nil {
		m.router.Stop()
		m.router = nil
	}
	m.page = nil
	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			m.cfg.Logger.Debug("browser: close", "error", err)
		}
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	return nil
}
