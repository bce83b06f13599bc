package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod/lib/proto"
)

// Shoot navigates the reused page to url, waits up to wait for the element
// matching selector to exist and be visible, and returns a PNG screenshot of
// exactly that element.
func (m *Manager) Shoot(ctx context.Context, url, selector string, wait time.Duration) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if m.browser == nil {
		if err := m.startLocked(ctx); err != nil {
			return nil, err
		}
	}
	if m.recycleDue(time.Now()) {
		m.cfg.Logger.Info("browser: recycle interval reached")
		if err := m.recycleLocked(ctx); err != nil {
			return nil, err
		}
	}

	page, err := m.pageLocked()
	if err != nil {
		return nil, err
	}

	navCtx, cancel := context.WithTimeout(ctx, m.cfg.NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(url); err != nil {
		return nil, fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		m.cfg.Logger.Warn("browser: wait load timeout", "url", url, "error", err)
	}

	waitCtx, cancelWait := context.WithTimeout(ctx, wait)
	defer cancelWait()

	el, err := page.Context(waitCtx).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: %s on %s: not found within %s: %w", selector, url, wait, err)
	}
	if err := el.WaitVisible(); err != nil {
		return nil, fmt.Errorf("browser: %s on %s: not visible within %s: %w", selector, url, wait, err)
	}

	data, err := el.Context(ctx).Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, fmt.Errorf("browser: screenshot %s: %w", selector, err)
	}
	return data, nil
}
