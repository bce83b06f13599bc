package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hazyhaar/heatcap/heatcap/event"
)

// ErrQueueFull is returned by Webhook.Send when the delivery queue is full
// and the event was dropped.
var ErrQueueFull = errors.New("webhook: queue full")

// Webhook POSTs JSON to a URL with retry and exponential backoff. Send only
// enqueues; a single goroutine delivers in order, so a slow or dead endpoint
// never holds up the caller.
type Webhook struct {
	url        string
	client     *http.Client
	maxRetries int
	backoff    time.Duration
	queueSize  int
	drain      time.Duration
	logger     *slog.Logger

	queue  chan []byte
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// WebhookOption configures a Webhook sink.
type WebhookOption func(*Webhook)

// WithWebhookRetries sets the maximum number of retries. Default: 3.
func WithWebhookRetries(n int) WebhookOption {
	return func(w *Webhook) { w.maxRetries = n }
}

// WithWebhookBackoff sets the first retry delay, doubled each attempt. Default: 1s.
func WithWebhookBackoff(d time.Duration) WebhookOption {
	return func(w *Webhook) { w.backoff = d }
}

// WithWebhookQueue sets how many events may wait for delivery before new
// ones are dropped. Default: 256.
func WithWebhookQueue(n int) WebhookOption {
	return func(w *Webhook) { w.queueSize = n }
}

// WithWebhookDrain bounds how long Close waits for queued events. Default: 2s.
func WithWebhookDrain(d time.Duration) WebhookOption {
	return func(w *Webhook) { w.drain = d }
}

// WithWebhookLogger sets a custom logger.
func WithWebhookLogger(l *slog.Logger) WebhookOption {
	return func(w *Webhook) { w.logger = l }
}

// NewWebhook creates a Webhook sink targeting the given URL and starts its
// delivery goroutine. Close stops it.
func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:        url,
		client:     &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
		backoff:    time.Second,
		queueSize:  256,
		drain:      2 * time.Second,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	if w.queueSize < 1 {
		w.queueSize = 1
	}

	w.queue = make(chan []byte, w.queueSize)
	w.done = make(chan struct{})
	w.ctx, w.cancel = context.WithCancel(context.Background())
	go w.run()
	return w
}

// Send enqueues e for delivery and returns immediately.
func (w *Webhook) Send(_ context.Context, e event.Event) error {
	body, err := json.Marshal(envelope{Type: string(e.Kind), Message: e.Describe(), Data: e})
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errors.New("webhook: closed")
	}
	select {
	case w.queue <- body:
		return nil
	default:
		return fmt.Errorf("%w: dropped %s event", ErrQueueFull, e.Kind)
	}
}

// Close stops accepting events and waits up to the drain timeout for the
// queue to empty. Events still pending after that are abandoned.
func (w *Webhook) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	t := time.NewTimer(w.drain)
	defer t.Stop()
	select {
	case <-w.done:
	case <-t.C:
		w.logger.Warn("webhook: drain timeout, abandoning queued events", "pending", len(w.queue))
		w.cancel()
		<-w.done
	}
	w.cancel()
	return nil
}

func (w *Webhook) run() {
	defer close(w.done)
	for body := range w.queue {
		if err := w.post(w.ctx, body); err != nil {
			w.logger.Warn("webhook: delivery failed", "url", w.url, "error", err)
		}
	}
}

func (w *Webhook) post(ctx context.Context, body []byte) error {
	var lastErr error
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if attempt > 0 {
			backoff := w.backoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("webhook: new request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			lastErr = err
			w.logger.Debug("webhook: request failed", "attempt", attempt+1, "error", err)
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("webhook: status %d", resp.StatusCode)
		w.logger.Debug("webhook: bad status", "attempt", attempt+1, "status", resp.StatusCode)
	}
	return fmt.Errorf("webhook: all retries exhausted: %w", lastErr)
}
