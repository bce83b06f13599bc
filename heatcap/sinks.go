package heatcap

import (
	"io"
	"log/slog"

	"github.com/hazyhaar/heatcap/heatcap/internal/sink"
)

// Sink is the output interface for heatcap events.
type Sink = sink.Sink

// EventFunc is called for each event.
type EventFunc = sink.EventFunc

// NewStdoutSink creates a stdout JSON-lines sink.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewWebhookSink creates a webhook POST sink with retry. Delivery happens on
// its own goroutine; Close drains it.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	return sink.NewWebhook(url, sink.WithWebhookLogger(logger))
}

func newWebhook(sc SinkConfig, logger *slog.Logger) *sink.Webhook {
	opts := []sink.WebhookOption{sink.WithWebhookLogger(logger)}
	if sc.Queue > 0 {
		opts = append(opts, sink.WithWebhookQueue(sc.Queue))
	}
	if sc.Drain > 0 {
		opts = append(opts, sink.WithWebhookDrain(sc.Drain))
	}
	return sink.NewWebhook(sc.URL, opts...)
}

// NewCallbackSink creates an in-process callback sink.
func NewCallbackSink(fn EventFunc) Sink {
	return sink.NewCallback(fn)
}
