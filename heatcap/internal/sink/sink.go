// Package sink defines output backends for heatcap events.
package sink

import (
	"context"

	"github.com/hazyhaar/heatcap/heatcap/event"
)

// Sink is the output interface. Implementations deliver events to different
// backends (stdout, webhook, in-process callback, journal).
type Sink interface {
	Send(ctx context.Context, e event.Event) error
	Close() error
}
