// Package event defines the records heatcap emits while it runs. Any
// consumer (webhook receiver, in-process callback, the journal) imports this
// package to receive them.
package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind is the type of event.
type Kind string

const (
	KindRunStart  Kind = "run_start" // process started, config resolved
	KindSleep     Kind = "sleep"     // the loop is about to sleep outside a session
	KindShot      Kind = "shot"      // one screenshot written
	KindAnimation Kind = "animation" // one GIF written
	KindCleanup   Kind = "cleanup"   // one target's screenshot directory removed
)

// Event is one observation of the capture loop.
type Event struct {
	ID        string `json:"id"` // UUIDv7
	Kind      Kind   `json:"kind"`
	RunID     string `json:"run_id"` // shared by every event of one process
	Day       string `json:"day,omitempty"`
	Target    string `json:"target,omitempty"`
	Seq       int    `json:"seq"`
	Path      string `json:"path,omitempty"`
	Bytes     int    `json:"bytes,omitempty"`
	Frames    int    `json:"frames,omitempty"`
	State     string `json:"state,omitempty"` // market state for sleep events
	WaitMs    int64  `json:"wait_ms,omitempty"`
	TookMs    int64  `json:"took_ms,omitempty"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

// NewID returns a fresh UUIDv7 string.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// New creates an event of kind stamped with a new ID and the given time.
func New(kind Kind, runID string, at time.Time) Event {
	return Event{
		ID:        NewID(),
		Kind:      kind,
		RunID:     runID,
		Timestamp: at.UnixMilli(),
	}
}

// Wait returns the sleep duration carried by a sleep event.
func (e Event) Wait() time.Duration {
	return time.Duration(e.WaitMs) * time.Millisecond
}

// Time returns the event timestamp.
func (e Event) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Describe renders a one-line operator message.
func (e Event) Describe() string {
	switch e.Kind {
	case KindRunStart:
		return "heatcap started"
	case KindSleep:
		minutes := int(e.Wait() / time.Minute)
		switch e.State {
		case "pre_open":
			return fmt.Sprintf("Market not open yet. Sleeping for %d minutes", minutes)
		case "closed":
			return fmt.Sprintf("Market closed today. Sleeping for %d minutes", minutes)
		default:
			return fmt.Sprintf("Market closed. Sleeping for %d minutes", minutes)
		}
	case KindShot:
		return fmt.Sprintf("Created screenshot %s", e.Path)
	case KindAnimation:
		return fmt.Sprintf("Created animation %s (%d frames)", e.Path, e.Frames)
	case KindCleanup:
		return fmt.Sprintf("Removed screenshots %s", e.Path)
	}
	return string(e.Kind)
}
