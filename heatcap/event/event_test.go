package event

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewID_IsV7(t *testing.T) {
	id, err := uuid.Parse(NewID())
	if err != nil {
		t.Fatal(err)
	}
	if id.Version() != 7 {
		t.Fatalf("version: got %d, want 7", id.Version())
	}
}

func TestNew_StampsEvent(t *testing.T) {
	at := time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)
	e := New(KindShot, "run-1", at)
	if e.ID == "" || e.RunID != "run-1" || e.Kind != KindShot {
		t.Fatalf("got %+v", e)
	}
	if !e.Time().Equal(at) {
		t.Fatalf("time: got %s, want %s", e.Time(), at)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		e    Event
		want string
	}{
		{Event{Kind: KindSleep, State: "pre_open", WaitMs: int64(90 * time.Minute / time.Millisecond)}, "Market not open yet. Sleeping for 90 minutes"},
		{Event{Kind: KindSleep, State: "post_close", WaitMs: int64(17 * time.Hour / time.Millisecond)}, "Market closed. Sleeping for 1020 minutes"},
		{Event{Kind: KindShot, Path: "/d/2026-10-19/SP500/0000.png"}, "Created screenshot /d/2026-10-19/SP500/0000.png"},
		{Event{Kind: KindAnimation, Path: "/d/x.gif", Frames: 3}, "(3 frames)"},
	}
	for _, tt := range tests {
		if got := tt.e.Describe(); !strings.Contains(got, tt.want) {
			t.Errorf("%s: got %q, want %q", tt.e.Kind, got, tt.want)
		}
	}
}
