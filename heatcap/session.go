package heatcap

// Session is the loop state owned by a Runner: the day being captured and
// its sequence counter. Only the Runner's goroutine touches it.
type Session struct {
	// RunID identifies this process in events and the journal.
	RunID string

	// Day is the exchange-local date being captured, empty outside a
	// session.
	Day string

	// Seq is the index the next tick writes. It starts one past the highest
	// index already on disk for Day.
	Seq int

	// Ticks counts the ticks this process captured for Day. A day is
	// assembled only when it is non-zero.
	Ticks int
}

func (s *Session) reset() {
	s.Day = ""
	s.Seq = 0
	s.Ticks = 0
}
