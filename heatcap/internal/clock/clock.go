// Package clock decides, for a given instant, whether the exchange session
// has not opened yet, is running, or is over, and how long to sleep before
// looking again. Every comparison happens in the exchange timezone.
package clock

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// State is the position of an instant relative to the trading session.
type State int

const (
	PreOpen   State = iota // before the session opens today
	InSession              // open <= now < close
	PostClose              // at or after today's close
	Closed                 // weekend or exchange holiday
)

func (s State) String() string {
	switch s {
	case PreOpen:
		return "pre_open"
	case InSession:
		return "in_session"
	case PostClose:
		return "post_close"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// TimeOfDay is a wall-clock time in the exchange timezone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (24h).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("clock: time of day %q: want HH:MM", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("clock: time of day %q: bad hour", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("clock: time of day %q: bad minute", s)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Before reports whether t is earlier in the day than u.
func (t TimeOfDay) Before(u TimeOfDay) bool {
	return t.Hour*60+t.Minute < u.Hour*60+u.Minute
}

func (t TimeOfDay) on(d time.Time, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, 0, 0, loc)
}

// Exchange describes one trading venue.
type Exchange struct {
	Name       string
	Location   *time.Location
	Open       TimeOfDay
	Close      TimeOfDay
	EarlyClose TimeOfDay
	// Calendar enables weekend, holiday and early-close handling. When
	// false every day is a full trading day.
	Calendar bool
}

// NYSE is the New York Stock Exchange regular session, 09:30-16:00
// America/New_York.
func NYSE() Exchange {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic("clock: load America/New_York: " + err.Error())
	}
	return Exchange{
		Name:       "XNYS",
		Location:   loc,
		Open:       TimeOfDay{Hour: 9, Minute: 30},
		Close:      TimeOfDay{Hour: 16},
		EarlyClose: TimeOfDay{Hour: 13},
		Calendar:   true,
	}
}

const dayLayout = "2006-01-02"

// DefaultRecheck is the flat post-close sleep: 16:00 to 09:30 the next day.
const DefaultRecheck = 63000 * time.Second

// Decision is the outcome of Decide.
type Decision struct {
	State State
	// Day is the exchange-local calendar date of Now (YYYY-MM-DD).
	Day   string
	Now   time.Time
	Open  time.Time // today's open; zero on Closed days
	Close time.Time // today's close; zero on Closed days
	// Wait is how long to sleep before deciding again. Zero while InSession.
	Wait time.Duration
}

// Clock evaluates instants against one exchange. Not safe for concurrent use.
type Clock struct {
	ex       Exchange
	recheck  time.Duration
	minWait  time.Duration
	holidays map[int]map[string]bool
}

// Option configures a Clock.
type Option func(*Clock)

// WithRecheck sets the flat post-close interval. Default: DefaultRecheck.
func WithRecheck(d time.Duration) Option {
	return func(c *Clock) { c.recheck = d }
}

// WithMinWait sets the floor applied to post-close sleeps. Default: 1 minute.
func WithMinWait(d time.Duration) Option {
	return func(c *Clock) { c.minWait = d }
}

// New creates a Clock for ex.
func New(ex Exchange, opts ...Option) *Clock {
	if ex.Location == nil {
		ex.Location = time.UTC
	}
	c := &Clock{
		ex:       ex,
		recheck:  DefaultRecheck,
		minWait:  time.Minute,
		holidays: make(map[int]map[string]bool),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Exchange returns the exchange the clock evaluates against.
func (c *Clock) Exchange() Exchange { return c.ex }

// Decide classifies now and computes the sleep that follows.
func (c *Clock) Decide(now time.Time) Decision {
	t := now.In(c.ex.Location)
	d := Decision{Now: t, Day: t.Format(dayLayout)}

	openAt, closeAt, ok := c.Session(t)
	if !ok {
		d.State = Closed
		d.Wait = c.NextOpen(t).Sub(t)
		return d
	}
	d.Open, d.Close = openAt, closeAt

	switch {
	case t.Before(openAt):
		d.State = PreOpen
		d.Wait = openAt.Sub(t)
	case t.Before(closeAt):
		d.State = InSession
	default:
		d.State = PostClose
		d.Wait = c.recheck - t.Sub(closeAt)
		if d.Wait < c.minWait {
			d.Wait = c.minWait
		}
	}
	return d
}

// Session returns the open and close instants of the trading day containing
// t, or ok=false when that day is not a trading day.
func (c *Clock) Session(t time.Time) (openAt, closeAt time.Time, ok bool) {
	t = t.In(c.ex.Location)
	if !c.IsTradingDay(t) {
		return time.Time{}, time.Time{}, false
	}
	end := c.ex.Close
	if c.ex.Calendar && isEarlyClose(civil(t)) && c.ex.EarlyClose.Before(end) {
		end = c.ex.EarlyClose
	}
	return c.ex.Open.on(t, c.ex.Location), end.on(t, c.ex.Location), true
}

// IsTradingDay reports whether the exchange-local date of t is a trading day.
func (c *Clock) IsTradingDay(t time.Time) bool {
	if !c.ex.Calendar {
		return true
	}
	d := civil(t.In(c.ex.Location))
	if isWeekend(d) {
		return false
	}
	return !c.isHoliday(d)
}

// NextOpen returns the first session open strictly after t.
func (c *Clock) NextOpen(t time.Time) time.Time {
	t = t.In(c.ex.Location)
	// Ten days covers the longest run of weekends and holidays.
	for i := 0; i < 10; i++ {
		day := t.AddDate(0, 0, i)
		openAt, _, ok := c.Session(day)
		if ok && openAt.After(t) {
			return openAt
		}
	}
	return c.ex.Open.on(t.AddDate(0, 0, 1), c.ex.Location)
}

// LastClose returns the most recent session close at or before t, or
// ok=false when none falls in the previous ten days.
func (c *Clock) LastClose(t time.Time) (closeAt time.Time, ok bool) {
	t = t.In(c.ex.Location)
	for i := 0; i < 10; i++ {
		_, end, ok := c.Session(t.AddDate(0, 0, -i))
		if ok && !end.After(t) {
			return end, true
		}
	}
	return time.Time{}, false
}

func (c *Clock) isHoliday(d time.Time) bool {
	set, ok := c.holidays[d.Year()]
	if !ok {
		set = make(map[string]bool)
		for _, h := range usHolidays(d.Year()) {
			set[h.Format(dayLayout)] = true
		}
		c.holidays[d.Year()] = set
	}
	return set[d.Format(dayLayout)]
}
