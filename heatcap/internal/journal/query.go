package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Decision is the latest recorded market decision.
type Decision struct {
	State     string `json:"state"`
	Day       string `json:"day"`
	WaitMs    int64  `json:"wait_ms"`
	DecidedAt int64  `json:"decided_at"`
}

// Status summarises the latest run.
type Status struct {
	RunID     string         `json:"run_id,omitempty"`
	Root      string         `json:"root,omitempty"`
	StartedAt int64          `json:"started_at,omitempty"`
	Clock     *Decision      `json:"clock,omitempty"`
	Day       string         `json:"day,omitempty"` // latest day with screenshots
	Shots     map[string]int `json:"shots"`         // per target, for Day
}

// Animation is one recorded GIF.
type Animation struct {
	Target    string `json:"target"`
	Path      string `json:"path"`
	Frames    int    `json:"frames"`
	Bytes     int    `json:"bytes"`
	Cleaned   bool   `json:"cleaned"`
	CreatedAt int64  `json:"created_at"`
}

// DayReport is everything recorded for one day.
type DayReport struct {
	Day        string         `json:"day"`
	Shots      map[string]int `json:"shots"`
	LastSeq    int            `json:"last_seq"` // -1 when no screenshots
	Animations []Animation    `json:"animations"`
}

// Status returns the latest run, the latest decision and the shot counts
// of the latest day. An empty journal yields a zero Status.
func (j *Journal) Status(ctx context.Context) (Status, error) {
	st := Status{Shots: map[string]int{}}

	err := j.db.QueryRowContext(ctx,
		`SELECT run_id, root, started_at FROM runs ORDER BY started_at DESC, run_id DESC LIMIT 1`,
	).Scan(&st.RunID, &st.Root, &st.StartedAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return st, fmt.Errorf("journal: latest run: %w", err)
	}

	var d Decision
	err = j.db.QueryRowContext(ctx,
		`SELECT state, day, wait_ms, decided_at FROM clock WHERE id = 1`,
	).Scan(&d.State, &d.Day, &d.WaitMs, &d.DecidedAt)
	switch {
	case err == nil:
		st.Clock = &d
	case !errors.Is(err, sql.ErrNoRows):
		return st, fmt.Errorf("journal: clock: %w", err)
	}

	var day sql.NullString
	if err := j.db.QueryRowContext(ctx, `SELECT MAX(day) FROM shots`).Scan(&day); err != nil {
		return st, fmt.Errorf("journal: latest day: %w", err)
	}
	if !day.Valid {
		return st, nil
	}
	st.Day = day.String
	st.Shots, err = j.shotCounts(ctx, st.Day)
	return st, err
}

// Day returns the shots and animations recorded for day.
func (j *Journal) Day(ctx context.Context, day string) (DayReport, error) {
	rep := DayReport{Day: day, LastSeq: -1, Animations: []Animation{}}

	var err error
	rep.Shots, err = j.shotCounts(ctx, day)
	if err != nil {
		return rep, err
	}

	var last sql.NullInt64
	if err := j.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM shots WHERE day = ?`, day).Scan(&last); err != nil {
		return rep, fmt.Errorf("journal: last seq: %w", err)
	}
	if last.Valid {
		rep.LastSeq = int(last.Int64)
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT target, path, frames, bytes, cleaned, created_at
		 FROM animations WHERE day = ? ORDER BY target`, day)
	if err != nil {
		return rep, fmt.Errorf("journal: animations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a Animation
		if err := rows.Scan(&a.Target, &a.Path, &a.Frames, &a.Bytes, &a.Cleaned, &a.CreatedAt); err != nil {
			return rep, fmt.Errorf("journal: scan animation: %w", err)
		}
		rep.Animations = append(rep.Animations, a)
	}
	return rep, rows.Err()
}

func (j *Journal) shotCounts(ctx context.Context, day string) (map[string]int, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT target, COUNT(*) FROM shots WHERE day = ? GROUP BY target`, day)
	if err != nil {
		return nil, fmt.Errorf("journal: shot counts: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var target string
		var n int
		if err := rows.Scan(&target, &n); err != nil {
			return nil, fmt.Errorf("journal: scan shot count: %w", err)
		}
		out[target] = n
	}
	return out, rows.Err()
}
