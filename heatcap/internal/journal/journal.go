// Package journal records heatcap activity in SQLite: runs, screenshots,
// animations and the latest market decision. It is an event sink on the
// write side and the data source of the status API on the read side.
package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hazyhaar/heatcap/heatcap/event"
)

// Journal is a SQLite-backed event sink.
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the journal at path. ":memory:" is accepted.
func Open(path string) (*Journal, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	return &Journal{db: db}, nil
}

// DB exposes the underlying handle.
func (j *Journal) DB() *sql.DB { return j.db }

// Close closes the database.
func (j *Journal) Close() error { return j.db.Close() }

// Send records e. Unknown kinds are ignored.
func (j *Journal) Send(ctx context.Context, e event.Event) error {
	var err error
	switch e.Kind {
	case event.KindRunStart:
		_, err = j.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO runs (run_id, root, started_at) VALUES (?, ?, ?)`,
			e.RunID, e.Path, e.Timestamp)

	case event.KindSleep:
		err = j.setClock(ctx, j.db, e.RunID, e.State, e.Day, e.WaitMs, e.Timestamp)

	case event.KindShot:
		err = runTx(ctx, j.db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO shots (event_id, run_id, day, target, seq, path, bytes, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				e.ID, e.RunID, e.Day, e.Target, e.Seq, e.Path, e.Bytes, e.Timestamp); err != nil {
				return err
			}
			return j.setClock(ctx, tx, e.RunID, "in_session", e.Day, 0, e.Timestamp)
		})

	case event.KindAnimation:
		_, err = j.db.ExecContext(ctx,
			`INSERT INTO animations (day, target, run_id, path, frames, bytes, cleaned, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, 0, ?)
			 ON CONFLICT(day, target) DO UPDATE SET
			     run_id = excluded.run_id, path = excluded.path, frames = excluded.frames,
			     bytes = excluded.bytes, cleaned = 0, created_at = excluded.created_at`,
			e.Day, e.Target, e.RunID, e.Path, e.Frames, e.Bytes, e.Timestamp)

	case event.KindCleanup:
		_, err = j.db.ExecContext(ctx,
			`UPDATE animations SET cleaned = 1 WHERE day = ? AND target = ?`,
			e.Day, e.Target)

	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("journal: record %s: %w", e.Kind, err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (j *Journal) setClock(ctx context.Context, x execer, runID, state, day string, waitMs, at int64) error {
	_, err := x.ExecContext(ctx,
		`INSERT INTO clock (id, run_id, state, day, wait_ms, decided_at) VALUES (1, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     run_id = excluded.run_id, state = excluded.state, day = excluded.day,
		     wait_ms = excluded.wait_ms, decided_at = excluded.decided_at`,
		runID, state, day, waitMs, at)
	return err
}
