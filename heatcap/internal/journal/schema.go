package journal

// Schema contains the complete DDL for the journal tables.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    run_id     TEXT PRIMARY KEY,
    root       TEXT NOT NULL,
    started_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS shots (
    event_id   TEXT PRIMARY KEY,
    run_id     TEXT NOT NULL,
    day        TEXT NOT NULL,
    target     TEXT NOT NULL,
    seq        INTEGER NOT NULL,
    path       TEXT NOT NULL,
    bytes      INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_shots_day_target ON shots(day, target);

CREATE TABLE IF NOT EXISTS animations (
    day        TEXT NOT NULL,
    target     TEXT NOT NULL,
    run_id     TEXT NOT NULL,
    path       TEXT NOT NULL,
    frames     INTEGER NOT NULL,
    bytes      INTEGER NOT NULL,
    cleaned    INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (day, target)
);

-- Single row: the latest market decision.
CREATE TABLE IF NOT EXISTS clock (
    id         INTEGER PRIMARY KEY CHECK (id = 1),
    run_id     TEXT NOT NULL,
    state      TEXT NOT NULL,
    day        TEXT NOT NULL,
    wait_ms    INTEGER NOT NULL DEFAULT 0,
    decided_at INTEGER NOT NULL
);
`
