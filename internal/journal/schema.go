package journal

// schema creates the journal tables. Times are unix milliseconds.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	started_at   INTEGER NOT NULL,
	finished_at  INTEGER,
	state        TEXT NOT NULL,
	failed_stage TEXT NOT NULL DEFAULT '',
	failure_kind TEXT NOT NULL DEFAULT '',
	error        TEXT NOT NULL DEFAULT '',
	version      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS stages (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	stage       TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	duration_ms INTEGER,
	result      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, stage)
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
`
