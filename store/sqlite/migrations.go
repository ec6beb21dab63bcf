package sqlite

// Instants are stored as UTC nanoseconds so the due query stays a plain
// integer comparison. The nullable execution columns mirror the pointer
// fields on schedule.Schedule.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS schedules (
	id                   TEXT PRIMARY KEY,
	mode                 TEXT NOT NULL,
	spec_json            TEXT NOT NULL,
	workflow_id          TEXT NOT NULL,
	node_id              TEXT NOT NULL,
	status               TEXT NOT NULL,
	next_execution_ns    INTEGER,
	last_execution_ns    INTEGER,
	execution_count      INTEGER NOT NULL DEFAULT 0,
	consecutive_failures INTEGER NOT NULL DEFAULT 0,
	created_at_ns        INTEGER NOT NULL,
	updated_at_ns        INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_schedules_due
	ON schedules (status, next_execution_ns);
`
