package postgres

// Execution instants are stored as UTC nanoseconds, matching the sqlite
// backend, so the due query is an integer comparison and sub-microsecond
// instants survive the round trip.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS deflow_schedules (
	id                   TEXT PRIMARY KEY,
	mode                 TEXT NOT NULL,
	spec_json            JSONB NOT NULL,
	workflow_id          TEXT NOT NULL,
	node_id              TEXT NOT NULL,
	status               TEXT NOT NULL,
	next_execution_ns    BIGINT,
	last_execution_ns    BIGINT,
	execution_count      INTEGER NOT NULL DEFAULT 0,
	consecutive_failures INTEGER NOT NULL DEFAULT 0,
	created_at_ns        BIGINT NOT NULL,
	updated_at_ns        BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_deflow_schedules_due
	ON deflow_schedules (status, next_execution_ns);
`
