package store

// currentSchemaVersion is the schema version this build reads and writes.
// A status database with any other version is refused.
const currentSchemaVersion = 1

var schema = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	pipeline TEXT NOT NULL,
	nodes INTEGER NOT NULL,
	status TEXT NOT NULL,
	started_at TEXT NOT NULL,
	ended_at TEXT
);
CREATE TABLE IF NOT EXISTS node_status (
	uid TEXT PRIMARY KEY,
	node_type TEXT NOT NULL,
	node_name TEXT NOT NULL,
	status TEXT NOT NULL,
	run_id INTEGER REFERENCES runs(id),
	error_message TEXT,
	updated_at TEXT NOT NULL
);
`
