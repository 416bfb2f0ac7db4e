package storage

// schemaVersion marks the current ledger schema. Bump it when the table
// layout changes so migrations can tell what they are upgrading from.
const schemaVersion = 1

// schema creates the ledger tables and indexes. Timestamps are stored
// in UTC, latency in milliseconds, and the attempted backend list as a
// JSON array.
const schema = `
CREATE TABLE IF NOT EXISTS usage_records (
	id                TEXT PRIMARY KEY,
	request_id        TEXT NOT NULL DEFAULT '',
	timestamp         DATETIME NOT NULL,
	frontend          TEXT NOT NULL DEFAULT '',
	backend           TEXT NOT NULL DEFAULT '',
	model             TEXT NOT NULL DEFAULT '',
	latency_ms        INTEGER NOT NULL DEFAULT 0,
	streamed          INTEGER NOT NULL DEFAULT 0,
	prompt_tokens     INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	total_tokens      INTEGER NOT NULL DEFAULT 0,
	cost              REAL NOT NULL DEFAULT 0,
	finish_reason     TEXT NOT NULL DEFAULT '',
	warnings          INTEGER NOT NULL DEFAULT 0,
	error_code        TEXT NOT NULL DEFAULT '',
	attempted         TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_usage_timestamp ON usage_records (timestamp);
CREATE INDEX IF NOT EXISTS idx_usage_backend ON usage_records (backend);
CREATE INDEX IF NOT EXISTS idx_usage_model ON usage_records (model);
CREATE INDEX IF NOT EXISTS idx_usage_error_code ON usage_records (error_code);

CREATE TABLE IF NOT EXISTS schema_version (
	version    INTEGER PRIMARY KEY,
	applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// insertSchemaVersion records the schema version once; re-running it on
// an existing database is a no-op.
const insertSchemaVersion = `
INSERT INTO schema_version (version) VALUES (?)
ON CONFLICT(version) DO NOTHING;
`
