package storage

// migrationsSQL creates the schema on open. Statements are idempotent so
// opening an existing database is a no-op.
//
// open_days carries the event lifecycle columns: (source, source_id) is the
// sole merge key, and is_active/missing_since move only through the Sync
// reconciliation sweeps.
const migrationsSQL = `
CREATE TABLE IF NOT EXISTS schools (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	website_url TEXT
);

CREATE TABLE IF NOT EXISTS open_days (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source TEXT NOT NULL,
	source_id TEXT NOT NULL,
	school_name TEXT NOT NULL,
	school_id TEXT,
	starts_at TEXT NOT NULL,
	ends_at TEXT NOT NULL,
	location_text TEXT,
	info_url TEXT,
	notes TEXT,
	event_type TEXT NOT NULL,
	school_year_label TEXT NOT NULL,
	last_synced_at TEXT NOT NULL,
	last_seen_at TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1,
	missing_since TEXT,
	UNIQUE (source, source_id)
);

CREATE INDEX IF NOT EXISTS idx_open_days_year_active
	ON open_days (school_year_label, is_active);
`
