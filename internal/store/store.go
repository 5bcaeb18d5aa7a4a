// Package store provides the SQLite-backed particle store with optional
// FTS5 full-text search.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrIndexUnavailable reports that the full-text index cannot serve a
// query, either because FTS5 is not compiled into the driver or because
// the index lookup failed at runtime. Callers degrade to the substring
// scan; the condition is never surfaced past the search layer.
var ErrIndexUnavailable = errors.New("store: full-text index unavailable")

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS particles (
	id         TEXT PRIMARY KEY,
	owner      TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL DEFAULT '',
	tags       TEXT NOT NULL DEFAULT '[]',
	refs       TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_particles_owner ON particles(owner);
CREATE INDEX IF NOT EXISTS idx_particles_updated_at ON particles(updated_at);
`

const ftsSchemaSQL = `
CREATE VIRTUAL TABLE IF NOT EXISTS particles_fts USING fts5(
	id UNINDEXED,
	title,
	body,
	tags,
	content='particles',
	content_rowid='rowid'
);
`

// External-content FTS tables do not track the base table by themselves;
// these triggers keep particles_fts in lockstep with particles.
const ftsTriggerSQL = `
CREATE TRIGGER IF NOT EXISTS particles_fts_ai
AFTER INSERT ON particles BEGIN
	INSERT INTO particles_fts(rowid, id, title, body, tags)
	VALUES (new.rowid, new.id, new.title, new.body, new.tags);
END;

CREATE TRIGGER IF NOT EXISTS particles_fts_ad
AFTER DELETE ON particles BEGIN
	INSERT INTO particles_fts(particles_fts, rowid)
	VALUES ('delete', old.rowid);
END;

CREATE TRIGGER IF NOT EXISTS particles_fts_au
AFTER UPDATE ON particles BEGIN
	INSERT INTO particles_fts(particles_fts, rowid)
	VALUES ('delete', old.rowid);
	INSERT INTO particles_fts(rowid, id, title, body, tags)
	VALUES (new.rowid, new.id, new.title, new.body, new.tags);
END;
`

// DB wraps a sql.DB with particle-store operations.
type DB struct {
	conn *sql.DB
	fts  bool
}

// Open opens (or creates) the SQLite database and applies the schema.
// FTS5 setup is best-effort: when the driver is compiled without FTS5
// support, the store still opens and search degrades to substring scans.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}

	db := &DB{conn: conn}
	if _, err := conn.Exec(ftsSchemaSQL); err == nil {
		if _, err := conn.Exec(ftsTriggerSQL); err != nil {
			conn.Close()
			return nil, fmt.Errorf("store: apply fts triggers: %w", err)
		}
		db.fts = true
	}
	return db, nil
}

// IndexAvailable reports whether the FTS5 index was set up at Open.
func (db *DB) IndexAvailable() bool {
	return db.fts
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// allowedSort is the whitelist of sortable columns. Anything else is
// silently replaced by updated_at.
var allowedSort = map[string]struct{}{
	"updated_at": {},
	"created_at": {},
	"title":      {},
}

func safeSort(col string) string {
	if _, ok := allowedSort[col]; ok {
		return col
	}
	return "updated_at"
}
