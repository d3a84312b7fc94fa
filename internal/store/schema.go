package store

import "database/sql"

const ddl = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS records (
    position  INTEGER PRIMARY KEY,
    id        TEXT NOT NULL UNIQUE,
    text      TEXT NOT NULL,
    embedding BLOB NOT NULL,
    metadata  TEXT NOT NULL DEFAULT '{}'
);
`

// initSchema creates the records table if it doesn't exist.
func initSchema(db *sql.DB) error {
	_, err := db.Exec(ddl)
	return err
}
