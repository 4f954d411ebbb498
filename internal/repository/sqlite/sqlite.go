package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// schemaVersion is stored in PRAGMA user_version. Bump it with every change to schema.
const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	dataset TEXT NOT NULL,
	output TEXT NOT NULL,
	threshold REAL NOT NULL,
	min_contour_area INTEGER NOT NULL,
	cache_capacity INTEGER NOT NULL,
	equalize INTEGER NOT NULL DEFAULT 0,
	started_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS decisions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id INTEGER NOT NULL,
	seq INTEGER NOT NULL,
	filename TEXT NOT NULL,
	camera TEXT NOT NULL,
	status TEXT NOT NULL,
	partner TEXT NOT NULL DEFAULT '',
	score REAL NOT NULL DEFAULT 0,
	fingerprint TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_decisions_run_seq ON decisions(run_id, seq);
`

// DB is a manifest database file.
type DB struct {
	conn *sql.DB
}

// New opens the manifest at dbPath, creating the schema on first use.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

func (db *DB) migrate() error {
	var version int
	if err := db.conn.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return err
	}
	switch {
	case version == schemaVersion:
		return nil
	case version > schemaVersion:
		return fmt.Errorf("manifest schema version %d is newer than supported version %d", version, schemaVersion)
	}

	return db.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(schema); err != nil {
			return err
		}
		_, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion))
		return err
	})
}

// inTx runs fn in a transaction, committing when fn succeeds.
func (db *DB) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (db *DB) Close() error {
	return db.conn.Close()
}
