package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"

	"hometemp/internal/storage/sqlstore"

	_ "github.com/mattn/go-sqlite3"
)

// Dialect is the SQLite flavour of the device/device_status schema
var Dialect = sqlstore.Dialect{
	Name: "sqlite3",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS device (
			active_time INTEGER,
			create_time INTEGER,
			id TEXT PRIMARY KEY,
			name TEXT,
			online BOOLEAN,
			sub BOOLEAN,
			time_zone TEXT,
			update_time INTEGER,
			device_type TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS device_status (
			code TEXT NOT NULL,
			value TEXT,
			device_id TEXT NOT NULL,
			id TEXT PRIMARY KEY,
			update_time DATETIME NOT NULL,
			FOREIGN KEY (device_id) REFERENCES device(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_device_status_device ON device_status(device_id, update_time)`,
	},
	InsertDevice: `INSERT INTO device (active_time, create_time, id, name, online, sub, time_zone, update_time, device_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
	InsertStatus: `INSERT INTO device_status (code, value, device_id, id, update_time)
		VALUES (?, ?, ?, ?, ?)`,
}

// DSN returns a go-sqlite3 DSN for a database file with foreign keys enabled
func DSN(path string) string {
	params := url.Values{}
	params.Set("_foreign_keys", "on")
	params.Set("_busy_timeout", "5000")
	return "file:" + path + "?" + params.Encode()
}

// New creates a new SQLite-backed store for the database file at path
func New(path string, logger *slog.Logger) (*sqlstore.Store, error) {
	db, err := sql.Open(Dialect.Name, DSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	store, err := sqlstore.New(db, Dialect, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}
