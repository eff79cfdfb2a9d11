package postgres

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hometemp/internal/storage/sqlstore"

	_ "github.com/lib/pq"
)

// Dialect is the PostgreSQL flavour of the device/device_status schema
var Dialect = sqlstore.Dialect{
	Name: "postgres",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS device (
			active_time BIGINT,
			create_time BIGINT,
			id TEXT PRIMARY KEY,
			name TEXT,
			online BOOLEAN,
			sub BOOLEAN,
			time_zone TEXT,
			update_time BIGINT,
			device_type TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS device_status (
			code TEXT NOT NULL,
			value TEXT,
			device_id TEXT NOT NULL REFERENCES device(id),
			id TEXT PRIMARY KEY,
			update_time TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_device_status_device ON device_status(device_id, update_time)`,
	},
	InsertDevice: `INSERT INTO device (active_time, create_time, id, name, online, sub, time_zone, update_time, device_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
	InsertStatus: `INSERT INTO device_status (code, value, device_id, id, update_time)
		VALUES ($1, $2, $3, $4, $5)`,
}

// ConnConfig holds PostgreSQL connection parameters
type ConnConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the connection parameters in lib/pq key=value form
func (c ConnConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	parts := []string{
		"host=" + quote(c.Host),
		"user=" + quote(c.User),
		"password=" + quote(c.Password),
		"dbname=" + quote(c.DBName),
		"sslmode=" + quote(sslMode),
	}
	if c.Port > 0 {
		parts = append(parts, fmt.Sprintf("port=%d", c.Port))
	}
	return strings.Join(parts, " ")
}

// quote escapes a value for the key=value DSN format
func quote(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// New opens a PostgreSQL-backed store. The connection itself is established lazily,
// so an unreachable server surfaces on the first write, not here.
func New(dsn string, logger *slog.Logger) (*sqlstore.Store, error) {
	db, err := sql.Open(Dialect.Name, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := sqlstore.New(db, Dialect, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}
