package mysql

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"hometemp/internal/storage/sqlstore"

	driver "github.com/go-sql-driver/mysql"
)

// Dialect is the MySQL flavour of the device/device_status schema
var Dialect = sqlstore.Dialect{
	Name: "mysql",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS device (
			active_time BIGINT,
			create_time BIGINT,
			id VARCHAR(191) NOT NULL PRIMARY KEY,
			name TEXT,
			online BOOLEAN,
			sub BOOLEAN,
			time_zone VARCHAR(64),
			update_time BIGINT,
			device_type VARCHAR(128)
		)`,
		`CREATE TABLE IF NOT EXISTS device_status (
			code VARCHAR(128) NOT NULL,
			value TEXT,
			device_id VARCHAR(191) NOT NULL,
			id VARCHAR(255) NOT NULL PRIMARY KEY,
			update_time DATETIME(6) NOT NULL,
			INDEX idx_device_status_device (device_id, update_time),
			FOREIGN KEY (device_id) REFERENCES device(id)
		)`,
	},
	// id = id keeps the existing row untouched
	InsertDevice: `INSERT INTO device (active_time, create_time, id, name, online, sub, time_zone, update_time, device_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE id = id`,
	InsertStatus: `INSERT INTO device_status (code, value, device_id, id, update_time)
		VALUES (?, ?, ?, ?, ?)`,
}

// ConnConfig holds MySQL connection parameters
type ConnConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// DSN renders the connection parameters with the driver's own formatter
func (c ConnConfig) DSN() string {
	port := c.Port
	if port <= 0 {
		port = 3306
	}
	cfg := driver.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.Host, strconv.Itoa(port))
	cfg.DBName = c.DBName
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN()
}

// New opens a MySQL-backed store
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
