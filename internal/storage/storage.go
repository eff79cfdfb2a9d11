package storage

import (
	"context"
	"fmt"
	"log/slog"

	"hometemp/internal/core"
	"hometemp/internal/storage/mysql"
	"hometemp/internal/storage/postgres"
	"hometemp/internal/storage/sqlite"
	"hometemp/internal/storage/sqlstore"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// Storage defines the interface for data persistence
type Storage interface {
	core.DeviceWriter

	// EnsureSchema creates missing tables; it never migrates existing ones
	EnsureSchema(ctx context.Context) error
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// Open returns the store for driver. dsn is a connection string for postgres and
// mysql, and a file path for sqlite.
func Open(driver, dsn string, logger *slog.Logger) (Storage, error) {
	var (
		store *sqlstore.Store
		err   error
	)
	switch driver {
	case DriverPostgres, "":
		store, err = postgres.New(dsn, logger)
	case DriverMySQL:
		store, err = mysql.New(dsn, logger)
	case DriverSQLite:
		store, err = sqlite.New(dsn, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}
