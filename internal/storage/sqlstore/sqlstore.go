// Package sqlstore writes poll cycles into the device and device_status tables
// through database/sql. Dialect packages supply the driver-specific SQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"hometemp/internal/core"
	"hometemp/internal/idgen"
)

var ErrNilDB = errors.New("sqlstore: nil database handle")

// Dialect holds the statements that differ between database engines
type Dialect struct {
	Name string // database/sql driver name

	// Schema statements, executed in order. Each must be idempotent.
	Schema []string

	// InsertDevice takes (active_time, create_time, id, name, online, sub, time_zone, update_time, device_type)
	// and must do nothing when a row with the same id exists.
	InsertDevice string

	// InsertStatus takes (code, value, device_id, id, update_time)
	InsertStatus string
}

// Store implements core.DeviceWriter on top of a *sql.DB
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
	newID   func(deviceID string, capturedAt time.Time) string

	schemaMu    sync.Mutex
	schemaReady bool
}

// New wraps an open database handle
func New(db *sql.DB, dialect Dialect, logger *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:      db,
		dialect: dialect,
		logger:  logger.With("dialect", dialect.Name),
		newID:   idgen.NewStatusID,
	}, nil
}

// DB exposes the underlying handle
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the dialect the store was created with
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Ping verifies the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &core.WriteError{Kind: core.KindConnection, Err: err}
	}
	return nil
}

// EnsureSchema creates the device and device_status tables if they do not exist.
// It never alters existing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()

	if s.schemaReady {
		return nil
	}

	for _, stmt := range s.dialect.Schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	s.schemaReady = true
	s.logger.Debug("Schema ready")
	return nil
}

// WriteDevices inserts each device (no-op if it already exists) followed by one new
// status row per status entry. All statements share one connection but not one
// transaction: on failure the rows written so far are kept and the error is returned.
func (s *Store) WriteDevices(ctx context.Context, devices []core.Device, capturedAt time.Time) error {
	if err := s.EnsureSchema(ctx); err != nil {
		return &core.WriteError{Kind: core.KindConnection, Err: err}
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return &core.WriteError{Kind: core.KindConnection, Err: fmt.Errorf("failed to get connection: %w", err)}
	}
	defer conn.Close()

	insertStatus, err := conn.PrepareContext(ctx, s.dialect.InsertStatus)
	if err != nil {
		return &core.WriteError{Kind: core.KindQueryFailed, Err: fmt.Errorf("failed to prepare status insert: %w", err)}
	}
	defer insertStatus.Close()

	capturedAt = capturedAt.UTC()
	var devicesInserted int64
	statusesInserted := 0

	for i := range devices {
		device := &devices[i]

		res, err := conn.ExecContext(ctx, s.dialect.InsertDevice,
			device.ActiveTime,
			device.CreateTime,
			device.ID,
			device.Name,
			device.Online,
			device.Sub,
			device.TimeZone,
			device.UpdateTime,
			device.DeviceType,
		)
		if err != nil {
			return &core.WriteError{Kind: core.KindQueryFailed, DeviceID: device.ID, Err: fmt.Errorf("failed to insert device: %w", err)}
		}
		if n, err := res.RowsAffected(); err == nil {
			devicesInserted += n
		}

		for _, status := range device.Status {
			_, err := insertStatus.ExecContext(ctx,
				status.Code,
				statusValue(status),
				device.ID,
				s.newID(device.ID, capturedAt),
				capturedAt,
			)
			if err != nil {
				return &core.WriteError{Kind: core.KindQueryFailed, DeviceID: device.ID, Code: status.Code, Err: fmt.Errorf("failed to insert status: %w", err)}
			}
			statusesInserted++
		}
	}

	s.logger.Debug("Cycle written",
		"devices", len(devices),
		"new_devices", devicesInserted,
		"statuses", statusesInserted,
		"captured_at", capturedAt)

	return nil
}

// Close closes the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// statusValue renders the reading as stored in device_status.value
func statusValue(status core.Status) string {
	if len(status.Value) == 0 {
		return "null"
	}
	return string(status.Value)
}

var _ core.DeviceWriter = (*Store)(nil)
