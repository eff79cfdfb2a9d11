package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"hometemp/internal/core"
	"hometemp/internal/idgen"
	"hometemp/internal/storage/sqlstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *sqlstore.Store {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := New(dbPath, nil)
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(context.Background()))

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func livingRoom() core.Device {
	return core.Device{
		ID:         "d1",
		Name:       "Living Room",
		Online:     true,
		Sub:        false,
		TimeZone:   "UTC",
		DeviceType: "thermostat",
		CreateTime: 1,
		UpdateTime: 1,
		ActiveTime: 1,
		Status: []core.Status{
			{Code: "temp_current", Value: json.RawMessage("21.5")},
		},
	}
}

func countRows(t *testing.T, store *sqlstore.Store, table string) int {
	var n int
	err := store.DB().QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestSQLiteStore_WriteDevices(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	capturedAt := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	err := store.WriteDevices(ctx, []core.Device{livingRoom()}, capturedAt)
	require.NoError(t, err)

	// Device row
	var (
		id, name, timeZone, deviceType string
		online, sub                    bool
		activeTime, createTime, update int64
	)
	err = store.DB().QueryRow(`SELECT id, name, online, sub, time_zone, device_type, active_time, create_time, update_time FROM device`).
		Scan(&id, &name, &online, &sub, &timeZone, &deviceType, &activeTime, &createTime, &update)
	require.NoError(t, err)
	assert.Equal(t, "d1", id)
	assert.Equal(t, "Living Room", name)
	assert.True(t, online)
	assert.False(t, sub)
	assert.Equal(t, "UTC", timeZone)
	assert.Equal(t, "thermostat", deviceType)
	assert.Equal(t, int64(1), activeTime)
	assert.Equal(t, int64(1), createTime)
	assert.Equal(t, int64(1), update)

	// Status row
	var code, value, deviceID, statusID string
	var updateTime time.Time
	err = store.DB().QueryRow(`SELECT code, value, device_id, id, update_time FROM device_status`).
		Scan(&code, &value, &deviceID, &statusID, &updateTime)
	require.NoError(t, err)
	assert.Equal(t, "temp_current", code)
	assert.Equal(t, "21.5", value)
	assert.Equal(t, "d1", deviceID)
	assert.True(t, capturedAt.Equal(updateTime))

	recovered, ok := idgen.StatusCapturedAt(statusID)
	require.True(t, ok)
	assert.True(t, capturedAt.Equal(recovered))
}

func TestSQLiteStore_DeviceInsertIsNoOpOnConflict(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	first := livingRoom()
	require.NoError(t, store.WriteDevices(ctx, []core.Device{first}, start))

	// Same id, changed attributes: the stored row must be left alone
	second := livingRoom()
	second.Name = "Renamed"
	second.Online = false
	second.CreateTime = 99
	require.NoError(t, store.WriteDevices(ctx, []core.Device{second}, start.Add(30*time.Second)))

	assert.Equal(t, 1, countRows(t, store, "device"))
	assert.Equal(t, 2, countRows(t, store, "device_status"))

	var name string
	var createTime int64
	err := store.DB().QueryRow(`SELECT name, create_time FROM device WHERE id = 'd1'`).Scan(&name, &createTime)
	require.NoError(t, err)
	assert.Equal(t, "Living Room", name)
	assert.Equal(t, int64(1), createTime)
}

func TestSQLiteStore_StatusHistoryAccumulates(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	devices := []core.Device{
		livingRoom(),
		{
			ID:   "d2",
			Name: "Bedroom",
			Status: []core.Status{
				{Code: "va_temperature", Value: json.RawMessage("195")},
				{Code: "mode", Value: json.RawMessage(`"manual"`)},
			},
		},
	}

	for i := 0; i < 3; i++ {
		require.NoError(t, store.WriteDevices(ctx, devices, start.Add(time.Duration(i)*30*time.Second)))
	}

	assert.Equal(t, 2, countRows(t, store, "device"))
	assert.Equal(t, 9, countRows(t, store, "device_status"))

	var perCycle int
	err := store.DB().QueryRow(`SELECT COUNT(DISTINCT update_time) FROM device_status WHERE device_id = 'd2'`).Scan(&perCycle)
	require.NoError(t, err)
	assert.Equal(t, 3, perCycle)

	// Structured values keep their JSON text
	var mode string
	err = store.DB().QueryRow(`SELECT value FROM device_status WHERE code = 'mode' LIMIT 1`).Scan(&mode)
	require.NoError(t, err)
	assert.Equal(t, `"manual"`, mode)
}

func TestSQLiteStore_EmptyCycle(t *testing.T) {
	store := setupTestStore(t)

	err := store.WriteDevices(context.Background(), []core.Device{}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, countRows(t, store, "device"))
}

func TestSQLiteStore_DeviceWithoutStatus(t *testing.T) {
	store := setupTestStore(t)

	device := livingRoom()
	device.Status = nil
	require.NoError(t, store.WriteDevices(context.Background(), []core.Device{device}, time.Now()))

	assert.Equal(t, 1, countRows(t, store, "device"))
	assert.Equal(t, 0, countRows(t, store, "device_status"))
}

func TestSQLiteStore_CreatesSchemaOnFirstWrite(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "lazy.db"), nil)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.WriteDevices(context.Background(), []core.Device{livingRoom()}, time.Now()))
	assert.Equal(t, 1, countRows(t, store, "device"))
}

func TestSQLiteStore_EnsureSchemaIdempotent(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, store.EnsureSchema(context.Background()))

	// A second store over the same file must accept the existing tables
	path := filepath.Join(t.TempDir(), "shared.db")
	a, err := New(path, nil)
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.EnsureSchema(context.Background()))

	b, err := New(path, nil)
	require.NoError(t, err)
	defer b.Close()
	require.NoError(t, b.EnsureSchema(context.Background()))
}

func TestSQLiteStore_Ping(t *testing.T) {
	store := setupTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "file:/tmp/home-temp.db?_busy_timeout=5000&_foreign_keys=on", DSN("/tmp/home-temp.db"))
}
