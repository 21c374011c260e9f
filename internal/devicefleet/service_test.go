package devicefleet

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendlink/vendcentral/internal/domain"
	"github.com/vendlink/vendcentral/internal/errs"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.Tables...))
	return NewService(db, nil), db
}

func TestRegisterIsUpsert(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, RegisterRequest{
		DeviceID: "D1", DeviceName: "Lobby", DeviceType: "vending",
	}))
	require.NoError(t, svc.Register(ctx, RegisterRequest{
		DeviceID: "D1", DeviceName: "Lobby East", DeviceType: "vending",
	}))

	var n int64
	db.Model(&domain.Device{}).Count(&n)
	assert.EqualValues(t, 1, n)

	device, err := svc.GetByID(ctx, "D1")
	require.NoError(t, err)
	assert.Equal(t, "Lobby East", device.DeviceName)
	assert.Equal(t, "active", device.Status)
}

func TestRegisterRequiresDeviceID(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.Register(context.Background(), RegisterRequest{DeviceName: "Ghost"})
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestGetByIDMiss(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.GetByID(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestAppendAndQueryData(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, RegisterRequest{DeviceID: "D1"}))

	base := time.Now().Add(-time.Minute)
	require.NoError(t, svc.AppendData(ctx, "D1", "sensor", map[string]interface{}{"temp": 4.5}, base))
	require.NoError(t, svc.AppendData(ctx, "D1", "sensor", map[string]interface{}{"temp": 5.1}, base.Add(10*time.Second)))
	require.NoError(t, svc.AppendData(ctx, "D1", "door", map[string]interface{}{"open": true}, base.Add(20*time.Second)))

	rows, err := svc.QueryData(ctx, "D1", "", 100)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	// newest first
	assert.Equal(t, "door", rows[0].DataType)

	rows, err = svc.QueryData(ctx, "D1", "sensor", 100)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = svc.QueryData(ctx, "D1", "sensor", 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0].Payload, "5.1")
}

func TestSweepStale(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, RegisterRequest{DeviceID: "fresh"}))
	require.NoError(t, svc.Register(ctx, RegisterRequest{DeviceID: "stale"}))
	require.NoError(t, db.Model(&domain.Device{}).Where("device_id = ?", "stale").
		Update("last_seen", time.Now().Add(-time.Hour)).Error)

	n, err := svc.SweepStale(ctx, 15*time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	stale, err := svc.GetByID(ctx, "stale")
	require.NoError(t, err)
	assert.Equal(t, "offline", stale.Status)

	fresh, err := svc.GetByID(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, "active", fresh.Status)
}
