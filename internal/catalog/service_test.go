package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendlink/vendcentral/internal/domain"
	"github.com/vendlink/vendcentral/internal/errs"
	"github.com/vendlink/vendcentral/pkg/optional"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.Tables...))
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	db := newTestDB(t)
	return NewService(db, nil, 0, nil), db
}

func findItem(t *testing.T, items []EffectiveItem, name string) EffectiveItem {
	t.Helper()
	for _, it := range items {
		if it.ItemName == name {
			return it
		}
	}
	t.Fatalf("item %s not in resolved catalog", name)
	return EffectiveItem{}
}

func TestSyncBatchAndResolveDevice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	count, err := svc.SyncBatch(ctx, "D1", []SyncProduct{
		{Name: "Coke", Price: 15000, Image: "coke.png", Quantity: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	items, err := svc.Resolve(ctx, "D1")
	require.NoError(t, err)
	require.Len(t, items, 1)

	it := items[0]
	assert.Equal(t, "Coke", it.ItemName)
	assert.Equal(t, 15000.0, it.Price)
	require.NotNil(t, it.UnitsLeft)
	assert.EqualValues(t, 10, *it.UnitsLeft)
	assert.False(t, it.Custom)
	assert.Equal(t, 15000*0.7, it.CostPrice)
}

func TestSyncBatchIdempotent(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	payload := []SyncProduct{
		{Name: "Coke", Price: 15000, Quantity: 10},
		{Name: "Pepsi", Price: 14000, Quantity: 5},
	}
	_, err := svc.SyncBatch(ctx, "D1", payload)
	require.NoError(t, err)
	first, err := svc.Resolve(ctx, "D1")
	require.NoError(t, err)

	_, err = svc.SyncBatch(ctx, "D1", payload)
	require.NoError(t, err)
	second, err := svc.Resolve(ctx, "D1")
	require.NoError(t, err)

	assert.ElementsMatch(t, first, second)

	var n int64
	db.Model(&domain.CatalogItem{}).Count(&n)
	assert.EqualValues(t, 2, n)
	db.Model(&domain.DeviceStock{}).Count(&n)
	assert.EqualValues(t, 2, n)
}

func TestSyncUpdateKeepsCostBasisAndUnitsSold(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	_, err := svc.SyncBatch(ctx, "D1", []SyncProduct{{Name: "Coke", Price: 10000, Quantity: 3}})
	require.NoError(t, err)

	require.NoError(t, db.Model(&domain.CatalogItem{}).
		Where("item_name = ?", "Coke").Update("units_sold", 7).Error)

	// price change: cost basis and counters must survive
	_, err = svc.SyncBatch(ctx, "D1", []SyncProduct{{Name: "Coke", Price: 20000, Quantity: 3}})
	require.NoError(t, err)

	var item domain.CatalogItem
	require.NoError(t, db.Where("item_name = ?", "Coke").First(&item).Error)
	assert.Equal(t, 20000.0, item.Price)
	assert.Equal(t, 10000*0.7, item.CostPrice)
	assert.EqualValues(t, 7, item.UnitsSold)
}

func TestSyncBatchMissingDeviceID(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.SyncBatch(context.Background(), "", []SyncProduct{{Name: "Coke", Price: 1}})
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestResolveMasterHasNoStock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SyncBatch(ctx, "D1", []SyncProduct{{Name: "Coke", Price: 15000, Quantity: 10}})
	require.NoError(t, err)

	items, err := svc.Resolve(ctx, "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].UnitsLeft)
}

func TestOverridePrecedence(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SyncBatch(ctx, "D1", []SyncProduct{{Name: "Coke", Price: 15000, Quantity: 10}})
	require.NoError(t, err)
	_, err = svc.SyncBatch(ctx, "D2", []SyncProduct{{Name: "Coke", Price: 15000, Quantity: 4}})
	require.NoError(t, err)

	require.NoError(t, svc.SetCustomPrice(ctx, "D1", "Coke", optional.Of(12000), optional.Float64{}))

	d1, err := svc.Resolve(ctx, "D1")
	require.NoError(t, err)
	assert.Equal(t, 12000.0, findItem(t, d1, "Coke").Price)
	assert.True(t, findItem(t, d1, "Coke").Custom)

	master, err := svc.Resolve(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 15000.0, findItem(t, master, "Coke").Price)

	d2, err := svc.Resolve(ctx, "D2")
	require.NoError(t, err)
	assert.Equal(t, 15000.0, findItem(t, d2, "Coke").Price)
	assert.False(t, findItem(t, d2, "Coke").Custom)
}

func TestOverrideUnknownItem(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.SetCustomPrice(context.Background(), "D1", "Nope", optional.Of(1), optional.Float64{})
	require.Error(t, err)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestOverrideOmittedPreservesNullClears(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	_, err := svc.SyncBatch(ctx, "D1", []SyncProduct{{Name: "Coke", Price: 15000, Quantity: 10}})
	require.NoError(t, err)

	// set both fields
	require.NoError(t, svc.SetCustomPrice(ctx, "D1", "Coke", optional.Of(12000), optional.Of(8000)))

	// omitted price keeps 12000, explicit cost update applies
	require.NoError(t, svc.SetCustomPrice(ctx, "D1", "Coke", optional.Float64{}, optional.Of(9000)))
	var row domain.DevicePricing
	require.NoError(t, db.Where("device_id = ? AND item_name = ?", "D1", "Coke").First(&row).Error)
	require.NotNil(t, row.CustomPrice)
	assert.Equal(t, 12000.0, *row.CustomPrice)
	require.NotNil(t, row.CustomCostPrice)
	assert.Equal(t, 9000.0, *row.CustomCostPrice)

	// explicit null clears the price override, cost untouched
	require.NoError(t, svc.SetCustomPrice(ctx, "D1", "Coke", optional.Null(), optional.Float64{}))
	require.NoError(t, db.Where("device_id = ? AND item_name = ?", "D1", "Coke").First(&row).Error)
	assert.Nil(t, row.CustomPrice)
	require.NotNil(t, row.CustomCostPrice)
	assert.Equal(t, 9000.0, *row.CustomCostPrice)

	// cleared price falls back to master
	items, err := svc.Resolve(ctx, "D1")
	require.NoError(t, err)
	it := findItem(t, items, "Coke")
	assert.Equal(t, 15000.0, it.Price)
	// cost override still applied
	assert.Equal(t, 9000.0, it.CostPrice)
	assert.True(t, it.Custom)
}

func TestStockDefaultsToZeroWithoutRow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SyncBatch(ctx, "D1", []SyncProduct{{Name: "Coke", Price: 15000, Quantity: 10}})
	require.NoError(t, err)

	// D2 never synced Coke: effective stock is zero, not missing
	items, err := svc.Resolve(ctx, "D2")
	require.NoError(t, err)
	it := findItem(t, items, "Coke")
	require.NotNil(t, it.UnitsLeft)
	assert.EqualValues(t, 0, *it.UnitsLeft)
}

func TestSalesStatsOrdering(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	_, err := svc.SyncBatch(ctx, "D1", []SyncProduct{
		{Name: "Coke", Price: 15000, Quantity: 1},
		{Name: "Pepsi", Price: 14000, Quantity: 1},
	})
	require.NoError(t, err)
	require.NoError(t, db.Model(&domain.CatalogItem{}).Where("item_name = ?", "Pepsi").Update("units_sold", 9).Error)
	require.NoError(t, db.Model(&domain.CatalogItem{}).Where("item_name = ?", "Coke").Update("units_sold", 3).Error)

	rows, err := svc.SalesStats(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Pepsi", rows[0].ItemName)
	assert.EqualValues(t, 9, rows[0].UnitsSold)
	assert.Equal(t, "Coke", rows[1].ItemName)
}
