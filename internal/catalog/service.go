// Package catalog owns the master item list and the per-device stock and
// price-override tables, and resolves the effective per-device product view.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/vendlink/vendcentral/internal/domain"
	"github.com/vendlink/vendcentral/internal/errs"
	"github.com/vendlink/vendcentral/internal/eventlog"
	"github.com/vendlink/vendcentral/pkg/metrics"
	"github.com/vendlink/vendcentral/pkg/optional"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Cost basis is fixed at this share of the sell price when an item is first
// created, and deliberately not recomputed on later price changes.
const costPriceRatio = 0.7

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Service struct {
	db       *gorm.DB
	rdb      *redis.Client
	cacheTTL time.Duration
	events   *eventlog.Logger
}

// NewService builds the catalog store. rdb and events may be nil; the
// service degrades to uncached, unlogged operation.
func NewService(db *gorm.DB, rdb *redis.Client, cacheTTL time.Duration, events *eventlog.Logger) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &Service{db: db, rdb: rdb, cacheTTL: cacheTTL, events: events}
}

// SyncProduct is one entry of a device's absolute catalog snapshot.
type SyncProduct struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Quantity int64   `json:"quantity"`
}

// EffectiveItem is the resolved per-device view of one catalog row.
// UnitsLeft is nil in the master (device-less) view where stock has no
// meaning; Custom reports whether any override was applied.
type EffectiveItem struct {
	ItemName    string  `json:"item_name"`
	Price       float64 `json:"price"`
	CostPrice   float64 `json:"cost_price"`
	UnitsSold   int64   `json:"units_sold"`
	Description string  `json:"description"`
	UnitsLeft   *int64  `json:"units_left,omitempty"`
	Custom      bool    `json:"custom"`
}

// StatRow is one line of the units-sold ranking.
type StatRow struct {
	ItemName  string `json:"item_name"`
	UnitsSold int64  `json:"units_sold"`
}

// SyncBatch applies a device's absolute catalog snapshot: upsert of every
// master item plus an absolute-quantity stock upsert for the device. The
// whole batch commits or rolls back as one unit, so replaying an identical
// payload is a no-op beyond refreshed timestamps.
func (s *Service) SyncBatch(ctx context.Context, deviceID string, products []SyncProduct) (int, error) {
	if deviceID == "" {
		return 0, errs.Validation("MISSING_DEVICE_ID", "Missing Device ID", "device_id")
	}

	count := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for _, p := range products {
			if p.Name == "" {
				return errs.Validation("MISSING_NAME", "Product name is required", "name")
			}
			if err := upsertMasterItem(tx, p.Name, p.Price, p.Image, now); err != nil {
				return errors.Wrap(err, "sync master item")
			}
			if err := upsertDeviceStock(tx, deviceID, p.Name, p.Quantity, now); err != nil {
				return errors.Wrap(err, "sync device stock")
			}
			count++
		}
		touchDevice(tx, deviceID, now)
		return nil
	})
	if err != nil {
		if errs.KindOf(err) != errs.KindInternal {
			return 0, err
		}
		return 0, errs.Internal(err)
	}

	s.bumpCache(ctx)
	metrics.AddPoint(metrics.MetricSyncItems, float64(count))
	if s.events != nil {
		s.events.Append("batch_sync", fmt.Sprintf("Synced %d items for %s", count, deviceID),
			map[string]interface{}{"device_id": deviceID, "count": count})
	}
	return count, nil
}

// upsertMasterItem inserts or updates a master row by name. Updates touch
// only price and description: units_sold belongs to settlement and
// cost_price keeps its insert-time value.
func upsertMasterItem(tx *gorm.DB, name string, price float64, image string, now time.Time) error {
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "item_name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"price":       price,
			"description": fmt.Sprintf("Image: %s", image),
			"updated_at":  now,
		}),
	}).Create(&domain.CatalogItem{
		ItemName:    name,
		Price:       price,
		CostPrice:   price * costPriceRatio,
		Description: fmt.Sprintf("Image: %s", image),
		CreatedAt:   now,
		UpdatedAt:   now,
	}).Error
}

// upsertDeviceStock sets the (device, item) row to the given absolute
// quantity. Sync pushes snapshots, not deltas.
func upsertDeviceStock(tx *gorm.DB, deviceID, name string, qty int64, now time.Time) error {
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "device_id"}, {Name: "item_name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"units_left":   qty,
			"last_updated": now,
		}),
	}).Create(&domain.DeviceStock{
		DeviceID:    deviceID,
		ItemName:    name,
		UnitsLeft:   qty,
		LastUpdated: now,
	}).Error
}

// touchDevice refreshes the registry heartbeat; a device that never
// registered simply matches zero rows.
func touchDevice(tx *gorm.DB, deviceID string, now time.Time) {
	tx.Model(&domain.Device{}).Where("device_id = ?", deviceID).
		Updates(map[string]interface{}{"last_seen": now, "status": "active"})
}

// SetCustomPrice upserts the (device, item) price override. An omitted field
// keeps whatever was stored before; an explicit null clears the override and
// that field falls back to the master value.
func (s *Service) SetCustomPrice(ctx context.Context, deviceID, itemName string, price, cost optional.Float64) error {
	if deviceID == "" {
		return errs.Validation("MISSING_DEVICE_ID", "Missing Device ID", "device_id")
	}
	if itemName == "" {
		return errs.Validation("MISSING_ITEM_NAME", "Missing item name", "item_name")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.CatalogItem{}).Where("item_name = ?", itemName).Count(&count).Error; err != nil {
			return errs.Internal(err)
		}
		if count == 0 {
			return errs.NotFound("ITEM_NOT_FOUND", "Item not found in master catalog")
		}

		var row domain.DevicePricing
		err := tx.Where("device_id = ? AND item_name = ?", deviceID, itemName).First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = domain.DevicePricing{
				DeviceID:        deviceID,
				ItemName:        itemName,
				CustomPrice:     price.Ptr(),
				CustomCostPrice: cost.Ptr(),
			}
			if err := tx.Create(&row).Error; err != nil {
				return errs.Internal(err)
			}
			return nil
		case err != nil:
			return errs.Internal(err)
		}

		updates := map[string]interface{}{}
		if price.Present {
			updates["custom_price"] = price.Ptr()
		}
		if cost.Present {
			updates["custom_cost_price"] = cost.Ptr()
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&domain.DevicePricing{}).Where("id = ?", row.ID).Updates(updates).Error; err != nil {
			return errs.Internal(err)
		}
		return nil
	})
	if err != nil {
		return errs.AsError(err)
	}

	s.bumpCache(ctx)
	if s.events != nil {
		s.events.Append("custom_price", fmt.Sprintf("Custom price set for %s on %s", itemName, deviceID),
			map[string]interface{}{"device_id": deviceID, "item_name": itemName})
	}
	return nil
}

type effectiveRow struct {
	ItemName        string
	Price           float64
	CostPrice       float64
	UnitsSold       int64
	Description     string
	UnitsLeft       int64
	CustomPrice     *float64
	CustomCostPrice *float64
}

// Resolve returns the effective catalog. With an empty deviceID it is the
// master list with no stock; with a device it is the left-join overlay of
// that device's stock and price overrides. Ordering is not part of the
// contract.
func (s *Service) Resolve(ctx context.Context, deviceID string) ([]EffectiveItem, error) {
	if cached, ok := s.cacheGet(ctx, deviceID); ok {
		return cached, nil
	}

	var result []EffectiveItem
	if deviceID == "" {
		var items []domain.CatalogItem
		if err := s.db.WithContext(ctx).Find(&items).Error; err != nil {
			return nil, errs.Internal(err)
		}
		result = make([]EffectiveItem, 0, len(items))
		for _, it := range items {
			result = append(result, EffectiveItem{
				ItemName:    it.ItemName,
				Price:       it.Price,
				CostPrice:   it.CostPrice,
				UnitsSold:   it.UnitsSold,
				Description: it.Description,
			})
		}
	} else {
		var rows []effectiveRow
		err := s.db.WithContext(ctx).Table("inventory i").
			Select("i.item_name, i.price, i.cost_price, i.units_sold, i.description,"+
				" COALESCE(d.units_left, 0) AS units_left, dp.custom_price, dp.custom_cost_price").
			Joins("LEFT JOIN device_inventory d ON d.item_name = i.item_name AND d.device_id = ?", deviceID).
			Joins("LEFT JOIN device_pricing dp ON dp.item_name = i.item_name AND dp.device_id = ?", deviceID).
			Scan(&rows).Error
		if err != nil {
			return nil, errs.Internal(err)
		}
		result = make([]EffectiveItem, 0, len(rows))
		for _, r := range rows {
			item := EffectiveItem{
				ItemName:    r.ItemName,
				Price:       r.Price,
				CostPrice:   r.CostPrice,
				UnitsSold:   r.UnitsSold,
				Description: r.Description,
			}
			left := r.UnitsLeft
			item.UnitsLeft = &left
			if r.CustomPrice != nil {
				item.Price = *r.CustomPrice
				item.Custom = true
			}
			if r.CustomCostPrice != nil {
				item.CostPrice = *r.CustomCostPrice
				item.Custom = true
			}
			result = append(result, item)
		}
	}

	s.cacheSet(ctx, deviceID, result)
	return result, nil
}

// SalesStats ranks master items by cumulative units sold.
func (s *Service) SalesStats(ctx context.Context) ([]StatRow, error) {
	var rows []StatRow
	err := s.db.WithContext(ctx).Model(&domain.CatalogItem{}).
		Select("item_name, units_sold").
		Order("units_sold DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, errs.Internal(err)
	}
	return rows, nil
}

// Cache keys embed a generation counter so any catalog mutation invalidates
// every cached view with a single INCR.

func (s *Service) cacheKey(ctx context.Context, deviceID string) string {
	ver, err := s.rdb.Get(ctx, "catalog:ver").Result()
	if err != nil {
		ver = "0"
	}
	if deviceID == "" {
		deviceID = "_master"
	}
	return fmt.Sprintf("catalog:%s:%s", ver, deviceID)
}

func (s *Service) bumpCache(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Incr(ctx, "catalog:ver").Err(); err != nil {
		zap.L().Debug("catalog cache bump failed", zap.Error(err))
	}
}

func (s *Service) cacheGet(ctx context.Context, deviceID string) ([]EffectiveItem, bool) {
	if s.rdb == nil {
		return nil, false
	}
	data, err := s.rdb.Get(ctx, s.cacheKey(ctx, deviceID)).Bytes()
	if err != nil {
		return nil, false
	}
	var items []EffectiveItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false
	}
	return items, true
}

func (s *Service) cacheSet(ctx context.Context, deviceID string, items []EffectiveItem) {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, s.cacheKey(ctx, deviceID), data, s.cacheTTL).Err(); err != nil {
		zap.L().Debug("catalog cache set failed", zap.Error(err))
	}
}

// InvalidateCache drops every cached catalog view. Settlement calls this
// after committing stock changes.
func (s *Service) InvalidateCache(ctx context.Context) {
	s.bumpCache(ctx)
}

// ItemCount is a convenience used by the health endpoint.
func (s *Service) ItemCount(ctx context.Context) int64 {
	var n int64
	s.db.WithContext(ctx).Model(&domain.CatalogItem{}).Count(&n)
	return n
}
