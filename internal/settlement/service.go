// Package settlement validates and records sales: the transaction row, the
// per-device stock decrements, the master units-sold increments and the
// optional loyalty-point overwrite are one atomic unit of work.
package settlement

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/vendlink/vendcentral/internal/domain"
	"github.com/vendlink/vendcentral/internal/errs"
	"github.com/vendlink/vendcentral/internal/eventlog"
	"github.com/vendlink/vendcentral/pkg/common"
	"github.com/vendlink/vendcentral/pkg/metrics"
	"gorm.io/gorm"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Service struct {
	db         *gorm.DB
	floorStock bool
	events     *eventlog.Logger
	invalidate func(ctx context.Context)
}

// NewService builds the settlement service. floorStock enables the
// insufficient-stock guard; invalidate (optional) is called after a commit
// that changed stock, events (optional) receives domain events.
func NewService(db *gorm.DB, floorStock bool, events *eventlog.Logger, invalidate func(ctx context.Context)) *Service {
	return &Service{db: db, floorStock: floorStock, events: events, invalidate: invalidate}
}

// Item is one sale line. The wire accepts either "name" or "product_name";
// a nil Quantity means one unit.
type Item struct {
	Name        string `json:"name"`
	ProductName string `json:"product_name"`
	Quantity    *int64 `json:"quantity"`
}

func (it Item) resolvedName() string {
	if it.Name != "" {
		return it.Name
	}
	return it.ProductName
}

func (it Item) resolvedQuantity() int64 {
	if it.Quantity == nil {
		return 1
	}
	return *it.Quantity
}

// CustomerInfo carries the optional loyalty update. NewTotalPoints is the
// client-computed absolute balance; it replaces the stored value outright.
type CustomerInfo struct {
	UserID         string `json:"user_id"`
	NewTotalPoints *int64 `json:"new_total_points"`
}

// Request is a settlement submission.
type Request struct {
	DeviceID     string        `json:"device_id"`
	TotalAmount  *float64      `json:"total_amount"`
	Items        []Item        `json:"items"`
	CustomerInfo *CustomerInfo `json:"customer_info"`
	// ClientRef is an optional idempotency token: resubmitting a request
	// with a ref that was already settled returns the original id without
	// applying effects again.
	ClientRef string `json:"client_ref"`
}

// Record settles a sale. Preconditions are checked before any mutation;
// afterwards every effect applies inside one database transaction, so an
// interrupted settlement leaves nothing behind.
func (s *Service) Record(ctx context.Context, req Request) (string, error) {
	if req.TotalAmount == nil {
		return "", errs.Validation("MISSING_TOTAL_AMOUNT", "total_amount is required", "total_amount")
	}
	if len(req.Items) == 0 {
		return "", errs.Validation("MISSING_ITEMS", "items must be a non-empty list", "items")
	}

	deviceID := req.DeviceID
	if deviceID == "" {
		deviceID = "UNKNOWN"
	}

	if req.ClientRef != "" {
		var prior domain.Transaction
		err := s.db.WithContext(ctx).
			Where("client_ref = ?", req.ClientRef).First(&prior).Error
		if err == nil {
			return prior.TransactionID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", errs.Internal(err)
		}
	}

	txid := common.NewTransactionID()
	now := time.Now()

	itemsBlob, err := json.Marshal(req.Items)
	if err != nil {
		return "", errs.Internal(err)
	}

	userID := ""
	if req.CustomerInfo != nil {
		userID = req.CustomerInfo.UserID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := domain.Transaction{
			TransactionID: txid,
			UserID:        userID,
			DeviceID:      deviceID,
			Items:         string(itemsBlob),
			TotalAmount:   *req.TotalAmount,
			ClientRef:     req.ClientRef,
			PaymentStatus: "completed",
			CreatedAt:     now,
		}
		if err := tx.Create(&row).Error; err != nil {
			return errs.Internal(err)
		}

		for _, it := range req.Items {
			name := it.resolvedName()
			if name == "" {
				// unnamed lines carry no inventory effect
				continue
			}
			qty := it.resolvedQuantity()

			if err := s.decrementStock(tx, deviceID, name, qty); err != nil {
				return err
			}

			// names absent from the master catalog match zero rows here,
			// which is the intended idempotent-miss behavior
			if err := tx.Model(&domain.CatalogItem{}).
				Where("item_name = ?", name).
				Update("units_sold", gorm.Expr("units_sold + ?", qty)).Error; err != nil {
				return errs.Internal(err)
			}
		}

		if req.CustomerInfo != nil && userID != "" && req.CustomerInfo.NewTotalPoints != nil {
			if err := tx.Model(&domain.User{}).
				Where("user_id = ?", userID).
				Updates(map[string]interface{}{
					"points":     *req.CustomerInfo.NewTotalPoints,
					"updated_at": now,
				}).Error; err != nil {
				return errs.Internal(err)
			}
		}

		return nil
	})
	if err != nil {
		return "", errs.AsError(err)
	}

	if s.invalidate != nil {
		s.invalidate(ctx)
	}
	metrics.AddPoint(metrics.MetricSettlementCount, 1)
	metrics.AddPoint(metrics.MetricSettlementAmount, *req.TotalAmount)
	if s.events != nil {
		s.events.Append("transaction", fmt.Sprintf("Recorded %s from %s", txid, deviceID),
			map[string]interface{}{"transaction_id": txid, "device_id": deviceID, "total_amount": *req.TotalAmount})
	}
	return txid, nil
}

// decrementStock applies one line's stock effect. Without the floor a
// missing row matches nothing and the miss is silent; with the floor an
// existing row may refuse the decrement and fail the settlement.
func (s *Service) decrementStock(tx *gorm.DB, deviceID, name string, qty int64) error {
	if !s.floorStock {
		return asInternal(tx.Model(&domain.DeviceStock{}).
			Where("device_id = ? AND item_name = ?", deviceID, name).
			Update("units_left", gorm.Expr("units_left - ?", qty)).Error)
	}

	res := tx.Model(&domain.DeviceStock{}).
		Where("device_id = ? AND item_name = ? AND units_left >= ?", deviceID, name, qty).
		Update("units_left", gorm.Expr("units_left - ?", qty))
	if res.Error != nil {
		return errs.Internal(res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// decide between "no such stock row" (silent miss) and "not enough"
	var count int64
	if err := tx.Model(&domain.DeviceStock{}).
		Where("device_id = ? AND item_name = ?", deviceID, name).
		Count(&count).Error; err != nil {
		return errs.Internal(err)
	}
	if count == 0 {
		return nil
	}
	return errs.Validation("INSUFFICIENT_STOCK",
		fmt.Sprintf("Insufficient stock for %s", name), "items")
}

func asInternal(err error) error {
	if err == nil {
		return nil
	}
	return errs.Internal(err)
}

// Filter narrows List results.
type Filter struct {
	Limit    int
	Offset   int
	DeviceID string
	UserID   string
}

// List returns transactions newest first plus the unfiltered-page total.
func (s *Service) List(ctx context.Context, f Filter) ([]domain.Transaction, int64, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	q := s.db.WithContext(ctx).Model(&domain.Transaction{})
	if f.DeviceID != "" {
		q = q.Where("device_id = ?", f.DeviceID)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errs.Internal(err)
	}

	var rows []domain.Transaction
	if err := q.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Find(&rows).Error; err != nil {
		return nil, 0, errs.Internal(err)
	}
	return rows, total, nil
}
