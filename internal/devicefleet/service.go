// Package devicefleet tracks the vending units themselves: a registry of
// devices and their ad-hoc telemetry payloads.
package devicefleet

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
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Service struct {
	db     *gorm.DB
	events *eventlog.Logger
}

func NewService(db *gorm.DB, events *eventlog.Logger) *Service {
	return &Service{db: db, events: events}
}

// RegisterRequest registers or re-registers a device. Re-registration is an
// upsert, matching the fleet's provisioning flow where a machine announces
// itself on every boot.
type RegisterRequest struct {
	DeviceID    string `json:"device_id"`
	DeviceName  string `json:"device_name"`
	DeviceType  string `json:"device_type"`
	Description string `json:"description"`
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) error {
	if req.DeviceID == "" {
		return errs.Validation("MISSING_DEVICE_ID", "Missing Device ID", "device_id")
	}

	now := time.Now()
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "device_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"device_name": req.DeviceName,
			"device_type": req.DeviceType,
			"description": req.Description,
			"status":      common.ACTIVE,
			"last_seen":   now,
			"updated_at":  now,
		}),
	}).Create(&domain.Device{
		DeviceID:    req.DeviceID,
		DeviceName:  req.DeviceName,
		DeviceType:  req.DeviceType,
		Description: req.Description,
		Status:      common.ACTIVE,
		LastSeen:    now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}).Error
	if err != nil {
		return errs.Internal(err)
	}

	if s.events != nil {
		s.events.Append("device_register", fmt.Sprintf("Device %s registered", req.DeviceID),
			map[string]interface{}{"device_id": req.DeviceID, "device_type": req.DeviceType})
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]domain.Device, error) {
	var devices []domain.Device
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&devices).Error; err != nil {
		return nil, errs.Internal(err)
	}
	return devices, nil
}

func (s *Service) GetByID(ctx context.Context, deviceID string) (*domain.Device, error) {
	var device domain.Device
	err := s.db.WithContext(ctx).Where("device_id = ?", deviceID).First(&device).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("DEVICE_NOT_FOUND", "Device not found")
		}
		return nil, errs.Internal(err)
	}
	return &device, nil
}

// AppendData stores one telemetry payload and refreshes the device
// heartbeat.
func (s *Service) AppendData(ctx context.Context, deviceID, dataType string, payload map[string]interface{}, at time.Time) error {
	if deviceID == "" {
		return errs.Validation("MISSING_DEVICE_ID", "Missing Device ID", "device_id")
	}
	if at.IsZero() {
		at = time.Now()
	}

	blob, err := json.Marshal(payload)
	if err != nil {
		return errs.Internal(err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&domain.DeviceDataLog{
			DeviceID:  deviceID,
			DataType:  dataType,
			Payload:   string(blob),
			Timestamp: at,
		}).Error; err != nil {
			return err
		}
		tx.Model(&domain.Device{}).Where("device_id = ?", deviceID).
			Updates(map[string]interface{}{"last_seen": at, "status": common.ACTIVE})
		return nil
	})
	if err != nil {
		return errs.Internal(err)
	}
	return nil
}

// QueryData returns the newest records for a device, optionally filtered by
// type.
func (s *Service) QueryData(ctx context.Context, deviceID, dataType string, limit int) ([]domain.DeviceDataLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	q := s.db.WithContext(ctx).Where("device_id = ?", deviceID)
	if dataType != "" {
		q = q.Where("data_type = ?", dataType)
	}

	var rows []domain.DeviceDataLog
	if err := q.Order("timestamp DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, errs.Internal(err)
	}
	return rows, nil
}

// SweepStale flags devices whose heartbeat is older than maxAge as offline
// and returns how many were flagged. Run from the cron scheduler.
func (s *Service) SweepStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	res := s.db.WithContext(ctx).Model(&domain.Device{}).
		Where("status = ? AND last_seen < ?", common.ACTIVE, cutoff).
		Update("status", common.OFFLINE)
	if res.Error != nil {
		return 0, errs.Internal(res.Error)
	}
	return res.RowsAffected, nil
}
