package domain

import "time"

// Device is one vending unit in the fleet registry.
type Device struct {
	DeviceID    string    `gorm:"primaryKey;size:64" json:"device_id"`
	DeviceName  string    `json:"device_name"`
	DeviceType  string    `gorm:"size:32" json:"device_type"`
	Description string    `json:"description"`
	Status      string    `gorm:"size:16;default:active" json:"status"`
	LastSeen    time.Time `json:"last_seen"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Device) TableName() string {
	return "devices"
}

// DeviceDataLog is an ad-hoc telemetry record pushed by a device
// (sensor readings, door events and so on), payload stored as JSON.
type DeviceDataLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	DeviceID  string    `gorm:"index;size:64;not null" json:"device_id"`
	DataType  string    `gorm:"index;size:32" json:"data_type"`
	Payload   string    `json:"payload"`
	Timestamp time.Time `gorm:"index" json:"timestamp"`
}

func (DeviceDataLog) TableName() string {
	return "device_data_logs"
}
