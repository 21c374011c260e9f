package domain

import "time"

// CatalogItem is a master catalog row. Stock never lives here; units_sold is
// the only mutable counter and only settlement touches it. CostPrice is fixed
// at 70% of the insert-time price and survives later price changes.
type CatalogItem struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemName    string    `gorm:"uniqueIndex;size:200;not null" json:"item_name"`
	Price       float64   `gorm:"not null" json:"price"`
	UnitsSold   int64     `gorm:"default:0" json:"units_sold"`
	CostPrice   float64   `gorm:"default:0" json:"cost_price"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (CatalogItem) TableName() string {
	return "inventory"
}

// DeviceStock holds the actual per-machine units_left for one item.
type DeviceStock struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	DeviceID    string    `gorm:"uniqueIndex:idx_device_item;size:64;not null" json:"device_id"`
	ItemName    string    `gorm:"uniqueIndex:idx_device_item;size:200;not null" json:"item_name"`
	UnitsLeft   int64     `gorm:"default:0" json:"units_left"`
	LastUpdated time.Time `json:"last_updated"`
}

func (DeviceStock) TableName() string {
	return "device_inventory"
}

// DevicePricing overrides the master price/cost for one device's view.
// Null columns mean "no override for this field".
type DevicePricing struct {
	ID              int64    `gorm:"primaryKey;autoIncrement" json:"id"`
	DeviceID        string   `gorm:"uniqueIndex:idx_device_price;size:64;not null" json:"device_id"`
	ItemName        string   `gorm:"uniqueIndex:idx_device_price;size:200;not null" json:"item_name"`
	CustomPrice     *float64 `json:"custom_price"`
	CustomCostPrice *float64 `json:"custom_cost_price"`
}

func (DevicePricing) TableName() string {
	return "device_pricing"
}
