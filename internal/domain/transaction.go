package domain

import "time"

// Transaction is an immutable settlement record. Items is the JSON-encoded
// line-item list as received. UserID empty means a guest sale.
type Transaction struct {
	TransactionID string    `gorm:"primaryKey;size:32" json:"transaction_id"`
	UserID        string    `gorm:"index;size:64" json:"user_id"`
	DeviceID      string    `gorm:"index;size:64" json:"device_id"`
	Items         string    `json:"items"`
	TotalAmount   float64   `gorm:"not null" json:"total_amount"`
	ClientRef     string    `gorm:"index;size:64" json:"client_ref,omitempty"`
	PaymentStatus string    `gorm:"size:16" json:"payment_status"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}
