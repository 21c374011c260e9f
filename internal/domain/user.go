package domain

import "time"

// User is a fleet customer. UserID is opaque and client-supplied. Password
// holds a bcrypt hash; Points is overwritten wholesale by settlement, never
// incremented server-side.
type User struct {
	UserID      string    `gorm:"primaryKey;size:64" json:"user_id"`
	FullName    string    `gorm:"not null" json:"full_name"`
	PhoneNumber string    `gorm:"uniqueIndex;size:32;not null" json:"phone_number"`
	Birthday    string    `json:"birthday"`
	Password    string    `gorm:"not null" json:"-"`
	Points      int64     `gorm:"default:0" json:"points"`
	Status      string    `gorm:"size:16;default:active" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// UserProfile is the public projection of a user.
type UserProfile struct {
	UserID      string `json:"user_id"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Points      int64  `json:"points"`
}
