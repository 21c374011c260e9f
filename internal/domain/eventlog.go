package domain

import "time"

// SysEventLog is the append-only domain event trail (registrations, syncs,
// settlements). Written asynchronously; rows are never updated.
type SysEventLog struct {
	ID        int64     `gorm:"primaryKey" json:"id,string"`
	EventType string    `gorm:"index;size:32" json:"event_type"`
	Message   string    `json:"message"`
	Metadata  string    `json:"metadata"`
	EventTime time.Time `gorm:"index" json:"event_time"`
}

func (SysEventLog) TableName() string {
	return "sys_event_log"
}
