// Package eventlog is the append-only domain event trail. Events are
// published on an in-process bus and persisted by async sinks; a failed or
// slow sink never propagates back into the operation that raised the event.
package eventlog

import (
	"time"

	"github.com/asaskevich/EventBus"
	jsoniter "github.com/json-iterator/go"
	"github.com/vendlink/vendcentral/internal/domain"
	"github.com/vendlink/vendcentral/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const topicDomainEvent = "vendcentral:event"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Event is one domain occurrence: registration, sync, settlement and so on.
type Event struct {
	Type     string
	Message  string
	Metadata map[string]interface{}
	At       time.Time
}

type Logger struct {
	bus EventBus.Bus
	db  *gorm.DB
}

// New builds the event logger with a zap sink and, when db is non-nil, a
// sys_event_log sink. Both run asynchronously off the publishing goroutine.
func New(db *gorm.DB) *Logger {
	l := &Logger{bus: EventBus.New(), db: db}
	_ = l.bus.SubscribeAsync(topicDomainEvent, l.logSink, false)
	if db != nil {
		_ = l.bus.SubscribeAsync(topicDomainEvent, l.dbSink, false)
	}
	return l
}

// Append publishes a domain event. Fire-and-forget: it never blocks on the
// sinks and never returns an error.
func (l *Logger) Append(eventType, message string, metadata map[string]interface{}) {
	l.bus.Publish(topicDomainEvent, Event{
		Type:     eventType,
		Message:  message,
		Metadata: metadata,
		At:       time.Now(),
	})
}

// Close drains pending async deliveries.
func (l *Logger) Close() {
	l.bus.WaitAsync()
}

func (l *Logger) logSink(ev Event) {
	fields := []zap.Field{
		zap.String("event_type", ev.Type),
		zap.Time("event_time", ev.At),
	}
	if len(ev.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", ev.Metadata))
	}
	zap.L().Info(ev.Message, fields...)
}

func (l *Logger) dbSink(ev Event) {
	meta := ""
	if len(ev.Metadata) > 0 {
		if data, err := json.Marshal(ev.Metadata); err == nil {
			meta = string(data)
		}
	}
	err := l.db.Create(&domain.SysEventLog{
		ID:        common.UUIDint64(),
		EventType: ev.Type,
		Message:   ev.Message,
		Metadata:  meta,
		EventTime: ev.At,
	}).Error
	if err != nil {
		zap.L().Warn("event log persist failed", zap.String("event_type", ev.Type), zap.Error(err))
	}
}
