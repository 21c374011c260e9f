package app

import (
	"github.com/robfig/cron/v3"
	"github.com/vendlink/vendcentral/config"
	"github.com/vendlink/vendcentral/internal/catalog"
	"github.com/vendlink/vendcentral/internal/devicefleet"
	"github.com/vendlink/vendcentral/internal/directory"
	"github.com/vendlink/vendcentral/internal/eventlog"
	"github.com/vendlink/vendcentral/internal/settlement"
	"gorm.io/gorm"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// ServiceProvider exposes the domain services
type ServiceProvider interface {
	Catalog() *catalog.Service
	Settlement() *settlement.Service
	Directory() *directory.Service
	Fleet() *devicefleet.Service
	Events() *eventlog.Logger
}

// AppContext combines all provider interfaces for full application context.
// Consumers should depend on specific providers or this combined interface.
type AppContext interface {
	DBProvider
	ConfigProvider
	SchedulerProvider
	ServiceProvider

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb()
	DropAll()
}
