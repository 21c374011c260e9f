package app

import (
	"context"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"github.com/vendlink/vendcentral/config"
	"github.com/vendlink/vendcentral/internal/catalog"
	"github.com/vendlink/vendcentral/internal/devicefleet"
	"github.com/vendlink/vendcentral/internal/directory"
	"github.com/vendlink/vendcentral/internal/domain"
	"github.com/vendlink/vendcentral/internal/eventlog"
	"github.com/vendlink/vendcentral/internal/settlement"
	"github.com/vendlink/vendcentral/pkg/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	sched     *cron.Cron
	rdb       *redis.Client

	events     *eventlog.Logger
	catalog    *catalog.Service
	settlement *settlement.Service
	directory  *directory.Service
	fleet      *devicefleet.Service
}

// Ensure Application implements all interfaces
var (
	_ DBProvider     = (*Application)(nil)
	_ ConfigProvider = (*Application)(nil)
	_ AppContext     = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig       { return a.appConfig }
func (a *Application) DB() *gorm.DB                    { return a.gormDB }
func (a *Application) Scheduler() *cron.Cron           { return a.sched }
func (a *Application) Events() *eventlog.Logger        { return a.events }
func (a *Application) Catalog() *catalog.Service       { return a.catalog }
func (a *Application) Settlement() *settlement.Service { return a.settlement }
func (a *Application) Directory() *directory.Service   { return a.directory }
func (a *Application) Fleet() *devicefleet.Service     { return a.fleet }

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

func (a *Application) Init(cfg *config.AppConfig) {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	// Initialize zap logger
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	zapConfig.OutputPaths = []string{"stdout"}
	if cfg.Logger.FileEnable {
		zapConfig.OutputPaths = append(zapConfig.OutputPaths, cfg.Logger.Filename)
	}

	// Build logger with file rotation if enabled
	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	} else {
		logger, err = zapConfig.Build(zap.AddCaller(), zap.AddCallerSkip(1))
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)

	if err := metrics.InitMetrics(cfg.System.Workdir); err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
	}
	a.gormDB = getDatabase(cfg.Database, cfg.System.Workdir, cfg.System.Debug)
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

	if err := a.MigrateDB(false); err != nil {
		zap.S().Errorf("database migration failed: %v", err)
	}

	// Optional catalog cache
	if cfg.Redis.Addr != "" {
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Passwd,
			DB:       cfg.Redis.Database,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := a.rdb.Ping(ctx).Err(); err != nil {
			zap.S().Warnf("redis unavailable, catalog cache disabled: %v", err)
			a.rdb = nil
		}
	}

	a.events = eventlog.New(a.gormDB)
	a.catalog = catalog.NewService(a.gormDB, a.rdb,
		time.Duration(cfg.Redis.TTLSec)*time.Second, a.events)
	a.settlement = settlement.NewService(a.gormDB, cfg.Settlement.FloorStock,
		a.events, a.catalog.InvalidateCache)
	a.directory = directory.NewService(a.gormDB, cfg.Web.Secret, a.events)
	a.fleet = devicefleet.NewService(a.gormDB, a.events)

	a.initJob()
}

func (a *Application) MigrateDB(track bool) error {
	if track {
		return a.gormDB.Debug().Migrator().AutoMigrate(domain.Tables...)
	}
	return a.gormDB.Migrator().AutoMigrate(domain.Tables...)
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

func (a *Application) InitDb() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	if err := a.gormDB.Migrator().AutoMigrate(domain.Tables...); err != nil {
		zap.S().Error(err)
	}
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.events != nil {
		a.events.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	_ = metrics.Close()
	_ = zap.L().Sync()
}
