package app

import (
	"fmt"
	"path"
	"time"

	"github.com/vendlink/vendcentral/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// getDatabase opens the configured store. TranslateError is on so unique
// violations surface as gorm.ErrDuplicatedKey on every backend.
func getDatabase(cfg config.DBConfig, workdir string, debug bool) *gorm.DB {
	logMode := logger.Default.LogMode(logger.Warn)
	if debug {
		logMode = logger.Default.LogMode(logger.Info)
	}
	gormCfg := &gorm.Config{
		Logger:         logMode,
		TranslateError: true,
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.User, cfg.Passwd, cfg.Name)
		dialector = postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true})
	default:
		dialector = sqlite.Open(path.Join(workdir, "vendcentral.db"))
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		panic(err)
	}

	sqlDB, err := db.DB()
	if err == nil {
		if cfg.MaxConn > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxConn)
		}
		if cfg.IdleConn > 0 {
			sqlDB.SetMaxIdleConns(cfg.IdleConn)
		}
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}
	return db
}
