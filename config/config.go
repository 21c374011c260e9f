package config

import (
	"os"
	"path"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v2"
)

type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
	Version  string `yaml:"version"`
}

type WebConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Secret string `yaml:"secret"`
}

type DBConfig struct {
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
}

type SettlementConfig struct {
	// FloorStock refuses settlements that would push a device's stock
	// below zero. Off by default: the fleet treats negative stock as a
	// correctable bookkeeping state.
	FloorStock bool `yaml:"floor_stock"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Passwd   string `yaml:"passwd"`
	Database int    `yaml:"database"`
	TTLSec   int    `yaml:"ttl_sec"`
}

type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

type AppConfig struct {
	System     SysConfig        `yaml:"system"`
	Web        WebConfig        `yaml:"web"`
	Database   DBConfig         `yaml:"database"`
	Settlement SettlementConfig `yaml:"settlement"`
	Redis      RedisConfig      `yaml:"redis"`
	Logger     LogConfig        `yaml:"logger"`
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "VendCentral",
		Location: "Asia/Ho_Chi_Minh",
		Workdir:  "/var/vendcentral",
		Version:  "1.0.0",
		Debug:    true,
	},
	Web: WebConfig{
		Host:   "0.0.0.0",
		Port:   5000,
		Secret: "9b6de5cc-vend-1d34-central-0demo12aa9f",
	},
	Database: DBConfig{
		Type:     "sqlite",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "vendcentral",
		User:     "postgres",
		Passwd:   "",
		MaxConn:  100,
		IdleConn: 10,
	},
	Settlement: SettlementConfig{
		FloorStock: false,
	},
	Redis: RedisConfig{
		Addr:     "",
		Database: 0,
		TTLSec:   30,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/vendcentral/vendcentral.log",
	},
}

func setEnvValue(name string, f func(v string)) {
	if evalue, ok := os.LookupEnv(name); ok {
		f(evalue)
	}
}

func setEnvBoolValue(name string, f func(v bool)) {
	if evalue, ok := os.LookupEnv(name); ok {
		f(evalue == "true" || evalue == "1" || evalue == "on")
	}
}

func setEnvIntValue(name string, f func(v int)) {
	if evalue, ok := os.LookupEnv(name); ok {
		f(cast.ToInt(evalue))
	}
}

// LoadConfig reads the yaml configuration, falling back to defaults, and
// then applies VENDCENTRAL_* environment overrides on top.
func LoadConfig(cfile string) *AppConfig {
	appconfig := new(AppConfig)
	*appconfig = *DefaultAppConfig

	if cfile != "" {
		if data, err := os.ReadFile(cfile); err == nil {
			_ = yaml.Unmarshal(data, appconfig)
		}
	}

	setEnvValue("VENDCENTRAL_SYSTEM_WORKDIR", func(v string) { appconfig.System.Workdir = v })
	setEnvValue("VENDCENTRAL_SYSTEM_LOCATION", func(v string) { appconfig.System.Location = v })
	setEnvBoolValue("VENDCENTRAL_SYSTEM_DEBUG", func(v bool) { appconfig.System.Debug = v })

	setEnvValue("VENDCENTRAL_WEB_HOST", func(v string) { appconfig.Web.Host = v })
	setEnvValue("VENDCENTRAL_WEB_SECRET", func(v string) { appconfig.Web.Secret = v })
	setEnvIntValue("VENDCENTRAL_WEB_PORT", func(v int) { appconfig.Web.Port = v })

	setEnvValue("VENDCENTRAL_DB_TYPE", func(v string) { appconfig.Database.Type = v })
	setEnvValue("VENDCENTRAL_DB_HOST", func(v string) { appconfig.Database.Host = v })
	setEnvIntValue("VENDCENTRAL_DB_PORT", func(v int) { appconfig.Database.Port = v })
	setEnvValue("VENDCENTRAL_DB_NAME", func(v string) { appconfig.Database.Name = v })
	setEnvValue("VENDCENTRAL_DB_USER", func(v string) { appconfig.Database.User = v })
	setEnvValue("VENDCENTRAL_DB_PWD", func(v string) { appconfig.Database.Passwd = v })

	setEnvBoolValue("VENDCENTRAL_SETTLEMENT_FLOOR_STOCK", func(v bool) { appconfig.Settlement.FloorStock = v })

	setEnvValue("VENDCENTRAL_REDIS_ADDR", func(v string) { appconfig.Redis.Addr = v })
	setEnvValue("VENDCENTRAL_REDIS_PWD", func(v string) { appconfig.Redis.Passwd = v })
	setEnvIntValue("VENDCENTRAL_REDIS_DB", func(v int) { appconfig.Redis.Database = v })

	setEnvValue("VENDCENTRAL_LOGGER_MODE", func(v string) { appconfig.Logger.Mode = v })
	setEnvBoolValue("VENDCENTRAL_LOGGER_FILE_ENABLE", func(v bool) { appconfig.Logger.FileEnable = v })

	if appconfig.Logger.Filename == "" {
		appconfig.Logger.Filename = path.Join(appconfig.System.Workdir, "vendcentral.log")
	}

	return appconfig
}
