// Package config loads server settings from defaults, an optional .env file and
// ATTENDANCE_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"attendance-server-go/db"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "ATTENDANCE"

// Config holds every setting the binary reads
type Config struct {
	Env                 string `mapstructure:"env" validate:"required"`
	Addr                string `mapstructure:"addr" validate:"required"`
	Store               string `mapstructure:"store" validate:"oneof=redis memory"`
	RedisAddr           string `mapstructure:"redis_addr" validate:"required_if=Store redis"`
	RedisPassword       string `mapstructure:"redis_password"`
	RedisDB             int    `mapstructure:"redis_db" validate:"gte=0,lte=15"`
	MaxRecordBytes      int    `mapstructure:"max_record_bytes" validate:"gte=0"`
	MemoryCapacityBytes int    `mapstructure:"memory_capacity_bytes" validate:"gte=0"`
	HiddenRows          string `mapstructure:"hidden_rows" validate:"oneof=include exclude"`
	ExportDir           string `mapstructure:"export_dir" validate:"required"`
}

// RedisOptions returns the connection settings for db.InitializeRedisClient
func (c Config) RedisOptions() db.RedisOptions {
	return db.RedisOptions{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

func newViper() *viper.Viper {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("addr", ":8080")
	v.SetDefault("store", "redis")
	v.SetDefault("redis_addr", "127.0.0.1:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 8)
	v.SetDefault("max_record_bytes", db.DefaultMaxRecordBytes)
	v.SetDefault("memory_capacity_bytes", db.DefaultMaxRecordBytes)
	v.SetDefault("hidden_rows", "include")
	v.SetDefault("export_dir", ".")

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return v
}

// Load reads configuration for the environment named by $ENV (DEV by default).
// dir/.env.<env> is loaded first when it exists.
func Load(dir string) (Config, error) {
	env := strings.ToUpper(os.Getenv("ENV")) // DEV (default), TEST, PROD
	if env == "" {
		env = "DEV"
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(dir, ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return Config{}, errors.Wrapf(err, "config.godotenv(%s)", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, errors.Wrapf(err, "config.os.Stat(%s)", dotEnvPath)
	}

	v := newViper()
	v.SetDefault("env", env)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decoding config")
	}
	cfg.Store = strings.ToLower(cfg.Store)
	cfg.HiddenRows = strings.ToLower(cfg.HiddenRows)

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}
