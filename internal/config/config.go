// Package config loads settings from config.toml and KANBAN_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverNone   = "none"

	DefaultBaseURL = "https://backend-for-uni.onrender.com/api"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	Store    StoreConfig    `mapstructure:"store"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Board    BoardConfig    `mapstructure:"board"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type RemoteConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Token    string        `mapstructure:"token"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
	Prefix   string        `mapstructure:"prefix"`
}

type BoardConfig struct {
	// Key names the board in the snapshot store.
	Key            string   `mapstructure:"key"`
	DefaultColumns []string `mapstructure:"default_columns"`
	Seed           bool     `mapstructure:"seed"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("remote.base_url", DefaultBaseURL)
	v.SetDefault("remote.token", "")
	v.SetDefault("remote.username", "")
	v.SetDefault("remote.password", "")
	v.SetDefault("remote.timeout", "0s")
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("database.path", "kanban.db")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "0s")
	v.SetDefault("redis.prefix", "kanban:")
	v.SetDefault("board.key", "default")
	v.SetDefault("board.default_columns", []string{"To Do", "In Progress", "Done"})
	v.SetDefault("board.seed", false)
	v.SetDefault("log.level", "")
	v.SetDefault("log.file", "")
}

// Load reads path, or config.toml from the working directory when path is
// empty. A missing config.toml is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("KANBAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("log.level", "KANBAN_LOG_LEVEL", "LOG_LEVEL"); err != nil {
		return nil, fmt.Errorf("failed to bind log level: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Remote.BaseURL) == "" {
		return errors.New("remote.base_url must be set")
	}
	if c.Remote.Timeout < 0 {
		return errors.New("remote.timeout must not be negative")
	}
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path must be set for the sqlite store")
		}
	case DriverRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis.addr must be set for the redis store")
		}
	case DriverNone:
	default:
		return fmt.Errorf("unknown store.driver %q (want %s, %s or %s)", c.Store.Driver, DriverSQLite, DriverRedis, DriverNone)
	}
	return nil
}
