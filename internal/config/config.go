package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token   string `yaml:"token"`
	OwnerID int64  `yaml:"owner_id"`
	Mode    string `yaml:"mode"`    // polling | webhook (future)
	Workers int    `yaml:"workers"` // polling workers
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type MongoConfig struct {
	URI      string        `yaml:"uri"`
	Database string        `yaml:"database"`
	Timeout  time.Duration `yaml:"timeout"`
}

type RedisConfig struct {
	URL      string `yaml:"url"` // empty disables rate limiting
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AdminConfig struct {
	Port int `yaml:"port"`
}

type ChannelConfig struct {
	DefaultMaxBots int `yaml:"default_max_bots"`
}

type AuditConfig struct {
	RetentionDays int           `yaml:"retention_days"` // 0 disables the sweep worker
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type Config struct {
	Bot     BotConfig     `yaml:"bot"`
	Log     LogConfig     `yaml:"log"`
	Mongo   MongoConfig   `yaml:"mongo"`
	Redis   RedisConfig   `yaml:"redis"`
	Admin   AdminConfig   `yaml:"admin"`
	Channel ChannelConfig `yaml:"channel"`
	Audit   AuditConfig   `yaml:"audit"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 4
	}
	if cfg.Bot.Mode == "" {
		cfg.Bot.Mode = "polling"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "telegram_bot_db"
	}
	if cfg.Mongo.Timeout <= 0 {
		cfg.Mongo.Timeout = 5 * time.Second
	}
	if cfg.Admin.Port <= 0 {
		cfg.Admin.Port = 9090
	}
	if cfg.Channel.DefaultMaxBots <= 0 {
		cfg.Channel.DefaultMaxBots = 20
	}
	if cfg.Audit.SweepInterval <= 0 {
		cfg.Audit.SweepInterval = 24 * time.Hour
	}

	// Minimal validation
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Bot.OwnerID == 0 {
		return nil, errors.New("bot.owner_id is required")
	}
	if cfg.Mongo.URI == "" {
		return nil, errors.New("mongo.uri is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
