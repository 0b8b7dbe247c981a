package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	NodeURL         string `yaml:"node_url"`
	ContractAddress string `yaml:"contract_address"`
	TreasuryURL     string `yaml:"treasury_url"`

	PageSize            int `yaml:"page_size"`
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`

	Postgres Postgres `yaml:"postgres"`
	Kafka    Kafka    `yaml:"kafka"`
	HotDedup HotDedup `yaml:"hot_dedup"`

	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

type Postgres struct {
	DSN            string `yaml:"dsn"` // PG_DSN overrides when set
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Kafka configures the optional outcome topic; leave brokers empty to
// disable publishing.
type Kafka struct {
	Brokers string `yaml:"brokers"` // comma-separated
	Topic   string `yaml:"topic"`
}

type HotDedup struct {
	Mode       string `yaml:"mode"` // off | memory | rocksdb
	Path       string `yaml:"path"`
	TTLSeconds int64  `yaml:"ttl_seconds"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if dsn := os.Getenv("PG_DSN"); dsn != "" {
		cfg.Postgres.DSN = dsn
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.PageSize <= 0 {
		c.PageSize = 5
	}
	if c.PollIntervalSeconds <= 0 {
		c.PollIntervalSeconds = 30
	}
	if c.Postgres.TimeoutSeconds <= 0 {
		c.Postgres.TimeoutSeconds = 5
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "supplysync.outcomes"
	}
	if c.HotDedup.Mode == "" {
		c.HotDedup.Mode = "memory"
	}
	if c.HotDedup.TTLSeconds <= 0 {
		c.HotDedup.TTLSeconds = 86400
	}
	if c.HotDedup.Path == "" {
		c.HotDedup.Path = "./data/hotdedup.db"
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = ":9105"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c Config) Validate() error {
	if c.NodeURL == "" {
		return errors.New("node_url is required")
	}
	if c.ContractAddress == "" {
		return errors.New("contract_address is required")
	}
	if c.TreasuryURL == "" {
		return errors.New("treasury_url is required")
	}
	switch c.HotDedup.Mode {
	case "off", "memory", "rocksdb":
	default:
		return fmt.Errorf("hot_dedup.mode %q (want off, memory or rocksdb)", c.HotDedup.Mode)
	}
	return nil
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c Config) PostgresTimeout() time.Duration {
	return time.Duration(c.Postgres.TimeoutSeconds) * time.Second
}

func (c Config) HotDedupTTL() time.Duration {
	return time.Duration(c.HotDedup.TTLSeconds) * time.Second
}
