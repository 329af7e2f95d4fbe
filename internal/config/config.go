package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the correlation engine.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Engine   EngineConfig   `yaml:"engine"`
	Recovery RecoveryConfig `yaml:"recovery"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig controls the ingest listener and metrics endpoint.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// StoreConfig configures the external TTL key-value store (Redis protocol).
type StoreConfig struct {
	URL         string        `yaml:"url"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	DialTimeout time.Duration `yaml:"dialTimeout"`
	OpTimeout   time.Duration `yaml:"opTimeout"`
	MaxRetries  int           `yaml:"maxRetries"`
}

// EngineConfig bounds the correlation working set.
type EngineConfig struct {
	CorrelationWindow time.Duration `yaml:"correlationWindow"`
	ErrorTTL          time.Duration `yaml:"errorTTL"`
	CorrelationTTL    time.Duration `yaml:"correlationTTL"`
	MaxRecentErrors   int           `yaml:"maxRecentErrors"`
	MaxAlerts         int           `yaml:"maxAlerts"`
}

// RecoveryConfig controls the recovery action dispatcher.
type RecoveryConfig struct {
	Enabled       bool          `yaml:"enabled"`
	ActionTimeout time.Duration `yaml:"actionTimeout"`
	RestartTTL    time.Duration `yaml:"restartTTL"`
	FallbackTTL   time.Duration `yaml:"fallbackTTL"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("FAULTLINE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8085",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			URL:         "redis://localhost:6379/0",
			DialTimeout: 2 * time.Second,
			OpTimeout:   2 * time.Second,
			MaxRetries:  2,
		},
		Engine: EngineConfig{
			CorrelationWindow: 5 * time.Minute,
			ErrorTTL:          time.Hour,
			CorrelationTTL:    24 * time.Hour,
			MaxRecentErrors:   100,
			MaxAlerts:         50,
		},
		Recovery: RecoveryConfig{
			Enabled:       true,
			ActionTimeout: 5 * time.Second,
			RestartTTL:    5 * time.Minute,
			FallbackTTL:   time.Hour,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FAULTLINE_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("FAULTLINE_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("FAULTLINE_STORE_URL"); v != "" {
		cfg.Store.URL = v
	}
	if v := os.Getenv("FAULTLINE_STORE_PASSWORD"); v != "" {
		cfg.Store.Password = v
	}
	if v := os.Getenv("FAULTLINE_STORE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Store.DB = db
		}
	}
	if v := os.Getenv("FAULTLINE_STORE_DIAL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Store.DialTimeout = d
		}
	}
	if v := os.Getenv("FAULTLINE_STORE_OP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Store.OpTimeout = d
		}
	}
	if v := os.Getenv("FAULTLINE_STORE_MAX_RETRIES"); v != "" {
		if retries, err := strconv.Atoi(v); err == nil {
			cfg.Store.MaxRetries = retries
		}
	}
	if v := os.Getenv("FAULTLINE_CORRELATION_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Engine.CorrelationWindow = d
		}
	}
	if v := os.Getenv("FAULTLINE_ERROR_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Engine.ErrorTTL = d
		}
	}
	if v := os.Getenv("FAULTLINE_CORRELATION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Engine.CorrelationTTL = d
		}
	}
	if v := os.Getenv("FAULTLINE_MAX_RECENT_ERRORS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Engine.MaxRecentErrors = n
		}
	}
	if v := os.Getenv("FAULTLINE_RECOVERY_ENABLED"); v != "" {
		cfg.Recovery.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("FAULTLINE_RECOVERY_ACTION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Recovery.ActionTimeout = d
		}
	}
	if v := os.Getenv("FAULTLINE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FAULTLINE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
}
