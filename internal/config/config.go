// Package config loads zpass settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/zarlcorp/zpass/internal/generator"
	"github.com/zarlcorp/zpass/internal/qr"
)

// Config holds runtime settings. flags override these per invocation.
type Config struct {
	DBPath        string `env:"ZPASS_DB_PATH"        envDefault:"password_manager.db"`
	DefaultLength int    `env:"ZPASS_DEFAULT_LENGTH" envDefault:"12"`
	Encrypt       bool   `env:"ZPASS_ENCRYPT"        envDefault:"false"`
	QRSize        int    `env:"ZPASS_QR_SIZE"        envDefault:"256"`
	LogLevel      string `env:"ZPASS_LOG_LEVEL"      envDefault:"warn"`
}

// Load parses the environment and normalizes the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.DefaultLength = generator.ClampLength(cfg.DefaultLength)
	if cfg.QRSize <= 0 {
		cfg.QRSize = qr.DefaultSize
	}
	if _, err := cfg.Level(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Level returns the slog level named by LogLevel.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("ZPASS_LOG_LEVEL has invalid level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// Policy returns the default generation policy with the configured length.
func (c Config) Policy() generator.Policy {
	p := generator.DefaultPolicy()
	if c.DefaultLength != 0 {
		p.Length = generator.ClampLength(c.DefaultLength)
	}
	return p
}
