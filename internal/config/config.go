// Package config loads runtime settings from defaults and KIEVIEW_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Server  ServerConfig  `envPrefix:"SERVER_"`
	Storage StorageConfig `envPrefix:"STORAGE_"`
	Log     LogConfig     `envPrefix:"LOG_"`
	Demo    DemoConfig    `envPrefix:"DEMO_"`
}

type ServerConfig struct {
	Port int `env:"PORT" envDefault:"4600"`
}

type StorageConfig struct {
	DataDir string `env:"DATA_DIR"`
}

type LogConfig struct {
	Level string `env:"LEVEL" envDefault:"info"`
}

type DemoConfig struct {
	// Seed controls whether the built-in demo batches are merged into the
	// store at startup.
	Seed bool `env:"SEED" envDefault:"true"`
}

// Load reads configuration from the environment. Unset values fall back to
// defaults; the data directory defaults to a kieview folder under the
// platform user config dir.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "KIEVIEW_"}); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}

	if cfg.Storage.DataDir == "" {
		dir, err := defaultDataDir()
		if err != nil {
			return Config{}, err
		}
		cfg.Storage.DataDir = dir
	}

	return cfg, nil
}

func defaultDataDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving user config dir: %w", err)
	}
	return filepath.Join(base, "kieview"), nil
}
