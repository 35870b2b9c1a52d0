package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Storage StorageConfig `koanf:"storage"`
	Engine  EngineConfig  `koanf:"engine"`
	Jobs    JobsConfig    `koanf:"jobs"`
	Logging LoggingConfig `koanf:"logging"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// StorageConfig selects the key-value backend for checkpoints and engine
// status. Backend is one of memory, sqlite, postgres.
type StorageConfig struct {
	Backend        string `koanf:"backend"`
	Path           string `koanf:"path"`
	DatabaseURL    string `koanf:"database_url"`
	MaxConnections int    `koanf:"max_connections"`
}

type EngineConfig struct {
	Binary string `koanf:"binary"`
}

type JobsConfig struct {
	// FreshnessThreshold separates a possibly-live checkpoint from a stale
	// one during the startup scan.
	FreshnessThreshold time.Duration `koanf:"freshness_threshold"`
	// GCStale removes stale checkpoints during the scan instead of only
	// reporting them.
	GCStale bool `koanf:"gc_stale"`
	// KeepRawInput stores résumé source in checkpoints for post-mortem
	// resubmission.
	KeepRawInput bool `koanf:"keep_raw_input"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Load reads config from a TOML file (if provided) then overlays env vars.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, err
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, err
		}
	}

	// Env vars: RW_SERVER_PORT -> server.port. Empty values are skipped so
	// they cannot blank out TOML settings.
	if err := k.Load(env.ProviderWithValue("RW_", ".", func(key, value string) (string, interface{}) {
		if value == "" {
			return "", nil
		}
		mapped := strings.Replace(
			strings.ToLower(strings.TrimPrefix(key, "RW_")),
			"_", ".", -1,
		)
		return mapped, value
	}), nil); err != nil {
		return nil, err
	}

	// Conventional override, since storage_database_url maps awkwardly.
	if v := os.Getenv("RW_DATABASE_URL"); v != "" {
		k.Set("storage.database_url", v)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
