package config

import (
	"github.com/knadh/koanf/v2"
)

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"server.host": "0.0.0.0",
		"server.port": 8080,

		"storage.backend":         "sqlite",
		"storage.path":            "resumewright.db",
		"storage.max_connections": 10,

		"engine.binary": "resumewright-render",

		"jobs.freshness_threshold": "5m",
		"jobs.gc_stale":            false,
		"jobs.keep_raw_input":      false,

		"logging.level":  "info",
		"logging.format": "pretty",
	}

	for key, val := range defaults {
		k.Set(key, val)
	}
	return nil
}
