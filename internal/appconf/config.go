// Package appconf holds the service configuration: defaults, an optional
// YAML file, a .env file and command-line flags, applied in that order.
package appconf

import (
	"time"
)

// Config is the service configuration.
type Config struct {
	Port          int            `yaml:"port" validate:"gte=0,lte=65535"`
	Env           Environment    `yaml:"env"`
	ApiKeys       []string       `yaml:"api-keys"`
	ExemptApiKeys []string       `yaml:"exempt-api-keys"`
	RateLimit     int            `yaml:"rate-limit" validate:"gte=0"`
	Verbose       bool           `yaml:"verbose"`
	CORSOrigins   []string       `yaml:"cors-origins"`
	Registry      RegistryConfig `yaml:"registry"`
	Fetch         FetchConfig    `yaml:"fetch"`
	Snapshots     SnapshotConfig `yaml:"snapshots"`
	Clock         ClockConfig    `yaml:"clock"`
}

// RegistryConfig locates the source registry. An empty backend is inferred
// from the URL.
type RegistryConfig struct {
	Backend string `yaml:"backend" validate:"omitempty,oneof=blob sqlite postgres"`
	URL     string `yaml:"url" validate:"required"`
}

type FetchConfig struct {
	Timeout     time.Duration     `yaml:"timeout" validate:"gte=0"`
	Retries     int               `yaml:"retries" validate:"gte=0,lte=10"`
	MaxBodySize int64             `yaml:"max-body-size" validate:"gte=0"`
	Headers     map[string]string `yaml:"headers"`
}

type SnapshotConfig struct {
	CacheSize int           `yaml:"cache-size" validate:"gte=1"`
	TTL       time.Duration `yaml:"ttl" validate:"gte=0"`
}

// ClockConfig enables the replay clock when either source is set.
type ClockConfig struct {
	ReplayEnv  string `yaml:"replay-env"`
	ReplayFile string `yaml:"replay-file"`
	Location   string `yaml:"location"`
}

func (c ClockConfig) Enabled() bool { return c.ReplayEnv != "" || c.ReplayFile != "" }

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Port:      4000,
		Env:       Development,
		RateLimit: 100,
		Registry: RegistryConfig{
			URL: "sources.db",
		},
		Fetch: FetchConfig{
			Timeout: 10 * time.Second,
		},
		Snapshots: SnapshotConfig{
			CacheSize: 32,
			TTL:       time.Hour,
		},
	}
}
