// Package config holds the process configuration for the scrambler service
// and CLI. Values come from the environment (optionally seeded from a .env
// file), with working defaults for every knob so a bare `scrambler serve`
// runs locally with no setup.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"

	"scrambler/internal/profile"
)

// Config is the resolved process configuration. The core limits (upload
// size, row caps) are compiled into the profile package and deliberately
// not configurable here.
type Config struct {
	// ListenAddr is the HTTP bind address for serve mode.
	ListenAddr string

	// CORSOrigins is the allowed-origin list for the HTTP API.
	CORSOrigins []string

	// DefaultParseMode is applied when a request or invocation omits the
	// parse mode.
	DefaultParseMode profile.Mode

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// LogFormat is "text" or "json".
	LogFormat string

	// StorePath is the sqlite file backing the profile store. Empty
	// disables persistence; the stateless endpoints keep working.
	StorePath string

	// MetricsBackend selects the metrics sink: "none", "prometheus", or
	// "datadog".
	MetricsBackend string

	// DogstatsdAddr is the statsd endpoint used when MetricsBackend is
	// "datadog".
	DogstatsdAddr string
}

// Env is the lookup used to read configuration values. It matches
// os.LookupEnv.
type Env func(key string) (string, bool)

// Load reads configuration from env, after best-effort loading of a .env
// file in the working directory. A nil env panics; pass a wrapper around
// os.LookupEnv.
func Load(env Env) (*Config, error) {
	// Missing .env is the normal case outside development.
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:     get(env, "SCRAMBLER_ADDR", ":8000"),
		LogLevel:       strings.ToLower(get(env, "SCRAMBLER_LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(get(env, "SCRAMBLER_LOG_FORMAT", "text")),
		StorePath:      get(env, "SCRAMBLER_STORE_PATH", "scrambler.db"),
		MetricsBackend: strings.ToLower(get(env, "SCRAMBLER_METRICS", "prometheus")),
		DogstatsdAddr:  get(env, "SCRAMBLER_DOGSTATSD_ADDR", "127.0.0.1:8125"),
	}

	mode, err := profile.ParseMode(get(env, "SCRAMBLER_PARSE_MODE", ""))
	if err != nil {
		return nil, fmt.Errorf("SCRAMBLER_PARSE_MODE: %w", err)
	}
	cfg.DefaultParseMode = mode

	cfg.CORSOrigins = splitList(get(env, "SCRAMBLER_CORS_ORIGINS", "*"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the rest of the program would otherwise trip
// over at an awkward time.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.LogFormat)
	}
	switch c.MetricsBackend {
	case "none", "prometheus", "datadog":
	default:
		return fmt.Errorf("invalid metrics backend %q", c.MetricsBackend)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	return nil
}

func get(env Env, key, def string) string {
	if v, ok := env(key); ok && v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
