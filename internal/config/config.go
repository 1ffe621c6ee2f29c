// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes the store paths,
// logging, write-retry policy, message limits, seeding and observability
// settings of the gym club tooling.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/gymclub/internal/sysutil"
	"github.com/tbourn/gymclub/internal/utils"
)

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "gymclub")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// MessageConfig bounds what a member may post to a chat.
type MessageConfig struct {
	MaxRunes int     // MESSAGE_MAX_RUNES (0 = unlimited)
	RPS      float64 // MESSAGE_RPS per member (0 = unlimited)
	Burst    int     // MESSAGE_BURST (>= 1)
}

// Config holds all configuration values for the application.
type Config struct {
	// Stores
	GymDBPath    string        // members + classes
	ChatDBPath   string        // chats
	BusyTimeout  time.Duration // SQLite busy_timeout
	WriteRetries int           // optimistic read-modify-write retries

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // console logs instead of JSON

	// App
	Messages        MessageConfig
	SeedPath        string // YAML fixture for `gymclub seed`
	MetricsTextfile string // optional Prometheus textfile written on exit

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Stores
		GymDBPath:    getenv("GYM_DB_PATH", "data/gym.sqlite"),
		ChatDBPath:   getenv("CHAT_DB_PATH", "data/chat.sqlite"),
		BusyTimeout:  getdur("BUSY_TIMEOUT", 5*time.Second),
		WriteRetries: getint("WRITE_RETRIES", 5),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// App
		Messages: MessageConfig{
			MaxRunes: getint("MESSAGE_MAX_RUNES", 2000),
			RPS:      getfloat("MESSAGE_RPS", 2.0),
			Burst:    getint("MESSAGE_BURST", 5),
		},
		SeedPath:        getenv("SEED_PATH", "data/seed.yaml"),
		MetricsTextfile: strings.TrimSpace(getenv("METRICS_TEXTFILE", "")),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "gymclub"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.GymDBPath) == "" {
		return cfg, errors.New("GYM_DB_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.ChatDBPath) == "" {
		return cfg, errors.New("CHAT_DB_PATH must not be empty")
	}
	if cfg.GymDBPath == cfg.ChatDBPath {
		return cfg, errors.New("GYM_DB_PATH and CHAT_DB_PATH must differ")
	}
	if cfg.BusyTimeout < 0 {
		return cfg, errors.New("BUSY_TIMEOUT must be >= 0")
	}
	if cfg.WriteRetries < 0 {
		return cfg, errors.New("WRITE_RETRIES must be >= 0")
	}
	if cfg.Messages.MaxRunes < 0 {
		return cfg, errors.New("MESSAGE_MAX_RUNES must be >= 0")
	}
	if cfg.Messages.RPS < 0 {
		return cfg, errors.New("MESSAGE_RPS must be >= 0")
	}
	if cfg.Messages.Burst < 1 {
		return cfg, errors.New("MESSAGE_BURST must be >= 1")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	return utils.AtoiDefault(strings.TrimSpace(os.Getenv(k)), def)
}

func getbool(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	switch {
	case v == "":
		return def
	case sysutil.IsTruthy(v):
		return true
	}
	switch strings.ToLower(v) {
	case "0", "false", "no", "n", "off":
		return false
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
