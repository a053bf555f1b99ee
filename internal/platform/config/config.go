package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Defaults applied when the corresponding variable is unset or invalid.
const (
	DefaultPort               = "8080"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
	DefaultMaxBodyBytes       = 1 << 20
	DefaultRateLimitPerMinute = 600
	DefaultComposeWorkers     = 4
)

// Config is the runtime configuration shared by the server and the CLI.
type Config struct {
	Port               string
	LogLevel           string
	LogFormat          string
	MaxBodyBytes       int
	RateLimitPerMinute int // 0 disables rate limiting
	ComposeWorkers     int
}

// Load reads the .env file from the current working directory and sets
// environment variables. If .env does not exist, Load returns an error but
// callers can ignore it and use system env or defaults. Pass one or more paths
// to load from specific files (e.g. ".env"); with no paths, ".env" is used.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Port:               GetEnv("PORT", DefaultPort),
		LogLevel:           GetEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:          GetEnv("LOG_FORMAT", DefaultLogFormat),
		MaxBodyBytes:       GetEnvInt("MAX_BODY_BYTES", DefaultMaxBodyBytes),
		RateLimitPerMinute: GetEnvInt("RATE_LIMIT_PER_MINUTE", DefaultRateLimitPerMinute),
		ComposeWorkers:     GetEnvInt("COMPOSE_WORKERS", DefaultComposeWorkers),
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.RateLimitPerMinute < 0 {
		cfg.RateLimitPerMinute = 0
	}
	if cfg.ComposeWorkers <= 0 {
		cfg.ComposeWorkers = DefaultComposeWorkers
	}
	return cfg
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}
