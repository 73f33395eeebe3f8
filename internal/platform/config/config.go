package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr                string
	DatabaseURL         string
	JWTSecret           string
	DataEncryptionKey   string
	Environment         string
	CORSAllowedOrigins  []string
	RunMigrations       bool
	RunSeed             bool
	MaxBodyBytes        int64
	RateLimitPerMinute  int
	PeriodSweepInterval time.Duration
	MetricsEnabled      bool
}

func Load() Config {
	return Config{
		Addr:                envOr("APP_ADDR", ":8080"),
		DatabaseURL:         envOr("DATABASE_URL", ""),
		JWTSecret:           envOr("JWT_SECRET", ""),
		DataEncryptionKey:   envOr("DATA_ENCRYPTION_KEY", ""),
		Environment:         envOr("APP_ENV", "development"),
		CORSAllowedOrigins:  envList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		RunMigrations:       envParse("RUN_MIGRATIONS", true, strconv.ParseBool),
		RunSeed:             envParse("RUN_SEED", true, strconv.ParseBool),
		MaxBodyBytes:        envParse("MAX_BODY_BYTES", 1<<20, parseInt64),
		RateLimitPerMinute:  envParse("RATE_LIMIT_PER_MINUTE", 60, strconv.Atoi),
		PeriodSweepInterval: envParse("PERIOD_SWEEP_INTERVAL", time.Hour, time.ParseDuration),
		MetricsEnabled:      envParse("METRICS_ENABLED", true, strconv.ParseBool),
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if strings.TrimSpace(c.DataEncryptionKey) == "" {
			return fmt.Errorf("DATA_ENCRYPTION_KEY must be set in production for encryption at rest")
		}
		if c.RunSeed {
			return fmt.Errorf("RUN_SEED must be disabled in production")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// envParse reads key and converts it with parse, keeping the fallback on
// empty or malformed values. Bad values are logged, not fatal.
func envParse[T any](key string, fallback T, parse func(string) (T, error)) T {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := parse(raw)
	if err != nil {
		slog.Warn("invalid env value, using default", "key", key, "value", raw)
		return fallback
	}
	return value
}

func envList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func parseInt64(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}
