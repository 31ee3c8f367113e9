package config

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the process configuration, loaded once at startup and passed
// explicitly to every component that needs it. There is no ambient global
// configuration state.
type Config struct {
	Profile  string
	HTTPAddr string

	DatabaseDriver string
	DatabaseDSN    string

	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string

	// MasterKey is the account-service AES-256 key used for OAuth and
	// password-reset tokens. Game servers carry their own keys.
	MasterKey []byte

	// ClientCredentials maps known console client IDs to their secrets.
	ClientCredentials map[string]string

	NASCRateLimitRPM int
	APIRateLimitRPM  int

	LogLevelName string

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsEnabled        bool
	OTELTracesEnabled         bool
	OTELLogsEnabled           bool
	OTELHTTPEnabled           bool
	OTELMetricsExportInterval time.Duration
}

// Known console client ID/secret pairs. These are burned into console
// firmware and are not secrets in any meaningful sense; they identify the
// calling platform.
var defaultClientCredentials = map[string]string{
	"a2efa818a34fa16b8afbc8a74eba3eda": "c91cdb5658bd4954ade78533a339cf9a",
	"daf6227853bcbdce3d75baee8332b":    "3eff548eac636e2bf45bb7b375e7b6b0",
	"ea25c66c26b403376b4c5ed94ab9cdea": "d137be62cb6a2b831cad8c013b92fb55",
}

// Load reads configuration from the environment and validates it.
func Load(ctx context.Context) (*Config, error) {
	cfg := &Config{
		Profile:  getEnv("ACCOUNT_PROFILE", "dev"),
		HTTPAddr: getEnv("ACCOUNT_HTTP_ADDR", ":8080"),

		DatabaseDriver: getEnv("ACCOUNT_DB_DRIVER", "postgres"),
		DatabaseDSN:    getEnv("ACCOUNT_DB_DSN", ""),

		RedisEnabled:  getBool("ACCOUNT_REDIS_ENABLED", false),
		RedisAddr:     getEnv("ACCOUNT_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("ACCOUNT_REDIS_PASSWORD", ""),

		ClientCredentials: defaultClientCredentials,

		NASCRateLimitRPM: getInt("ACCOUNT_NASC_RATE_LIMIT_RPM", 60),
		APIRateLimitRPM:  getInt("ACCOUNT_API_RATE_LIMIT_RPM", 300),

		LogLevelName: getEnv("ACCOUNT_LOG_LEVEL", "info"),

		OTELServiceName:           getEnv("OTEL_SERVICE_NAME", "account"),
		OTELEnvironment:           getEnv("OTEL_ENVIRONMENT", "dev"),
		OTELExporterOTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure:  getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELMetricsEnabled:        getBool("OTEL_METRICS_ENABLED", false),
		OTELTracesEnabled:         getBool("OTEL_TRACES_ENABLED", false),
		OTELLogsEnabled:           getBool("OTEL_LOGS_ENABLED", false),
		OTELHTTPEnabled:           getBool("OTEL_HTTP_ENABLED", false),
		OTELMetricsExportInterval: getDuration("OTEL_METRICS_EXPORT_INTERVAL", 15*time.Second),
	}

	keyHex := getEnv("ACCOUNT_AES_KEY", "")
	if err := cfg.setMasterKey(keyHex); err != nil {
		recordConfigValidationEvent(ctx, cfg.Profile, "failure", classifyConfigLoadError(err))
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		recordConfigValidationEvent(ctx, cfg.Profile, "failure", classifyConfigLoadError(err))
		return nil, err
	}

	recordConfigValidationEvent(ctx, cfg.Profile, "success", "none")
	return cfg, nil
}

func (c *Config) setMasterKey(keyHex string) error {
	if keyHex == "" {
		return fmt.Errorf("validate config: ACCOUNT_AES_KEY is required")
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return fmt.Errorf("parse ACCOUNT_AES_KEY: %w", err)
	}
	if len(key) != 32 {
		return fmt.Errorf("validate config: ACCOUNT_AES_KEY must decode to 32 bytes, got %d", len(key))
	}
	c.MasterKey = key
	return nil
}

func (c *Config) validate() error {
	if c.DatabaseDSN == "" && c.DatabaseDriver != "sqlite" {
		return fmt.Errorf("validate config: ACCOUNT_DB_DSN is required for driver %q", c.DatabaseDriver)
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("validate config: unsupported ACCOUNT_DB_DRIVER %q", c.DatabaseDriver)
	}
	return nil
}

// LogLevel maps the configured level name to a slog level.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.LogLevelName) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}
