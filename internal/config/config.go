// Package config loads server configuration from command-line flags,
// environment variables and an optional .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Storage StorageConfig
	Server  ServerConfig
	Auth    AuthConfig
	Recycle RecycleConfig
	Cache   CacheConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
	// File enables rotated JSON log output at this path (optional).
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// StorageConfig holds on-disk locations.
type StorageConfig struct {
	// DataPath holds the database and the token key (default: ~/SnipStash/data).
	DataPath string
	// DatabasePath defaults to {DataPath}/snipstash.db.
	DatabasePath string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Name         string
	Port         string        // default: 8080
	ReadTimeout  time.Duration // default: 15s
	WriteTimeout time.Duration // default: 15s
	IdleTimeout  time.Duration // default: 60s
	// CORSOrigins lists allowed browser origins; empty allows none.
	CORSOrigins []string
	// RateLimit is requests per second per client IP; 0 disables limiting.
	RateLimit      float64
	RateLimitBurst int
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// PASETO v4 symmetric key for access tokens (32 bytes), set from the key file.
	AccessTokenKey      []byte
	AccessTokenDuration time.Duration // default: 24h
}

// RecycleConfig controls the recycle bin.
type RecycleConfig struct {
	// RetentionWindow is how long recycled snippets stay restorable (default: 720h).
	RetentionWindow time.Duration
	// PurgeInterval runs the expired-snippet sweep on this interval.
	// Zero (the default) leaves purging to explicit calls.
	PurgeInterval time.Duration
}

// CacheConfig selects the metadata cache backend.
type CacheConfig struct {
	// RedisURL switches the metadata cache to Redis; empty uses memory.
	RedisURL    string
	MetadataTTL time.Duration // default: 5m
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("snipstash", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	logFile := fs.String("log-file", "", "Rotated log file path (optional)")
	dataPath := fs.String("data-path", "", "Directory for the database and key file")
	dbPath := fs.String("db-path", "", "SQLite database path (default: {data-path}/snipstash.db)")

	serverName := fs.String("server-name", "", "Name for the server")
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated allowed CORS origins")
	rateLimit := fs.String("rate-limit", "", "Requests per second per client (0 disables)")

	accessTokenDuration := fs.String("access-token-duration", "", "Access token lifetime (e.g., 24h)")
	retention := fs.String("recycle-retention", "", "How long recycled snippets are kept (default: 720h)")
	purgeInterval := fs.String("purge-interval", "", "Expired snippet sweep interval (0 disables)")
	redisURL := fs.String("redis-url", "", "Redis URL for the metadata cache (optional)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Missing .env is fine; existing environment variables win over it.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file %q: %w", *envFile, err)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level:      getConfigValue(*logLevel, "LOG_LEVEL", "info"),
			File:       getConfigValue(*logFile, "LOG_FILE", ""),
			MaxSizeMB:  getIntConfigValue("", "LOG_MAX_SIZE_MB", 50),
			MaxBackups: getIntConfigValue("", "LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getIntConfigValue("", "LOG_MAX_AGE_DAYS", 28),
		},
		Storage: StorageConfig{
			DataPath:     getConfigValue(*dataPath, "DATA_PATH", ""),
			DatabasePath: getConfigValue(*dbPath, "DATABASE_PATH", ""),
		},
		Server: ServerConfig{
			Name:           getConfigValue(*serverName, "SERVER_NAME", "SnipStash"),
			Port:           getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins:    splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "")),
			RateLimitBurst: getIntConfigValue("", "RATE_LIMIT_BURST", 40),
		},
		Cache: CacheConfig{
			RedisURL: getConfigValue(*redisURL, "REDIS_URL", ""),
		},
	}

	rps, err := strconv.ParseFloat(getConfigValue(*rateLimit, "RATE_LIMIT", "20"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit: %w", err)
	}
	cfg.Server.RateLimit = rps

	durations := []struct {
		dst      *time.Duration
		flag     string
		env      string
		fallback string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.Auth.AccessTokenDuration, *accessTokenDuration, "ACCESS_TOKEN_DURATION", "24h"},
		{&cfg.Recycle.RetentionWindow, *retention, "RECYCLE_RETENTION", "720h"},
		{&cfg.Recycle.PurgeInterval, *purgeInterval, "PURGE_INTERVAL", "0"},
		{&cfg.Cache.MetadataTTL, "", "METADATA_CACHE_TTL", "5m"},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flag, d.env, d.fallback)
		v, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", strings.ToLower(d.env), raw, err)
		}
		*d.dst = v
	}

	if err := cfg.expandStoragePaths(); err != nil {
		return nil, fmt.Errorf("invalid storage path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Storage.DatabasePath == "" {
		return errors.New("database path cannot be empty after expansion")
	}

	if c.Recycle.RetentionWindow <= 0 {
		return errors.New("recycle retention must be positive")
	}
	if c.Recycle.PurgeInterval < 0 {
		return errors.New("purge interval cannot be negative")
	}
	if c.Server.RateLimit < 0 {
		return errors.New("rate limit cannot be negative")
	}

	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

func (c *Config) expandStoragePaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	dataPath, err := expandPath(c.Storage.DataPath, filepath.Join(homeDir, "SnipStash", "data"))
	if err != nil {
		return err
	}
	c.Storage.DataPath = dataPath

	dbPath, err := expandPath(c.Storage.DatabasePath, filepath.Join(dataPath, "snipstash.db"))
	if err != nil {
		return err
	}
	c.Storage.DatabasePath = dbPath
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
// Unparsable values fall back to the default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(strings.TrimSpace(strValue))
	if err != nil {
		return defaultValue
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
