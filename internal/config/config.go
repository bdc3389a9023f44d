// Package config loads Talespring server configuration from flags, environment variables and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendKV       = "kv"
	BackendPostgres = "postgres"
)

// Relation store backends. "store" keeps relations next to content.
const (
	RelationBackendStore = "store"
	RelationBackendRedis = "redis"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Storage StorageConfig
	Server  ServerConfig
	Auth    AuthConfig
	Library LibraryConfig
	Reads   ReadsConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig selects and locates the persistence backends.
type StorageConfig struct {
	DataPath        string
	Backend         string
	PostgresDSN     string
	RelationBackend string
	RedisURL        string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	CORSAllowedOrigins []string
	RateLimitPerMinute int // mutating requests per client IP
	RateLimitBurst     int
}

// AuthConfig holds identity token configuration.
type AuthConfig struct {
	// KeyHex is the hex encoded PASETO v4 local key shared with the identity provider.
	// Empty means load or generate {DataPath}/auth.key.
	KeyHex string
}

// LibraryConfig tunes library view assembly.
type LibraryConfig struct {
	FetchConcurrency int
}

// ReadsConfig tunes the background read counter.
type ReadsConfig struct {
	IncrementTimeout time.Duration
}

// Load parses args (without the program name) and builds the configuration.
// Precedence, highest first: flags, environment, .env file, defaults.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("talespring", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Directory for embedded databases and keys")
	backend := fs.String("store-backend", "", "Storage backend (memory, sqlite, kv, postgres)")
	postgresDSN := fs.String("postgres-dsn", "", "Postgres connection string")
	relationBackend := fs.String("relation-backend", "", "Relation backend (store, redis)")
	redisURL := fs.String("redis-url", "", "Redis URL for the redis relation backend")
	port := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma separated allowed CORS origins")
	authKey := fs.String("auth-key", "", "Hex encoded token key shared with the identity provider")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// A missing .env file is normal.
	if err := loadEnvFile(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", *envFile, err)
	}

	cfg := &Config{
		App:    AppConfig{Environment: getConfigValue(*env, "ENV", "development")},
		Logger: LoggerConfig{Level: getConfigValue(*logLevel, "LOG_LEVEL", "info")},
		Storage: StorageConfig{
			DataPath:        getConfigValue(*dataPath, "DATA_PATH", ""),
			Backend:         getConfigValue(*backend, "STORE_BACKEND", BackendSQLite),
			PostgresDSN:     getConfigValue(*postgresDSN, "POSTGRES_DSN", ""),
			RelationBackend: getConfigValue(*relationBackend, "RELATION_BACKEND", RelationBackendStore),
			RedisURL:        getConfigValue(*redisURL, "REDIS_URL", ""),
		},
		Server: ServerConfig{
			Port:               getConfigValue(*port, "SERVER_PORT", "8080"),
			CORSAllowedOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
			RateLimitPerMinute: getIntConfigValue("", "RATE_LIMIT_PER_MINUTE", 120),
			RateLimitBurst:     getIntConfigValue("", "RATE_LIMIT_BURST", 30),
		},
		Auth:    AuthConfig{KeyHex: getConfigValue(*authKey, "AUTH_KEY_HEX", "")},
		Library: LibraryConfig{FetchConcurrency: getIntConfigValue("", "LIBRARY_FETCH_CONCURRENCY", 8)},
	}

	durations := []struct {
		flagValue, envKey, def string
		dst                    *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{"", "READ_INCREMENT_TIMEOUT", "5s", &cfg.Reads.IncrementTimeout},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		v, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dst = v
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required values are present and consistent.
func (c *Config) Validate() error {
	switch c.App.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Storage.Backend {
	case BackendMemory, BackendSQLite, BackendKV:
		if c.Storage.DataPath == "" && c.Storage.Backend != BackendMemory {
			return errors.New("data path cannot be empty for embedded backends")
		}
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required for the postgres backend")
		}
	default:
		return fmt.Errorf("invalid store backend: %q", c.Storage.Backend)
	}

	switch c.Storage.RelationBackend {
	case RelationBackendStore:
	case RelationBackendRedis:
		if c.Storage.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis relation backend")
		}
	default:
		return fmt.Errorf("invalid relation backend: %q", c.Storage.RelationBackend)
	}

	if c.Server.RateLimitPerMinute <= 0 || c.Server.RateLimitBurst <= 0 {
		return errors.New("rate limit and burst must be positive")
	}
	if c.Library.FetchConcurrency <= 0 {
		return errors.New("LIBRARY_FETCH_CONCURRENCY must be positive")
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) expandDataPath() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	expanded, err := expandPath(c.Storage.DataPath, filepath.Join(home, "Talespring", "data"))
	if err != nil {
		return err
	}
	c.Storage.DataPath = expanded
	return nil
}

// expandPath expands ~ and makes path absolute, falling back to defaultPath when empty.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, rest)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	return filepath.Clean(abs), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return defaultValue
}

// getIntConfigValue is getConfigValue for integers. Unparseable values fall back to the default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	raw := getConfigValue(flagValue, envKey, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// loadEnvFile loads KEY=value lines from path without overriding variables already set.
func loadEnvFile(path string) error {
	f, err := os.Open(path) //#nosec G304 -- operator supplied path
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for lineNum := 1; sc.Scan(); lineNum++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to set env var %s: %w", key, err)
		}
	}
	return sc.Err()
}
