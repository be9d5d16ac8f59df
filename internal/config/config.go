// Package config provides application configuration loaded from environment
// variables. Use the package-level Get() function to obtain the singleton
// Config instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        // e.g. "8080"
	Env          string        // "development" | "production"
	ReadTimeout  time.Duration // default 10s
	WriteTimeout time.Duration // default 10s
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	DSN             string        // full postgres DSN
	MaxOpenConns    int           // default 25
	MaxIdleConns    int           // default 10
	ConnMaxLifetime time.Duration // default 5m
}

// WorkerConfig holds the background loop cadence and batching knobs.
type WorkerConfig struct {
	MatchInterval     time.Duration // default 5s
	LiquidityInterval time.Duration // default 20s
	StateInterval     time.Duration // default 5s
	ResolverInterval  time.Duration // default 5s
	LiquidityAge      time.Duration // how long a bet sits unmatched before the liquidity engine backs it; default 20s
	MatchFanout       int           // concurrent event groups per matching tick; default 4
	QueueBatch        int           // queue entries scanned per matching tick; default 500
	LiquidityBatch    int           // aging bets scanned per liquidity tick; default 100
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire application.
type Config struct {
	Server ServerConfig
	DB     DBConfig
	Worker WorkerConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// Returns the first validation error encountered.
func (c *Config) Validate() error {
	var errs []error

	if c.IsProd() && c.DB.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be set in production"))
	}

	if c.Worker.MatchFanout < 1 {
		errs = append(errs, fmt.Errorf(
			"WORKER_MATCH_FANOUT must be at least 1, got %d", c.Worker.MatchFanout))
	}
	for _, iv := range []struct {
		name string
		d    time.Duration
	}{
		{"WORKER_MATCH_INTERVAL", c.Worker.MatchInterval},
		{"WORKER_LIQUIDITY_INTERVAL", c.Worker.LiquidityInterval},
		{"WORKER_STATE_INTERVAL", c.Worker.StateInterval},
		{"WORKER_RESOLVER_INTERVAL", c.Worker.ResolverInterval},
	} {
		if iv.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", iv.name, iv.d))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Config, loading it once from environment variables.
// Panics if loading fails — call this early in main() to catch misconfigurations
// at startup.
func Get() *Config {
	once.Do(func() {
		instance, loadErr = load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates configuration. Intended for use in main().
// Panics on any error so misconfiguration is caught immediately at boot.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal loader
// ──────────────────────────────────────────────────────────────────────────────

func load() (*Config, error) {
	cfg := &Config{}

	// ── Server ────────────────────────────────────────────────────────────────
	readTimeout, err := getDuration("SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SERVER_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SERVER_WRITE_TIMEOUT: %w", err)
	}
	cfg.Server = ServerConfig{
		Port:         getEnv("SERVER_PORT", "8080"),
		Env:          getEnv("ENVIRONMENT", "development"),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	// ── Database ──────────────────────────────────────────────────────────────
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		// Build DSN from individual components for convenience in dev
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_NAME", "tradecore"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}

	connLifetime, err := getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("DB_CONN_MAX_LIFETIME: %w", err)
	}

	cfg.DB = DBConfig{
		DSN:             dsn,
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: connLifetime,
	}

	// ── Workers ───────────────────────────────────────────────────────────────
	fanout, err := getInt("WORKER_MATCH_FANOUT", 4)
	if err != nil {
		return nil, fmt.Errorf("WORKER_MATCH_FANOUT: %w", err)
	}
	queueBatch, err := getInt("WORKER_QUEUE_BATCH", 500)
	if err != nil {
		return nil, fmt.Errorf("WORKER_QUEUE_BATCH: %w", err)
	}
	liqBatch, err := getInt("WORKER_LIQUIDITY_BATCH", 100)
	if err != nil {
		return nil, fmt.Errorf("WORKER_LIQUIDITY_BATCH: %w", err)
	}

	matchIv, err := getDuration("WORKER_MATCH_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("WORKER_MATCH_INTERVAL: %w", err)
	}
	liqIv, err := getDuration("WORKER_LIQUIDITY_INTERVAL", 20*time.Second)
	if err != nil {
		return nil, fmt.Errorf("WORKER_LIQUIDITY_INTERVAL: %w", err)
	}
	stateIv, err := getDuration("WORKER_STATE_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("WORKER_STATE_INTERVAL: %w", err)
	}
	resolverIv, err := getDuration("WORKER_RESOLVER_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("WORKER_RESOLVER_INTERVAL: %w", err)
	}
	liqAge, err := getDuration("WORKER_LIQUIDITY_AGE", 20*time.Second)
	if err != nil {
		return nil, fmt.Errorf("WORKER_LIQUIDITY_AGE: %w", err)
	}

	cfg.Worker = WorkerConfig{
		MatchInterval:     matchIv,
		LiquidityInterval: liqIv,
		StateInterval:     stateIv,
		ResolverInterval:  resolverIv,
		LiquidityAge:      liqAge,
		MatchFanout:       fanout,
		QueueBatch:        queueBatch,
		LiquidityBatch:    liqBatch,
	}

	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

// getDuration parses an env var as a Go duration string (e.g. "15m", "2s").
// Falls back to defaultVal only when the variable is unset or empty.
func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return d, nil
}
