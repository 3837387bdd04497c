package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the diagnostics service
type Config struct {
	// Server configuration
	HTTPHost string `env:"WFDIAG_HTTP_HOST" envDefault:"127.0.0.1"`
	HTTPPort int    `env:"WFDIAG_HTTP_PORT" envDefault:"8080"`
	GRPCPort int    `env:"WFDIAG_GRPC_PORT" envDefault:"9090"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// OutputDir is the root below which every session gets its own directory.
	OutputDir string `env:"WFDIAG_OUTPUT_DIR"`
	// AdminOverride forces the privilege level when set to true or false.
	AdminOverride string `env:"WFDIAG_ADMIN_OVERRIDE"`

	Redis    RedisConfig
	Workers  WorkerConfig
	Progress ProgressConfig
	Timeouts TimeoutConfig
}

// RedisConfig holds Redis connection configuration. An empty address
// disables the Redis Streams mirror.
type RedisConfig struct {
	Addr         string `env:"REDIS_ADDR"`
	Password     string `env:"REDIS_PASS"`
	DB           int    `env:"REDIS_DB" envDefault:"0"`
	StreamMaxLen int64  `env:"REDIS_STREAM_MAXLEN" envDefault:"1000"`

	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// WorkerConfig holds worker pool configuration
type WorkerConfig struct {
	PoolSize            int           `env:"WORKER_POOL_SIZE" envDefault:"8"`
	HealthCheckInterval time.Duration `env:"WORKER_HEALTH_CHECK_INTERVAL" envDefault:"30s"`
}

// ProgressConfig tunes progress sampling and delivery.
type ProgressConfig struct {
	Interval time.Duration `env:"PROGRESS_INTERVAL" envDefault:"200ms"`
	Buffer   int           `env:"PROGRESS_BUFFER" envDefault:"64"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	TaskExecutionTimeout time.Duration `env:"TIMEOUT_TASK_EXECUTION" envDefault:"120s"`
	ShutdownTimeout      time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join(os.TempDir(), "wfdiag")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	// 0 disables the gRPC health server
	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if _, err := c.Admin(); err != nil {
		return err
	}

	if c.Workers.PoolSize < 1 {
		return fmt.Errorf("worker pool size must be at least 1")
	}
	if c.Progress.Interval <= 0 {
		return fmt.Errorf("progress interval must be positive")
	}
	if c.Progress.Buffer < 1 {
		return fmt.Errorf("progress buffer must be at least 1")
	}
	if c.Timeouts.TaskExecutionTimeout <= 0 {
		return fmt.Errorf("task execution timeout must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// Admin returns the forced privilege, or nil when it should be detected.
func (c *Config) Admin() (*bool, error) {
	s := strings.TrimSpace(c.AdminOverride)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("invalid admin override %q: %w", c.AdminOverride, err)
	}
	return &v, nil
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return net.JoinHostPort(c.HTTPHost, strconv.Itoa(c.HTTPPort))
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return net.JoinHostPort(c.HTTPHost, strconv.Itoa(c.GRPCPort))
}
