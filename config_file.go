package redisclient

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML representation of Config.
//
//	endpoints: ["10.0.0.1:6379", "10.0.0.2:6379"]
//	pool_size: 20
//	pool: puddle
//	connect_timeout: 2s
//	timeout: 500ms
//	health_check_interval: 30s
//	circuit_breaker:
//	  max_requests: 1
//	  interval: 10s
//	  timeout: 5s
type FileConfig struct {
	Endpoints           []string              `yaml:"endpoints"`
	PoolSize            int32                 `yaml:"pool_size"`
	Pool                string                `yaml:"pool"` // channel | puddle
	ConnectTimeout      time.Duration         `yaml:"connect_timeout"`
	Timeout             time.Duration         `yaml:"timeout"`
	RetryDelay          time.Duration         `yaml:"retry_delay"`
	MaxConnLifetime     time.Duration         `yaml:"max_conn_lifetime"`
	MaxConnIdleTime     time.Duration         `yaml:"max_conn_idle_time"`
	HealthCheckInterval time.Duration         `yaml:"health_check_interval"`
	CircuitBreaker      *CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig holds the parameters of NewCircuitBreakerConfig.
type CircuitBreakerConfig struct {
	MaxRequests uint32        `yaml:"max_requests"`
	Interval    time.Duration `yaml:"interval"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Environment variables overriding file values.
const (
	EnvEndpoints = "REDIS_ENDPOINTS" // comma separated
	EnvPoolSize  = "REDIS_POOL_SIZE"
)

// LoadConfigFile reads a YAML config file, applies environment overrides
// and returns the resulting Config. An empty path skips the file.
func LoadConfigFile(path string) (Config, error) {
	fc, err := ReadConfigFile(path)
	if err != nil {
		return Config{}, err
	}
	return fc.Config()
}

// ReadConfigFile reads a YAML config file and applies environment
// overrides without validating the result.
func ReadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fc, fmt.Errorf("failed to load config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return fc, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := fc.applyEnvOverrides(); err != nil {
		return fc, err
	}

	return fc, nil
}

func (fc *FileConfig) applyEnvOverrides() error {
	if endpoints := os.Getenv(EnvEndpoints); endpoints != "" {
		fc.Endpoints = ParseEndpointList(endpoints)
	}

	if size := os.Getenv(EnvPoolSize); size != "" {
		n, err := strconv.ParseInt(size, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPoolSize, err)
		}
		fc.PoolSize = int32(n)
	}

	return nil
}

// Config validates fc and converts it.
func (fc FileConfig) Config() (Config, error) {
	if len(fc.Endpoints) == 0 {
		return Config{}, fmt.Errorf("invalid configuration: no endpoints")
	}
	if fc.PoolSize < 0 {
		return Config{}, fmt.Errorf("invalid configuration: pool_size must not be negative")
	}

	config := Config{
		Endpoints:           fc.Endpoints,
		MaxSize:             fc.PoolSize,
		ConnectTimeout:      fc.ConnectTimeout,
		Timeout:             fc.Timeout,
		RetryDelay:          fc.RetryDelay,
		MaxConnLifetime:     fc.MaxConnLifetime,
		MaxConnIdleTime:     fc.MaxConnIdleTime,
		HealthCheckInterval: fc.HealthCheckInterval,
	}

	switch fc.Pool {
	case "", "channel":
		config.Pool = NewChannelPool
	case "puddle":
		config.Pool = NewPuddlePool
	default:
		return Config{}, fmt.Errorf("invalid configuration: unknown pool %q", fc.Pool)
	}

	if cb := fc.CircuitBreaker; cb != nil {
		config.NewCircuitBreaker = NewCircuitBreakerConfig(cb.MaxRequests, cb.Interval, cb.Timeout)
	}

	return config, nil
}

// ParseEndpointList splits a comma separated endpoint list. Entries are
// trimmed and empty ones dropped.
func ParseEndpointList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
