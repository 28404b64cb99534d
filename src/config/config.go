package config

import (
	"fmt"
	"os"
	"strings"

	"metrics-broker/src/helpers"
	"metrics-broker/src/models"

	"gopkg.in/yaml.v3"
)

// Defaults applied to zero-valued fields after parsing.
const (
	DefaultHost                          = "0.0.0.0"
	DefaultPort                          = 8765
	DefaultGrpcPort                      = 50051
	DefaultMaxConnections                = 1000
	DefaultHeartbeatIntervalMs           = 30000
	DefaultBufferSize                    = 1000
	DefaultRateLimitPerClient            = 100
	DefaultMinUpdateIntervalMs           = 1000
	DefaultSendQueueSize                 = 256
	DefaultAggregationCacheTTLSeconds    = 60
	DefaultBufferRetentionMinutes        = 24 * 60
	DefaultJanitorIntervalSeconds        = 300
	DefaultStaleConnectionTimeoutSeconds = 600
	DefaultRetentionDays                 = 7
	DefaultFlushIntervalSeconds          = 5
	DefaultRequestTimeout                = 5
	DefaultSourceIntervalMs              = 1000
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse builds a validated Config from raw YAML
func Parse(data []byte) (*Config, error) {
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, helpers.NewConfigurationError("failed to parse config from YAML", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, helpers.NewConfigurationError("config validation failed", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills unset tunables
func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.GrpcPort == 0 {
		c.GrpcPort = DefaultGrpcPort
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}

	b := &c.Broker
	if b.MaxConnections == 0 {
		b.MaxConnections = DefaultMaxConnections
	}
	if b.HeartbeatIntervalMs == 0 {
		b.HeartbeatIntervalMs = DefaultHeartbeatIntervalMs
	}
	if b.BufferSize == 0 {
		b.BufferSize = DefaultBufferSize
	}
	if b.RateLimitPerClient == 0 {
		b.RateLimitPerClient = DefaultRateLimitPerClient
	}
	if b.MinUpdateIntervalMs == 0 {
		b.MinUpdateIntervalMs = DefaultMinUpdateIntervalMs
	}
	if b.SendQueueSize == 0 {
		b.SendQueueSize = DefaultSendQueueSize
	}
	if b.AggregationCacheTTLSeconds == 0 {
		b.AggregationCacheTTLSeconds = DefaultAggregationCacheTTLSeconds
	}
	if b.BufferRetentionMinutes == 0 {
		b.BufferRetentionMinutes = DefaultBufferRetentionMinutes
	}
	if b.JanitorIntervalSeconds == 0 {
		b.JanitorIntervalSeconds = DefaultJanitorIntervalSeconds
	}
	if b.StaleConnectionTimeoutSeconds == 0 {
		b.StaleConnectionTimeoutSeconds = DefaultStaleConnectionTimeoutSeconds
	}

	if c.Auth.Mode == "" {
		c.Auth.Mode = "static"
	}

	if c.Storage.DBType == "" {
		c.Storage.DBType = "sqlite"
	}
	if c.Storage.RetentionDays == 0 {
		c.Storage.RetentionDays = DefaultRetentionDays
	}
	if c.Storage.FlushIntervalSeconds == 0 {
		c.Storage.FlushIntervalSeconds = DefaultFlushIntervalSeconds
	}

	if c.Network.RequestTimeout == 0 {
		c.Network.RequestTimeout = DefaultRequestTimeout
	}

	for i := range c.DataSource.Sources {
		src := &c.DataSource.Sources[i]
		if src.Type == "" {
			src.Type = "synthetic"
		}
		if src.IntervalMs == 0 {
			src.IntervalMs = DefaultSourceIntervalMs
		}
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort < 0 || c.GrpcPort > 65535 {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}
	if c.GrpcPort == c.Port {
		return fmt.Errorf("grpc port must differ from server port (%d)", c.Port)
	}

	// Broker
	b := c.Broker
	if b.MaxConnections < 0 {
		return fmt.Errorf("max connections cannot be negative")
	}
	if b.HeartbeatIntervalMs < 100 {
		return fmt.Errorf("heartbeat interval must be at least 100ms, got %d", b.HeartbeatIntervalMs)
	}
	if b.BufferSize <= 0 {
		return fmt.Errorf("buffer size must be greater than 0")
	}
	if b.MinUpdateIntervalMs < 0 {
		return fmt.Errorf("min update interval cannot be negative")
	}
	if b.SendQueueSize <= 0 {
		return fmt.Errorf("send queue size must be greater than 0")
	}
	if b.StaleConnectionTimeoutSeconds*1000 < 2*b.HeartbeatIntervalMs {
		return fmt.Errorf("stale connection timeout must cover at least two heartbeat intervals")
	}

	// Auth
	switch strings.ToLower(c.Auth.Mode) {
	case "static":
		if b.AuthenticationRequired && len(c.Auth.Tokens) == 0 {
			return fmt.Errorf("static auth requires at least one token when authentication is required")
		}
	case "jwt":
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("jwt auth requires jwt_secret")
		}
	case "remote":
		if c.Auth.RemoteURL == "" {
			return fmt.Errorf("remote auth requires remote_url")
		}
	default:
		return fmt.Errorf("unknown auth mode: %s", c.Auth.Mode)
	}

	// Storage
	if c.Storage.Enabled {
		switch c.Storage.DBType {
		case "sqlite":
			if c.Storage.DBPath == "" {
				return fmt.Errorf("database path cannot be empty for sqlite")
			}
		case "postgres":
			if c.Storage.DBConnectionString == "" {
				return fmt.Errorf("connection string cannot be empty for postgres")
			}
		default:
			return fmt.Errorf("unsupported database type: %s", c.Storage.DBType)
		}
	}

	// Network
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	// DataSource
	for i, src := range c.DataSource.Sources {
		if src.Name == "" {
			return fmt.Errorf("source %d must have a name", i)
		}
		if len(src.Metrics) == 0 {
			return fmt.Errorf("source '%s' must have at least one metric", src.Name)
		}
		switch src.Type {
		case "synthetic":
		case "http":
			if src.URL == "" {
				return fmt.Errorf("source '%s' needs a url", src.Name)
			}
		default:
			return fmt.Errorf("source '%s' has unsupported type: %s", src.Name, src.Type)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Level exposes the configured log level to the logger
func (c *Config) Level() string {
	return c.LogLevel
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
