package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/initia-labs/corerpc/types"
)

var (
	Version    = "dev"
	CommitHash = "unknown"

	// Singleton instance
	configInstance *Config
	configOnce     sync.Once
)

// Default configuration constants
const (
	DefaultMetricsPort = "9090"
	DefaultMetricsPath = "/metrics"
	MinPortNumber      = 1
	MaxPortNumber      = 65535

	DefaultWatchInterval = 10 * time.Second

	DefaultRabbitMQPort       = 5552
	DefaultRabbitMQVHost      = "/"
	DefaultRabbitMQPartitions = 1
	DefaultRabbitMQStream     = "corerpc-tips"

	DefaultEnvironment = "local"
)

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
	Port    string `json:"port"`
}

// SentryConfig contains configuration for Sentry integration
type SentryConfig struct {
	DSN              string  `json:"dsn"`
	SampleRate       float64 `json:"sample_rate"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
	Environment      string  `json:"environment"`
}

// RabbitMQConfig enables tip publishing when Host is set.
type RabbitMQConfig struct {
	Host       string
	Port       int
	VHost      string
	User       string
	Password   string
	Partitions int
	Stream     string
}

func (c RabbitMQConfig) Enabled() bool {
	return c.Host != ""
}

func SetBuildInfo(v, commit string) {
	Version = v
	CommitHash = commit
}

type Config struct {
	nodeConfig     *NodeConfig
	logLevel       string
	logFormat      string
	watchInterval  time.Duration
	metricsConfig  *MetricsConfig
	sentryConfig   *SentryConfig
	rabbitMQConfig *RabbitMQConfig
}

func setDefaults() {
	viper.SetDefault("LOG_LEVEL", "warn")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("WATCH_INTERVAL", DefaultWatchInterval)
	viper.SetDefault("METRICS_ENABLED", false)
	viper.SetDefault("METRICS_PATH", DefaultMetricsPath)
	viper.SetDefault("METRICS_PORT", DefaultMetricsPort)
	viper.SetDefault("ENVIRONMENT", DefaultEnvironment)

	// Sentry defaults
	viper.SetDefault("SENTRY_DSN", "")
	viper.SetDefault("SENTRY_SAMPLE_RATE", 0.01)
	viper.SetDefault("SENTRY_TRACES_SAMPLE_RATE", 0.01)

	// RabbitMQ defaults
	viper.SetDefault("RABBITMQ_PORT", DefaultRabbitMQPort)
	viper.SetDefault("RABBITMQ_VHOST", DefaultRabbitMQVHost)
	viper.SetDefault("RABBITMQ_PARTITIONS", DefaultRabbitMQPartitions)
	viper.SetDefault("RABBITMQ_STREAM", DefaultRabbitMQStream)

	// RPC_URL has no default
}

func GetConfig() (*Config, error) {
	var err error

	configOnce.Do(func() {
		configInstance, err = loadConfig()
	})

	return configInstance, err
}

func loadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// just log without panic, local testing purpose only
		fmt.Fprintln(os.Stderr, "No .env file found")
	}
	viper.AutomaticEnv()
	setDefaults()

	config := &Config{
		nodeConfig: &NodeConfig{
			RpcUrl:           viper.GetString("RPC_URL"),
			RpcUser:          viper.GetString("RPC_USER"),
			RpcPassword:      viper.GetString("RPC_PASSWORD"),
			RpcCookieFile:    viper.GetString("RPC_COOKIE_FILE"),
			MinServerVersion: viper.GetString("MIN_SERVER_VERSION"),
		},
		logLevel:      viper.GetString("LOG_LEVEL"),
		logFormat:     viper.GetString("LOG_FORMAT"),
		watchInterval: viper.GetDuration("WATCH_INTERVAL"),
		metricsConfig: &MetricsConfig{
			Enabled: viper.GetBool("METRICS_ENABLED"),
			Path:    viper.GetString("METRICS_PATH"),
			Port:    viper.GetString("METRICS_PORT"),
		},
		sentryConfig: &SentryConfig{
			DSN:              viper.GetString("SENTRY_DSN"),
			SampleRate:       viper.GetFloat64("SENTRY_SAMPLE_RATE"),
			TracesSampleRate: viper.GetFloat64("SENTRY_TRACES_SAMPLE_RATE"),
			Environment:      viper.GetString("ENVIRONMENT"),
		},
		rabbitMQConfig: &RabbitMQConfig{
			Host:       viper.GetString("RABBITMQ_HOST"),
			Port:       viper.GetInt("RABBITMQ_PORT"),
			VHost:      viper.GetString("RABBITMQ_VHOST"),
			User:       viper.GetString("RABBITMQ_USER"),
			Password:   viper.GetString("RABBITMQ_PASSWORD"),
			Partitions: viper.GetInt("RABBITMQ_PARTITIONS"),
			Stream:     viper.GetString("RABBITMQ_STREAM"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// SetNodeConfig assigns the node config for testing purposes.
func (c *Config) SetNodeConfig(nodeCfg *NodeConfig) {
	c.nodeConfig = nodeCfg
}

func (c Config) GetNodeConfig() *NodeConfig {
	return c.nodeConfig
}

func (c Config) GetRpcUrl() string {
	return c.nodeConfig.RpcUrl
}

func (c Config) GetAuth() Auth {
	return c.nodeConfig.Auth()
}

func (c Config) GetMinServerVersion() string {
	return c.nodeConfig.MinServerVersion
}

func (c Config) GetWatchInterval() time.Duration {
	return c.watchInterval
}

func (c Config) GetMetricsConfig() *MetricsConfig {
	return c.metricsConfig
}

func (c Config) GetSentryConfig() *SentryConfig {
	if c.sentryConfig == nil || c.sentryConfig.DSN == "" {
		return nil
	}
	return c.sentryConfig
}

func (c Config) GetRabbitMQConfig() *RabbitMQConfig {
	if c.rabbitMQConfig == nil || !c.rabbitMQConfig.Enabled() {
		return nil
	}
	return c.rabbitMQConfig
}

func (c Config) GetLogLevel() slog.Level {
	switch c.logLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func (c Config) GetLogFormat() string {
	if c.logFormat == "json" {
		return "json"
	}
	return "plain"
}

func (c Config) Validate() error {
	if err := c.validateLogSettings(); err != nil {
		return err
	}
	if c.watchInterval <= 0 {
		return types.NewValidationError("WATCH_INTERVAL", "must be positive")
	}
	if err := c.validateMetricsConfig(); err != nil {
		return err
	}
	if err := c.validateRabbitMQConfig(); err != nil {
		return err
	}
	if c.nodeConfig == nil {
		return types.NewConfigError("node config is missing", nil)
	}
	return c.nodeConfig.Validate()
}

// validateLogSettings validates log format and level configuration
func (c Config) validateLogSettings() error {
	switch c.logFormat {
	case "json", "plain":
		break
	default:
		return types.NewValidationError("LOG_FORMAT", fmt.Sprintf("invalid value '%s', must be 'json' or 'plain'", c.logFormat))
	}

	switch c.logLevel {
	case "debug", "info", "warn", "error":
		break
	default:
		return types.NewValidationError("LOG_LEVEL", fmt.Sprintf("invalid value '%s', must be one of: debug, info, warn, error", c.logLevel))
	}
	return nil
}

// validateMetricsConfig validates metrics configuration
func (c Config) validateMetricsConfig() error {
	if c.metricsConfig == nil || !c.metricsConfig.Enabled {
		return nil
	}
	if port, err := strconv.Atoi(c.metricsConfig.Port); err != nil || port < MinPortNumber || port > MaxPortNumber {
		return types.NewValidationError("METRICS_PORT", fmt.Sprintf("must be a valid port number (%d-%d)", MinPortNumber, MaxPortNumber))
	}
	if c.metricsConfig.Path == "" || c.metricsConfig.Path[0] != '/' {
		return types.NewValidationError("METRICS_PATH", "must start with '/'")
	}
	return nil
}

func (c Config) validateRabbitMQConfig() error {
	if c.rabbitMQConfig == nil || !c.rabbitMQConfig.Enabled() {
		return nil
	}
	if c.rabbitMQConfig.Port < MinPortNumber || c.rabbitMQConfig.Port > MaxPortNumber {
		return types.NewValidationError("RABBITMQ_PORT", fmt.Sprintf("must be a valid port number (%d-%d)", MinPortNumber, MaxPortNumber))
	}
	if c.rabbitMQConfig.Partitions < 1 {
		return types.NewValidationError("RABBITMQ_PARTITIONS", "must be at least 1")
	}
	if c.rabbitMQConfig.Stream == "" {
		return types.NewValidationError("RABBITMQ_STREAM", "required when RABBITMQ_HOST is set")
	}
	return nil
}
