package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/initia-labs/corerpc/types"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("RPC_URL", "http://127.0.0.1:8332")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("LOG_FORMAT", "plain")
}

func TestLoadConfig(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("RPC_USER", "alice")
	t.Setenv("RPC_PASSWORD", "secret")
	t.Setenv("WATCH_INTERVAL", "3s")
	t.Setenv("MIN_SERVER_VERSION", "v0.19.0")

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8332", cfg.GetRpcUrl())
	assert.Equal(t, UserPass("alice", "secret"), cfg.GetAuth())
	assert.Equal(t, slog.LevelInfo, cfg.GetLogLevel())
	assert.Equal(t, "plain", cfg.GetLogFormat())
	assert.Equal(t, 3*time.Second, cfg.GetWatchInterval())
	assert.Equal(t, "v0.19.0", cfg.GetMinServerVersion())
	assert.Nil(t, cfg.GetSentryConfig())
	assert.Nil(t, cfg.GetRabbitMQConfig())
}

func TestLoadConfig_MissingUrl(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("RPC_URL", "")

	_, err := loadConfig()
	require.Error(t, err)
	assert.True(t, types.IsErrorType(err, types.ErrTypeValidation))
}

func TestNodeConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     NodeConfig
		wantErr types.ErrorType
	}{
		{name: "valid", cfg: NodeConfig{RpcUrl: "https://node.example:8332"}},
		{name: "bad scheme", cfg: NodeConfig{RpcUrl: "ftp://node"}, wantErr: types.ErrTypeInvalidValue},
		{name: "no host", cfg: NodeConfig{RpcUrl: "http://"}, wantErr: types.ErrTypeInvalidValue},
		{
			name:    "cookie and password",
			cfg:     NodeConfig{RpcUrl: "http://node", RpcCookieFile: "/tmp/.cookie", RpcPassword: "x"},
			wantErr: types.ErrTypeValidation,
		},
		{
			name:    "bad min version",
			cfg:     NodeConfig{RpcUrl: "http://node", MinServerVersion: "19"},
			wantErr: types.ErrTypeInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, types.ErrorTypeOf(err))
		})
	}
}

func TestNodeConfigAuth(t *testing.T) {
	assert.Equal(t, NoAuth(), NodeConfig{}.Auth())
	assert.Equal(t, CookieFile("/data/.cookie"), NodeConfig{RpcCookieFile: "/data/.cookie"}.Auth())
	assert.Equal(t, UserPass("u", ""), NodeConfig{RpcUser: "u"}.Auth())
}

func TestValidateRabbitMQConfig(t *testing.T) {
	cfg := &Config{
		nodeConfig:    &NodeConfig{RpcUrl: "http://node"},
		logLevel:      "warn",
		logFormat:     "json",
		watchInterval: time.Second,
		rabbitMQConfig: &RabbitMQConfig{
			Host:       "localhost",
			Port:       DefaultRabbitMQPort,
			Partitions: 0,
			Stream:     DefaultRabbitMQStream,
		},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RABBITMQ_PARTITIONS")

	cfg.rabbitMQConfig.Partitions = 3
	require.NoError(t, cfg.Validate())
	assert.NotNil(t, cfg.GetRabbitMQConfig())
}
