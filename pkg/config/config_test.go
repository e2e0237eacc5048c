package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg, _ := newFromEnv("test")
	cfg.JWTSecret = "secret"
	return cfg
}

func TestNewFromEnv_Defaults(t *testing.T) {
	cfg, err := newFromEnv("test")
	require.NoError(t, err)

	assert.Equal(t, DefaultMatchLimit, cfg.DefaultMatchLimit)
	assert.Equal(t, DefaultOtpDigits, cfg.OtpDigits)
	assert.True(t, cfg.RefundOnCancel)
	assert.Equal(t, DefaultTimezone, cfg.DefaultTimezone)
	assert.NotNil(t, cfg.Kafka)
}

func TestNewFromEnv_EnvOverrides(t *testing.T) {
	t.Setenv(EnvDefaultMatchLimit, "5")
	t.Setenv(EnvRefundOnCancel, "false")
	t.Setenv(EnvInitiateLockTTL, "3s")

	cfg, err := newFromEnv("test")
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.DefaultMatchLimit)
	assert.False(t, cfg.RefundOnCancel)
	assert.Equal(t, 3*time.Second, cfg.InitiateLockTTL)
}

func TestApplyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rentmate.yaml")
	content := `
mongo:
  database: rentmate_test
rentals:
  default_match_limit: 4
  otp_digits: 6
  refund_on_cancel: false
  initiate_lock_ttl: 2s
notifications:
  brokers: k1:9092,k2:9092
  topic: custom-topic
  middleware: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv(EnvConfigFile, path)
	t.Setenv(EnvOtpDigits, "5")

	cfg, err := newFromEnv("test")
	require.NoError(t, err)

	assert.Equal(t, "rentmate_test", cfg.MongoDatabaseName)
	assert.Equal(t, 4, cfg.DefaultMatchLimit)
	assert.Equal(t, 5, cfg.OtpDigits, "env must win over file")
	assert.False(t, cfg.RefundOnCancel)
	assert.Equal(t, 2*time.Second, cfg.InitiateLockTTL)
	assert.Equal(t, "custom-topic", cfg.Kafka.Topic)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Kafka.Middleware)
}

func TestApplyFile_InvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rentals:\n  initiate_lock_ttl: soon\n"), 0o600))
	t.Setenv(EnvConfigFile, path)

	_, err := newFromEnv("test")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(cfg *Config) {},
		},
		{
			name:    "missing jwt secret",
			mutate:  func(cfg *Config) { cfg.JWTSecret = "" },
			wantErr: "JWTSecret cannot be empty",
		},
		{
			name:    "bad port",
			mutate:  func(cfg *Config) { cfg.Port = "99999" },
			wantErr: "Port must be between",
		},
		{
			name:    "otp digits too short",
			mutate:  func(cfg *Config) { cfg.OtpDigits = 2 },
			wantErr: "OtpDigits must be between 4 and 8",
		},
		{
			name:    "max below default match limit",
			mutate:  func(cfg *Config) { cfg.MaxMatchLimit = 1 },
			wantErr: "MaxMatchLimit",
		},
		{
			name:    "unknown timezone",
			mutate:  func(cfg *Config) { cfg.DefaultTimezone = "Mars/Olympus" },
			wantErr: "DefaultTimezone",
		},
		{
			name:    "bad mongo uri",
			mutate:  func(cfg *Config) { cfg.MongoURI = "postgres://localhost" },
			wantErr: "MongoURI must start with",
		},
		{
			name:    "events without topic",
			mutate:  func(cfg *Config) { cfg.EventsEnabled = true; cfg.Kafka.Topic = "" },
			wantErr: "Notifications topic cannot be empty",
		},
		{
			name:   "kafka ignored when events are off",
			mutate: func(cfg *Config) { cfg.EventsEnabled = false; cfg.Kafka.Brokers = nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRedactMongoURI(t *testing.T) {
	got := redactMongoURI("mongodb://admin:hunter2@db:27017/rentmate")
	assert.False(t, strings.Contains(got, "hunter2"))
	assert.Contains(t, got, "***:***@")
}

func TestPagination(t *testing.T) {
	assert.Equal(t, 3, NormalizeLimit(0, 3, 50))
	assert.Equal(t, 50, NormalizeLimit(500, 3, 50))
	assert.Equal(t, 1, NormalizeLimit(-1, 0, 50))
	assert.Equal(t, 1, NormalizeStep(0))
	assert.Equal(t, 1, NormalizeStep(-4))
	assert.Equal(t, 7, NormalizeStep(7))
	assert.Equal(t, int64(0), SkipFor(1, 20))
	assert.Equal(t, int64(40), SkipFor(3, 20))
	assert.Equal(t, int64(0), SkipFor(0, 20))
}
