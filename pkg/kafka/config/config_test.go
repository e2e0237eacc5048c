package kafka_config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg := LoadFrom(lookupFrom(nil))

	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Equal(t, DefaultNotificationsTopic, cfg.Topic)
	assert.Equal(t, DefaultNotificationsDLQTopic, cfg.DLQTopic)
	assert.Equal(t, DefaultNotifierGroupID, cfg.GroupID)
	assert.Equal(t, -1, cfg.RequireAcks)
	assert.True(t, cfg.Middleware)
	assert.Empty(t, cfg.Problems())
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg := LoadFrom(lookupFrom(map[string]string{
		EnvKafkaBrokers:           " k1:9092, ,k2:9092 ",
		EnvNotificationsTopic:     "otp",
		EnvNotifierGroupID:        "sms",
		EnvProducerCompression:    "ZSTD",
		EnvConsumerStartOffset:    "-2",
		EnvConsumerCommitInterval: "250ms",
		EnvConsumerMaxRetries:     "not-a-number",
		EnvMiddleware:             "false",
	}))

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
	assert.Equal(t, "otp", cfg.Topic)
	assert.Equal(t, "sms", cfg.GroupID)
	assert.Equal(t, "zstd", cfg.Compression)
	assert.Equal(t, int64(-2), cfg.StartOffset)
	assert.Equal(t, 250*time.Millisecond, cfg.CommitInterval)
	assert.Equal(t, DefaultConsumerMaxRetries, cfg.MaxRetries, "unparsable values keep the default")
	assert.False(t, cfg.Middleware)
}

func TestProblems(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
		want   string
	}{
		{name: "no brokers", mutate: func(cfg *Config) { cfg.Brokers = nil }, want: "broker"},
		{name: "no topic", mutate: func(cfg *Config) { cfg.Topic = "" }, want: "topic cannot be empty"},
		{name: "dlq is topic", mutate: func(cfg *Config) { cfg.DLQTopic = cfg.Topic }, want: "DLQ topic must differ"},
		{name: "no group", mutate: func(cfg *Config) { cfg.GroupID = "" }, want: "group ID"},
		{name: "acks", mutate: func(cfg *Config) { cfg.RequireAcks = 2 }, want: "RequireAcks"},
		{name: "compression", mutate: func(cfg *Config) { cfg.Compression = "brotli" }, want: "Compression"},
		{name: "offset", mutate: func(cfg *Config) { cfg.StartOffset = -3 }, want: "StartOffset"},
		{name: "retries", mutate: func(cfg *Config) { cfg.MaxRetries = -1 }, want: "MaxRetries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadFrom(lookupFrom(nil))
			tt.mutate(cfg)

			problems := cfg.Problems()
			require.Len(t, problems, 1)
			assert.True(t, strings.Contains(problems[0], tt.want), problems[0])
		})
	}

	cfg := LoadFrom(lookupFrom(nil))
	cfg.DLQTopic = ""
	assert.Empty(t, cfg.Problems(), "the DLQ is optional")
}
