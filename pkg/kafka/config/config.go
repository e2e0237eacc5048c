package kafka_config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the event pipeline between the rentals service and the
// notifier: where rental events go, who consumes them, and where poison
// messages end up.
type Config struct {
	Brokers []string

	Topic    string
	DLQTopic string
	GroupID  string

	RequireAcks  int    // -1 all, 0 none, 1 leader
	Compression  string // none, gzip, snappy, lz4, zstd
	MaxAttempts  int
	BatchTimeout time.Duration

	StartOffset    int64 // -1 newest, -2 oldest
	MaxWait        time.Duration
	CommitInterval time.Duration
	MaxRetries     int

	// Middleware attaches the logging and metrics middleware to producers
	// and consumers built from this config.
	Middleware bool
}

// Load reads the environment. Validation is left to the caller so a
// service running with events disabled never fails on it.
func Load() *Config {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads settings through lookup, which has the shape of
// os.LookupEnv. Unparsable values keep their defaults.
func LoadFrom(lookup func(string) (string, bool)) *Config {
	e := env(lookup)

	var brokers []string
	for _, b := range strings.Split(e.str(EnvKafkaBrokers, DefaultBrokers), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	return &Config{
		Brokers: brokers,

		Topic:    e.str(EnvNotificationsTopic, DefaultNotificationsTopic),
		DLQTopic: e.str(EnvNotificationsDLQTopic, DefaultNotificationsDLQTopic),
		GroupID:  e.str(EnvNotifierGroupID, DefaultNotifierGroupID),

		RequireAcks:  int(e.int(EnvProducerRequireAcks, DefaultProducerRequireAcks)),
		Compression:  strings.ToLower(e.str(EnvProducerCompression, DefaultProducerCompression)),
		MaxAttempts:  int(e.int(EnvProducerMaxAttempts, DefaultProducerMaxAttempts)),
		BatchTimeout: e.duration(EnvProducerBatchTimeout, DefaultProducerBatchTimeout),

		StartOffset:    e.int(EnvConsumerStartOffset, DefaultConsumerStartOffset),
		MaxWait:        e.duration(EnvConsumerMaxWait, DefaultConsumerMaxWait),
		CommitInterval: e.duration(EnvConsumerCommitInterval, DefaultConsumerCommitInterval),
		MaxRetries:     int(e.int(EnvConsumerMaxRetries, DefaultConsumerMaxRetries)),

		Middleware: e.bool(EnvMiddleware, DefaultMiddleware),
	}
}

// Problems lists every invalid setting, for the caller to fold into its own
// validation report.
func (cfg *Config) Problems() []string {
	var problems []string

	if len(cfg.Brokers) == 0 {
		problems = append(problems, "At least one Kafka broker is required")
	}
	if cfg.Topic == "" {
		problems = append(problems, "Notifications topic cannot be empty")
	}
	if cfg.DLQTopic != "" && cfg.DLQTopic == cfg.Topic {
		problems = append(problems, "Notifications DLQ topic must differ from the notifications topic")
	}
	if cfg.GroupID == "" {
		problems = append(problems, "Notifier group ID cannot be empty")
	}

	switch cfg.RequireAcks {
	case -1, 0, 1:
	default:
		problems = append(problems, fmt.Sprintf("RequireAcks must be -1, 0, or 1, got: %d", cfg.RequireAcks))
	}
	switch cfg.Compression {
	case "none", "gzip", "snappy", "lz4", "zstd":
	default:
		problems = append(problems, fmt.Sprintf("Compression must be one of [none, gzip, snappy, lz4, zstd], got: %s", cfg.Compression))
	}
	if cfg.MaxAttempts <= 0 {
		problems = append(problems, fmt.Sprintf("MaxAttempts must be positive, got: %d", cfg.MaxAttempts))
	}
	if cfg.BatchTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("BatchTimeout must be positive, got: %s", cfg.BatchTimeout))
	}

	if cfg.StartOffset < -2 {
		problems = append(problems, fmt.Sprintf("StartOffset must be -1 (newest), -2 (oldest), or >= 0, got: %d", cfg.StartOffset))
	}
	if cfg.MaxWait <= 0 {
		problems = append(problems, fmt.Sprintf("MaxWait must be positive, got: %s", cfg.MaxWait))
	}
	if cfg.CommitInterval <= 0 {
		problems = append(problems, fmt.Sprintf("CommitInterval must be positive, got: %s", cfg.CommitInterval))
	}
	if cfg.MaxRetries < 0 {
		problems = append(problems, fmt.Sprintf("MaxRetries cannot be negative, got: %d", cfg.MaxRetries))
	}

	return problems
}

func (cfg *Config) LogConfiguration(logFunc func(msg string, keysAndValues ...any)) {
	if logFunc == nil {
		return
	}

	logFunc("Kafka configuration loaded",
		"brokers", cfg.Brokers,
		"topic", cfg.Topic,
		"dlq_topic", cfg.DLQTopic,
		"group_id", cfg.GroupID,
		"require_acks", cfg.RequireAcks,
		"compression", cfg.Compression,
		"start_offset", cfg.StartOffset,
		"max_retries", cfg.MaxRetries,
		"middleware", cfg.Middleware,
	)
}

type env func(string) (string, bool)

func (e env) str(key, def string) string {
	if v, ok := e(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (e env) int(key string, def int64) int64 {
	if n, err := strconv.ParseInt(e.str(key, ""), 10, 64); err == nil {
		return n
	}
	return def
}

func (e env) bool(key string, def bool) bool {
	if b, err := strconv.ParseBool(e.str(key, "")); err == nil {
		return b
	}
	return def
}

func (e env) duration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(e.str(key, "")); err == nil {
		return d
	}
	return def
}
