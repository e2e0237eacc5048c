package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	kafka_config "rentmate/pkg/kafka/config"
)

// fileConfig is the YAML overlay read from CONFIG_FILE. Unset keys keep
// their defaults and environment variables always win over the file.
type fileConfig struct {
	Mongo struct {
		URI      *string `yaml:"uri"`
		Database *string `yaml:"database"`
	} `yaml:"mongo"`
	Redis struct {
		Addr *string `yaml:"addr"`
		DB   *int    `yaml:"db"`
	} `yaml:"redis"`
	Server struct {
		Port           *string `yaml:"port"`
		RequestTimeout *string `yaml:"request_timeout"`
		LogLevel       *string `yaml:"log_level"`
	} `yaml:"server"`
	Rentals struct {
		DefaultMatchLimit *int    `yaml:"default_match_limit"`
		MaxMatchLimit     *int    `yaml:"max_match_limit"`
		DefaultPageLimit  *int    `yaml:"default_page_limit"`
		MaxPageLimit      *int    `yaml:"max_page_limit"`
		OtpDigits         *int    `yaml:"otp_digits"`
		RefundOnCancel    *bool   `yaml:"refund_on_cancel"`
		DefaultTimezone   *string `yaml:"default_timezone"`
		InitiateLockTTL   *string `yaml:"initiate_lock_ttl"`
	} `yaml:"rentals"`
	Notifications struct {
		Enabled    *bool   `yaml:"enabled"`
		Brokers    *string `yaml:"brokers"`
		Topic      *string `yaml:"topic"`
		DLQTopic   *string `yaml:"dlq_topic"`
		GroupID    *string `yaml:"group_id"`
		Middleware *bool   `yaml:"middleware"`
	} `yaml:"notifications"`
}

func (cfg *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	overlay(&cfg.MongoURI, fc.Mongo.URI, EnvMongoURI)
	overlay(&cfg.MongoDatabaseName, fc.Mongo.Database, EnvMongoDatabaseName)
	overlay(&cfg.RedisAddr, fc.Redis.Addr, EnvRedisAddr)
	overlay(&cfg.RedisDB, fc.Redis.DB, EnvRedisDB)
	overlay(&cfg.Port, fc.Server.Port, EnvPort)
	overlay(&cfg.LogLevel, fc.Server.LogLevel, EnvLogLevel)
	if err := overlayDuration(&cfg.RequestTimeout, fc.Server.RequestTimeout, EnvRequestTimeout); err != nil {
		return err
	}

	overlay(&cfg.DefaultMatchLimit, fc.Rentals.DefaultMatchLimit, EnvDefaultMatchLimit)
	overlay(&cfg.MaxMatchLimit, fc.Rentals.MaxMatchLimit, EnvMaxMatchLimit)
	overlay(&cfg.DefaultPageLimit, fc.Rentals.DefaultPageLimit, EnvDefaultPageLimit)
	overlay(&cfg.MaxPageLimit, fc.Rentals.MaxPageLimit, EnvMaxPageLimit)
	overlay(&cfg.OtpDigits, fc.Rentals.OtpDigits, EnvOtpDigits)
	overlay(&cfg.RefundOnCancel, fc.Rentals.RefundOnCancel, EnvRefundOnCancel)
	overlay(&cfg.DefaultTimezone, fc.Rentals.DefaultTimezone, EnvDefaultTimezone)
	if err := overlayDuration(&cfg.InitiateLockTTL, fc.Rentals.InitiateLockTTL, EnvInitiateLockTTL); err != nil {
		return err
	}

	overlay(&cfg.EventsEnabled, fc.Notifications.Enabled, EnvEventsEnabled)
	if cfg.Kafka != nil {
		if fc.Notifications.Brokers != nil && os.Getenv(kafka_config.EnvKafkaBrokers) == "" {
			cfg.Kafka.Brokers = kafka_config.LoadFrom(func(key string) (string, bool) {
				return *fc.Notifications.Brokers, key == kafka_config.EnvKafkaBrokers
			}).Brokers
		}
		overlay(&cfg.Kafka.Topic, fc.Notifications.Topic, kafka_config.EnvNotificationsTopic)
		overlay(&cfg.Kafka.DLQTopic, fc.Notifications.DLQTopic, kafka_config.EnvNotificationsDLQTopic)
		overlay(&cfg.Kafka.GroupID, fc.Notifications.GroupID, kafka_config.EnvNotifierGroupID)
		overlay(&cfg.Kafka.Middleware, fc.Notifications.Middleware, kafka_config.EnvMiddleware)
	}

	return nil
}

func overlay[T any](dst *T, value *T, envKey string) {
	if value == nil || os.Getenv(envKey) != "" {
		return
	}
	*dst = *value
}

func overlayDuration(dst *time.Duration, value *string, envKey string) error {
	if value == nil || os.Getenv(envKey) != "" {
		return nil
	}
	d, err := time.ParseDuration(*value)
	if err != nil {
		return fmt.Errorf("invalid duration %q for %s: %w", *value, envKey, err)
	}
	*dst = d
	return nil
}
