package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"rentmate/pkg/client"
	kafka_config "rentmate/pkg/kafka/config"
	"rentmate/pkg/logger"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Port     string
	LogLevel string

	JWTSecret string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	DefaultMatchLimit int
	MaxMatchLimit     int
	DefaultPageLimit  int
	MaxPageLimit      int
	OtpDigits         int
	RefundOnCancel    bool
	DefaultTimezone   string
	InitiateLockTTL   time.Duration

	EventsEnabled bool

	// Kafka carries the notifications topic, its DLQ and the notifier group.
	Kafka *kafka_config.Config

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg, fileErr := newFromEnv(serviceName)
	if fileErr != nil {
		cfg.Log.Fatal("Failed to read config file", "path", os.Getenv(EnvConfigFile), "error", fileErr)
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func newFromEnv(serviceName string) (*Config, error) {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		RedisAddr:     getEnvStr(EnvRedisAddr, ""),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		Port:     getEnvStr(EnvPort, DefaultPort),
		LogLevel: getEnvStr(EnvLogLevel, DefaultLogLevel),

		JWTSecret: getEnvStr(EnvJWTSecret, ""),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		DefaultMatchLimit: getEnvNum(EnvDefaultMatchLimit, DefaultMatchLimit),
		MaxMatchLimit:     getEnvNum(EnvMaxMatchLimit, MaxMatchLimit),
		DefaultPageLimit:  getEnvNum(EnvDefaultPageLimit, DefaultPageLimit),
		MaxPageLimit:      getEnvNum(EnvMaxPageLimit, MaxPageLimit),
		OtpDigits:         getEnvNum(EnvOtpDigits, DefaultOtpDigits),
		RefundOnCancel:    getEnvBool(EnvRefundOnCancel, DefaultRefund),
		DefaultTimezone:   getEnvStr(EnvDefaultTimezone, DefaultTimezone),
		InitiateLockTTL:   getEnvDuration(EnvInitiateLockTTL, DefaultLockTTL),

		EventsEnabled: getEnvBool(EnvEventsEnabled, DefaultEventsEnabled),

		Kafka:  kafka_config.Load(),
		Client: client.NewClient(),
	}

	var fileErr error
	if path := os.Getenv(EnvConfigFile); path != "" {
		fileErr = cfg.applyFile(path)
	}

	cfg.Log = logger.New(logger.Config{
		Level:     cfg.LogLevel,
		Format:    logger.JSON,
		AddSource: true,
		Service:   serviceName,
	})

	return cfg, fileErr
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

// SetRedis connects Redis when REDIS_ADDR is configured. Without it the
// service runs with in-process locks.
func (cfg *Config) SetRedis() {
	if cfg.RedisAddr == "" {
		cfg.Log.Warn("REDIS_ADDR not set, falling back to in-process locks")
		return
	}
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}
	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}
	if cfg.RedisDB < 0 {
		errors = append(errors, fmt.Sprintf("RedisDB cannot be negative, got: %d", cfg.RedisDB))
	}

	if cfg.JWTSecret == "" {
		errors = append(errors, "JWTSecret cannot be empty")
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if cfg.DefaultMatchLimit <= 0 {
		errors = append(errors, fmt.Sprintf("DefaultMatchLimit must be positive, got: %d", cfg.DefaultMatchLimit))
	}
	if cfg.MaxMatchLimit < cfg.DefaultMatchLimit {
		errors = append(errors, fmt.Sprintf("MaxMatchLimit (%d) must be >= DefaultMatchLimit (%d)", cfg.MaxMatchLimit, cfg.DefaultMatchLimit))
	}
	if cfg.DefaultPageLimit <= 0 {
		errors = append(errors, fmt.Sprintf("DefaultPageLimit must be positive, got: %d", cfg.DefaultPageLimit))
	}
	if cfg.MaxPageLimit < cfg.DefaultPageLimit {
		errors = append(errors, fmt.Sprintf("MaxPageLimit (%d) must be >= DefaultPageLimit (%d)", cfg.MaxPageLimit, cfg.DefaultPageLimit))
	}
	if cfg.OtpDigits < 4 || cfg.OtpDigits > 8 {
		errors = append(errors, fmt.Sprintf("OtpDigits must be between 4 and 8, got: %d", cfg.OtpDigits))
	}
	if _, err := time.LoadLocation(cfg.DefaultTimezone); err != nil {
		errors = append(errors, fmt.Sprintf("DefaultTimezone must be a valid IANA zone, got: %s", cfg.DefaultTimezone))
	}
	if cfg.InitiateLockTTL <= 0 {
		errors = append(errors, fmt.Sprintf("InitiateLockTTL must be positive, got: %s", cfg.InitiateLockTTL))
	}

	if cfg.EventsEnabled {
		if cfg.Kafka == nil {
			errors = append(errors, "Kafka configuration missing")
		} else {
			errors = append(errors, cfg.Kafka.Problems()...)
		}
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"redis_addr", cfg.RedisAddr,
		"port", cfg.Port,
		"jwt_secret_set", cfg.JWTSecret != "",
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"default_match_limit", cfg.DefaultMatchLimit,
		"max_match_limit", cfg.MaxMatchLimit,
		"otp_digits", cfg.OtpDigits,
		"refund_on_cancel", cfg.RefundOnCancel,
		"default_timezone", cfg.DefaultTimezone,
		"initiate_lock_ttl", cfg.InitiateLockTTL,
		"events_enabled", cfg.EventsEnabled,
	)
	if cfg.EventsEnabled && cfg.Kafka != nil {
		cfg.Kafka.LogConfiguration(cfg.Log.Info)
	}
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}

// Location resolves DefaultTimezone, falling back to UTC.
func (cfg *Config) Location() *time.Location {
	loc, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// NormalizeLimit clamps limit into [1, maxLimit], using fallback for <= 0.
func NormalizeLimit(limit, fallback, maxLimit int) int {
	if limit <= 0 {
		limit = fallback
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return max(1, limit)
}

// NormalizeStep clamps a 1-based page index to >= 1.
func NormalizeStep(step int) int {
	return max(1, step)
}

// SkipFor converts a 1-based step into a document offset.
func SkipFor(step, limit int) int64 {
	return int64(NormalizeStep(step)-1) * int64(limit)
}
