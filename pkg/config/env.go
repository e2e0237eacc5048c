package config

const (
	EnvConfigFile = "CONFIG_FILE"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvJWTSecret = "JWT_SECRET"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvDefaultMatchLimit = "DEFAULT_MATCH_LIMIT"
	EnvMaxMatchLimit     = "MAX_MATCH_LIMIT"
	EnvDefaultPageLimit  = "DEFAULT_PAGE_LIMIT"
	EnvMaxPageLimit      = "MAX_PAGE_LIMIT"
	EnvOtpDigits         = "OTP_DIGITS"
	EnvRefundOnCancel    = "REFUND_ON_CANCEL"
	EnvDefaultTimezone   = "DEFAULT_TIMEZONE"
	EnvInitiateLockTTL   = "INITIATE_LOCK_TTL"

	EnvEventsEnabled = "EVENTS_ENABLED"
)
