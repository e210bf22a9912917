package config

const (
	EnvConfigFile  = "CARRIERHUB_CONFIG"
	EnvEnvironment = "CARRIERHUB_ENV"
	EnvLogLevel    = "LOG_LEVEL"
	EnvLogFormat   = "LOG_FORMAT"

	EnvAPIBaseURL = "CARRIERHUB_API_URL"

	EnvRequestTimeout     = "REQUEST_TIMEOUT"
	EnvTimeoutIncrement   = "REQUEST_TIMEOUT_INCREMENT"
	EnvMaxRetries         = "REQUEST_MAX_RETRIES"
	EnvBackoffBase        = "REQUEST_BACKOFF_BASE"
	EnvBackoffMax         = "REQUEST_BACKOFF_MAX"
	EnvHealthCheckTimeout = "HEALTH_CHECK_TIMEOUT"

	EnvRateLimitPerSecond = "RATE_LIMIT_PER_SECOND"
	EnvRateLimitBurst     = "RATE_LIMIT_BURST"

	EnvDefaultCacheTTL      = "CACHE_DEFAULT_TTL"
	EnvCategoriesCacheTTL   = "CACHE_CATEGORIES_TTL"
	EnvBookingsCacheTTL     = "CACHE_BOOKINGS_TTL"
	EnvCacheCleanupInterval = "CACHE_CLEANUP_INTERVAL"

	EnvSessionBackend = "SESSION_BACKEND"
	EnvSessionFile    = "SESSION_FILE"
	EnvSessionKey     = "SESSION_ENCRYPTION_KEY"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoCollection   = "MONGO_SESSION_COLLECTION"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvKafkaBrokers      = "KAFKA_BROKERS"
	EnvKafkaPaymentTopic = "KAFKA_PAYMENT_TOPIC"

	EnvCheckoutAddr      = "CHECKOUT_ADDR"
	EnvCheckoutPublicURL = "CHECKOUT_PUBLIC_URL"
	EnvCompanyName       = "PAYMENT_COMPANY_NAME"
	EnvThemeColor        = "PAYMENT_THEME_COLOR"
	EnvPaymentRetryCount = "PAYMENT_RETRY_COUNT"
	EnvPaymentTimeout    = "PAYMENT_TIMEOUT"

	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
