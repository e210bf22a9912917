package config

import "time"

const (
	DefaultEnvironment = "development"
	DefaultLogFormat   = "text"

	DefaultAPIBaseURL = "http://localhost:5000/api"

	DefaultRequestTimeout     = 15 * time.Second
	DefaultTimeoutIncrement   = 10 * time.Second
	DefaultMaxRetries         = 3
	DefaultBackoffBase        = 1 * time.Second
	DefaultBackoffMax         = 10 * time.Second
	DefaultHealthCheckTimeout = 5 * time.Second

	DefaultRateLimitPerSecond = 0 // disabled
	DefaultRateLimitBurst     = 5

	DefaultCacheTTL             = 5 * time.Minute
	DefaultCategoriesCacheTTL   = 30 * time.Minute
	DefaultBookingsCacheTTL     = 2 * time.Minute
	DefaultCacheCleanupInterval = 10 * time.Minute

	DefaultSessionBackend = SessionBackendFile
	DefaultSessionFile    = ".carrierhub/session.json"

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisDB   = 0

	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "carrierhub"
	DefaultMongoCollection   = "client_sessions"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultKafkaPaymentTopic = "carrierhub.payments"

	DefaultCheckoutAddr      = ":8089"
	DefaultCheckoutPublicURL = "http://localhost:8089"
	DefaultCompanyName       = "CarrierHub"
	DefaultThemeColor        = "#3399cc"
	DefaultPaymentRetryCount = 3
	DefaultPaymentTimeout    = 15 * time.Minute

	DefaultShutdownTimeout = 10 * time.Second
)

const (
	SessionBackendMemory = "memory"
	SessionBackendFile   = "file"
	SessionBackendRedis  = "redis"
	SessionBackendMongo  = "mongo"
)
