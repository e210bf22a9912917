package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"carrierhub/pkg/logger"
	"carrierhub/pkg/sealer"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string

	APIBaseURL string

	RequestTimeout     time.Duration
	TimeoutIncrement   time.Duration
	MaxRetries         int
	BackoffBase        time.Duration
	BackoffMax         time.Duration
	HealthCheckTimeout time.Duration

	RateLimitPerSecond float64
	RateLimitBurst     int

	DefaultCacheTTL      time.Duration
	CategoriesCacheTTL   time.Duration
	BookingsCacheTTL     time.Duration
	CacheCleanupInterval time.Duration

	SessionBackend string
	SessionFile    string
	// SessionKey, when set, encrypts the file session backend at rest.
	SessionKey string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MongoURI          string
	MongoDatabaseName string
	MongoCollection   string
	MongoConnTimeout  time.Duration

	KafkaBrokers      []string
	KafkaPaymentTopic string

	CheckoutAddr      string
	CheckoutPublicURL string
	CompanyName       string
	ThemeColor        string
	PaymentRetryCount int
	PaymentTimeout    time.Duration

	ShutdownTimeout time.Duration

	Log *logger.Logger
}

// Load reads configuration from the environment and an optional config file,
// validates it and exits the process when it is unusable.
func Load(serviceName string) *Config {
	cfg, err := FromViper(newViper(), serviceName)
	if err != nil {
		logger.New(logger.Config{Service: serviceName}).Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// FromViper builds a Config from an already prepared viper instance.
func FromViper(v *viper.Viper, serviceName string) (*Config, error) {
	setDefaults(v)

	if path := v.GetString(EnvConfigFile); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("carrierhub")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{
		Environment: v.GetString(EnvEnvironment),

		APIBaseURL: strings.TrimRight(v.GetString(EnvAPIBaseURL), "/"),

		RequestTimeout:     v.GetDuration(EnvRequestTimeout),
		TimeoutIncrement:   v.GetDuration(EnvTimeoutIncrement),
		MaxRetries:         v.GetInt(EnvMaxRetries),
		BackoffBase:        v.GetDuration(EnvBackoffBase),
		BackoffMax:         v.GetDuration(EnvBackoffMax),
		HealthCheckTimeout: v.GetDuration(EnvHealthCheckTimeout),

		RateLimitPerSecond: v.GetFloat64(EnvRateLimitPerSecond),
		RateLimitBurst:     v.GetInt(EnvRateLimitBurst),

		DefaultCacheTTL:      v.GetDuration(EnvDefaultCacheTTL),
		CategoriesCacheTTL:   v.GetDuration(EnvCategoriesCacheTTL),
		BookingsCacheTTL:     v.GetDuration(EnvBookingsCacheTTL),
		CacheCleanupInterval: v.GetDuration(EnvCacheCleanupInterval),

		SessionBackend: v.GetString(EnvSessionBackend),
		SessionFile:    v.GetString(EnvSessionFile),
		SessionKey:     v.GetString(EnvSessionKey),

		RedisAddr:     v.GetString(EnvRedisAddr),
		RedisPassword: v.GetString(EnvRedisPassword),
		RedisDB:       v.GetInt(EnvRedisDB),

		MongoURI:          v.GetString(EnvMongoURI),
		MongoDatabaseName: v.GetString(EnvMongoDatabaseName),
		MongoCollection:   v.GetString(EnvMongoCollection),
		MongoConnTimeout:  v.GetDuration(EnvMongoConnTimeout),

		KafkaBrokers:      splitList(v.GetString(EnvKafkaBrokers)),
		KafkaPaymentTopic: v.GetString(EnvKafkaPaymentTopic),

		CheckoutAddr:      v.GetString(EnvCheckoutAddr),
		CheckoutPublicURL: strings.TrimRight(v.GetString(EnvCheckoutPublicURL), "/"),
		CompanyName:       v.GetString(EnvCompanyName),
		ThemeColor:        v.GetString(EnvThemeColor),
		PaymentRetryCount: v.GetInt(EnvPaymentRetryCount),
		PaymentTimeout:    v.GetDuration(EnvPaymentTimeout),

		ShutdownTimeout: v.GetDuration(EnvShutdownTimeout),
	}

	if cfg.SessionFile == DefaultSessionFile {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.SessionFile = filepath.Join(home, DefaultSessionFile)
		}
	}

	cfg.Log = logger.New(logger.Config{
		Level:       v.GetString(EnvLogLevel),
		Format:      v.GetString(EnvLogFormat),
		Output:      os.Stderr,
		Service:     serviceName,
		Environment: cfg.Environment,
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(EnvEnvironment, DefaultEnvironment)
	v.SetDefault(EnvLogFormat, DefaultLogFormat)

	v.SetDefault(EnvAPIBaseURL, DefaultAPIBaseURL)

	v.SetDefault(EnvRequestTimeout, DefaultRequestTimeout)
	v.SetDefault(EnvTimeoutIncrement, DefaultTimeoutIncrement)
	v.SetDefault(EnvMaxRetries, DefaultMaxRetries)
	v.SetDefault(EnvBackoffBase, DefaultBackoffBase)
	v.SetDefault(EnvBackoffMax, DefaultBackoffMax)
	v.SetDefault(EnvHealthCheckTimeout, DefaultHealthCheckTimeout)

	v.SetDefault(EnvRateLimitPerSecond, DefaultRateLimitPerSecond)
	v.SetDefault(EnvRateLimitBurst, DefaultRateLimitBurst)

	v.SetDefault(EnvDefaultCacheTTL, DefaultCacheTTL)
	v.SetDefault(EnvCategoriesCacheTTL, DefaultCategoriesCacheTTL)
	v.SetDefault(EnvBookingsCacheTTL, DefaultBookingsCacheTTL)
	v.SetDefault(EnvCacheCleanupInterval, DefaultCacheCleanupInterval)

	v.SetDefault(EnvSessionBackend, DefaultSessionBackend)
	v.SetDefault(EnvSessionFile, DefaultSessionFile)

	v.SetDefault(EnvRedisAddr, DefaultRedisAddr)
	v.SetDefault(EnvRedisDB, DefaultRedisDB)

	v.SetDefault(EnvMongoURI, DefaultMongoURI)
	v.SetDefault(EnvMongoDatabaseName, DefaultMongoDatabaseName)
	v.SetDefault(EnvMongoCollection, DefaultMongoCollection)
	v.SetDefault(EnvMongoConnTimeout, DefaultMongoConnTimeout)

	v.SetDefault(EnvKafkaPaymentTopic, DefaultKafkaPaymentTopic)

	v.SetDefault(EnvCheckoutAddr, DefaultCheckoutAddr)
	v.SetDefault(EnvCheckoutPublicURL, DefaultCheckoutPublicURL)
	v.SetDefault(EnvCompanyName, DefaultCompanyName)
	v.SetDefault(EnvThemeColor, DefaultThemeColor)
	v.SetDefault(EnvPaymentRetryCount, DefaultPaymentRetryCount)
	v.SetDefault(EnvPaymentTimeout, DefaultPaymentTimeout)

	v.SetDefault(EnvShutdownTimeout, DefaultShutdownTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if u, err := url.Parse(cfg.APIBaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errors = append(errors, fmt.Sprintf("APIBaseURL must be an absolute http(s) URL, got: %s", cfg.APIBaseURL))
	}

	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.TimeoutIncrement < 0 {
		errors = append(errors, fmt.Sprintf("TimeoutIncrement cannot be negative, got: %s", cfg.TimeoutIncrement))
	}
	if cfg.MaxRetries < 0 {
		errors = append(errors, fmt.Sprintf("MaxRetries cannot be negative, got: %d", cfg.MaxRetries))
	}
	if cfg.BackoffBase <= 0 {
		errors = append(errors, fmt.Sprintf("BackoffBase must be positive, got: %s", cfg.BackoffBase))
	}
	if cfg.BackoffMax < cfg.BackoffBase {
		errors = append(errors, fmt.Sprintf("BackoffMax (%s) must be >= BackoffBase (%s)", cfg.BackoffMax, cfg.BackoffBase))
	}
	if cfg.HealthCheckTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("HealthCheckTimeout must be positive, got: %s", cfg.HealthCheckTimeout))
	}

	if cfg.RateLimitPerSecond < 0 {
		errors = append(errors, fmt.Sprintf("RateLimitPerSecond cannot be negative, got: %v", cfg.RateLimitPerSecond))
	}
	if cfg.RateLimitPerSecond > 0 && cfg.RateLimitBurst <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitBurst must be positive when rate limiting is enabled, got: %d", cfg.RateLimitBurst))
	}

	if cfg.CacheCleanupInterval <= 0 {
		errors = append(errors, fmt.Sprintf("CacheCleanupInterval must be positive, got: %s", cfg.CacheCleanupInterval))
	}

	switch cfg.SessionBackend {
	case SessionBackendMemory:
	case SessionBackendFile:
		if cfg.SessionFile == "" {
			errors = append(errors, "SessionFile cannot be empty when the file session backend is selected")
		}
		if cfg.SessionKey != "" {
			if _, err := sealer.New(cfg.SessionKey); err != nil {
				errors = append(errors, fmt.Sprintf("SessionKey is unusable: %v", err))
			}
		}
	case SessionBackendRedis:
		if cfg.RedisAddr == "" {
			errors = append(errors, "RedisAddr cannot be empty when the redis session backend is selected")
		}
	case SessionBackendMongo:
		if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
		if cfg.MongoConnTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
		}
	default:
		errors = append(errors, fmt.Sprintf("SessionBackend must be one of [memory, file, redis, mongo], got: %s", cfg.SessionBackend))
	}

	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaPaymentTopic == "" {
		errors = append(errors, "KafkaPaymentTopic cannot be empty when KafkaBrokers are set")
	}

	if cfg.PaymentRetryCount < 0 {
		errors = append(errors, fmt.Sprintf("PaymentRetryCount cannot be negative, got: %d", cfg.PaymentRetryCount))
	}
	if cfg.PaymentTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("PaymentTimeout must be positive, got: %s", cfg.PaymentTimeout))
	}
	if !regexp.MustCompile(`^#[0-9a-fA-F]{6}$`).MatchString(cfg.ThemeColor) {
		errors = append(errors, fmt.Sprintf("ThemeColor must be a #RRGGBB colour, got: %s", cfg.ThemeColor))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
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
	cfg.Log.Debug("Configuration loaded successfully",
		"environment", cfg.Environment,
		"api_base_url", cfg.APIBaseURL,
		"request_timeout", cfg.RequestTimeout,
		"timeout_increment", cfg.TimeoutIncrement,
		"max_retries", cfg.MaxRetries,
		"backoff_base", cfg.BackoffBase,
		"backoff_max", cfg.BackoffMax,
		"health_check_timeout", cfg.HealthCheckTimeout,
		"rate_limit_per_second", cfg.RateLimitPerSecond,
		"categories_cache_ttl", cfg.CategoriesCacheTTL,
		"bookings_cache_ttl", cfg.BookingsCacheTTL,
		"cache_cleanup_interval", cfg.CacheCleanupInterval,
		"session_backend", cfg.SessionBackend,
		"session_encrypted", cfg.SessionKey != "",
		"redis_password_set", cfg.RedisPassword != "",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"kafka_brokers", cfg.KafkaBrokers,
		"checkout_addr", cfg.CheckoutAddr,
		"payment_retry_count", cfg.PaymentRetryCount,
		"payment_timeout", cfg.PaymentTimeout,
	)
}

// Origin returns scheme://host of the API base URL; the health endpoint
// lives there rather than under the versioned API prefix.
func (cfg *Config) Origin() string {
	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil {
		return cfg.APIBaseURL
	}
	return u.Scheme + "://" + u.Host
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
