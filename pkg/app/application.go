package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carrierhub/internal/checkout"
	"carrierhub/internal/payment"
	"carrierhub/pkg/cache"
	"carrierhub/pkg/client"
	"carrierhub/pkg/config"
	apperrors "carrierhub/pkg/errors"
	"carrierhub/pkg/events"
	"carrierhub/pkg/metrics"
	"carrierhub/pkg/sealer"
	"carrierhub/pkg/session"

	"github.com/segmentio/kafka-go"
)

const callbackGrace = 30 * time.Second

type Application struct {
	cfg *config.Config

	metrics   *metrics.Metrics
	cache     *cache.Cache
	session   *session.Store
	api       *client.APIClient
	errs      *apperrors.Handler
	publisher events.Publisher
	checkout  *checkout.Server
	bridge    *payment.Bridge

	closers []func(ctx context.Context) error
}

type Option func(*options)

type options struct {
	notifier apperrors.Notifier
	onOpen   func(orderID, checkoutURL string)
}

// WithNotifier replaces the default log notifier for user-facing notices.
func WithNotifier(n apperrors.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithCheckoutOpenHook is told the hosted checkout URL whenever a payment
// widget opens.
func WithCheckoutOpenHook(fn func(orderID, checkoutURL string)) Option {
	return func(o *options) { o.onOpen = fn }
}

// NewApplication wires every component from cfg. Connections to external
// session stores are made here; the checkout server is not started.
func NewApplication(ctx context.Context, cfg *config.Config, opts ...Option) (*Application, error) {
	o := options{notifier: apperrors.LogNotifier(cfg.Log)}
	for _, opt := range opts {
		opt(&o)
	}

	a := &Application{cfg: cfg}
	a.metrics = metrics.New()

	a.cache = cache.New(
		cache.WithDefaultTTL(cfg.DefaultCacheTTL),
		cache.WithRecorder(a.metrics),
	)
	a.cache.StartJanitor(cfg.CacheCleanupInterval)
	a.onClose(func(context.Context) error {
		a.cache.Stop()
		return nil
	})

	kv, err := a.sessionBackend(ctx)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	a.session = session.NewStore(kv, cfg.Log)

	policy := client.RetryPolicy{
		BaseTimeout:      cfg.RequestTimeout,
		TimeoutIncrement: cfg.TimeoutIncrement,
		MaxRetries:       cfg.MaxRetries,
		BackoffBase:      cfg.BackoffBase,
		BackoffMax:       cfg.BackoffMax,
	}
	engine := client.NewHttpClient(cfg.APIBaseURL,
		client.WithTokens(a.session),
		client.WithRetryPolicy(policy),
		client.WithRateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
		client.WithMetrics(a.metrics),
		client.WithLogger(cfg.Log),
	)
	a.api = client.NewAPIClient(engine, a.cache, a.session, cfg.Log,
		client.WithCacheTTLs(client.CacheTTLs{
			Categories: cfg.CategoriesCacheTTL,
			Bookings:   cfg.BookingsCacheTTL,
		}),
		client.WithHealthCheck(cfg.Origin(), cfg.HealthCheckTimeout),
	)

	a.errs = apperrors.NewHandler(o.notifier, cfg.Log)

	if a.publisher, err = a.paymentPublisher(); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	a.onClose(func(context.Context) error { return a.publisher.Close() })

	var checkoutOpts []checkout.Option
	if o.onOpen != nil {
		checkoutOpts = append(checkoutOpts, checkout.WithOpenHook(o.onOpen))
	}
	a.checkout = checkout.NewServer(checkout.Config{
		Addr:            cfg.CheckoutAddr,
		PublicURL:       cfg.CheckoutPublicURL,
		CallbackTimeout: callbackTimeout(policy),
	}, a.metrics, cfg.Log, checkoutOpts...)
	a.onClose(a.checkout.Shutdown)

	a.bridge = payment.NewBridge(a.api, a.checkout, a.publisher, a.metrics, a.errs, cfg.Log, payment.Options{
		CompanyName: cfg.CompanyName,
		ThemeColor:  cfg.ThemeColor,
		RetryCount:  cfg.PaymentRetryCount,
		Timeout:     cfg.PaymentTimeout,
	})

	cfg.Log.Debug("Application wired",
		"session_backend", cfg.SessionBackend,
		"events_enabled", len(cfg.KafkaBrokers) > 0,
	)
	return a, nil
}

func (a *Application) sessionBackend(ctx context.Context) (session.KVStore, error) {
	switch a.cfg.SessionBackend {
	case config.SessionBackendMemory:
		return session.NewMemoryStore(), nil

	case config.SessionBackendFile:
		var opts []session.FileOption
		if a.cfg.SessionKey != "" {
			s, err := sealer.New(a.cfg.SessionKey)
			if err != nil {
				return nil, err
			}
			opts = append(opts, session.WithSealer(s))
		}
		fs, err := session.NewFileStore(a.cfg.SessionFile, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to open session file: %w", err)
		}
		return fs, nil

	case config.SessionBackendRedis:
		rc, err := session.NewRedisClient(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		store := session.NewRedisStore(rc)
		a.onClose(func(context.Context) error { return store.Close() })
		return store, nil

	case config.SessionBackendMongo:
		mc, err := session.NewMongoClient(ctx, a.cfg.Log, a.cfg.MongoURI, a.cfg.MongoConnTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		store := session.NewMongoStore(mc, a.cfg.MongoDatabaseName, a.cfg.MongoCollection)
		a.onClose(store.Close)
		return store, nil
	}
	return nil, fmt.Errorf("unknown session backend %q", a.cfg.SessionBackend)
}

func (a *Application) paymentPublisher() (events.Publisher, error) {
	if len(a.cfg.KafkaBrokers) == 0 {
		return events.NoopPublisher{}, nil
	}

	producer, err := events.NewProducer(events.ProducerConfig{
		Brokers: a.cfg.KafkaBrokers,
		Topic:   a.cfg.KafkaPaymentTopic,
	}, a.cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment event producer: %w", err)
	}
	producer.Use(events.LoggingMiddleware(a.cfg.Log))
	producer.Use(events.MetricsMiddleware(a.metrics))
	return events.NewKafkaPublisher(producer), nil
}

// PaymentEvents builds a consumer for the payment outcome topic. The
// caller runs and closes it.
func (a *Application) PaymentEvents(groupID string, fromBeginning bool, fn func(ctx context.Context, ev events.PaymentEvent) error) (*events.Consumer, error) {
	offset := kafka.LastOffset
	if fromBeginning {
		offset = kafka.FirstOffset
	}

	c, err := events.NewConsumer(events.ConsumerConfig{
		Brokers:     a.cfg.KafkaBrokers,
		Topic:       a.cfg.KafkaPaymentTopic,
		GroupID:     groupID,
		StartOffset: offset,
	}, events.PaymentHandler(fn), a.cfg.Log)
	if err != nil {
		return nil, err
	}
	return c.WithObserver(a.metrics), nil
}

// callbackTimeout leaves a success callback enough time to verify the
// payment through every retry before the request is cut off.
func callbackTimeout(policy client.RetryPolicy) time.Duration {
	return policy.Budget() + callbackGrace
}

func (a *Application) onClose(fn func(ctx context.Context) error) {
	a.closers = append(a.closers, fn)
}

func (a *Application) Config() *config.Config      { return a.cfg }
func (a *Application) API() *client.APIClient      { return a.api }
func (a *Application) Bridge() *payment.Bridge     { return a.bridge }
func (a *Application) Checkout() *checkout.Server  { return a.checkout }
func (a *Application) Session() *session.Store     { return a.session }
func (a *Application) Errors() *apperrors.Handler  { return a.errs }
func (a *Application) Metrics() *metrics.Metrics   { return a.metrics }
func (a *Application) Publisher() events.Publisher { return a.publisher }

// StartCheckout starts the hosted checkout server in the background.
func (a *Application) StartCheckout() error {
	return a.checkout.Start()
}

// Run serves the checkout server until SIGINT or SIGTERM, then shuts
// everything down.
func (a *Application) Run() error {
	if err := a.StartCheckout(); err != nil {
		return fmt.Errorf("failed to start checkout server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	a.cfg.Log.Info("Shutdown signal received")
	return a.gracefulShutdown()
}

func (a *Application) gracefulShutdown() error {
	a.cfg.Log.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.Close(ctx); err != nil {
		a.cfg.Log.Error("Shutdown finished with errors", "error", err)
		return err
	}

	a.cfg.Log.Info("Shutdown complete")
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *Application) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
