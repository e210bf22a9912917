package client

import (
	"time"

	"carrierhub/pkg/cache"
	"carrierhub/pkg/logger"
	"carrierhub/pkg/model"
	"carrierhub/pkg/session"
)

const (
	cacheKeyCategories = "categories"
	cacheKeyMyBookings = "bookings_me"

	bookingsPattern = "bookings"
)

// CacheTTLs sets how long each cached endpoint stays fresh.
type CacheTTLs struct {
	Categories time.Duration
	Bookings   time.Duration
}

func DefaultCacheTTLs() CacheTTLs {
	return CacheTTLs{
		Categories: 30 * time.Minute,
		Bookings:   2 * time.Minute,
	}
}

// APIClient exposes one method per backend endpoint. All methods return an
// envelope and never panic on backend failures.
type APIClient struct {
	http      *HttpClient
	cache     *cache.Cache
	session   *session.Store
	validator *model.Validator
	log       *logger.Logger

	ttl           CacheTTLs
	origin        string
	healthTimeout time.Duration
}

type APIOption func(*APIClient)

func WithCacheTTLs(ttl CacheTTLs) APIOption {
	return func(c *APIClient) { c.ttl = ttl }
}

// WithHealthCheck sets the server origin the unversioned /health path is
// resolved against and the single-attempt timeout.
func WithHealthCheck(origin string, timeout time.Duration) APIOption {
	return func(c *APIClient) {
		c.origin = origin
		c.healthTimeout = timeout
	}
}

func NewAPIClient(httpClient *HttpClient, c *cache.Cache, store *session.Store, log *logger.Logger, opts ...APIOption) *APIClient {
	api := &APIClient{
		http:          httpClient,
		cache:         c,
		session:       store,
		validator:     model.NewValidator(),
		log:           log,
		ttl:           DefaultCacheTTLs(),
		origin:        originOf(httpClient.BaseURL),
		healthTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(api)
	}
	return api
}

func (c *APIClient) Session() *session.Store {
	return c.session
}

func (c *APIClient) Cache() *cache.Cache {
	return c.cache
}

func (c *APIClient) invalidateBookings() {
	if n := c.cache.InvalidatePattern(bookingsPattern); n > 0 {
		c.log.Debug("Invalidated cached bookings", "keys", n)
	}
}
