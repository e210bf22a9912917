package checkout

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"carrierhub/internal/payment"
	"carrierhub/pkg/contracts"
	"carrierhub/pkg/logger"
	"carrierhub/pkg/metrics"
	"carrierhub/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

const (
	DefaultAddr            = ":8089"
	DefaultCallbackTimeout = 3 * time.Minute
)

type Config struct {
	Addr string
	// PublicURL is where the browser reaches this server; defaults to
	// http://<listen address>.
	PublicURL       string
	CallbackTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

type Option func(*Server)

// WithOpenHook is called with the checkout URL each time a widget opens.
func WithOpenHook(fn func(orderID, checkoutURL string)) Option {
	return func(s *Server) { s.onOpen = fn }
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithRoutes mounts additional handlers next to the checkout routes.
func WithRoutes(handlers ...contracts.Handler) Option {
	return func(s *Server) { s.routes = append(s.routes, handlers...) }
}

// Server hosts checkout widgets and receives their callbacks. It is the
// payment.WidgetFactory used outside a browser.
type Server struct {
	cfg     Config
	log     *logger.Logger
	metrics *metrics.Metrics
	handler http.Handler
	onOpen  func(orderID, checkoutURL string)
	now     func() time.Time
	routes  []contracts.Handler

	mu      sync.Mutex
	widgets map[string]*widget
	server  *http.Server
	baseURL string

	ready atomic.Bool
}

var _ payment.WidgetFactory = (*Server)(nil)

func NewServer(cfg Config, m *metrics.Metrics, log *logger.Logger, opts ...Option) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.CallbackTimeout <= 0 {
		cfg.CallbackTimeout = DefaultCallbackTimeout
	}

	s := &Server{
		cfg:     cfg,
		log:     log,
		metrics: m,
		now:     time.Now,
		widgets: make(map[string]*widget),
	}
	for _, opt := range opts {
		opt(s)
	}

	router := httprouter.New()
	handlers := append([]contracts.Handler{&handler{server: s, log: log}}, s.routes...)
	for _, h := range handlers {
		h.RegisterRoutes(router)
	}

	s.handler = middleware.Chain(router,
		middleware.Recovery(log),
		middleware.RequestLogging(log),
		middleware.ContentTypeValidation(log),
		middleware.RequestTimeout(cfg.CallbackTimeout),
	)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Available reports whether the server is accepting callbacks.
func (s *Server) Available() bool {
	return s.ready.Load()
}

func (s *Server) New(opts payment.WidgetOptions) (payment.Widget, error) {
	if opts.OrderID == "" {
		return nil, ErrMissingOrderID
	}
	if opts.Handler == nil {
		return nil, ErrMissingHandler
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.widgets[opts.OrderID]; ok {
		existing.mu.Lock()
		live := existing.state == StateCreated || existing.state == StateOpen
		existing.mu.Unlock()
		if live {
			return nil, ErrDuplicateOrder
		}
	}

	w := &widget{server: s, opts: opts, state: StateCreated}
	s.widgets[opts.OrderID] = w
	return w, nil
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	go func() {
		if err := s.Serve(l); err != nil {
			s.log.Error("Checkout server stopped", "error", err)
		}
	}()
	return nil
}

// Serve blocks until Shutdown. The server is Available while serving.
func (s *Server) Serve(l net.Listener) error {
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	s.mu.Lock()
	s.server = srv
	s.baseURL = s.cfg.PublicURL
	if s.baseURL == "" {
		s.baseURL = "http://" + l.Addr().String()
	}
	s.mu.Unlock()

	s.ready.Store(true)
	s.log.Info("Checkout server listening", "address", l.Addr().String())

	err := srv.Serve(l)
	s.ready.Store(false)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting callbacks and dismisses every open checkout so
// callers waiting on a widget are released.
func (s *Server) Shutdown(ctx context.Context) error {
	s.ready.Store(false)

	s.mu.Lock()
	srv := s.server
	open := make([]*widget, 0, len(s.widgets))
	for _, w := range s.widgets {
		open = append(open, w)
	}
	s.mu.Unlock()

	for _, w := range open {
		_ = w.dismiss(DismissShutdown)
	}

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// URL is the hosted page for an order.
func (s *Server) URL(orderID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseURL + "/checkout/" + orderID
}

func (s *Server) lookup(orderID string) (*widget, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.widgets[orderID]
	return w, ok
}

// release forgets a finished widget. A newer widget registered under the
// same order id is left alone.
func (s *Server) release(w *widget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.widgets[w.opts.OrderID] == w {
		delete(s.widgets, w.opts.OrderID)
	}
}

func (s *Server) openCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, w := range s.widgets {
		w.mu.Lock()
		if w.state == StateOpen {
			n++
		}
		w.mu.Unlock()
	}
	return n
}

func (s *Server) opened(w *widget) {
	url := s.URL(w.opts.OrderID)
	s.log.Info("Checkout opened",
		"order_id", w.opts.OrderID,
		"amount", w.opts.Amount,
		"currency", w.opts.Currency,
		"url", url,
	)
	if s.onOpen != nil {
		s.onOpen(w.opts.OrderID, url)
	}
}
