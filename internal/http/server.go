// Package http serves the JSON API over the application services.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gastos/internal/backend"
	"gastos/internal/cache"
	applog "gastos/internal/log"
	"gastos/internal/metrics"
	"gastos/internal/middleware/ratelimit"
	"gastos/internal/middleware/security"
	"gastos/internal/middleware/trace"
)

const (
	cacheSweepInterval = 5 * time.Minute
	maxBodyBytes       = 1 << 20
)

// Pinger reports whether the storage behind the services is usable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options carries everything the server needs besides its address.
type Options struct {
	Services *backend.Services
	Ready    Pinger
	Metrics  *metrics.Metrics
	Logger   *applog.Logger

	RateLimitPerMinute int
	// BlockSuspicious rejects requests the detector flags instead of only
	// logging them.
	BlockSuspicious bool
}

type Server struct {
	http.Server

	svc      *backend.Services
	ready    Pinger
	metrics  *metrics.Metrics
	logger   *applog.Logger
	detector *security.Detector
	limiter  *ratelimit.Limiter
	caches   *cache.Manager

	now func() time.Time

	stopSweep    context.CancelFunc
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		svc:      opts.Services,
		ready:    opts.Ready,
		metrics:  m,
		logger:   logger.WithComponent(applog.ComponentHTTP),
		detector: security.NewDetector(),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		caches:   cache.NewManager(logger),
		now:      time.Now,
	}
	s.caches.Register(s.limiter)
	s.Handler = s.routes(opts.BlockSuspicious)
	return s
}

func (s *Server) routes(blockSuspicious bool) http.Handler {
	r := chi.NewRouter()

	tracer := trace.NewMiddleware(s.logger, s.detector.ExtractClientIP, s.observe)
	r.Use(tracer.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware(blockSuspicious, s.reportSuspicious))
	r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))

		r.Get("/session", s.handleSession)
		r.Post("/session", s.handleLogin)
		r.Delete("/session", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Get("/categories", s.handleCategories)

			r.Route("/movements", func(r chi.Router) {
				r.Get("/", s.handleListMovements)
				r.Post("/", s.handleCreateMovement)
				r.Delete("/", s.handleClearMovements)
				r.Get("/by-month", s.handleMovementsByMonth)
				r.Delete("/{id}", s.handleDeleteMovement)
			})

			r.Get("/analytics", s.handleAnalytics)
			r.Get("/dashboard", s.handleDashboard)

			r.Get("/budget", s.handleBudget)
			r.Patch("/budget/settings", s.handleUpdateBudgetSettings)
			r.Patch("/budget/reminders", s.handleUpdateReminders)
			r.Get("/reminders/due", s.handleDueReminders)

			r.Route("/goals", func(r chi.Router) {
				r.Get("/", s.handleListGoals)
				r.Post("/", s.handleCreateGoal)
				r.Patch("/{id}", s.handleUpdateGoal)
				r.Delete("/{id}", s.handleDeleteGoal)
				r.Post("/{id}/contributions", s.handleContribute)
			})
		})
	})

	return r
}

// Start begins sweeping idle rate limit entries and serves until Shutdown.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopSweep = cancel
	go s.caches.Run(ctx, cacheSweepInterval)

	s.logger.InfoContext(ctx, "HTTP server listening", "addr", s.Addr)
	if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server and its background sweep.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.stopSweep != nil {
			s.stopSweep()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// observe records request latency by route pattern, so /api/goals/{id} is one
// series rather than one per goal.
func (s *Server) observe(r *http.Request, status int, d time.Duration) {
	route := "unmatched"
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			route = p
		}
	}
	s.metrics.ObserveRequest(route, r.Method, status, d)
}

func (s *Server) reportSuspicious(r *http.Request, reason string) {
	s.metrics.IncSuspiciousRequest(reason)
	applog.FromContext(r.Context()).WithComponent(applog.ComponentSecurity).WarnContext(r.Context(), "Suspicious request",
		"reason", reason,
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path,
		applog.FieldClientIP, s.detector.ExtractClientIP(r))
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.IncRateLimited()
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
}
