// Package http exposes the tracker over a JSON API. Reads come from
// the view orchestrator's latest projections; writes go through the
// transaction store and are pushed to the cloud best-effort.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"spendtrack/internal/cache"
	"spendtrack/internal/cloudsync"
	"spendtrack/internal/core"
	applog "spendtrack/internal/log"
	"spendtrack/internal/middleware/ratelimit"
	"spendtrack/internal/middleware/security"
	"spendtrack/internal/middleware/trace"
	"spendtrack/internal/session"
	"spendtrack/internal/store"
	"spendtrack/internal/view"
)

// ThemeStore persists the UI theme locally.
type ThemeStore interface {
	SaveTheme(ctx context.Context, theme string) error
	LoadTheme(ctx context.Context) (string, error)
}

// Deps carries everything the API serves from.
type Deps struct {
	Store      *store.Store
	Views      *view.Orchestrator
	Sync       *cloudsync.Adapter
	Sessions   *session.Manager
	Themes     ThemeStore
	Categories []string
	Logger     *applog.Logger
}

type Server struct {
	http.Server

	store      *store.Store
	views      *view.Orchestrator
	sync       *cloudsync.Adapter
	sessions   *session.Manager
	themes     ThemeStore
	categories []string

	limiter  *ratelimit.Limiter
	detector *security.Detector

	// Filtered transaction lists keyed by projection generation and
	// query, so repeated reads skip re-filtering.
	txCache  *cache.LRUCache[[]core.Transaction]
	cacheMgr *cache.Manager
	lastGen  atomic.Uint64

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a
// ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		store:      deps.Store,
		views:      deps.Views,
		sync:       deps.Sync,
		sessions:   deps.Sessions,
		themes:     deps.Themes,
		categories: deps.Categories,

		limiter:  ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector: security.NewDetector(),
		txCache:  cache.NewLRUCache[[]core.Transaction](200, 5*time.Minute),
		cacheMgr: cache.NewManager(),
	}
	if len(s.categories) == 0 {
		s.categories = core.DefaultCategories
	}

	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s.cacheMgr.Register(s.txCache)
	s.cacheMgr.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/projections", s.handleProjections)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/months", s.handleMonths)
	mux.HandleFunc("GET /api/categories", s.handleCategories)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("POST /api/transactions/clear", s.handleClearTransactions)

	mux.HandleFunc("GET /api/filter", s.handleGetFilter)
	mux.HandleFunc("PUT /api/filter", s.handleSetFilter)

	mux.HandleFunc("GET /api/theme", s.handleGetTheme)
	mux.HandleFunc("PUT /api/theme", s.handleSetTheme)

	mux.HandleFunc("GET /api/session", s.handleGetSession)
	mux.HandleFunc("POST /api/session/signin", s.handleSignIn)
	mux.HandleFunc("POST /api/session/signout", s.handleSignOut)

	mux.HandleFunc("GET /api/sync/events", s.handleSyncEvents)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(s.detector.ExtractClientIP)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           tracer.Middleware(headers.Middleware(applog.Middleware(logger)(s.guard(mux)))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// guard applies suspicious-request detection to everything and rate
// limiting to mutating requests.
func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		clientIP := s.detector.ExtractClientIP(r)

		if s.detector.DetectSuspiciousRequest(r) {
			slog.WarnContext(ctx, "suspicious request blocked",
				"client_ip", clientIP,
				"method", r.Method,
				"path", r.URL.Path)
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}

		if isMutating(r.Method) && !s.limiter.Allow(clientIP) {
			slog.WarnContext(ctx, "rate limit exceeded",
				"client_ip", clientIP,
				"method", r.Method,
				"path", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheMgr.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
