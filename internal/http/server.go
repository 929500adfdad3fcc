// Package http exposes the budget store as a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"finbudget/internal/cache"
	"finbudget/internal/core"
	"finbudget/internal/store"
)

type Server struct {
	http.Server
	store       *store.Store
	rateLimiter *rateLimiter

	// Caches for the read-heavy summary endpoints, keyed by month.
	summaryCache *cache.LRU[core.BudgetSummary]
	chartCache   *cache.LRU[[]byte]
	janitor      *cache.Janitor

	started      time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and caches, returning a ready-to-run server.
func NewServer(addr string, st *store.Store) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:        st,
		rateLimiter:  newRateLimiter(),
		summaryCache: cache.NewLRU[core.BudgetSummary](100, 5*time.Minute),
		chartCache:   cache.NewLRU[[]byte](50, 5*time.Minute),
		started:      time.Now(),
	}
	s.janitor = cache.NewJanitor(s.summaryCache, s.chartCache)
	s.janitor.Start(10 * time.Minute)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/ping", s.withSecurity(s.handlePing))

	mux.HandleFunc("GET /api/budgets", s.withSecurity(s.handleListBudgets))
	mux.HandleFunc("POST /api/budgets", s.withSecurity(s.handleCreateBudget))
	mux.HandleFunc("GET /api/budgets/{month}", s.withSecurity(s.handleGetBudget))
	mux.HandleFunc("PUT /api/budgets/{month}/income", s.withSecurity(s.handleUpdateIncome))

	mux.HandleFunc("POST /api/budgets/{month}/categories", s.withSecurity(s.handleAddCategory))
	mux.HandleFunc("PUT /api/budgets/{month}/categories/{id}", s.withSecurity(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/budgets/{month}/categories/{id}", s.withSecurity(s.handleRemoveCategory))
	mux.HandleFunc("POST /api/budgets/{month}/categories/{id}/propagate", s.withSecurity(s.handlePropagateCategory))
	mux.HandleFunc("GET /api/budgets/{month}/categories/{id}/transactions", s.withSecurity(s.handleCategoryTransactions))
	mux.HandleFunc("GET /api/budgets/{month}/categories/{id}/actual", s.withSecurity(s.handleCategoryActual))

	mux.HandleFunc("GET /api/transactions", s.withSecurity(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.withSecurity(s.handleAddTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.withSecurity(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withSecurity(s.handleRemoveTransaction))

	mux.HandleFunc("GET /api/summary", s.withSecurity(s.handleSummary))
	mux.HandleFunc("GET /api/savings", s.withSecurity(s.handleSavings))
	mux.HandleFunc("GET /api/months", s.withSecurity(s.handleMonths))
	mux.HandleFunc("GET /api/settings", s.withSecurity(s.handleGetSettings))
	mux.HandleFunc("PUT /api/settings", s.withSecurity(s.handleUpdateSettings))
	mux.HandleFunc("DELETE /api/data", s.withSecurity(s.handleClearData))

	// UI partials
	mux.HandleFunc("GET /ui/summary-chart", s.withSecurity(s.handleSummaryChart))

	return s
}

// invalidateCaches drops cached summaries after any mutation. Mutations can
// ripple across months (redistribution, propagation), so everything goes.
func (s *Server) invalidateCaches() {
	s.summaryCache.Clear()
	s.chartCache.Clear()
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.janitor != nil {
			s.janitor.Stop()
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurity adds security headers, rate limiting, and request logging.
func (s *Server) withSecurity(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Rate limit mutations only; reads are cheap and cached.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		slog.ErrorContext(ctx, "Readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

// handlePing is the cheap endpoint the keepalive pinger targets.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
