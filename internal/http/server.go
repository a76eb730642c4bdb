// Package http exposes the JSON API over the recurring engine, budgets,
// goals, and analytics.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/cache"
	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/services"
	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/storage"
)

type Server struct {
	http.Server

	definitions *services.DefinitionService
	projector   *services.Projector
	overview    *services.OverviewService
	analytics   *services.AnalyticsService
	goals       *services.GoalService
	store       storage.Store

	rateLimiter *rateLimiter

	overviewCache *cache.LRU[services.Overview]
	seriesCache   *cache.LRU[[]byte]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// Simple in-memory rate limiter, per client IP.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes.
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Counter resets after a quiet minute.
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Up to 60 requests per minute.
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer wires routes and returns a ready-to-run HTTP server.
func NewServer(addr string, store storage.Store, projector *services.Projector) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		definitions:      services.NewDefinitionService(store, store),
		projector:        projector,
		overview:         services.NewOverviewService(store),
		analytics:        services.NewAnalyticsService(store),
		goals:            services.NewGoalService(store),
		store:            store,
		rateLimiter:      newRateLimiter(),
		overviewCache:    cache.NewLRU[services.Overview](100, 5*time.Minute),
		seriesCache:      cache.NewLRU[[]byte](200, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("GET /api/recurring", s.withMiddleware(s.handleListDefinitions))
	mux.HandleFunc("POST /api/recurring", s.withMiddleware(s.handleCreateDefinition))
	mux.HandleFunc("GET /api/recurring/{id}", s.withMiddleware(s.handleGetDefinition))
	mux.HandleFunc("PUT /api/recurring/{id}", s.withMiddleware(s.handleUpdateDefinition))
	mux.HandleFunc("DELETE /api/recurring/{id}", s.withMiddleware(s.handleDeleteDefinition))
	mux.HandleFunc("POST /api/recurring/{id}/toggle", s.withMiddleware(s.handleToggleDefinition))
	mux.HandleFunc("POST /api/recurring/{id}/create-now", s.withMiddleware(s.handleCreateNow))
	mux.HandleFunc("POST /api/recurring/process", s.withMiddleware(s.handleProcess))

	mux.HandleFunc("GET /api/transactions", s.withMiddleware(s.handleListTransactions))
	mux.HandleFunc("GET /api/budgets/overview", s.withMiddleware(s.handleOverview))
	mux.HandleFunc("GET /api/alerts", s.withMiddleware(s.handleAlerts))
	mux.HandleFunc("GET /api/analytics", s.withMiddleware(s.handleAnalyticsSummary))
	mux.HandleFunc("GET /api/analytics/series", s.withMiddleware(s.handleAnalyticsSeries))
	mux.HandleFunc("GET /api/analytics/categories", s.withMiddleware(s.handleAnalyticsCategories))
	mux.HandleFunc("POST /api/goals/{id}/contributions", s.withMiddleware(s.handleAddContribution))

	return s
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			overviewCleaned := s.overviewCache.CleanExpired()
			seriesCleaned := s.seriesCache.CleanExpired()
			if overviewCleaned > 0 || seriesCleaned > 0 {
				slog.Debug("Cache cleanup completed",
					"overview_entries_removed", overviewCleaned,
					"series_entries_removed", seriesCleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops the cleanup goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withMiddleware adds security headers, rate limiting on writes, and
// request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

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
			"client_ip", clientIP)

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

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
