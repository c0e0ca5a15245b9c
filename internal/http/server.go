// Package http exposes the calendar as a JSON REST API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"calendario/internal/core"
	"calendario/internal/store"
)

type Server struct {
	http.Server
	store       store.Store
	rateLimiter *rateLimiter

	// LRU cache for month activity listings with eviction policy
	monthCache *lruCache[[]core.Activity]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, st store.Store) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:            st,
		rateLimiter:      newRateLimiter(),
		monthCache:       newLRUCache[[]core.Activity](100, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /activities", s.withMiddleware(s.handleListActivities))
	mux.HandleFunc("POST /activities", s.withMiddleware(s.handleCreateActivity))
	mux.HandleFunc("PUT /activities/{id}", s.withMiddleware(s.handleUpdateActivity))
	mux.HandleFunc("DELETE /activities/{id}", s.withMiddleware(s.handleDeleteActivity))
	mux.HandleFunc("GET /activities/range", s.withMiddleware(s.handleActivityRange))

	mux.HandleFunc("GET /activity-types", s.withMiddleware(s.handleListTypes))
	mux.HandleFunc("POST /activity-types", s.withMiddleware(s.handleCreateType))
	mux.HandleFunc("PUT /activity-types/{id}", s.withMiddleware(s.handleUpdateType))
	mux.HandleFunc("DELETE /activity-types/{id}", s.withMiddleware(s.handleDeleteType))

	mux.HandleFunc("GET /calendar.ics", s.withMiddleware(s.handleCalendarFeed))

	return s
}

// startCacheCleanup runs periodic cleanup for the month cache.
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.monthCache.CleanExpired(); cleaned > 0 {
				slog.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}

		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}

		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withMiddleware adds security headers, rate limiting, and request logging.
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

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Rate limit mutations only; reads are cache-backed and cheap.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeJSONError(w, http.StatusTooManyRequests, "Troppe richieste, riprova più tardi")
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

type contextKey string

const requestIDKey contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
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

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.ListTypes(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) cacheKey(year, month int) string {
	return strconv.Itoa(year) + "-" + strconv.Itoa(month)
}

func (s *Server) invalidateMonth(d core.Date) {
	s.monthCache.Delete(s.cacheKey(d.Year(), int(d.Month())))
}

// getMonthActivities returns the month's activities, serving from cache
// when possible. Month is 1-based here; the handlers own the client's
// 0-based convention.
func (s *Server) getMonthActivities(ctx context.Context, year, month int) ([]core.Activity, error) {
	key := s.cacheKey(year, month)

	if items, found := s.monthCache.Get(key); found {
		slog.DebugContext(ctx, "Month cache hit", "year", year, "month", month, "count", len(items))
		result := make([]core.Activity, len(items))
		copy(result, items)
		return result, nil
	}

	cctx, cancel := context.WithTimeout(ctx, 7*time.Second)
	defer cancel()
	items, err := s.store.ListActivities(cctx, &store.MonthFilter{Month: month, Year: year})
	if err != nil {
		return nil, fmt.Errorf("list month activities (year=%d, month=%d): %w", year, month, err)
	}

	s.monthCache.Set(key, items)
	slog.DebugContext(ctx, "Month activities cached", "year", year, "month", month, "count", len(items))
	return items, nil
}
