package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"stocktake/internal/ledger"
	"stocktake/internal/session"
)

// SessionCookie carries the opaque session token between requests.
const SessionCookie = "stocktake_session"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	sessionKey   contextKey = "session"
)

// Server is the HTTP face of the ledger: login gate, transaction entry,
// the aggregate view, and file exports. Everything except login and the
// health probes requires a live session cookie.
type Server struct {
	http.Server
	ledger     *ledger.Service
	sessions   *session.Manager
	password   string
	sessionTTL time.Duration

	rateLimiter  *rateLimiter
	started      time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc *ledger.Service, sessions *session.Manager, password string, sessionTTL time.Duration) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		ledger:      svc,
		sessions:    sessions,
		password:    password,
		sessionTTL:  sessionTTL,
		rateLimiter: newRateLimiter(),
		started:     time.Now(),
	}

	mux.HandleFunc("/healthz", s.withTracing(s.handleHealth))
	mux.HandleFunc("/readyz", s.withTracing(s.handleReady))

	mux.HandleFunc("/login", s.withTracing(s.handleLogin))
	mux.HandleFunc("/logout", s.withTracing(s.withSession(s.handleLogout)))

	mux.HandleFunc("/transactions", s.withTracing(s.withSession(s.handleTransactions)))
	mux.HandleFunc("/transactions/last", s.withTracing(s.withSession(s.handleUndoLast)))

	mux.HandleFunc("/summary", s.withTracing(s.withSession(s.handleSummary)))
	mux.HandleFunc("/history", s.withTracing(s.withSession(s.handleHistory)))
	mux.HandleFunc("/models", s.withTracing(s.withSession(s.handleModels)))
	mux.HandleFunc("/form", s.withTracing(s.withSession(s.handleForm)))

	mux.HandleFunc("/export/summary.csv", s.withTracing(s.withSession(s.handleExportSummaryCSV)))
	mux.HandleFunc("/export/summary.xlsx", s.withTracing(s.withSession(s.handleExportSummaryXLSX)))
	mux.HandleFunc("/export/history.csv", s.withTracing(s.withSession(s.handleExportHistoryCSV)))
	mux.HandleFunc("/export/history.xlsx", s.withTracing(s.withSession(s.handleExportHistoryXLSX)))

	return s
}

// withTracing adds security headers, rate limiting, and request logging.
func (s *Server) withTracing(next http.HandlerFunc) http.HandlerFunc {
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

		// Generate request ID for tracing
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Rate limit mutations only; reads stay cheap through the store cache
		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Capture status code for the completion log
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

// withSession rejects requests without a live session cookie and makes the
// session state available to the wrapped handler.
func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		state, ok := s.sessions.Get(cookie.Value)
		if !ok {
			writeError(w, http.StatusUnauthorized, "session expired, log in again")
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, state)
		next(w, r.WithContext(ctx))
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

func sessionFrom(ctx context.Context) *session.State {
	state, _ := ctx.Value(sessionKey).(*session.State)
	return state
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Shutdown stops the cleanup goroutines and then the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
