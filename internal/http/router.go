package httpx

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/warble-app/warble/internal/service/auth"
	"github.com/warble-app/warble/internal/service/notification"
	"github.com/warble-app/warble/internal/service/post"
	"github.com/warble-app/warble/internal/service/user"
	"github.com/warble-app/warble/internal/ws"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux           *http.ServeMux
	logger        *slog.Logger
	auth          auth.Service
	users         user.Service
	posts         post.Service
	notifications notification.Service
	hub           *ws.Hub
	upgrader      websocket.Upgrader
	limiter       RateLimiter
	tokenTTL      time.Duration
	secureCookies bool
	dbHealth      func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
}

const (
	rateWindowDefault  = time.Minute
	rateWindowRealtime = 30 * time.Second
	rateLimitSignup    = 5
	rateLimitLogin     = 12
	rateLimitUserWrite = 60
	rateLimitUserRead  = 120
	rateLimitWebsocket = 30
	healthCheckTimeout = 2 * time.Second
	sseHeartbeat       = 25 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, authSvc auth.Service, userSvc user.Service, postSvc post.Service, notifSvc notification.Service, hub *ws.Hub, limiter RateLimiter, tokenTTL time.Duration, secureCookies bool, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:           http.NewServeMux(),
		logger:        logger,
		auth:          authSvc,
		users:         userSvc,
		posts:         postSvc,
		notifications: notifSvc,
		hub:           hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:       limiter,
		tokenTTL:      tokenTTL,
		secureCookies: secureCookies,
		dbHealth:      dbHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit(r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.Handler())
	r.mux.HandleFunc("/signup", r.audit(r.withRateLimit("signup", rateLimitSignup, rateWindowDefault, rateLimitKeyIP, r.handleSignup)))
	r.mux.HandleFunc("/login", r.audit(r.withRateLimit("login", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleLogin)))
	r.mux.HandleFunc("/logout", r.audit(r.handleLogout))
	r.mux.HandleFunc("/me", r.audit(r.requireAuth(r.handleMe)))
	r.mux.HandleFunc("/users/", r.audit(r.handlerAuthRate("users", rateLimitUserWrite, rateWindowDefault, r.handleUsers)))
	r.mux.HandleFunc("/posts/", r.audit(r.handlerAuthRate("posts", rateLimitUserWrite, rateWindowDefault, r.handlePosts)))
	r.mux.HandleFunc("/notifications", r.audit(r.handlerAuthRate("notifications", rateLimitUserRead, rateWindowDefault, r.handleNotifications)))
	r.mux.HandleFunc("/notifications/stream", r.audit(r.handlerAuthRate("notifications_sse", rateLimitWebsocket, rateWindowRealtime, r.handleNotificationsSSE)))
	r.mux.HandleFunc("/ws/notifications", r.audit(r.handlerAuthRate("notifications_ws", rateLimitWebsocket, rateWindowRealtime, r.handleNotificationsWS)))
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			r.logger.Error("health check failed", "error", err)
			status = "degraded"
		}
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": status})
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// respondError translates service errors into the response taxonomy.
// Anything unrecognized is an internal error: log the detail, return a
// generic message.
func (r *Router) respondError(w http.ResponseWriter, err error) {
	switch {
	case isBadRequest(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case isNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, post.ErrNotPostOwner):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		r.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

var badRequestErrors = []error{
	auth.ErrInvalidEmail,
	auth.ErrUsernameTaken,
	auth.ErrEmailInUse,
	auth.ErrPasswordTooShort,
	auth.ErrInvalidCredentials,
	auth.ErrMissingFields,
	user.ErrCannotFollowSelf,
	user.ErrWrongPassword,
	user.ErrPasswordTooShort,
	user.ErrPasswordPair,
	user.ErrUsernameTaken,
	user.ErrEmailInUse,
	post.ErrEmptyPost,
	post.ErrCommentRequired,
}

var notFoundErrors = []error{
	user.ErrUserNotFound,
	post.ErrPostNotFound,
	post.ErrUserNotFound,
}

func isBadRequest(err error) bool {
	for _, candidate := range badRequestErrors {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}

func isNotFound(err error) bool {
	for _, candidate := range notFoundErrors {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}

func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, topRoute(req.URL.Path), status, duration)

		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if u, ok := currentUser(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", u.ID)
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

// topRoute keeps the metrics route label low-cardinality.
func topRoute(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if idx := strings.IndexRune(trimmed, '/'); idx > 0 {
		trimmed = trimmed[:idx]
	}
	if trimmed == "" {
		return "/"
	}
	return "/" + trimmed
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func (sr *statusRecorder) Push(target string, opts *http.PushOptions) error {
	if p, ok := sr.ResponseWriter.(http.Pusher); ok {
		return p.Push(target, opts)
	}
	return http.ErrNotSupported
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) applyRateHeaders(w http.ResponseWriter, limit int, decision rateDecision) {
	if limit <= 0 {
		return
	}
	remaining := limit - decision.count
	if remaining < 0 {
		remaining = 0
	}
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !decision.windowEnd.IsZero() {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
	}
}
