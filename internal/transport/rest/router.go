package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/mangalend-backend/internal/config"
	"github.com/heartmarshall/mangalend-backend/internal/transport/middleware"
)

// TokenValidator resolves a bearer token to a user ID.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, error)
}

// HTTPObserver records per-route request metrics.
type HTTPObserver interface {
	HTTPRequest(method, route string, status int, elapsed time.Duration)
}

// RouterDeps holds everything NewRouter wires together.
type RouterDeps struct {
	Loans         *LoanHandler
	Waitlist      *WaitlistHandler
	Notifications *NotificationHandler
	Health        *HealthHandler

	Tokens TokenValidator

	// Metrics, when non-nil, is served at MetricsPath. Observer, when
	// non-nil, records request metrics.
	Metrics     http.Handler
	MetricsPath string
	Observer    HTTPObserver

	// Limiter, when non-nil, caps loan requests and waitlist joins per caller.
	Limiter            *middleware.RateLimiter
	RateLimitPerMinute int

	CORS   config.CORSConfig
	Logger *slog.Logger
}

// NewRouter builds the HTTP handler. Auth runs before Logger and Metrics so
// they see the caller and the matched route.
func NewRouter(d RouterDeps) http.Handler {
	mux := http.NewServeMux()

	limited := func(h http.HandlerFunc) http.Handler {
		if d.Limiter == nil || d.RateLimitPerMinute <= 0 {
			return h
		}
		return d.Limiter.Limit(d.RateLimitPerMinute)(h)
	}

	mux.Handle("POST /api/loans", limited(d.Loans.Request))
	mux.HandleFunc("GET /api/loans", d.Loans.List)
	mux.HandleFunc("GET /api/loans/mine", d.Loans.Mine)
	mux.HandleFunc("PUT /api/loans/{id}/decision", d.Loans.Decide)
	mux.HandleFunc("PUT /api/loans/{id}/return", d.Loans.Return)
	mux.HandleFunc("DELETE /api/loans/{id}", d.Loans.Cancel)

	mux.HandleFunc("GET /api/items/{id}/availability", d.Loans.Availability)
	mux.Handle("POST /api/items/{id}/waitlist", limited(d.Waitlist.Join))
	mux.HandleFunc("DELETE /api/items/{id}/waitlist", d.Waitlist.Leave)
	mux.HandleFunc("GET /api/items/{id}/waitlist", d.Waitlist.List)

	mux.HandleFunc("GET /api/notifications/inbox", d.Notifications.Inbox)
	mux.HandleFunc("GET /api/notifications/sent", d.Notifications.Sent)
	mux.HandleFunc("PUT /api/notifications/{id}/read", d.Notifications.MarkRead)
	mux.HandleFunc("DELETE /api/notifications/{id}", d.Notifications.Delete)

	mux.HandleFunc("GET /live", d.Health.Live)
	mux.HandleFunc("GET /ready", d.Health.Ready)
	mux.HandleFunc("GET /health", d.Health.Health)

	if d.Metrics != nil {
		path := d.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, d.Metrics)
	}

	return middleware.Chain(
		middleware.RequestID(),
		middleware.Recovery(d.Logger),
		middleware.CORS(d.CORS),
		middleware.Auth(d.Tokens),
		middleware.Logger(d.Logger),
		middleware.Metrics(d.Observer),
	)(mux)
}
