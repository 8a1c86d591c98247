package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const healthCheckTimeout = 3 * time.Second

const (
	statusUp   = "ok"
	statusDown = "down"
)

type dbPinger interface {
	Ping(ctx context.Context) error
}

// brokerChecker reports whether lifecycle events can reach the broker.
type brokerChecker interface {
	IsHealthy() bool
}

// HealthHandler serves /live, /ready and /health.
type HealthHandler struct {
	db      dbPinger
	broker  brokerChecker
	version string
}

// NewHealthHandler creates a HealthHandler. broker may be nil, in which case
// no broker component is reported.
func NewHealthHandler(db dbPinger, version string, broker brokerChecker) *HealthHandler {
	return &HealthHandler{db: db, broker: broker, version: version}
}

// HealthResponse is the body of every health endpoint.
type HealthResponse struct {
	Status     string                `json:"status"`
	Version    string                `json:"version,omitempty"`
	Components map[string]CompStatus `json:"components,omitempty"`
	Timestamp  time.Time             `json:"timestamp"`
}

// CompStatus is the state of one dependency.
type CompStatus struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
}

// Live answers 200 while the process serves HTTP.
func (h *HealthHandler) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: statusUp, Timestamp: time.Now()})
}

// Ready answers 503 when the database or the broker is unavailable.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	components := h.check(r.Context())
	overall := overallStatus(components)
	writeJSON(w, httpStatusFor(overall), HealthResponse{
		Status:     overall,
		Components: components,
		Timestamp:  time.Now(),
	})
}

// Health is Ready plus the build version and database latency.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	components := h.check(r.Context())
	overall := overallStatus(components)
	writeJSON(w, httpStatusFor(overall), HealthResponse{
		Status:     overall,
		Version:    h.version,
		Components: components,
		Timestamp:  time.Now(),
	})
}

func (h *HealthHandler) check(ctx context.Context) map[string]CompStatus {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	components := make(map[string]CompStatus, 2)

	start := time.Now()
	if err := h.db.Ping(ctx); err != nil {
		components["database"] = CompStatus{Status: statusDown}
	} else {
		components["database"] = CompStatus{Status: statusUp, Latency: time.Since(start).String()}
	}

	if h.broker != nil {
		if h.broker.IsHealthy() {
			components["broker"] = CompStatus{Status: statusUp}
		} else {
			components["broker"] = CompStatus{Status: statusDown}
		}
	}

	return components
}

func overallStatus(components map[string]CompStatus) string {
	for _, c := range components {
		if c.Status != statusUp {
			return statusDown
		}
	}
	return statusUp
}

func httpStatusFor(overall string) int {
	if overall == statusUp {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
