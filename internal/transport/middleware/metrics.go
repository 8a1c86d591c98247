package middleware

import (
	"net/http"
	"time"
)

type httpObserver interface {
	HTTPRequest(method, route string, status int, elapsed time.Duration)
}

// Metrics records request count and latency per matched route. A nil
// observer yields a nil Middleware, which Chain skips.
func Metrics(m httpObserver) Middleware {
	if m == nil {
		return nil
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)
			m.HTTPRequest(r.Method, routeOf(r), sw.status, time.Since(start))
		})
	}
}
