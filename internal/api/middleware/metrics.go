package middleware

import (
	"net/http"
	"sync/atomic"
)

// MetricsCollector counts requests by outcome.
type MetricsCollector struct {
	requests    atomic.Int64
	clientErrs  atomic.Int64
	serverErrs  atomic.Int64
	rateLimited atomic.Int64
	inFlight    atomic.Int64
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// RequestMetrics is a point-in-time copy of the counters.
type RequestMetrics struct {
	Requests     int64 `json:"request_count"`
	ClientErrors int64 `json:"client_error_count"`
	ServerErrors int64 `json:"server_error_count"`
	RateLimited  int64 `json:"rate_limited_count"`
	InFlight     int64 `json:"in_flight"`
}

func (mc *MetricsCollector) Snapshot() RequestMetrics {
	return RequestMetrics{
		Requests:     mc.requests.Load(),
		ClientErrors: mc.clientErrs.Load(),
		ServerErrors: mc.serverErrs.Load(),
		RateLimited:  mc.rateLimited.Load(),
		InFlight:     mc.inFlight.Load(),
	}
}

// Middleware returns middleware that counts requests and errors.
func (mc *MetricsCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mc.requests.Add(1)
		mc.inFlight.Add(1)
		defer mc.inFlight.Add(-1)

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		switch {
		case rw.statusCode == http.StatusTooManyRequests:
			mc.rateLimited.Add(1)
		case rw.statusCode >= 500:
			mc.serverErrs.Add(1)
		case rw.statusCode >= 400:
			mc.clientErrs.Add(1)
		}
	})
}
