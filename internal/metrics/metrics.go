package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guardpost_http_requests_total",
		Help: "HTTP requests by route pattern, method and status code.",
	}, []string{"route", "method", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "guardpost_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guardpost_login_attempts_total",
		Help: "Login attempts by result (success, invalid, throttled, error).",
	}, []string{"result"})

	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guardpost_sessions_created_total",
		Help: "Sessions issued at login.",
	})

	SessionsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guardpost_sessions_purged_total",
		Help: "Expired sessions deleted, lazily or by the purge loop.",
	})

	GuardRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guardpost_guard_rejections_total",
		Help: "Requests rejected by the authorization guard by reason.",
	}, []string{"reason"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guardpost_notifications_total",
		Help: "Notification deliveries by event type and result.",
	}, []string{"event", "result"})

	Summaries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guardpost_summaries_total",
		Help: "Summaries produced by kind and source (ai, fallback).",
	}, []string{"kind", "source"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency keyed by the chi route
// pattern, so ids in paths do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
