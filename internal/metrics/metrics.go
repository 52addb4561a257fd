package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "transaction_ledger"

var (
	TransactionsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_created_total",
			Help:      "Create calls that returned a record, by result (created or replayed).",
		},
		[]string{"result"},
	)

	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Successful status transitions by target status.",
		},
		[]string{"to"},
	)

	OperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_errors_total",
			Help:      "Failed ledger operations by operation and error kind.",
		},
		[]string{"operation", "kind"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Ledger operation latency in seconds.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	PendingExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pending_expired_total",
		Help:      "PENDING transactions moved to FAILED by the expiry sweep.",
	})

	EventPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_publish_failures_total",
		Help:      "Lifecycle events that could not be published.",
	})

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)
)

// ObserveOperation records latency and, on failure, the error kind of a ledger operation.
func ObserveOperation(operation string, start time.Time, errKind string) {
	OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if errKind != "" && errKind != "none" {
		OperationErrors.WithLabelValues(operation, errKind).Inc()
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency. route should return a low-cardinality
// label (the matched route template, not the raw path).
func Middleware(route func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(rec, r)

			label := route(r)
			httpRequestDuration.
				WithLabelValues(r.Method, label).
				Observe(time.Since(start).Seconds())

			httpRequestsTotal.
				WithLabelValues(r.Method, label, strconv.Itoa(rec.status)).
				Inc()
		})
	}
}
