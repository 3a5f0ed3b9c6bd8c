package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"jokeledger/observability"
)

type ObservabilityConfig struct {
	ServiceName string
	LogRequests bool
	Enabled     bool
}

type Observability struct {
	cfg    ObservabilityConfig
	logger *slog.Logger
}

func NewObservability(cfg ObservabilityConfig, logger *slog.Logger) *Observability {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "jokeledger"
	}
	return &Observability{cfg: cfg, logger: logger}
}

// Middleware wraps a route group in an otelhttp span and records request
// counts and latency under the supplied module label.
func (o *Observability) Middleware(module string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !o.cfg.Enabled {
			return next
		}
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			elapsed := time.Since(start)

			span := trace.SpanFromContext(r.Context())
			span.SetAttributes(
				attribute.String("jokeledger.module", module),
				attribute.String("request.id", RequestIDFromContext(r.Context())),
			)
			observability.ModuleMetrics().Observe(module, r.Method, recorder.status, elapsed)
			if o.cfg.LogRequests {
				o.logger.Info("http request",
					"module", module,
					"method", r.Method,
					"path", r.URL.Path,
					"status", recorder.status,
					"duration_ms", float64(elapsed.Microseconds())/1000,
					"request_id", RequestIDFromContext(r.Context()),
				)
			}
		})
		return otelhttp.NewHandler(inner, o.cfg.ServiceName+"."+module)
	}
}

// MetricsHandler serves the process wide prometheus registry.
func (o *Observability) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }
