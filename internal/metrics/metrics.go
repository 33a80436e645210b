// Package metrics exposes claim loop counters over a Prometheus endpoint.
//
// All Recorder methods are safe to call on a nil *Recorder so the runner
// does not need to check whether metrics are enabled.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/centic-tools/centic-ctl/internal/api"
	"github.com/centic-tools/centic-ctl/internal/logging"
)

const namespace = "centic"

// Claim results used as the result label of centic_claims_total.
const (
	ResultClaimed  = "claimed"
	ResultNotFound = "not_found"
	ResultFailed   = "failed"
)

const shutdownTimeout = 5 * time.Second

// Recorder holds the collectors for one process on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	passes        prometheus.Counter
	accounts      *prometheus.CounterVec
	claims        *prometheus.CounterVec
	requests      *prometheus.CounterVec
	unclaimed     prometheus.Gauge
	lastPass      prometheus.Gauge
	passDurations prometheus.Histogram
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		passes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Completed passes over all accounts.",
		}),
		accounts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accounts_total",
			Help:      "Accounts processed, by outcome.",
		}, []string{"outcome"}),
		claims: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_total",
			Help:      "Task claim attempts, by result.",
		}, []string{"result"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Rewards API requests, by operation and outcome.",
		}, []string{"op", "outcome"}),
		unclaimed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unclaimed_tasks",
			Help:      "Unclaimed tasks seen during the last pass.",
		}),
		lastPass: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_pass_timestamp_seconds",
			Help:      "Unix time at which the last pass finished.",
		}),
		passDurations: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Wall time of a pass over all accounts.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
	}
}

// Registry returns the registry the collectors are registered on.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveClaim counts one claim attempt.
func (r *Recorder) ObserveClaim(result string) {
	if r == nil {
		return
	}
	r.claims.WithLabelValues(result).Inc()
}

// ObserveRequest counts one API call. The outcome label is "ok" on success
// and the api.Kind name otherwise.
func (r *Recorder) ObserveRequest(op string, err error) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(op, outcome(err)).Inc()
}

// ObserveAccount counts one processed account.
func (r *Recorder) ObserveAccount(ok bool) {
	if r == nil {
		return
	}
	label := "ok"
	if !ok {
		label = "failed"
	}
	r.accounts.WithLabelValues(label).Inc()
}

// ObservePass records the end of a pass.
func (r *Recorder) ObservePass(unclaimed int, took time.Duration, at time.Time) {
	if r == nil {
		return
	}
	r.passes.Inc()
	r.unclaimed.Set(float64(unclaimed))
	r.lastPass.Set(float64(at.Unix()))
	r.passDurations.Observe(took.Seconds())
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	switch api.KindOf(err) {
	case api.KindNetwork:
		return "network"
	case api.KindNotFound:
		return "not_found"
	case api.KindStatus:
		return "status"
	case api.KindDecode:
		return "decode"
	default:
		return "error"
	}
}

// Handler returns the router serving /metrics and /healthz.
func (r *Recorder) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	return router
}

// Start listens on addr and serves Handler until ctx is cancelled.
// It returns the bound address, which differs from addr when the port is 0.
func (r *Recorder) Start(ctx context.Context, addr string) (string, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}

	srv := &http.Server{
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("metrics server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn("metrics server shutdown error", "error", err)
		}
	}()

	bound := lis.Addr().String()
	logging.Debug("metrics server listening", "addr", bound)
	return bound, nil
}
