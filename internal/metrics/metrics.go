package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ragdash/internal/logging"
	"ragdash/internal/query"
)

const namespace = "ragdash"

// StatsSource is satisfied by *query.Cache.
type StatsSource interface {
	Stats() query.Stats
}

// Recorder counts dashboard activity. A nil Recorder ignores every call.
type Recorder struct {
	registry      *prometheus.Registry
	pollReads     *prometheus.CounterVec
	mutationRuns  *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// New registers the cache collector and the activity counters on a private
// registry.
func New(cache StatsSource) (*Recorder, error) {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		pollReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_reads_total",
			Help:      "Status reads issued by pollers.",
		}, []string{"resource", "outcome"}),
		mutationRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutation_runs_total",
			Help:      "Write operations sent to the backend.",
		}, []string{"mutation", "outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Terminal-state notifications shown to the user.",
		}, []string{"level"}),
	}
	collectors := []prometheus.Collector{r.pollReads, r.mutationRuns, r.notifications}
	if cache != nil {
		collectors = append(collectors, NewCacheCollector(cache))
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) PollRead(resource string, err error) {
	if r == nil {
		return
	}
	r.pollReads.WithLabelValues(resource, outcome(err)).Inc()
}

func (r *Recorder) MutationRun(name string, err error) {
	if r == nil {
		return
	}
	r.mutationRuns.WithLabelValues(name, outcome(err)).Inc()
}

func (r *Recorder) Notification(level string) {
	if r == nil {
		return
	}
	r.notifications.WithLabelValues(level).Inc()
}

func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string, logger logging.Logger) error {
	if logger == nil {
		logger = logging.Nop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	logger.Info("metrics_listen", logging.F("addr", addr))
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
