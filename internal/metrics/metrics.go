// Package metrics exports pool occupancy and tick timings to Prometheus.
// Gauges are written from the game loop; scrapes only read the registry.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/altplanet/engine/internal/core/slotpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "altplanet"

// Recorder owns a private registry with the engine's metrics.
type Recorder struct {
	registry  *prometheus.Registry
	capacity  *prometheus.GaugeVec
	live      *prometheus.GaugeVec
	highWater *prometheus.GaugeVec
	tick      *prometheus.HistogramVec
	desyncs   prometheus.Counter
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		capacity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "capacity",
			Help:      "Fixed slot capacity of each pool",
		}, []string{"pool"}),
		live: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "live",
			Help:      "Occupied slots of each pool",
		}, []string{"pool"}),
		highWater: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "high_water",
			Help:      "One past the highest slot index ever occupied",
		}, []string{"pool"}),
		tick: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Wall time spent per tick phase",
			Buckets:   []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025},
		}, []string{"phase"}),
		desyncs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_desyncs_total",
			Help:      "Zipped traversals that found misaligned slots",
		}),
	}
	r.registry.MustRegister(
		r.capacity, r.live, r.highWater, r.tick, r.desyncs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry exposes the registry for tests and extra collectors.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// SetPool records one pool's occupancy.
func (r *Recorder) SetPool(name string, st slotpool.Stats) {
	r.capacity.WithLabelValues(name).Set(float64(st.Capacity))
	r.live.WithLabelValues(name).Set(float64(st.Live))
	r.highWater.WithLabelValues(name).Set(float64(st.HighWater))
}

// ObservePhase records how long one phase's system took.
func (r *Recorder) ObservePhase(phase string, d time.Duration) {
	r.tick.WithLabelValues(phase).Observe(d.Seconds())
}

// Desync counts one misaligned traversal.
func (r *Recorder) Desync() { r.desyncs.Inc() }

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("metrics listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
