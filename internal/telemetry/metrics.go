// Package telemetry holds the Prometheus collectors of the batch engine and a
// small helper serving them over HTTP. Every method is safe to call on a nil
// *Collectors, in which case it does nothing; this keeps the hot path free of
// nil checks when metrics are disabled.
package telemetry

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors groups the engine metrics. Label cardinality is bounded by the
// worker count; source names are never used as labels.
type Collectors struct {
	LinesRead     prometheus.Counter
	BundlesQueued prometheus.Counter
	ProducerWaits prometheus.Counter
	SourceErrors  prometheus.Counter
	QueueDepth    prometheus.Gauge
	WorkerLines   *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	RunsTotal     *prometheus.CounterVec
}

// NewCollectors builds the collectors and registers them on reg. Collectors
// that are already registered (for example by a previous engine in the same
// process) are reused so that several engines report into the same series.
func NewCollectors(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		LinesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchdigest_lines_read_total",
			Help: "Lines read from sources by the producer",
		}),
		BundlesQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchdigest_bundles_queued_total",
			Help: "Bundles handed to the work queue",
		}),
		ProducerWaits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchdigest_producer_waits_total",
			Help: "Times the producer was held back because the queue was over capacity",
		}),
		SourceErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchdigest_source_errors_total",
			Help: "Sources that failed to open or read during a run",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "batchdigest_queue_depth",
			Help: "Bundles currently waiting in the work queue",
		}),
		WorkerLines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batchdigest_worker_lines_total",
			Help: "Lines inserted by each worker",
		}, []string{"worker"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "batchdigest_run_duration_seconds",
			Help:    "Wall time of complete runs",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batchdigest_runs_total",
			Help: "Finished runs by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		return c, nil
	}
	var err error
	if c.LinesRead, err = register(reg, c.LinesRead); err != nil {
		return nil, err
	}
	if c.BundlesQueued, err = register(reg, c.BundlesQueued); err != nil {
		return nil, err
	}
	if c.ProducerWaits, err = register(reg, c.ProducerWaits); err != nil {
		return nil, err
	}
	if c.SourceErrors, err = register(reg, c.SourceErrors); err != nil {
		return nil, err
	}
	if c.QueueDepth, err = register(reg, c.QueueDepth); err != nil {
		return nil, err
	}
	if c.WorkerLines, err = register(reg, c.WorkerLines); err != nil {
		return nil, err
	}
	if c.RunDuration, err = register(reg, c.RunDuration); err != nil {
		return nil, err
	}
	if c.RunsTotal, err = register(reg, c.RunsTotal); err != nil {
		return nil, err
	}
	return c, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveLines adds n lines read by the producer.
func (c *Collectors) ObserveLines(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.LinesRead.Add(float64(n))
}

// ObserveBundle records one bundle handed to the queue.
func (c *Collectors) ObserveBundle() {
	if c == nil {
		return
	}
	c.BundlesQueued.Inc()
}

// ObserveProducerWait records one backpressure hold on the producer.
func (c *Collectors) ObserveProducerWait() {
	if c == nil {
		return
	}
	c.ProducerWaits.Inc()
}

// ObserveSourceError records a failed source.
func (c *Collectors) ObserveSourceError() {
	if c == nil {
		return
	}
	c.SourceErrors.Inc()
}

// SetQueueDepth publishes the current queue length.
func (c *Collectors) SetQueueDepth(n int) {
	if c == nil {
		return
	}
	c.QueueDepth.Set(float64(n))
}

// ObserveWorkerLines adds n lines inserted by worker index.
func (c *Collectors) ObserveWorkerLines(worker, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.WorkerLines.WithLabelValues(strconv.Itoa(worker)).Add(float64(n))
}

// ObserveRun records a finished run. err == nil counts as "ok".
func (c *Collectors) ObserveRun(elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.RunsTotal.WithLabelValues(outcome).Inc()
	c.RunDuration.Observe(elapsed.Seconds())
}

// Serve exposes /metrics for g on addr in a background goroutine and returns
// the server so the caller can shut it down. Listen errors are sent to errc
// when it is non-nil.
func Serve(addr string, g prometheus.Gatherer, errc chan<- error) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) && errc != nil {
			errc <- err
		}
	}()
	return server
}
