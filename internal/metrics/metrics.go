package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics for the metrics endpoint itself
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Business metrics
	backtestsTotal   *prometheus.CounterVec
	backtestDuration prometheus.Histogram
	barsProcessed    prometheus.Counter
	signalsGenerated *prometheus.CounterVec
	tradesSimulated  *prometheus.CounterVec
	ordersRejected   prometheus.Counter
	collectorFetches *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		backtestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edgelab_backtests_total",
				Help: "Total number of backtests by outcome",
			},
			[]string{"status"},
		),

		backtestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "edgelab_backtest_duration_seconds",
				Help:    "Backtest duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
		),

		barsProcessed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "edgelab_bars_processed_total",
				Help: "Total number of bars run through the simulator",
			},
		),

		signalsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edgelab_signals_generated_total",
				Help: "Total number of non-hold signals generated",
			},
			[]string{"action"},
		),

		tradesSimulated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edgelab_trades_simulated_total",
				Help: "Total number of simulated fills by side",
			},
			[]string{"side"},
		),

		ordersRejected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "edgelab_orders_rejected_total",
				Help: "Total number of orders rejected by the sizer or cash check",
			},
		),

		collectorFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edgelab_collector_requests_total",
				Help: "Total number of market data fetches by provider and outcome",
			},
			[]string{"provider", "status"},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDuration)
	reg.MustRegister(r.barsProcessed)
	reg.MustRegister(r.signalsGenerated)
	reg.MustRegister(r.tradesSimulated)
	reg.MustRegister(r.ordersRejected)
	reg.MustRegister(r.collectorFetches)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	r.httpRequestsTotal.WithLabelValues(method, path, statusToString(status)).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordBacktest records a backtest completion.
func (r *Registry) RecordBacktest(status string, duration float64) {
	r.backtestsTotal.WithLabelValues(status).Inc()
	r.backtestDuration.Observe(duration)
}

// RecordBars records bars processed by the simulator.
func (r *Registry) RecordBars(n int) {
	r.barsProcessed.Add(float64(n))
}

// RecordSignal records a generated buy/sell signal.
func (r *Registry) RecordSignal(action string) {
	r.signalsGenerated.WithLabelValues(action).Inc()
}

// RecordTrade records a simulated fill.
func (r *Registry) RecordTrade(side string) {
	r.tradesSimulated.WithLabelValues(side).Inc()
}

// RecordRejection records a rejected order.
func (r *Registry) RecordRejection() {
	r.ordersRejected.Inc()
}

// RecordFetch records a market data fetch attempt.
func (r *Registry) RecordFetch(provider, status string) {
	r.collectorFetches.WithLabelValues(provider, status).Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
