// Package metrics exposes Prometheus collectors for the trading loop.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the bot updates. Each instance owns its
// registry so several can coexist in one process (tests).
type Metrics struct {
	Registry *prometheus.Registry

	TicksTotal        prometheus.Counter
	TickErrors        prometheus.Counter
	FetchErrors       *prometheus.CounterVec
	RateLimitRetries  prometheus.Counter
	FetchDuration     prometheus.Histogram
	TradesTotal       *prometheus.CounterVec
	NotifyErrors      prometheus.Counter
	JournalErrors     prometheus.Counter
	LastPrice         prometheus.Gauge
	LastRSI           prometheus.Gauge
	WindowLength      prometheus.Gauge
	PositionOpen      prometheus.Gauge
	Capital           prometheus.Gauge
	TotalProfit       prometheus.Gauge
	StreamSubscribers prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rsitrader_ticks_total",
			Help: "Scheduler ticks started",
		}),
		TickErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rsitrader_tick_errors_total",
			Help: "Ticks abandoned because of an error or panic",
		}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rsitrader_fetch_errors_total",
			Help: "Failed price fetches (by source)",
		}, []string{"source"}),
		RateLimitRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rsitrader_rate_limit_retries_total",
			Help: "Backoff waits caused by HTTP 429",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rsitrader_fetch_duration_seconds",
			Help:    "Price fetch latency including backoff",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rsitrader_trades_total",
			Help: "Simulated trades (by action and reason)",
		}, []string{"action", "reason"}),
		NotifyErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rsitrader_notify_errors_total",
			Help: "Trade notifications that could not be delivered",
		}),
		JournalErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rsitrader_journal_errors_total",
			Help: "Journal writes that failed",
		}),
		LastPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rsitrader_last_price",
			Help: "Most recently fetched price",
		}),
		LastRSI: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rsitrader_last_rsi",
			Help: "Most recent valid RSI",
		}),
		WindowLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rsitrader_window_length",
			Help: "Prices currently held in the RSI window",
		}),
		PositionOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rsitrader_position_open",
			Help: "Position state (0=flat, 1=long)",
		}),
		Capital: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rsitrader_capital",
			Help: "Simulated capital",
		}),
		TotalProfit: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rsitrader_total_profit",
			Help: "Total realized profit",
		}),
		StreamSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rsitrader_stream_subscribers",
			Help: "Connected websocket clients",
		}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.TicksTotal,
		m.TickErrors,
		m.FetchErrors,
		m.RateLimitRetries,
		m.FetchDuration,
		m.TradesTotal,
		m.NotifyErrors,
		m.JournalErrors,
		m.LastPrice,
		m.LastRSI,
		m.WindowLength,
		m.PositionOpen,
		m.Capital,
		m.TotalProfit,
		m.StreamSubscribers,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
