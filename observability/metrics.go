// Package observability exports run statistics as Prometheus metrics,
// for scraping or as a node-exporter textfile.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/metrics"
)

// Metrics holds the collectors of one process, on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	RunsTotal    *prometheus.CounterVec
	RunErrors    *prometheus.CounterVec
	RunDuration  *prometheus.HistogramVec
	Bars         *prometheus.GaugeVec
	Signals      *prometheus.GaugeVec
	Trades       *prometheus.GaugeVec
	Skips        *prometheus.GaugeVec
	FinalEquity  *prometheus.GaugeVec
	NetPnL       *prometheus.GaugeVec
	MaxDrawdown  *prometheus.GaugeVec
	TradePnL     *prometheus.HistogramVec
	SuspectGaps  *prometheus.GaugeVec
	LastRunEpoch prometheus.Gauge
}

var runLabels = []string{"strategy", "instrument"}

// NewMetrics creates every collector under namespace (default "backtester").
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "backtester"
	}
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed backtest runs",
		}, runLabels),
		RunErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_errors_total",
			Help:      "Runs that failed before producing a result",
		}, []string{"job"}),
		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a replay",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, runLabels),
		Bars: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "bars",
			Help:      "Bars replayed in the last run",
		}, runLabels),
		Signals: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "signals",
			Help:      "Signals emitted in the last run",
		}, runLabels),
		Trades: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "trades",
			Help:      "Closed trades in the last run",
		}, runLabels),
		Skips: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "skips",
			Help:      "Skipped signals in the last run by kind and code",
		}, append(append([]string{}, runLabels...), "kind", "code")),
		FinalEquity: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "final_equity",
			Help:      "Realized equity at the end of the last run",
		}, runLabels),
		NetPnL: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "net_pnl",
			Help:      "Net profit of the last run",
		}, runLabels),
		MaxDrawdown: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "max_drawdown_pct",
			Help:      "Largest realized drawdown of the last run in percent",
		}, runLabels),
		TradePnL: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trade_pnl",
			Help:      "Net result of closed trades",
			Buckets:   []float64{-500, -250, -100, -50, -25, 0, 25, 50, 100, 250, 500},
		}, append(append([]string{}, runLabels...), "exit_reason")),
		SuspectGaps: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "data",
			Name:      "suspicious_gaps",
			Help:      "Intra-session gaps in the last replayed series",
		}, runLabels),
		LastRunEpoch: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last recorded run",
		}),
	}
}

// Record exports one finished run.
func (m *Metrics) Record(res *backtest.Result, s metrics.Summary, elapsed time.Duration) {
	if res == nil {
		return
	}
	l := prometheus.Labels{"strategy": res.Strategy, "instrument": res.Instrument}

	m.RunsTotal.With(l).Inc()
	m.RunDuration.With(l).Observe(elapsed.Seconds())
	m.Bars.With(l).Set(float64(res.Bars))
	m.Signals.With(l).Set(float64(res.Signals))
	m.Trades.With(l).Set(float64(s.Trades))
	m.FinalEquity.With(l).Set(s.FinalEquity)
	m.NetPnL.With(l).Set(s.NetPnL)
	m.MaxDrawdown.With(l).Set(s.MaxDrawdownPct)
	m.SuspectGaps.With(l).Set(float64(res.SuspiciousGaps))

	counts := make(map[[2]string]int)
	for _, sk := range res.Skips {
		counts[[2]string{string(sk.Kind), sk.Code}]++
	}
	for k, n := range counts {
		m.Skips.WithLabelValues(res.Strategy, res.Instrument, k[0], k[1]).Set(float64(n))
	}
	for _, t := range res.Trades {
		m.TradePnL.WithLabelValues(res.Strategy, res.Instrument, string(t.Reason)).Observe(t.PnL)
	}
	m.LastRunEpoch.SetToCurrentTime()
}

// RecordError counts a job that produced no result.
func (m *Metrics) RecordError(job string) {
	m.RunErrors.WithLabelValues(job).Inc()
}

// WriteTextfile writes the registry in text exposition format, atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
