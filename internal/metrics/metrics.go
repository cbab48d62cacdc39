package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SamplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "samples_total", Help: "Price samples fetched"},
		[]string{"asset", "provider"},
	)
	PriceFetchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "price_fetch_failures_total", Help: "Price fetches that returned no usable price"},
		[]string{"provider"},
	)
	ReferencesRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "references_recorded_total", Help: "Window reference prices captured"},
		[]string{"asset"},
	)
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "decisions_total", Help: "Accepted decisions"},
		[]string{"asset", "direction"},
	)
	DecisionsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "decisions_rejected_total", Help: "Candidates dropped by a post-evaluation gate"},
		[]string{"reason"},
	)
	OrderIntentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "order_intents_total", Help: "Order intents logged by the executor"},
		[]string{"asset", "mode"},
	)
	BetsSettled = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "paper_bets_settled_total", Help: "Paper bets settled at window close"},
		[]string{"asset", "outcome"},
	)
	TickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tick_duration_seconds",
		Help:    "Wall time spent on one polling tick",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})
)

func init() {
	prometheus.MustRegister(SamplesTotal, PriceFetchFailures, ReferencesRecorded, DecisionsTotal, DecisionsRejected, OrderIntentsTotal, BetsSettled, TickDuration)
}

// Serve exposes /metrics on addr in a background goroutine.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
