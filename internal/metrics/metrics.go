// Package metrics exposes the coordinator's Prometheus registry: phase
// transition counters, participant/quorum gauges, aggregation timing, and
// message rejection counts broken down by the preprocessor error that
// caused them.
package metrics

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xaynetics/pet-coordinator/common/log"
)

var (
	// Registry is the coordinator's process-wide metrics registry.
	Registry = prometheus.NewRegistry()

	// PhaseTransitions counts how many times a task has moved into a given
	// phase, labeled by task and the phase being entered.
	PhaseTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pet_phase_transitions_total",
		Help: "Number of times a task entered a given phase",
	}, []string{"task_id", "phase"})

	// RoundsCompleted counts rounds that reached Unmask successfully.
	RoundsCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pet_rounds_completed_total",
		Help: "Number of rounds that completed with a published model",
	}, []string{"task_id"})

	// RoundsFailed counts rounds that aborted to the error phase, labeled
	// by the abort reason.
	RoundsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pet_rounds_failed_total",
		Help: "Number of rounds that aborted before completing",
	}, []string{"task_id", "reason"})

	// SumParticipants tracks how many participants registered in the
	// current round's sum dictionary.
	SumParticipants = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pet_sum_participants",
		Help: "Number of participants registered in the current round's sum dictionary",
	}, []string{"task_id"})

	// UpdateParticipants tracks how many updaters have contributed a
	// masked model in the current round.
	UpdateParticipants = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pet_update_participants",
		Help: "Number of updaters that have contributed in the current round",
	}, []string{"task_id"})

	// RejectedMessages counts rejected participant messages, broken down
	// by the preprocessor or state-machine error that caused the rejection.
	RejectedMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pet_rejected_messages_total",
		Help: "Number of participant messages rejected, labeled by reason",
	}, []string{"task_id", "reason"})

	// AggregationLatency measures how long a round spends between Sum
	// closing and Unmask publishing a model.
	AggregationLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pet_aggregation_latency_seconds",
		Help:    "Time spent aggregating a round, from the end of Sum to the published model",
		Buckets: prometheus.DefBuckets,
	}, []string{"task_id"})

	// HTTPRequests is a counter for inbound HTTP requests, labeled by route
	// and status class. It is registered by Start, but the transport in
	// internal/transport/http does not increment it, so it stays empty.
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pet_http_requests_total",
		Help: "Number of HTTP requests served, labeled by route and status class",
	}, []string{"route", "status_class"})

	bound sync.Once
)

func bind(l log.Logger) {
	if err := Registry.Register(collectors.NewGoCollector()); err != nil {
		l.Errorw("failed to register go collector", "err", err)
	}
	if err := Registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		l.Errorw("failed to register process collector", "err", err)
	}

	collectorsToRegister := []prometheus.Collector{
		PhaseTransitions,
		RoundsCompleted,
		RoundsFailed,
		SumParticipants,
		UpdateParticipants,
		RejectedMessages,
		AggregationLatency,
		HTTPRequests,
	}
	for _, c := range collectorsToRegister {
		if err := Registry.Register(c); err != nil {
			l.Errorw("failed to register collector", "err", err)
		}
	}
}

// Start binds the registry's collectors (once per process) and serves them,
// plus a pprof handler mounted at /debug/pprof/, on metricsBind. It returns
// the bound listener so the caller can log its address or close it during
// shutdown.
func Start(logger log.Logger, metricsBind string, pprofHandler http.Handler) net.Listener {
	bound.Do(func() {
		bind(logger)
	})

	if !strings.Contains(metricsBind, ":") {
		metricsBind = "127.0.0.1:" + metricsBind
	}
	l, err := net.Listen("tcp", metricsBind)
	if err != nil {
		logger.Warnw("metrics listener failed to start", "err", err)
		return nil
	}
	logger.Infow("metrics listener started", "addr", l.Addr())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry}))
	if pprofHandler != nil {
		mux.Handle("/debug/pprof/", http.StripPrefix("/debug/pprof", pprofHandler))
	}

	srv := http.Server{Addr: l.Addr().String(), ReadHeaderTimeout: 3 * time.Second, Handler: mux}
	go func() {
		logger.Warnw("metrics listener stopped", "err", srv.Serve(l))
	}()
	return l
}

// Shutdown closes the listener returned by Start, which stops the metrics
// server. It is a no-op when l is nil (Start failed to listen).
func Shutdown(_ context.Context, l net.Listener) error {
	if l == nil {
		return nil
	}
	return l.Close()
}
