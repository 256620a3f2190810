// Package metrics exposes the state of the worker pool to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	// WorkersRunning is the number of live worker processes.
	WorkersRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fuzzer_workers_running",
			Help: "Number of running worker processes",
		},
	)

	// Disconnects counts killed workers by reason (random, reconcile).
	Disconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fuzzer_disconnects_total",
			Help: "Total number of forced worker disconnects",
		},
		[]string{"reason"},
	)

	// UnexpectedExits counts workers that exited without being told to.
	UnexpectedExits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fuzzer_worker_unexpected_exits_total",
			Help: "Total number of worker processes that exited on their own",
		},
	)

	// Respawns counts workers started again after a disconnect or exit.
	Respawns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fuzzer_respawns_total",
			Help: "Total number of worker respawns",
		},
	)

	// VersionBumps counts version updates applied on respawn.
	VersionBumps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fuzzer_version_bumps_total",
			Help: "Total number of version bumps applied on respawn",
		},
		[]string{"axis", "kind"},
	)

	// Reconciliations counts forced pool-wide version resets.
	Reconciliations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fuzzer_reconciliations_total",
			Help: "Total number of forced version reconciliations",
		},
		[]string{"axis"},
	)

	// Mismatched is 1 while an axis is mismatched.
	Mismatched = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fuzzer_version_mismatched",
			Help: "Whether the version axis is currently mismatched",
		},
		[]string{"axis"},
	)

	// OutdatedRounds is the current outdated-round counter of an axis.
	OutdatedRounds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fuzzer_outdated_rounds",
			Help: "Consecutive rounds the version axis has been mismatched",
		},
		[]string{"axis"},
	)
)

func init() {
	prometheus.MustRegister(WorkersRunning)
	prometheus.MustRegister(Disconnects)
	prometheus.MustRegister(UnexpectedExits)
	prometheus.MustRegister(Respawns)
	prometheus.MustRegister(VersionBumps)
	prometheus.MustRegister(Reconciliations)
	prometheus.MustRegister(Mismatched)
	prometheus.MustRegister(OutdatedRounds)
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, log logrus.FieldLogger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()

	log.WithField("addr", addr).Info("Metrics endpoint started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
