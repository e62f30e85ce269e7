package batchsync

import "github.com/prometheus/client_golang/prometheus"

// Run results recorded on exportRuns
const (
	resultEmpty     = "empty"
	resultSucceeded = "succeeded"
	resultPartial   = "partial"
	resultAborted   = "aborted"
	resultCanceled  = "canceled"
)

var (
	exportRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "listsync_export_runs_total",
		Help: "Batch export runs by list and result.",
	}, []string{"list", "result"})

	exportOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "listsync_export_operations_total",
		Help: "Resolved queue items by list, effective operation and outcome.",
	}, []string{"list", "operation", "outcome"})

	statusChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "listsync_batch_status_checks_total",
		Help: "Batch status requests by list and observed result.",
	}, []string{"list", "result"})

	runDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "listsync_export_run_duration_seconds",
		Help:    "Wall time of export runs including polling.",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200},
	}, []string{"list"})
)

func init() {
	prometheus.MustRegister(exportRuns, exportOperations, statusChecks, runDuration)
}
