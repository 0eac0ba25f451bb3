package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counters for the sync engine and the background schedulers.
var (
	RemoteReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudscribe_remote_reads_total",
		Help: "Remote document store reads, by transport mode and result.",
	}, []string{"mode", "result"})

	RemoteWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudscribe_remote_writes_total",
		Help: "Remote document store writes, by transport mode and result.",
	}, []string{"mode", "result"})

	RefreshTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudscribe_refresh_ticks_total",
		Help: "Periodic refresh job executions, by result.",
	}, []string{"result"})

	JobsDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cloudscribe_scheduler_jobs_dispatched_total",
		Help: "Jobs dispatched across all processors.",
	})

	JobPanics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cloudscribe_scheduler_job_panics_total",
		Help: "Job executions that ended in a recovered panic.",
	})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
