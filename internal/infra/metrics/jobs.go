package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(generationJobsTotal, generationBatchesTotal, generationJobsActive, generationJobsStored, generationJobsReaped)
}

var (
	generationJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_jobs_finished_total",
			Help: "Generation jobs that reached a terminal state, labeled by status.",
		},
		[]string{"status"}, // 'done', 'cancelled', 'failed'
	)

	generationBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_batches_total",
			Help: "Settled batches, labeled by outcome.",
		},
		[]string{"outcome"}, // 'completed', 'failed', 'cancelled'
	)

	generationJobsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "generation_jobs_active",
			Help: "Generation jobs currently being processed.",
		},
	)

	generationJobsStored = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "generation_jobs_stored",
			Help: "Job records currently held by the store.",
		},
	)

	generationJobsReaped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "generation_jobs_reaped_total",
			Help: "Job records evicted by the reaper.",
		},
	)
)

func IncGenerationJob(status string) {
	generationJobsTotal.WithLabelValues(norm(status)).Inc()
}

func IncBatch(outcome string) {
	generationBatchesTotal.WithLabelValues(norm(outcome)).Inc()
}

func JobStarted()  { generationJobsActive.Inc() }
func JobFinished() { generationJobsActive.Dec() }

func SetStoredJobs(n int) { generationJobsStored.Set(float64(n)) }

func AddReaped(n int) { generationJobsReaped.Add(float64(n)) }
