package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InvalidEdges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lanework_invalid_edges_total",
		Help: "Total number of edges dropped during graph construction.",
	})

	TasksStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lanework_tasks_started_total",
		Help: "Total number of tasks picked up by a worker.",
	})

	TasksCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lanework_tasks_completed_total",
		Help: "Total number of tasks that reached the completed state.",
	})

	BonusApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lanework_bonus_applied_total",
		Help: "Total number of bonus calls queued against an in-progress task.",
	})

	BonusIgnored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lanework_bonus_ignored_total",
		Help: "Total number of bonus calls that targeted an idle or unknown lane.",
	})

	BonusSeconds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lanework_bonus_seconds_total",
		Help: "Simulated seconds of bonus time actually consumed by tasks.",
	})

	StagesCleared = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lanework_stages_cleared_total",
		Help: "Total number of stage attempts cleared, labelled by stage name.",
	}, []string{"stage"})

	StagesFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lanework_stages_failed_total",
		Help: "Total number of stage attempts that ran out of time, labelled by stage name.",
	}, []string{"stage"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lanework_active_sessions",
		Help: "Number of stage attempts currently held by the engine.",
	})

	Simulations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lanework_simulations_total",
		Help: "Total number of headless simulations, labelled by outcome.",
	}, []string{"outcome"})

	SimulationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lanework_simulation_duration_ms",
		Help:    "Wall-clock time spent running a headless simulation in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})

	SimulationQueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lanework_simulation_queue_utilization_ratio",
		Help: "Current simulation queue utilization (0–1).",
	})
)
