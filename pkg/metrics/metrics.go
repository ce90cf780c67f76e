package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Dispatch cycle metrics
	RunsStarted      prometheus.Counter
	BucketsClaimed   prometheus.Counter
	ClaimConflicts   prometheus.Counter
	CandidatesBuilt  prometheus.Counter
	RecipientsSent   prometheus.Counter
	RecipientsFailed prometheus.Counter
	GateRejections   *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	BatchSendLatency prometheus.Histogram

	// Delivery callback metrics
	DeliveryEvents     *prometheus.CounterVec
	InvalidTransitions prometheus.Counter
	CampaignsFinalized *prometheus.CounterVec

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
	DatabaseLatency    *prometheus.HistogramVec
}

// New creates and registers all application metrics
func New(namespace string) *Metrics {
	return &Metrics{
		RunsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Total number of auto-send cycles started",
		}),
		BucketsClaimed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buckets_claimed_total",
			Help:      "Total number of bucket scheduling windows successfully claimed",
		}),
		ClaimConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claim_conflicts_total",
			Help:      "Total number of claims lost to a concurrent trigger",
		}),
		CandidatesBuilt: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_built_total",
			Help:      "Total number of consolidation candidates built",
		}),
		RecipientsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recipients_sent_total",
			Help:      "Total number of reminder emails handed to the transport",
		}),
		RecipientsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recipients_failed_total",
			Help:      "Total number of reminder sends that failed",
		}),
		GateRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_rejections_total",
			Help:      "Candidates rejected by the contact gate",
		}, []string{"reason"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a full auto-send cycle",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		BatchSendLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_send_duration_seconds",
			Help:      "Time spent dispatching one batch",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		DeliveryEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_events_total",
			Help:      "Provider delivery callbacks processed by event type",
		}, []string{"event"}),
		InvalidTransitions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_transitions_total",
			Help:      "Delivery callbacks rejected for violating the state machine",
		}),
		CampaignsFinalized: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "campaigns_finalized_total",
			Help:      "Campaigns reaching a final status",
		}, []string{"status"}),
		DatabaseOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
		DatabaseLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "database_operation_duration_seconds",
			Help:      "Duration of database operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
	}
}
