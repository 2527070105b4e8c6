package intake

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "grocer"

// Metrics counts intake activity.
type Metrics struct {
	Transcripts      prometheus.Counter
	EmptyTranscripts prometheus.Counter
	ItemsAdded       prometheus.Counter
	ItemsSkipped     prometheus.Counter
	// Outcomes counts processed transcripts by [Mode].
	Outcomes *prometheus.CounterVec
}

// NewMetrics creates the intake counters and registers them with reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Transcripts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_total",
			Help:      "Transcripts received.",
		}),
		EmptyTranscripts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_empty_total",
			Help:      "Transcripts that yielded no items.",
		}),
		ItemsAdded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_added_total",
			Help:      "Items appended to a list.",
		}),
		ItemsSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_skipped_total",
			Help:      "Items dropped because the list already had them.",
		}),
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intake_outcomes_total",
			Help:      "Processed transcripts by categorization mode.",
		}, []string{"mode"}),
	}
}
