package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "adslots"

// Metrics holds the marketplace counters
type Metrics struct {
	// Proposal lifecycle
	ProposalsCreated  prometheus.Counter
	ProposalsAccepted prometheus.Counter
	AcceptConflicts   prometheus.Counter
	ProposalsRejected *prometheus.CounterVec

	// Expiration sweeper
	SlotsReclaimed prometheus.Counter

	// Tracking
	TrackingEvents *prometheus.CounterVec

	// Payments
	PaymentLinkFailures prometheus.Counter
	PaymentLinkDuration prometheus.Histogram
}

// New creates and registers metrics on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ProposalsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proposals_created_total",
			Help:      "Total number of proposals submitted",
		}),
		ProposalsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proposals_accepted_total",
			Help:      "Total number of proposals accepted",
		}),
		AcceptConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accept_conflicts_total",
			Help:      "Accept attempts that lost a race or found the slot taken",
		}),
		ProposalsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proposals_rejected_total",
			Help:      "Total number of proposals rejected by reason",
		}, []string{"reason"}),
		SlotsReclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slots_reclaimed_total",
			Help:      "Slots returned to available by the expiration sweeper",
		}),
		TrackingEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracking_events_total",
			Help:      "Impressions and clicks recorded",
		}, []string{"kind"}),
		PaymentLinkFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_link_failures_total",
			Help:      "Payment link requests that failed or timed out",
		}),
		PaymentLinkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payment_link_seconds",
			Help:      "Time to obtain a payment link",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.ProposalsCreated,
		m.ProposalsAccepted,
		m.AcceptConflicts,
		m.ProposalsRejected,
		m.SlotsReclaimed,
		m.TrackingEvents,
		m.PaymentLinkFailures,
		m.PaymentLinkDuration,
	)

	return m
}

// Rejection reason labels
const (
	ReasonOwner      = "owner"
	ReasonSuperseded = "superseded"
)

// Tracking event labels
const (
	EventImpression = "impression"
	EventClick      = "click"
)
