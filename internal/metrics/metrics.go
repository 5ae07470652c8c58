// Package metrics defines the Prometheus collectors of the push service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Failure reasons used as label values.
const (
	ReasonNetwork = "network"
	ReasonStatus  = "status"
	ReasonGone    = "gone"
	ReasonSigning = "signing"
)

// Push holds dispatcher collectors.
type Push struct {
	Sent     prometheus.Counter
	Failed   *prometheus.CounterVec
	Pruned   prometheus.Counter
	Duration prometheus.Histogram
}

// NewPush creates the collectors and registers them with reg when non-nil.
func NewPush(reg prometheus.Registerer) *Push {
	m := &Push{
		Sent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "askify",
			Subsystem: "push",
			Name:      "sent_total",
			Help:      "Push messages accepted by a push service.",
		}),
		Failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "askify",
			Subsystem: "push",
			Name:      "failed_total",
			Help:      "Push messages that were not accepted, by reason.",
		}, []string{"reason"}),
		Pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "askify",
			Subsystem: "push",
			Name:      "pruned_total",
			Help:      "Subscriptions deleted after a 404/410 from the push service.",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "askify",
			Subsystem: "push",
			Name:      "dispatch_duration_seconds",
			Help:      "Wall time of one dispatch across all of a user's subscriptions.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Sent, m.Failed, m.Pruned, m.Duration)
	}
	return m
}
