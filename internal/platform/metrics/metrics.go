package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes vote engine and broadcast statistics to Prometheus. It
// satisfies the engine's VoteObserver and the hub's HubObserver.
type Metrics struct {
	submissions      *prometheus.CounterVec
	submitDuration   *prometheus.HistogramVec
	revotes          *prometheus.CounterVec
	ledgerRaces      *prometheus.CounterVec
	negativeCounters *prometheus.CounterVec
	subscribers      *prometheus.GaugeVec
	droppedDeltas    *prometheus.CounterVec
}

// New builds the collectors and registers them on registerer. A nil
// registerer falls back to prometheus.DefaultRegisterer.
func New(namespace string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tally",
				Name:      "vote_submissions_total",
				Help:      "Vote submissions by outcome",
			},
			[]string{"outcome"},
		),
		submitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "tally",
				Name:      "vote_submit_duration_seconds",
				Help:      "Time spent reconciling a vote submission",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		revotes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tally",
				Name:      "revotes_total",
				Help:      "Vote changes applied, by poll",
			},
			[]string{"poll_id"},
		),
		ledgerRaces: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tally",
				Name:      "ledger_races_total",
				Help:      "Concurrent submissions that lost the ledger uniqueness race",
			},
			[]string{"kind"},
		),
		negativeCounters: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tally",
				Name:      "counter_negative_total",
				Help:      "Counter mutations that produced a negative score",
			},
			[]string{"poll_id", "option_id"},
		),
		subscribers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "broadcast",
				Name:      "subscribers",
				Help:      "Live result subscribers by poll",
			},
			[]string{"poll_id"},
		),
		droppedDeltas: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "broadcast",
				Name:      "dropped_deltas_total",
				Help:      "Deltas not delivered because a subscriber buffer was full",
			},
			[]string{"poll_id"},
		),
	}

	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	registerer.MustRegister(
		m.submissions,
		m.submitDuration,
		m.revotes,
		m.ledgerRaces,
		m.negativeCounters,
		m.subscribers,
		m.droppedDeltas,
	)
	return m
}

func (m *Metrics) ObserveSubmission(outcome string, duration time.Duration) {
	m.submissions.WithLabelValues(outcome).Inc()
	m.submitDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *Metrics) ObserveRevote(pollID string) {
	m.revotes.WithLabelValues(pollID).Inc()
}

func (m *Metrics) ObserveLedgerRace(kind string) {
	m.ledgerRaces.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveNegativeCount(pollID string, optionID string) {
	m.negativeCounters.WithLabelValues(pollID, optionID).Inc()
}

func (m *Metrics) SubscriberOpened(pollID string) {
	m.subscribers.WithLabelValues(pollID).Inc()
}

func (m *Metrics) SubscriberClosed(pollID string) {
	m.subscribers.WithLabelValues(pollID).Dec()
}

func (m *Metrics) DeltaDropped(pollID string) {
	m.droppedDeltas.WithLabelValues(pollID).Inc()
}
