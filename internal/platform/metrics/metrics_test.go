package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordVoteOutcomes(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New("livepoll", registry)

	m.ObserveSubmission("created", 3*time.Millisecond)
	m.ObserveSubmission("created", time.Millisecond)
	m.ObserveSubmission("rejected_same_option", time.Millisecond)
	m.ObserveRevote("poll-1")
	m.ObserveLedgerRace("duplicate_vote")
	m.ObserveNegativeCount("poll-1", "opt-a")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.submissions.WithLabelValues("created")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.submissions.WithLabelValues("rejected_same_option")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.revotes.WithLabelValues("poll-1")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ledgerRaces.WithLabelValues("duplicate_vote")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.negativeCounters.WithLabelValues("poll-1", "opt-a")))

	families, err := registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, family := range families {
		names = append(names, family.GetName())
	}
	assert.Contains(t, names, "livepoll_tally_vote_submissions_total")
	assert.Contains(t, names, "livepoll_tally_vote_submit_duration_seconds")
}

func TestMetricsTrackSubscribers(t *testing.T) {
	m := New("livepoll", prometheus.NewRegistry())

	m.SubscriberOpened("poll-1")
	m.SubscriberOpened("poll-1")
	m.SubscriberClosed("poll-1")
	m.DeltaDropped("poll-1")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.subscribers.WithLabelValues("poll-1")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.droppedDeltas.WithLabelValues("poll-1")))
}
