package memory

import (
	"context"
	"sync"
	"testing"

	"livepoll/contexts/polling/vote-tally-engine/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterStoreIncrementAndRange(t *testing.T) {
	ctx := context.Background()
	counters := NewCounterStore()

	items, err := counters.Range(ctx, "poll-1")
	require.NoError(t, err)
	assert.Empty(t, items)

	count, err := counters.Increment(ctx, "poll-1", "opt-b", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = counters.Increment(ctx, "poll-1", "opt-a", -1)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), count)

	_, err = counters.Increment(ctx, "poll-2", "opt-a", 5)
	require.NoError(t, err)

	items, err = counters.Range(ctx, "poll-1")
	require.NoError(t, err)
	assert.Equal(t, []entities.OptionCount{
		{OptionID: "opt-a", Count: -1},
		{OptionID: "opt-b", Count: 1},
	}, items)
}

func TestCounterStoreConcurrentIncrementsAreNotLost(t *testing.T) {
	ctx := context.Background()
	counters := NewCounterStore()

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = counters.Increment(ctx, "poll-1", "opt-a", 1)
		}()
	}
	wg.Wait()

	items, err := counters.Range(ctx, "poll-1")
	require.NoError(t, err)
	assert.Equal(t, []entities.OptionCount{{OptionID: "opt-a", Count: 200}}, items)
}
