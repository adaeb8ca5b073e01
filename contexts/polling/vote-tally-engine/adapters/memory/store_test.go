package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"livepoll/contexts/polling/vote-tally-engine/domain/entities"
	domainerrors "livepoll/contexts/polling/vote-tally-engine/domain/errors"

	"github.com/jackc/fake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPoll(id string, optionIDs ...string) entities.Poll {
	poll := entities.Poll{PollID: id, Title: fake.WordsN(4)}
	for _, optionID := range optionIDs {
		poll.Options = append(poll.Options, entities.PollOption{OptionID: optionID, Title: fake.WordsN(2)})
	}
	return poll
}

func TestStoreCatalog(t *testing.T) {
	ctx := context.Background()
	store := NewStore([]entities.Poll{newPoll(" poll-1 ", "opt-a", " opt-b")})

	exists, err := store.PollExists(ctx, "poll-1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.PollExists(ctx, "poll-2")
	require.NoError(t, err)
	assert.False(t, exists)

	belongs, err := store.OptionBelongsToPoll(ctx, "poll-1", "opt-b")
	require.NoError(t, err)
	assert.True(t, belongs)

	belongs, err = store.OptionBelongsToPoll(ctx, "poll-2", "opt-b")
	require.NoError(t, err)
	assert.False(t, belongs)

	options, err := store.ListOptions(ctx, "poll-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"opt-a", "opt-b"}, options)

	_, err = store.ListOptions(ctx, "poll-2")
	require.ErrorIs(t, err, domainerrors.ErrPollNotFound)

	poll, err := store.GetPoll(ctx, "poll-1")
	require.NoError(t, err)
	poll.Options[0].Title = "mutated"
	again, err := store.GetPoll(ctx, "poll-1")
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", again.Options[0].Title)
}

func TestStoreLedgerUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)

	record, err := store.Create(ctx, "session-1", "poll-1", "opt-a")
	require.NoError(t, err)
	assert.NotEmpty(t, record.RecordID)

	_, err = store.Create(ctx, "session-1", "poll-1", "opt-b")
	require.ErrorIs(t, err, domainerrors.ErrDuplicateVote)

	// Same session, other poll is a separate identity.
	_, err = store.Create(ctx, "session-1", "poll-2", "opt-b")
	require.NoError(t, err)

	found, ok, err := store.Find(ctx, "session-1", "poll-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, record, found)

	require.NoError(t, store.Delete(ctx, record.RecordID))
	require.ErrorIs(t, store.Delete(ctx, record.RecordID), domainerrors.ErrVoteRecordNotFound)

	_, ok, err = store.Find(ctx, "session-1", "poll-1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Create(ctx, "session-1", "poll-1", "opt-b")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"opt-b": 1}, store.CountVotes("poll-1"))
}

func TestStoreConcurrentCreateHasOneWinner(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Create(ctx, "session-1", "poll-1", fmt.Sprintf("opt-%d", i)); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestStoreSessionsAreUnique(t *testing.T) {
	store := NewStore(nil)
	first, err := store.NewSession(context.Background())
	require.NoError(t, err)
	second, err := store.NewSession(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
