package boltadapter

import (
	"context"
	"sync"
	"testing"
	"time"

	domainerrors "livepoll/contexts/polling/vote-tally-engine/domain/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type uuidGen struct{}

func (uuidGen) NewID(context.Context) (string, error) {
	return uuid.NewString(), nil
}

func openTestLedger(t *testing.T, dir string) *Ledger {
	t.Helper()
	ledger, err := Open(Options{
		DataDir: dir,
		Clock:   fixedClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		IDGen:   uuidGen{},
	})
	require.NoError(t, err)
	return ledger
}

func TestOpenRequiresDataDir(t *testing.T) {
	_, err := Open(Options{})
	require.ErrorIs(t, err, ErrDataDirRequired)
}

func TestLedgerCreateFindDelete(t *testing.T) {
	ctx := context.Background()
	ledger := openTestLedger(t, t.TempDir())
	defer func() {
		assert.NoError(t, ledger.Close())
	}()

	_, found, err := ledger.Find(ctx, "session-1", "poll-1")
	require.NoError(t, err)
	assert.False(t, found)

	record, err := ledger.Create(ctx, "session-1", "poll-1", "opt-a")
	require.NoError(t, err)
	assert.Equal(t, "opt-a", record.OptionID)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), record.CreatedAt)

	_, err = ledger.Create(ctx, "session-1", "poll-1", "opt-b")
	require.ErrorIs(t, err, domainerrors.ErrDuplicateVote)

	found1, found, err := ledger.Find(ctx, "session-1", "poll-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, record.RecordID, found1.RecordID)
	assert.True(t, record.CreatedAt.Equal(found1.CreatedAt))

	require.NoError(t, ledger.Delete(ctx, record.RecordID))
	require.ErrorIs(t, ledger.Delete(ctx, record.RecordID), domainerrors.ErrVoteRecordNotFound)

	_, found, err = ledger.Find(ctx, "session-1", "poll-1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLedgerSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	ledger := openTestLedger(t, dir)
	record, err := ledger.Create(ctx, "session-1", "poll-1", "opt-a")
	require.NoError(t, err)
	require.NoError(t, ledger.Close())

	reopened := openTestLedger(t, dir)
	defer func() {
		assert.NoError(t, reopened.Close())
	}()
	found, ok, err := reopened.Find(ctx, "session-1", "poll-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, record.RecordID, found.RecordID)
	assert.Equal(t, "opt-a", found.OptionID)
}

func TestLedgerConcurrentCreateHasOneWinner(t *testing.T) {
	ctx := context.Background()
	ledger := openTestLedger(t, t.TempDir())
	defer func() {
		assert.NoError(t, ledger.Close())
	}()

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		winners    int
		duplicates int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Create(ctx, "session-1", "poll-1", "opt-a")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case assert.ErrorIs(t, err, domainerrors.ErrDuplicateVote):
				duplicates++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
	assert.Equal(t, 15, duplicates)
}

func TestIdentityKeySeparatesSessionAndPoll(t *testing.T) {
	assert.NotEqual(t, identityKey("ab", "c"), identityKey("a", "bc"))
}
