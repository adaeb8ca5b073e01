package ports

import (
	"context"
	"time"

	"livepoll/contexts/polling/vote-tally-engine/domain/entities"
)

// CounterStore holds the per-option scores of every poll. Increment must be
// atomic per (poll, option) and return the resulting score.
type CounterStore interface {
	Increment(ctx context.Context, pollID string, optionID string, delta int64) (int64, error)
	Range(ctx context.Context, pollID string) ([]entities.OptionCount, error)
}

// VoteLedger records each voter session's current option per poll. Create
// must reject a second record for the same (voterSession, pollID) with
// ErrDuplicateVote, and Delete must report ErrVoteRecordNotFound when the
// record is already gone.
type VoteLedger interface {
	Find(ctx context.Context, voterSession string, pollID string) (entities.VoteRecord, bool, error)
	Create(ctx context.Context, voterSession string, pollID string, optionID string) (entities.VoteRecord, error)
	Delete(ctx context.Context, recordID string) error
}

// Subscription is a live, non-restartable stream of deltas for one poll.
type Subscription interface {
	Events() <-chan entities.DeltaEvent
	Close()
}

type Broadcaster interface {
	Publish(ctx context.Context, event entities.DeltaEvent)
	Subscribe(ctx context.Context, pollID string) (Subscription, error)
}

// PollCatalog is the read-only view of the external poll store.
type PollCatalog interface {
	PollExists(ctx context.Context, pollID string) (bool, error)
	OptionBelongsToPoll(ctx context.Context, pollID string, optionID string) (bool, error)
	ListOptions(ctx context.Context, pollID string) ([]string, error)
	GetPoll(ctx context.Context, pollID string) (entities.Poll, error)
}

type SessionIssuer interface {
	NewSession(ctx context.Context) (string, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// VoteObserver receives reconciliation outcomes for metrics. Implementations
// must not block.
type VoteObserver interface {
	ObserveSubmission(outcome string, duration time.Duration)
	ObserveRevote(pollID string)
	ObserveLedgerRace(kind string)
	ObserveNegativeCount(pollID string, optionID string)
}
