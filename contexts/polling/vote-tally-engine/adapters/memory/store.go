package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"livepoll/contexts/polling/vote-tally-engine/domain/entities"
	domainerrors "livepoll/contexts/polling/vote-tally-engine/domain/errors"
	"livepoll/contexts/polling/vote-tally-engine/ports"

	"github.com/google/uuid"
)

// Store is the in-process ledger and poll catalog. The (session, poll)
// uniqueness check and the insert happen under the same write lock.
type Store struct {
	mu sync.RWMutex

	votes      map[string]entities.VoteRecord
	byIdentity map[identityKey]string
	polls      map[string]entities.Poll
}

type identityKey struct {
	voterSession string
	pollID       string
}

func NewStore(seed []entities.Poll) *Store {
	store := &Store{
		votes:      make(map[string]entities.VoteRecord),
		byIdentity: make(map[identityKey]string),
		polls:      make(map[string]entities.Poll, len(seed)),
	}
	for _, poll := range seed {
		store.SetPoll(poll)
	}
	return store
}

func (s *Store) SetPoll(poll entities.Poll) {
	s.mu.Lock()
	defer s.mu.Unlock()
	options := make([]entities.PollOption, 0, len(poll.Options))
	for _, option := range poll.Options {
		options = append(options, entities.PollOption{
			OptionID: strings.TrimSpace(option.OptionID),
			Title:    strings.TrimSpace(option.Title),
		})
	}
	pollID := strings.TrimSpace(poll.PollID)
	s.polls[pollID] = entities.Poll{
		PollID:  pollID,
		Title:   strings.TrimSpace(poll.Title),
		Options: options,
	}
}

func (s *Store) PollExists(_ context.Context, pollID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.polls[strings.TrimSpace(pollID)]
	return ok, nil
}

func (s *Store) OptionBelongsToPoll(_ context.Context, pollID string, optionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	poll, ok := s.polls[strings.TrimSpace(pollID)]
	if !ok {
		return false, nil
	}
	optionID = strings.TrimSpace(optionID)
	for _, option := range poll.Options {
		if option.OptionID == optionID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListOptions(_ context.Context, pollID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	poll, ok := s.polls[strings.TrimSpace(pollID)]
	if !ok {
		return nil, domainerrors.ErrPollNotFound
	}
	items := make([]string, 0, len(poll.Options))
	for _, option := range poll.Options {
		items = append(items, option.OptionID)
	}
	return items, nil
}

func (s *Store) GetPoll(_ context.Context, pollID string) (entities.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	poll, ok := s.polls[strings.TrimSpace(pollID)]
	if !ok {
		return entities.Poll{}, domainerrors.ErrPollNotFound
	}
	poll.Options = append([]entities.PollOption(nil), poll.Options...)
	return poll, nil
}

func (s *Store) Find(_ context.Context, voterSession string, pollID string) (entities.VoteRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recordID, ok := s.byIdentity[identityKey{voterSession: voterSession, pollID: pollID}]
	if !ok {
		return entities.VoteRecord{}, false, nil
	}
	return s.votes[recordID], true, nil
}

func (s *Store) Create(
	_ context.Context,
	voterSession string,
	pollID string,
	optionID string,
) (entities.VoteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := identityKey{voterSession: voterSession, pollID: pollID}
	if _, exists := s.byIdentity[key]; exists {
		return entities.VoteRecord{}, domainerrors.ErrDuplicateVote
	}
	record := entities.VoteRecord{
		RecordID:     uuid.NewString(),
		VoterSession: voterSession,
		PollID:       pollID,
		OptionID:     optionID,
		CreatedAt:    time.Now().UTC(),
	}
	s.votes[record.RecordID] = record
	s.byIdentity[key] = record.RecordID
	return record, nil
}

func (s *Store) Delete(_ context.Context, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.votes[recordID]
	if !ok {
		return domainerrors.ErrVoteRecordNotFound
	}
	delete(s.votes, recordID)
	delete(s.byIdentity, identityKey{voterSession: record.VoterSession, pollID: record.PollID})
	return nil
}

// CountVotes returns how many ledger records exist for a poll, keyed by
// option. Used to cross-check counters.
func (s *Store) CountVotes(pollID string) map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int64)
	for _, record := range s.votes {
		if record.PollID == pollID {
			counts[record.OptionID]++
		}
	}
	return counts
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) NewSession(ctx context.Context) (string, error) {
	return s.NewID(ctx)
}

var _ ports.VoteLedger = (*Store)(nil)
var _ ports.PollCatalog = (*Store)(nil)
var _ ports.SessionIssuer = (*Store)(nil)
