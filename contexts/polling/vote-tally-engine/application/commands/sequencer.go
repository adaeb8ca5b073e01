package commands

import "sync"

// PollSequencer serializes counter mutation and delta publication per poll,
// so subscribers of one poll observe deltas in mutation order. Different
// polls never share a lock.
type PollSequencer struct {
	locks sync.Map
}

func NewPollSequencer() *PollSequencer {
	return &PollSequencer{}
}

func (s *PollSequencer) Lock(pollID string) func() {
	value, _ := s.locks.LoadOrStore(pollID, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

var sharedSequencer = NewPollSequencer()
