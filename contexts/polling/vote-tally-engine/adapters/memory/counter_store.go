package memory

import (
	"context"
	"sync"

	"livepoll/contexts/polling/vote-tally-engine/domain/entities"
	"livepoll/contexts/polling/vote-tally-engine/ports"
)

// CounterStore keeps one score table per poll. Increments on one poll take
// that poll's lock only.
type CounterStore struct {
	mu    sync.RWMutex
	polls map[string]*pollCounters
}

type pollCounters struct {
	mu     sync.Mutex
	scores map[string]int64
}

func NewCounterStore() *CounterStore {
	return &CounterStore{polls: make(map[string]*pollCounters)}
}

func (c *CounterStore) Increment(_ context.Context, pollID string, optionID string, delta int64) (int64, error) {
	table := c.table(pollID)
	table.mu.Lock()
	defer table.mu.Unlock()
	table.scores[optionID] += delta
	return table.scores[optionID], nil
}

func (c *CounterStore) Range(_ context.Context, pollID string) ([]entities.OptionCount, error) {
	c.mu.RLock()
	table, ok := c.polls[pollID]
	c.mu.RUnlock()
	if !ok {
		return []entities.OptionCount{}, nil
	}

	table.mu.Lock()
	items := make([]entities.OptionCount, 0, len(table.scores))
	for optionID, count := range table.scores {
		items = append(items, entities.OptionCount{OptionID: optionID, Count: count})
	}
	table.mu.Unlock()

	entities.SortOptionCounts(items)
	return items, nil
}

func (c *CounterStore) table(pollID string) *pollCounters {
	c.mu.RLock()
	table, ok := c.polls[pollID]
	c.mu.RUnlock()
	if ok {
		return table
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if table, ok = c.polls[pollID]; ok {
		return table
	}
	table = &pollCounters{scores: make(map[string]int64)}
	c.polls[pollID] = table
	return table
}

var _ ports.CounterStore = (*CounterStore)(nil)
