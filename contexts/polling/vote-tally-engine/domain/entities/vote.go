package entities

import (
	"sort"
	"time"
)

// VoteRecord is the ledger row holding a voter session's current choice in a
// poll. (VoterSession, PollID) is unique.
type VoteRecord struct {
	RecordID     string
	VoterSession string
	PollID       string
	OptionID     string
	CreatedAt    time.Time
}

// OptionCount is one entry of a poll's counter range.
type OptionCount struct {
	OptionID string
	Count    int64
}

// DeltaEvent announces the new count of one option after a mutation.
type DeltaEvent struct {
	PollID   string
	OptionID string
	Votes    int64
}

type PollOption struct {
	OptionID string
	Title    string
}

type Poll struct {
	PollID  string
	Title   string
	Options []PollOption
}

type OptionTally struct {
	OptionID string
	Title    string
	Votes    int64
}

// Tally is the derived view of a poll's counters merged with its catalog
// options. Options never voted on carry zero.
type Tally struct {
	PollID  string
	Title   string
	Options []OptionTally
}

func (t Tally) Counts() map[string]int64 {
	counts := make(map[string]int64, len(t.Options))
	for _, option := range t.Options {
		counts[option.OptionID] = option.Votes
	}
	return counts
}

func (t Tally) TotalVotes() int64 {
	var total int64
	for _, option := range t.Options {
		total += option.Votes
	}
	return total
}

// SortOptionCounts orders counts the way a sorted set ranges them: ascending
// score, ties broken by option id.
func SortOptionCounts(items []OptionCount) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count == items[j].Count {
			return items[i].OptionID < items[j].OptionID
		}
		return items[i].Count < items[j].Count
	})
}
