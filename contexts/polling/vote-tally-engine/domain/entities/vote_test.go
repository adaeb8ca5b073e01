package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortOptionCountsMatchesSortedSetOrder(t *testing.T) {
	items := []OptionCount{
		{OptionID: "c", Count: 2},
		{OptionID: "b", Count: 0},
		{OptionID: "a", Count: 2},
		{OptionID: "d", Count: -1},
	}
	SortOptionCounts(items)
	assert.Equal(t, []OptionCount{
		{OptionID: "d", Count: -1},
		{OptionID: "b", Count: 0},
		{OptionID: "a", Count: 2},
		{OptionID: "c", Count: 2},
	}, items)
}

func TestTallyTotals(t *testing.T) {
	tally := Tally{Options: []OptionTally{
		{OptionID: "a", Votes: 3},
		{OptionID: "b", Votes: 0},
	}}
	assert.Equal(t, int64(3), tally.TotalVotes())
	assert.Equal(t, map[string]int64{"a": 3, "b": 0}, tally.Counts())
}
