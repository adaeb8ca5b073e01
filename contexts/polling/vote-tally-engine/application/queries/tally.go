package queries

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	application "livepoll/contexts/polling/vote-tally-engine/application"
	"livepoll/contexts/polling/vote-tally-engine/domain/entities"
	domainerrors "livepoll/contexts/polling/vote-tally-engine/domain/errors"
	"livepoll/contexts/polling/vote-tally-engine/ports"
)

// TallyUseCase reads counters directly; it never goes through the
// reconciler and never mutates anything.
type TallyUseCase struct {
	Polls    ports.PollCatalog
	Counters ports.CounterStore
	Logger   *slog.Logger
}

// GetTally returns every option the catalog lists for the poll with its
// current count, zero-filled for options never voted on. Counter entries for
// options unknown to the catalog are ignored.
func (uc TallyUseCase) GetTally(ctx context.Context, pollID string) (entities.Tally, error) {
	logger := application.ResolveLogger(uc.Logger)
	pollID = strings.TrimSpace(pollID)
	if pollID == "" {
		return entities.Tally{}, domainerrors.ErrPollNotFound
	}

	poll, err := uc.Polls.GetPoll(ctx, pollID)
	if err != nil {
		return entities.Tally{}, wrapStoreError(err)
	}
	optionIDs, err := uc.Polls.ListOptions(ctx, pollID)
	if err != nil {
		return entities.Tally{}, wrapStoreError(err)
	}

	counts, err := uc.Counters.Range(ctx, pollID)
	if err != nil {
		logger.Error("tally counter range failed",
			"event", "tally_counter_range_failed",
			"module", "polling/vote-tally-engine",
			"layer", "application",
			"poll_id", pollID,
			"error", err.Error(),
		)
		return entities.Tally{}, wrapStoreError(err)
	}
	byOption := make(map[string]int64, len(counts))
	for _, item := range counts {
		byOption[item.OptionID] = item.Count
	}

	titles := make(map[string]string, len(poll.Options))
	for _, option := range poll.Options {
		titles[option.OptionID] = option.Title
	}
	tally := entities.Tally{
		PollID:  poll.PollID,
		Title:   poll.Title,
		Options: make([]entities.OptionTally, 0, len(optionIDs)),
	}
	for _, optionID := range optionIDs {
		tally.Options = append(tally.Options, entities.OptionTally{
			OptionID: optionID,
			Title:    titles[optionID],
			Votes:    byOption[optionID],
		})
	}
	return tally, nil
}

func wrapStoreError(err error) error {
	if errors.Is(err, domainerrors.ErrPollNotFound) ||
		errors.Is(err, domainerrors.ErrStoreUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", domainerrors.ErrStoreUnavailable, err)
}
