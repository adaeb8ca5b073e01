package queries

import (
	"context"
	"log/slog"
	"strings"

	application "livepoll/contexts/polling/vote-tally-engine/application"
	domainerrors "livepoll/contexts/polling/vote-tally-engine/domain/errors"
	"livepoll/contexts/polling/vote-tally-engine/ports"
)

type ResultsUseCase struct {
	Polls     ports.PollCatalog
	Broadcast ports.Broadcaster
	Logger    *slog.Logger
}

// SubscribeResults opens a delta stream for an existing poll. The stream only
// carries events published after this call returns; callers reconcile older
// state through GetTally.
func (uc ResultsUseCase) SubscribeResults(ctx context.Context, pollID string) (ports.Subscription, error) {
	logger := application.ResolveLogger(uc.Logger)
	pollID = strings.TrimSpace(pollID)
	if pollID == "" {
		return nil, domainerrors.ErrPollNotFound
	}
	exists, err := uc.Polls.PollExists(ctx, pollID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if !exists {
		return nil, domainerrors.ErrPollNotFound
	}

	sub, err := uc.Broadcast.Subscribe(ctx, pollID)
	if err != nil {
		logger.Error("results subscription failed",
			"event", "tally_results_subscribe_failed",
			"module", "polling/vote-tally-engine",
			"layer", "application",
			"poll_id", pollID,
			"error", err.Error(),
		)
		return nil, err
	}
	logger.Info("results subscription opened",
		"event", "tally_results_subscribed",
		"module", "polling/vote-tally-engine",
		"layer", "application",
		"poll_id", pollID,
	)
	return sub, nil
}
