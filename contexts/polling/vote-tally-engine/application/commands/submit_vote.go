package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "livepoll/contexts/polling/vote-tally-engine/application"
	"livepoll/contexts/polling/vote-tally-engine/domain/entities"
	domainerrors "livepoll/contexts/polling/vote-tally-engine/domain/errors"
	"livepoll/contexts/polling/vote-tally-engine/ports"
)

const (
	OutcomeCreated         = "created"
	OutcomeRevoted         = "revoted"
	OutcomeSameOption      = "rejected_same_option"
	OutcomeInvalid         = "invalid"
	OutcomePollNotFound    = "poll_not_found"
	OutcomeOptionNotFound  = "option_not_found"
	OutcomeStoreFault      = "store_unavailable"
	OutcomeCanceled        = "canceled"
	raceKindDuplicateVote  = "duplicate_vote"
	raceKindRecordMissing  = "record_missing"
	maxReconcileAttempts   = 2
	moduleName             = "polling/vote-tally-engine"
	applicationLayer       = "application"
)

// SubmitVoteCommand is the write-model input of a vote submission. An empty
// VoterSession means the caller has no session yet.
type SubmitVoteCommand struct {
	VoterSession string
	PollID       string
	OptionID     string
}

// SubmitVoteResult reports the voter's final state. AssignedSession is set
// only when a session was minted for this request and must be handed back to
// the voter by the transport.
type SubmitVoteResult struct {
	PollID           string
	OptionID         string
	VoterSession     string
	AssignedSession  string
	PreviousOptionID string
	Revoted          bool
}

// VoteUseCase reconciles vote submissions across the ledger and the counter
// store and publishes one delta per counter mutation.
type VoteUseCase struct {
	Polls     ports.PollCatalog
	Ledger    ports.VoteLedger
	Counters  ports.CounterStore
	Broadcast ports.Broadcaster
	Sessions  ports.SessionIssuer
	Observer  ports.VoteObserver
	Sequencer *PollSequencer
	Logger    *slog.Logger
}

// SubmitVote moves the voter of (session, poll) into VotedFor(option).
//
// A revote removes the previous ledger record and decrements the previous
// option before the new record is created, so a failure in between leaves the
// tally under-counted rather than double-counted. A lost ledger race re-runs
// the read-reconcile sequence once; a second race is reported as
// ErrAlreadyVotedSameOption.
func (uc VoteUseCase) SubmitVote(ctx context.Context, cmd SubmitVoteCommand) (SubmitVoteResult, error) {
	started := time.Now()
	logger := application.ResolveLogger(uc.Logger)
	pollID := strings.TrimSpace(cmd.PollID)
	optionID := strings.TrimSpace(cmd.OptionID)
	session := strings.TrimSpace(cmd.VoterSession)

	logger.Debug("vote submission started",
		"event", "tally_vote_submit_started",
		"module", moduleName,
		"layer", applicationLayer,
		"poll_id", pollID,
		"option_id", optionID,
		"has_session", session != "",
	)
	if pollID == "" || optionID == "" {
		uc.observe(OutcomeInvalid, started)
		return SubmitVoteResult{}, domainerrors.ErrInvalidVoteInput
	}
	if err := uc.validateTarget(ctx, pollID, optionID); err != nil {
		uc.observe(outcomeForError(err), started)
		return SubmitVoteResult{}, err
	}

	result := SubmitVoteResult{
		PollID:       pollID,
		OptionID:     optionID,
		VoterSession: session,
	}
	if session == "" {
		minted, err := uc.Sessions.NewSession(ctx)
		if err != nil {
			err = storeFault(err)
			logger.Error("voter session issuance failed",
				"event", "tally_session_issue_failed",
				"module", moduleName,
				"layer", applicationLayer,
				"poll_id", pollID,
				"error", err.Error(),
			)
			uc.observe(outcomeForError(err), started)
			return SubmitVoteResult{}, err
		}
		result.VoterSession = minted
		result.AssignedSession = minted
	}

	var err error
	for attempt := 0; attempt < maxReconcileAttempts; attempt++ {
		// A freshly minted session cannot have a ledger record yet.
		skipLookup := attempt == 0 && result.AssignedSession != ""
		err = uc.reconcile(ctx, logger, &result, skipLookup)
		kind, raced := ledgerRace(err)
		if !raced {
			break
		}
		uc.observer().ObserveLedgerRace(kind)
		logger.Warn("vote ledger race detected",
			"event", "tally_vote_ledger_race",
			"module", moduleName,
			"layer", applicationLayer,
			"poll_id", pollID,
			"option_id", optionID,
			"race", kind,
			"attempt", attempt+1,
		)
	}
	if _, raced := ledgerRace(err); raced {
		err = domainerrors.ErrAlreadyVotedSameOption
	}

	if err != nil {
		outcome := outcomeForError(err)
		uc.observe(outcome, started)
		if outcome == OutcomeSameOption {
			logger.Info("vote rejected for same option",
				"event", "tally_vote_rejected_same_option",
				"module", moduleName,
				"layer", applicationLayer,
				"poll_id", pollID,
				"option_id", optionID,
			)
			return SubmitVoteResult{}, err
		}
		logger.Error("vote submission failed",
			"event", "tally_vote_submit_failed",
			"module", moduleName,
			"layer", applicationLayer,
			"poll_id", pollID,
			"option_id", optionID,
			"revoted", result.Revoted,
			"error", err.Error(),
		)
		return SubmitVoteResult{}, err
	}

	if result.Revoted {
		uc.observer().ObserveRevote(pollID)
		uc.observe(OutcomeRevoted, started)
	} else {
		uc.observe(OutcomeCreated, started)
	}
	logger.Info("vote recorded",
		"event", "tally_vote_recorded",
		"module", moduleName,
		"layer", applicationLayer,
		"poll_id", pollID,
		"option_id", optionID,
		"previous_option_id", result.PreviousOptionID,
		"revoted", result.Revoted,
		"session_assigned", result.AssignedSession != "",
	)
	return result, nil
}

func (uc VoteUseCase) reconcile(
	ctx context.Context,
	logger *slog.Logger,
	result *SubmitVoteResult,
	skipLookup bool,
) error {
	if !skipLookup {
		existing, found, err := uc.Ledger.Find(ctx, result.VoterSession, result.PollID)
		if err != nil {
			return storeFault(err)
		}
		if found {
			if existing.OptionID == result.OptionID {
				return domainerrors.ErrAlreadyVotedSameOption
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := uc.Ledger.Delete(ctx, existing.RecordID); err != nil {
				if errors.Is(err, domainerrors.ErrVoteRecordNotFound) {
					return err
				}
				return storeFault(err)
			}
			// The decrement belongs to the delete that already happened.
			if err := uc.applyDelta(context.WithoutCancel(ctx), logger, result.PollID, existing.OptionID, -1); err != nil {
				return err
			}
			result.Revoted = true
			result.PreviousOptionID = existing.OptionID
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := uc.Ledger.Create(ctx, result.VoterSession, result.PollID, result.OptionID); err != nil {
		if errors.Is(err, domainerrors.ErrDuplicateVote) {
			return err
		}
		return storeFault(err)
	}
	return uc.applyDelta(context.WithoutCancel(ctx), logger, result.PollID, result.OptionID, 1)
}

// applyDelta increments one counter and publishes its new value while holding
// the poll's emission lock.
func (uc VoteUseCase) applyDelta(
	ctx context.Context,
	logger *slog.Logger,
	pollID string,
	optionID string,
	delta int64,
) error {
	unlock := uc.sequencer().Lock(pollID)
	defer unlock()

	count, err := uc.Counters.Increment(ctx, pollID, optionID, delta)
	if err != nil {
		return storeFault(err)
	}
	if count < 0 {
		uc.observer().ObserveNegativeCount(pollID, optionID)
		logger.Error("option counter went negative",
			"event", "tally_counter_negative",
			"module", moduleName,
			"layer", applicationLayer,
			"poll_id", pollID,
			"option_id", optionID,
			"count", count,
			"delta", delta,
		)
	}
	if uc.Broadcast != nil {
		uc.Broadcast.Publish(ctx, entities.DeltaEvent{
			PollID:   pollID,
			OptionID: optionID,
			Votes:    count,
		})
	}
	return nil
}

func (uc VoteUseCase) validateTarget(ctx context.Context, pollID string, optionID string) error {
	exists, err := uc.Polls.PollExists(ctx, pollID)
	if err != nil {
		return storeFault(err)
	}
	if !exists {
		return domainerrors.ErrPollNotFound
	}
	belongs, err := uc.Polls.OptionBelongsToPoll(ctx, pollID, optionID)
	if err != nil {
		return storeFault(err)
	}
	if !belongs {
		return domainerrors.ErrOptionNotFound
	}
	return nil
}

func (uc VoteUseCase) sequencer() *PollSequencer {
	if uc.Sequencer == nil {
		return sharedSequencer
	}
	return uc.Sequencer
}

func (uc VoteUseCase) observer() ports.VoteObserver {
	if uc.Observer == nil {
		return noopObserver{}
	}
	return uc.Observer
}

func (uc VoteUseCase) observe(outcome string, started time.Time) {
	uc.observer().ObserveSubmission(outcome, time.Since(started))
}

func ledgerRace(err error) (string, bool) {
	switch {
	case err == nil:
		return "", false
	case errors.Is(err, domainerrors.ErrDuplicateVote):
		return raceKindDuplicateVote, true
	case errors.Is(err, domainerrors.ErrVoteRecordNotFound):
		return raceKindRecordMissing, true
	default:
		return "", false
	}
}

// storeFault marks infrastructure errors as ErrStoreUnavailable. Domain and
// context errors pass through unchanged.
func storeFault(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domainerrors.ErrStoreUnavailable),
		errors.Is(err, domainerrors.ErrPollNotFound),
		errors.Is(err, domainerrors.ErrOptionNotFound),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", domainerrors.ErrStoreUnavailable, err)
	}
}

func outcomeForError(err error) string {
	switch {
	case errors.Is(err, domainerrors.ErrAlreadyVotedSameOption):
		return OutcomeSameOption
	case errors.Is(err, domainerrors.ErrPollNotFound):
		return OutcomePollNotFound
	case errors.Is(err, domainerrors.ErrOptionNotFound):
		return OutcomeOptionNotFound
	case errors.Is(err, domainerrors.ErrInvalidVoteInput):
		return OutcomeInvalid
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeStoreFault
	}
}

type noopObserver struct{}

func (noopObserver) ObserveSubmission(string, time.Duration) {}
func (noopObserver) ObserveRevote(string)                    {}
func (noopObserver) ObserveLedgerRace(string)                {}
func (noopObserver) ObserveNegativeCount(string, string)     {}
