package httpadapter

import (
	"context"
	"log/slog"

	"livepoll/contexts/polling/vote-tally-engine/application/commands"
	"livepoll/contexts/polling/vote-tally-engine/application/queries"
	"livepoll/contexts/polling/vote-tally-engine/domain/entities"
	"livepoll/contexts/polling/vote-tally-engine/ports"
	httptransport "livepoll/contexts/polling/vote-tally-engine/transport/http"
)

// Handler adapts the use cases to transport DTOs. SubmitVoteHandler also
// returns the session minted for a voter who arrived without one.
type Handler struct {
	Votes   commands.VoteUseCase
	Tallies queries.TallyUseCase
	Results queries.ResultsUseCase
	Logger  *slog.Logger
}

// SubmitVoteHandler godoc
// @Summary Cast or change a vote
// @Tags polls
// @Accept json
// @Produce json
// @Param poll_id path string true "Poll id" format(uuid)
// @Param request body httptransport.SubmitVoteRequest true "Chosen option"
// @Success 201 {object} httptransport.SubmitVoteResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 503 {object} httptransport.ErrorResponse
// @Router /polls/{poll_id}/votes [post]
func (h Handler) SubmitVoteHandler(
	ctx context.Context,
	voterSession string,
	pollID string,
	req httptransport.SubmitVoteRequest,
) (httptransport.SubmitVoteResponse, string, error) {
	result, err := h.Votes.SubmitVote(ctx, commands.SubmitVoteCommand{
		VoterSession: voterSession,
		PollID:       pollID,
		OptionID:     req.PollOptionID,
	})
	if err != nil {
		return httptransport.SubmitVoteResponse{}, "", err
	}
	return httptransport.SubmitVoteResponse{
		PollID:       result.PollID,
		PollOptionID: result.OptionID,
		Revoted:      result.Revoted,
	}, result.AssignedSession, nil
}

// GetPollHandler godoc
// @Summary Get a poll with its current vote counts
// @Tags polls
// @Produce json
// @Param poll_id path string true "Poll id" format(uuid)
// @Success 200 {object} httptransport.PollResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 503 {object} httptransport.ErrorResponse
// @Router /polls/{poll_id} [get]
func (h Handler) GetPollHandler(ctx context.Context, pollID string) (httptransport.PollResponse, error) {
	tally, err := h.Tallies.GetTally(ctx, pollID)
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	options := make([]httptransport.PollOptionView, 0, len(tally.Options))
	for _, option := range tally.Options {
		options = append(options, httptransport.PollOptionView{
			ID:    option.OptionID,
			Title: option.Title,
			Votes: option.Votes,
		})
	}
	return httptransport.PollResponse{
		Poll: httptransport.PollView{
			ID:      tally.PollID,
			Title:   tally.Title,
			Options: options,
		},
	}, nil
}

// SubscribeResultsHandler godoc
// @Summary Stream live vote counts
// @Description Upgrades to a websocket that emits one JSON frame per vote count change.
// @Tags polls
// @Param poll_id path string true "Poll id" format(uuid)
// @Success 101 {object} httptransport.DeltaMessage
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /polls/{poll_id}/results [get]
func (h Handler) SubscribeResultsHandler(ctx context.Context, pollID string) (ports.Subscription, error) {
	return h.Results.SubscribeResults(ctx, pollID)
}

func ToDeltaMessage(event entities.DeltaEvent) httptransport.DeltaMessage {
	return httptransport.DeltaMessage{
		PollOptionID: event.OptionID,
		Votes:        event.Votes,
	}
}
