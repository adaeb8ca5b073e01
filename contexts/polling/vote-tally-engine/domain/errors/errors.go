package errors

import "errors"

var (
	ErrInvalidVoteInput       = errors.New("invalid vote input")
	ErrPollNotFound           = errors.New("poll not found")
	ErrOptionNotFound         = errors.New("poll option not found")
	ErrAlreadyVotedSameOption = errors.New("you have already voted on this poll")
	ErrDuplicateVote          = errors.New("duplicate vote for voter session and poll")
	ErrVoteRecordNotFound     = errors.New("vote record not found")
	ErrStoreUnavailable       = errors.New("vote store unavailable")
	ErrSubscriptionClosed     = errors.New("results subscription closed")
)
