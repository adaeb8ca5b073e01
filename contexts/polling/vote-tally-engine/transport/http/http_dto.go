package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SubmitVoteRequest struct {
	PollOptionID string `json:"poll_option_id"`
}

type SubmitVoteResponse struct {
	PollID       string `json:"poll_id"`
	PollOptionID string `json:"poll_option_id"`
	Revoted      bool   `json:"revoted"`
}

type PollOptionView struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Votes int64  `json:"votes"`
}

type PollView struct {
	ID      string           `json:"id"`
	Title   string           `json:"title"`
	Options []PollOptionView `json:"options"`
}

type PollResponse struct {
	Poll PollView `json:"poll"`
}

// DeltaMessage is one frame of the live results stream.
type DeltaMessage struct {
	PollOptionID string `json:"poll_option_id"`
	Votes        int64  `json:"votes"`
}
