package model

type ActionType string

const (
	A_VOTE ActionType = "vote"
)

// HumanAction is only consulted during the day phase.
type HumanAction struct {
	Type       ActionType `json:"type"`
	VotedForID int        `json:"votedForId"`
}

func NewVoteAction(votedForID int) *HumanAction {
	return &HumanAction{
		Type:       A_VOTE,
		VotedForID: votedForID,
	}
}
