package model

import "slices"

type LogKind string

const (
	L_NARRATION LogKind = "narration"
	L_SYSTEM    LogKind = "system"
)

type LogEntry struct {
	Kind LogKind `json:"kind"`
	Text string  `json:"text"`
}

type TurnRole string

const (
	TR_USER  TurnRole = "user"
	TR_MODEL TurnRole = "model"
)

type ConversationTurn struct {
	Role    TurnRole `json:"role"`
	Content string   `json:"content"`
}

type GameState struct {
	Players   []Player           `json:"players"`
	Phase     Phase              `json:"phase"`
	DayNumber int                `json:"dayNumber"`
	Log       []LogEntry         `json:"log"`
	Winner    Team               `json:"winner"`
	History   []ConversationTurn `json:"history,omitempty"`
}

func (g GameState) IsInitialized() bool {
	return len(g.Players) > 0
}

func (g GameState) Clone() GameState {
	return GameState{
		Players:   slices.Clone(g.Players),
		Phase:     g.Phase,
		DayNumber: g.DayNumber,
		Log:       slices.Clone(g.Log),
		Winner:    g.Winner,
		History:   slices.Clone(g.History),
	}
}

func (g GameState) UserPlayer() *Player {
	for i := range g.Players {
		if g.Players[i].IsUser {
			return &g.Players[i]
		}
	}
	return nil
}

func (g GameState) IsUserAlive() bool {
	user := g.UserPlayer()
	return user != nil && user.IsAlive
}

// Redacted hides the roles of other players until the game is over and drops the
// oracle history, which carries the secret role table.
func (g GameState) Redacted() GameState {
	state := g.Clone()
	state.History = nil
	if state.Phase == P_ENDED {
		return state
	}
	for i := range state.Players {
		if !state.Players[i].IsUser {
			state.Players[i].Role = R_NONE
		}
	}
	return state
}
