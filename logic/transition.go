package logic

import (
	"fmt"
	"log/slog"

	"github.com/aiwolfdial/studybuddy/model"
	"github.com/aiwolfdial/studybuddy/util"
)

// Apply returns the state that follows prior once verdict has been applied. prior is
// never modified; a rejected verdict leaves nothing behind.
func Apply(prior model.GameState, verdict model.Verdict, prompt string) (model.GameState, error) {
	if !prior.IsInitialized() {
		return prior, ErrNotStarted
	}
	if prior.Phase == model.P_ENDED {
		return prior, ErrGameEnded
	}
	if err := validateVerdict(prior, verdict); err != nil {
		return prior, err
	}

	state := prior.Clone()
	if verdict.KilledID != nil && !verdict.IsKillSaved() {
		util.FindPlayerByID(state.Players, *verdict.KilledID).IsAlive = false
	}
	if verdict.VotedOutID != nil {
		player := util.FindPlayerByID(state.Players, *verdict.VotedOutID)
		player.IsAlive = false
		state.Log = append(state.Log, model.LogEntry{
			Kind: model.L_SYSTEM,
			Text: fmt.Sprintf("%s был(а) %s.", player.Name, player.Role.DisplayName()),
		})
	}
	state.Log = append(state.Log, model.LogEntry{
		Kind: model.L_NARRATION,
		Text: verdict.Narration,
	})

	winner := util.CalcWinSideTeam(state.Players)
	if claimed := verdict.WinnerTeam(); claimed != winner {
		slog.Warn("ナレーターの勝者判定が一致しません", "claimed", claimed, "evaluated", winner)
	}
	switch {
	case winner != model.T_NONE:
		state.Phase = model.P_ENDED
		state.Winner = winner
	case prior.Phase == model.P_NIGHT:
		state.Phase = model.P_DAY
	case prior.Phase == model.P_DAY:
		state.Phase = model.P_NIGHT
		state.DayNumber++
	}

	state.History = append(state.History,
		model.ConversationTurn{Role: model.TR_USER, Content: prompt},
		model.ConversationTurn{Role: model.TR_MODEL, Content: verdict.Text()},
	)
	return state, nil
}

func validateVerdict(state model.GameState, verdict model.Verdict) error {
	targets := []struct {
		field string
		id    *int
	}{
		{"killedId", verdict.KilledID},
		{"savedId", verdict.SavedID},
		{"votedOutId", verdict.VotedOutID},
	}
	for _, target := range targets {
		if target.id == nil {
			continue
		}
		player := util.FindPlayerByID(state.Players, *target.id)
		if player == nil {
			return fmt.Errorf("%w: %sが存在しないプレイヤー %d を指しています", ErrMalformedVerdict, target.field, *target.id)
		}
		if !player.IsAlive {
			return fmt.Errorf("%w: %sが死亡したプレイヤー %d を指しています", ErrMalformedVerdict, target.field, *target.id)
		}
	}
	return nil
}
