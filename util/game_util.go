package util

import (
	"github.com/aiwolfdial/studybuddy/model"
)

func CountAliveTeams(players []model.Player) (int, int) {
	var civilians, mafia int
	for _, player := range players {
		if !player.IsAlive {
			continue
		}
		switch player.Role.Team {
		case model.T_MAFIA:
			mafia++
		case model.T_CIVILIANS:
			civilians++
		}
	}
	return civilians, mafia
}

// CalcWinSideTeam checks the zero-mafia condition before parity, so a roster with
// nobody left alive on either side is a civilian win.
func CalcWinSideTeam(players []model.Player) model.Team {
	civilians, mafia := CountAliveTeams(players)
	if mafia == 0 {
		return model.T_CIVILIANS
	}
	if mafia >= civilians {
		return model.T_MAFIA
	}
	return model.T_NONE
}
