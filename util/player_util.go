package util

import (
	"github.com/aiwolfdial/studybuddy/model"
)

func FilterPlayers(players []model.Player, filter func(model.Player) bool) []model.Player {
	filtered := make([]model.Player, 0)
	for _, player := range players {
		if filter(player) {
			filtered = append(filtered, player)
		}
	}
	return filtered
}

func AlivePlayers(players []model.Player) []model.Player {
	return FilterPlayers(players, func(player model.Player) bool {
		return player.IsAlive
	})
}

// VoteCandidates lists the living players the human may vote against.
func VoteCandidates(players []model.Player) []model.Player {
	return FilterPlayers(players, func(player model.Player) bool {
		return player.IsAlive && !player.IsUser
	})
}

func FindPlayerByID(players []model.Player, id int) *model.Player {
	for i := range players {
		if players[i].ID == id {
			return &players[i]
		}
	}
	return nil
}
