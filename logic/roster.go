package logic

import (
	"log/slog"
	"math/rand/v2"
	"slices"

	"github.com/aiwolfdial/studybuddy/model"
)

const PlayerCount = 5

const WelcomeMessage = "Добро пожаловать в игру \"Мафия\"! Вы — мирный житель. Наступает ночь..."

// Roles dealt to the four non-human seats.
var aiRoles = []model.Role{model.R_CIVILIAN, model.R_CIVILIAN, model.R_DOCTOR, model.R_MAFIA}

// permute is a Fisher-Yates shuffle. A nil rng uses the global source.
func permute[T any](rng *rand.Rand, items []T) {
	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}
	for i := len(items) - 1; i > 0; i-- {
		j := intN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

func shuffleRoles(rng *rand.Rand) []model.Role {
	roles := slices.Clone(aiRoles)
	permute(rng, roles)
	return roles
}

func NewRoster(rng *rand.Rand, names []string) []model.Player {
	roles := shuffleRoles(rng)
	players := make([]model.Player, 0, PlayerCount)
	players = append(players, model.NewPlayer(1, nameAt(names, 0), model.R_CIVILIAN, true))
	for i, role := range roles {
		seat := i + 2
		players = append(players, model.NewPlayer(seat, nameAt(names, seat-1), role, false))
	}
	return players
}

func NewGameState(rng *rand.Rand, names []string) model.GameState {
	players := NewRoster(rng, names)
	for _, player := range players {
		slog.Debug("役職を割り当てました", "player", player.String(), "role", player.Role)
	}
	return model.GameState{
		Players:   players,
		Phase:     model.P_NIGHT,
		DayNumber: 1,
		Log: []model.LogEntry{
			{Kind: model.L_SYSTEM, Text: WelcomeMessage},
		},
		Winner:  model.T_NONE,
		History: []model.ConversationTurn{},
	}
}

func nameAt(names []string, i int) string {
	if i < len(names) {
		return names[i]
	}
	return ""
}
