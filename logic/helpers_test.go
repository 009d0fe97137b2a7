package logic

import (
	"context"
	"sync"

	"github.com/aiwolfdial/studybuddy/model"
)

func ptr(i int) *int {
	return &i
}

// fixedState seats the mafia at 5 and the doctor at 4.
func fixedState() model.GameState {
	return model.GameState{
		Players: []model.Player{
			model.NewPlayer(1, "Вы", model.R_CIVILIAN, true),
			model.NewPlayer(2, "Анна", model.R_CIVILIAN, false),
			model.NewPlayer(3, "Борис", model.R_CIVILIAN, false),
			model.NewPlayer(4, "Виктор", model.R_DOCTOR, false),
			model.NewPlayer(5, "Галина", model.R_MAFIA, false),
		},
		Phase:     model.P_NIGHT,
		DayNumber: 1,
		Log:       []model.LogEntry{{Kind: model.L_SYSTEM, Text: WelcomeMessage}},
		Winner:    model.T_NONE,
		History:   []model.ConversationTurn{},
	}
}

type fakeOracle struct {
	mu        sync.Mutex
	prompts   []string
	histories []int
	respond   func(call int, prompt string) (string, error)
}

func (f *fakeOracle) Narrate(_ context.Context, prompt string, history []model.ConversationTurn) (string, error) {
	f.mu.Lock()
	call := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	f.histories = append(f.histories, len(history))
	respond := f.respond
	f.mu.Unlock()
	return respond(call, prompt)
}

func (f *fakeOracle) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeOracle) Prompt(i int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[i]
}

func (f *fakeOracle) SetRespond(respond func(call int, prompt string) (string, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.respond = respond
}
