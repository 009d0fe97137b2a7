package service

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aiwolfdial/studybuddy/model"
)

var ErrAssistant = errors.New("アシスタントの応答に失敗しました")

// Oracle is the language model behind both the Mafia narrator and the study assistant.
type Oracle interface {
	Narrate(ctx context.Context, prompt string, history []model.ConversationTurn) (string, error)
	Ask(ctx context.Context, prompt string) (string, error)
	Chat(ctx context.Context, messages []model.ChatMessage) (string, error)
}

type verdictField struct {
	name        string
	kind        string
	description string
}

var verdictFields = []verdictField{
	{"narration", "string", "Narrative text describing what happened."},
	{"killedId", "integer", "ID of the player killed by the Mafia."},
	{"savedId", "integer", "ID of the player saved by the Doctor."},
	{"votedOutId", "integer", "ID of the player voted out by the town."},
	{"winner", "string", `Declare a winner if the game is over ("Mafia" or "Civilians").`},
}

func NewOracleFromConfig(ctx context.Context, config *model.Config) (Oracle, error) {
	switch config.Oracle.Provider {
	case "gemini":
		key := os.Getenv("GEMINI_API_KEY")
		if key == "" {
			key = os.Getenv("API_KEY")
		}
		return NewGeminiOracle(ctx, config, key)
	case "openai":
		return NewOpenAIOracle(config, os.Getenv("OPENAI_API_KEY")), nil
	}
	return nil, fmt.Errorf("不明なオラクルプロバイダです: %s", config.Oracle.Provider)
}
