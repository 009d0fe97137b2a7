package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aiwolfdial/studybuddy/model"
	"google.golang.org/genai"
)

type GeminiOracle struct {
	client            *genai.Client
	narratorModel     string
	assistantModel    string
	systemInstruction string
}

func NewGeminiOracle(ctx context.Context, config *model.Config, apiKey string) (*GeminiOracle, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEYが設定されていません")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("Geminiクライアントの作成に失敗しました: %w", err)
	}
	slog.Info("Geminiクライアントを作成しました", "narrator", config.Oracle.NarratorModel, "assistant", config.Oracle.AssistantModel)
	return &GeminiOracle{
		client:            client,
		narratorModel:     config.Oracle.NarratorModel,
		assistantModel:    config.Oracle.AssistantModel,
		systemInstruction: config.Oracle.SystemInstruction,
	}, nil
}

func verdictSchema() *genai.Schema {
	properties := make(map[string]*genai.Schema, len(verdictFields))
	order := make([]string, 0, len(verdictFields))
	for _, field := range verdictFields {
		schema := &genai.Schema{
			Type:        genai.TypeString,
			Description: field.description,
		}
		if field.kind == "integer" {
			schema.Type = genai.TypeInteger
		}
		if field.name != "narration" {
			schema.Nullable = genai.Ptr(true)
		}
		properties[field.name] = schema
		order = append(order, field.name)
	}
	return &genai.Schema{
		Type:             genai.TypeObject,
		Properties:       properties,
		PropertyOrdering: order,
		Required:         []string{"narration"},
	}
}

func textContent(role string, text string) *genai.Content {
	return &genai.Content{
		Role:  role,
		Parts: []*genai.Part{{Text: text}},
	}
}

func (g *GeminiOracle) Narrate(ctx context.Context, prompt string, history []model.ConversationTurn) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		role := "user"
		if turn.Role == model.TR_MODEL {
			role = "model"
		}
		contents = append(contents, textContent(role, turn.Content))
	}
	contents = append(contents, textContent("user", prompt))

	resp, err := g.client.Models.GenerateContent(ctx, g.narratorModel, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   verdictSchema(),
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (g *GeminiOracle) Ask(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.assistantModel, []*genai.Content{textContent("user", prompt)}, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAssistant, err)
	}
	return resp.Text(), nil
}

func (g *GeminiOracle) Chat(ctx context.Context, messages []model.ChatMessage) (string, error) {
	contents := make([]*genai.Content, 0, len(messages))
	for _, message := range messages {
		role := "user"
		if message.Sender == model.SENDER_AI {
			role = "model"
		}
		contents = append(contents, textContent(role, message.Text))
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.assistantModel, contents, &genai.GenerateContentConfig{
		SystemInstruction: textContent("user", g.systemInstruction),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAssistant, err)
	}
	return resp.Text(), nil
}
