package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aiwolfdial/studybuddy/model"
	"github.com/go-resty/resty/v2"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type JSONSchema struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

type ResponseFormat struct {
	Type       string     `json:"type"`
	JSONSchema JSONSchema `json:"json_schema"`
}

type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type Choice struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

type ChatCompletionResponse struct {
	Choices []Choice `json:"choices"`
}

// OpenAIOracle talks to any chat completions endpoint compatible with the OpenAI API.
type OpenAIOracle struct {
	client            *resty.Client
	narratorModel     string
	assistantModel    string
	systemInstruction string
}

func NewOpenAIOracle(config *model.Config, apiKey string) *OpenAIOracle {
	client := resty.New().
		SetBaseURL(config.Oracle.BaseURL).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &OpenAIOracle{
		client:            client,
		narratorModel:     config.Oracle.NarratorModel,
		assistantModel:    config.Oracle.AssistantModel,
		systemInstruction: config.Oracle.SystemInstruction,
	}
}

func verdictResponseFormat() (*ResponseFormat, error) {
	properties := make(map[string]any, len(verdictFields))
	required := make([]string, 0, len(verdictFields))
	for _, field := range verdictFields {
		var kind any = field.kind
		if field.name != "narration" {
			kind = []string{field.kind, "null"}
		}
		properties[field.name] = map[string]any{
			"type":        kind,
			"description": field.description,
		}
		required = append(required, field.name)
	}
	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	return &ResponseFormat{
		Type: "json_schema",
		JSONSchema: JSONSchema{
			Name:   "mafia_verdict",
			Strict: true,
			Schema: json.RawMessage(schemaJSON),
		},
	}, nil
}

func (o *OpenAIOracle) complete(ctx context.Context, request ChatCompletionRequest) (string, error) {
	var response ChatCompletionResponse
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		Post("/chat/completions")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		slog.Warn("チャット補完APIがエラーを返しました", "status", resp.StatusCode(), "model", request.Model)
		return "", fmt.Errorf("チャット補完APIがステータス %d を返しました", resp.StatusCode())
	}
	if len(response.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	return response.Choices[0].Message.Content, nil
}

func (o *OpenAIOracle) Narrate(ctx context.Context, prompt string, history []model.ConversationTurn) (string, error) {
	format, err := verdictResponseFormat()
	if err != nil {
		return "", err
	}
	messages := make([]Message, 0, len(history)+1)
	for _, turn := range history {
		role := "user"
		if turn.Role == model.TR_MODEL {
			role = "assistant"
		}
		messages = append(messages, Message{Role: role, Content: turn.Content})
	}
	messages = append(messages, Message{Role: "user", Content: prompt})
	return o.complete(ctx, ChatCompletionRequest{
		Model:          o.narratorModel,
		Messages:       messages,
		ResponseFormat: format,
	})
}

func (o *OpenAIOracle) Ask(ctx context.Context, prompt string) (string, error) {
	text, err := o.complete(ctx, ChatCompletionRequest{
		Model:    o.assistantModel,
		Messages: []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAssistant, err)
	}
	return text, nil
}

func (o *OpenAIOracle) Chat(ctx context.Context, messages []model.ChatMessage) (string, error) {
	request := ChatCompletionRequest{
		Model:    o.assistantModel,
		Messages: make([]Message, 0, len(messages)+1),
	}
	if o.systemInstruction != "" {
		request.Messages = append(request.Messages, Message{Role: "system", Content: o.systemInstruction})
	}
	for _, message := range messages {
		role := "user"
		if message.Sender == model.SENDER_AI {
			role = "assistant"
		}
		request.Messages = append(request.Messages, Message{Role: role, Content: message.Text})
	}
	text, err := o.complete(ctx, request)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAssistant, err)
	}
	return text, nil
}
