package model

type Sender string

const (
	SENDER_USER Sender = "user"
	SENDER_AI   Sender = "ai"
)

type ChatMessage struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Sender Sender `json:"sender"`
}
