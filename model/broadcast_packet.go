package model

type BroadcastPlayer struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Role    Role   `json:"role"`
	IsAlive bool   `json:"isAlive"`
	IsUser  bool   `json:"isUser"`
}

type BroadcastPacket struct {
	Id        string            `json:"id"`
	Game      string            `json:"game"`
	Idx       int               `json:"idx"`
	Day       int               `json:"day"`
	Phase     Phase             `json:"phase"`
	Status    string            `json:"status"`
	Busy      bool              `json:"busy"`
	Players   []BroadcastPlayer `json:"players"`
	Event     string            `json:"event"`
	Message   *string           `json:"message,omitempty"`
	Error     *string           `json:"error,omitempty"`
	Winner    Team              `json:"winner"`
	LogLength int               `json:"logLength"`
}
