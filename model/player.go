package model

import "fmt"

type Player struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Role    Role   `json:"role"`
	IsAlive bool   `json:"isAlive"`
	IsUser  bool   `json:"isUser"`
}

func NewPlayer(id int, name string, role Role, isUser bool) Player {
	if name == "" {
		name = fmt.Sprintf("Игрок %d", id)
	}
	return Player{
		ID:      id,
		Name:    name,
		Role:    role,
		IsAlive: true,
		IsUser:  isUser,
	}
}

func (p Player) String() string {
	return fmt.Sprintf("%s[%d]", p.Name, p.ID)
}
