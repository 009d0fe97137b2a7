package model

import (
	"encoding/json"
	"errors"
)

type Role struct {
	Name string
	Team Team
}

var (
	R_MAFIA    = Role{Name: "Mafia", Team: T_MAFIA}
	R_DOCTOR   = Role{Name: "Doctor", Team: T_CIVILIANS}
	R_CIVILIAN = Role{Name: "Civilian", Team: T_CIVILIANS}
	R_NONE     = Role{Name: "NONE", Team: T_NONE}
)

type Team string

const (
	T_MAFIA     Team = "Mafia"
	T_CIVILIANS Team = "Civilians"
	T_NONE      Team = "NONE"
)

func TeamFromString(s string) Team {
	switch s {
	case "Mafia":
		return T_MAFIA
	case "Civilians":
		return T_CIVILIANS
	}
	return T_NONE
}

func (t Team) String() string {
	return string(t)
}

// T_NONE is encoded as null so that an undecided game reports no winner.
func (t Team) MarshalJSON() ([]byte, error) {
	if t == T_NONE || t == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(t))
}

func (t *Team) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = T_NONE
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = TeamFromString(s)
	return nil
}

func (t Team) DisplayName() string {
	switch t {
	case T_MAFIA:
		return "Мафия"
	case T_CIVILIANS:
		return "Мирные жители"
	}
	return "—"
}

func RoleFromString(s string) Role {
	switch s {
	case "Mafia":
		return R_MAFIA
	case "Doctor":
		return R_DOCTOR
	case "Civilian":
		return R_CIVILIAN
	}
	return R_NONE
}

func (r Role) String() string {
	return r.Name
}

func (r Role) DisplayName() string {
	switch r {
	case R_MAFIA:
		return "Мафия"
	case R_DOCTOR:
		return "Доктор"
	case R_CIVILIAN:
		return "Мирный житель"
	}
	return "Неизвестно"
}

func (r Role) MarshalJSON() ([]byte, error) {
	if r == R_NONE {
		return []byte("null"), nil
	}
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = R_NONE
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	role := RoleFromString(s)
	if role == R_NONE {
		return errors.New("不明な役職名があります")
	}
	*r = role
	return nil
}
