package model

import "encoding/json"

type Verdict struct {
	Narration  string  `json:"narration"`
	KilledID   *int    `json:"killedId"`
	SavedID    *int    `json:"savedId"`
	VotedOutID *int    `json:"votedOutId"`
	Winner     *string `json:"winner"`
	Raw        string  `json:"-"`
}

func (v Verdict) WinnerTeam() Team {
	if v.Winner == nil {
		return T_NONE
	}
	return TeamFromString(*v.Winner)
}

func (v Verdict) IsKillSaved() bool {
	return v.KilledID != nil && v.SavedID != nil && *v.KilledID == *v.SavedID
}

// Text returns the payload exactly as the oracle produced it when available.
func (v Verdict) Text() string {
	if v.Raw != "" {
		return v.Raw
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
