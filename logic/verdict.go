package logic

import (
	"fmt"
	"math"

	"github.com/aiwolfdial/studybuddy/model"
	"github.com/tidwall/gjson"
)

// ParseVerdict accepts only a JSON object whose fields match the verdict schema.
// Missing id fields are treated as null; wrong types are rejected.
func ParseVerdict(text string) (model.Verdict, error) {
	if !gjson.Valid(text) {
		return model.Verdict{}, fmt.Errorf("%w: JSONとして解釈できません", ErrMalformedVerdict)
	}
	result := gjson.Parse(text)
	if !result.IsObject() {
		return model.Verdict{}, fmt.Errorf("%w: オブジェクトではありません", ErrMalformedVerdict)
	}
	narration := result.Get("narration")
	if narration.Type != gjson.String {
		return model.Verdict{}, fmt.Errorf("%w: narrationが文字列ではありません", ErrMalformedVerdict)
	}
	verdict := model.Verdict{
		Narration: narration.String(),
		Raw:       text,
	}
	var err error
	if verdict.KilledID, err = parseOptionalID(result, "killedId"); err != nil {
		return model.Verdict{}, err
	}
	if verdict.SavedID, err = parseOptionalID(result, "savedId"); err != nil {
		return model.Verdict{}, err
	}
	if verdict.VotedOutID, err = parseOptionalID(result, "votedOutId"); err != nil {
		return model.Verdict{}, err
	}
	winner := result.Get("winner")
	switch winner.Type {
	case gjson.Null:
	case gjson.String:
		if model.TeamFromString(winner.String()) == model.T_NONE {
			return model.Verdict{}, fmt.Errorf("%w: 不明な勝者 %q", ErrMalformedVerdict, winner.String())
		}
		name := winner.String()
		verdict.Winner = &name
	default:
		return model.Verdict{}, fmt.Errorf("%w: winnerが文字列ではありません", ErrMalformedVerdict)
	}
	return verdict, nil
}

func parseOptionalID(result gjson.Result, field string) (*int, error) {
	value := result.Get(field)
	switch value.Type {
	case gjson.Null:
		return nil, nil
	case gjson.Number:
		if value.Num != math.Trunc(value.Num) {
			return nil, fmt.Errorf("%w: %sが整数ではありません", ErrMalformedVerdict, field)
		}
		id := int(value.Int())
		return &id, nil
	}
	return nil, fmt.Errorf("%w: %sが数値ではありません", ErrMalformedVerdict, field)
}
