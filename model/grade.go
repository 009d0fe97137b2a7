package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const CreditLiteral = "зачет"

// Score is either a numeric mark or a pass/credit without a number.
type Score struct {
	Value  float64
	Credit bool
}

func NumericScore(value float64) Score {
	return Score{Value: value}
}

func CreditScore() Score {
	return Score{Credit: true}
}

func ParseScore(s string) Score {
	s = strings.TrimSpace(s)
	value, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return CreditScore()
	}
	return NumericScore(value)
}

func (s Score) IsNumeric() bool {
	return !s.Credit
}

func (s Score) String() string {
	if s.Credit {
		return CreditLiteral
	}
	return strconv.FormatFloat(s.Value, 'f', -1, 64)
}

func (s Score) MarshalJSON() ([]byte, error) {
	if s.Credit {
		return json.Marshal(CreditLiteral)
	}
	return json.Marshal(s.Value)
}

func (s *Score) UnmarshalJSON(data []byte) error {
	var value float64
	if err := json.Unmarshal(data, &value); err == nil {
		*s = NumericScore(value)
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	*s = ParseScore(text)
	return nil
}

type SubjectGrade struct {
	UserID  string `json:"user_id"`
	Subject string `json:"subject"`
	Topic   string `json:"topic"`
	Date    string `json:"date"`
	Score   Score  `json:"score"`
}

type Achievement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Emoji       string `json:"emoji"`
	Points      int    `json:"points"`
	Unlocked    bool   `json:"unlocked"`
}

var AchievementDefinitions = []Achievement{
	{ID: "excellent", Title: "Отличник", Description: "Получить 3 или более оценок \"5\".", Emoji: "🏆", Points: 50},
	{ID: "consistent", Title: "Стабильность", Description: "Не иметь оценок ниже \"4\".", Emoji: "🎯", Points: 30},
	{ID: "progress", Title: "Прогресс", Description: "Улучшить свою оценку по предмету.", Emoji: "📈", Points: 25},
}

type SubjectGrades struct {
	Subject string         `json:"subject"`
	Grades  []SubjectGrade `json:"grades"`
}

type GradeReport struct {
	Grades       []SubjectGrade  `json:"grades"`
	Subjects     []SubjectGrades `json:"subjects"`
	Average      string          `json:"average"`
	Achievements []Achievement   `json:"achievements"`
	Warning      string          `json:"warning,omitempty"`
}
