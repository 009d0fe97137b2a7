package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/aiwolfdial/studybuddy/model"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const GradeFallbackWarning = "Не удалось загрузить оценки из Google Таблицы. Показаны демонстрационные данные."

type GradeSource interface {
	Fetch(ctx context.Context) ([]model.SubjectGrade, error)
}

// SheetsGradeSource reads rows of user_id, subject, topic, date, score from the
// Google Sheets values API.
type SheetsGradeSource struct {
	client  *resty.Client
	sheetID string
	rng     string
	apiKey  string
}

func NewSheetsGradeSource(config *model.Config, apiKey string) *SheetsGradeSource {
	client := resty.New().
		SetBaseURL(config.Grades.BaseURL).
		SetTimeout(config.Grades.Timeout)
	return &SheetsGradeSource{
		client:  client,
		sheetID: config.Grades.SheetID,
		rng:     config.Grades.Range,
		apiKey:  apiKey,
	}
}

func (s *SheetsGradeSource) Fetch(ctx context.Context) ([]model.SubjectGrade, error) {
	if s.sheetID == "" {
		return nil, errors.New("スプレッドシートIDが設定されていません")
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("key", s.apiKey).
		Get(fmt.Sprintf("/spreadsheets/%s/values/%s", url.PathEscape(s.sheetID), url.PathEscape(s.rng)))
	if err != nil {
		return nil, err
	}
	body := resp.String()
	if resp.IsError() {
		message := gjson.Get(body, "error.message").String()
		if message == "" {
			message = "Проверьте правильность ID таблицы, API-ключа и убедитесь, что таблица опубликована."
		}
		return nil, fmt.Errorf("Google Sheets API %d: %s", resp.StatusCode(), message)
	}
	if !gjson.Valid(body) {
		return nil, errors.New("Google Sheets APIの応答がJSONではありません")
	}
	return ParseSheetValues(body), nil
}

// ParseSheetValues converts a values response into grades, skipping rows without a
// subject or user id.
func ParseSheetValues(body string) []model.SubjectGrade {
	grades := make([]model.SubjectGrade, 0)
	gjson.Get(body, "values").ForEach(func(_, row gjson.Result) bool {
		cells := row.Array()
		cell := func(i int) string {
			if i < len(cells) {
				return strings.TrimSpace(cells[i].String())
			}
			return ""
		}
		grade := model.SubjectGrade{
			UserID:  cell(0),
			Subject: cell(1),
			Topic:   cell(2),
			Date:    cell(3),
			Score:   model.ParseScore(cell(4)),
		}
		if grade.Subject == "" || grade.UserID == "" {
			return true
		}
		grades = append(grades, grade)
		return true
	})
	return grades
}

// LoadGrades never returns an empty view because of a failed fetch: it falls back to
// the built-in dataset and reports a warning instead.
func LoadGrades(ctx context.Context, source GradeSource) ([]model.SubjectGrade, string) {
	if source == nil {
		return BuiltinGrades(), GradeFallbackWarning
	}
	grades, err := source.Fetch(ctx)
	if err != nil {
		slog.Warn("成績の取得に失敗したため、組み込みデータを使用します", "error", err)
		return BuiltinGrades(), GradeFallbackWarning
	}
	return grades, ""
}

func BuiltinGrades() []model.SubjectGrade {
	grade := func(subject, topic, date string, score model.Score) model.SubjectGrade {
		return model.SubjectGrade{UserID: "1", Subject: subject, Topic: topic, Date: date, Score: score}
	}
	return []model.SubjectGrade{
		grade("Анатомия", "Кости черепа", "2024-09-15", model.NumericScore(5)),
		grade("Анатомия", "Мышцы спины", "2024-09-22", model.NumericScore(4)),
		grade("Анатомия", "Коллоквиум по ЦНС", "2024-10-01", model.NumericScore(5)),
		grade("Анатомия", "Сердечно-сосудистая система", "2024-10-10", model.NumericScore(3)),
		grade("Гистология", "Эпителиальные ткани", "2024-09-18", model.NumericScore(5)),
		grade("Гистология", "Соединительная ткань", "2024-09-25", model.NumericScore(4)),
		grade("Гистология", "Практическое занятие: микроскоп", "2024-10-05", model.CreditScore()),
		grade("Гистология", "Мышечные ткани", "2024-10-12", model.NumericScore(4)),
		grade("Нормальная физиология", "Возбудимые ткани", "2024-09-20", model.NumericScore(5)),
		grade("Нормальная физиология", "Физиология дыхания", "2024-09-27", model.NumericScore(5)),
		grade("Нормальная физиология", "Работа сердца", "2024-10-08", model.NumericScore(4)),
	}
}
