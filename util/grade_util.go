package util

import (
	"fmt"
	"slices"

	"github.com/aiwolfdial/studybuddy/model"
)

func NumericScores(grades []model.SubjectGrade) []float64 {
	scores := make([]float64, 0, len(grades))
	for _, grade := range grades {
		if grade.Score.IsNumeric() {
			scores = append(scores, grade.Score.Value)
		}
	}
	return scores
}

// GroupBySubject keeps subjects in order of first appearance.
func GroupBySubject(grades []model.SubjectGrade) []model.SubjectGrades {
	groups := make([]model.SubjectGrades, 0)
	index := make(map[string]int)
	for _, grade := range grades {
		i, exists := index[grade.Subject]
		if !exists {
			i = len(groups)
			index[grade.Subject] = i
			groups = append(groups, model.SubjectGrades{Subject: grade.Subject})
		}
		groups[i].Grades = append(groups[i].Grades, grade)
	}
	return groups
}

func AverageGrade(grades []model.SubjectGrade) string {
	scores := NumericScores(grades)
	if len(scores) == 0 {
		return "0"
	}
	var sum float64
	for _, score := range scores {
		sum += score
	}
	return fmt.Sprintf("%.2f", sum/float64(len(scores)))
}

func CalcAchievements(grades []model.SubjectGrade) []model.Achievement {
	achievements := slices.Clone(model.AchievementDefinitions)
	if len(grades) == 0 {
		return achievements
	}
	scores := NumericScores(grades)
	for i := range achievements {
		switch achievements[i].ID {
		case "excellent":
			fives := 0
			for _, score := range scores {
				if score == 5 {
					fives++
				}
			}
			achievements[i].Unlocked = fives >= 3
		case "consistent":
			achievements[i].Unlocked = len(scores) > 0 && slices.Min(scores) >= 4
		case "progress":
			for _, group := range GroupBySubject(grades) {
				subjectScores := NumericScores(group.Grades)
				if len(subjectScores) > 1 && subjectScores[len(subjectScores)-1] > subjectScores[0] {
					achievements[i].Unlocked = true
					break
				}
			}
		}
	}
	return achievements
}

func BuildGradeReport(grades []model.SubjectGrade, warning string) model.GradeReport {
	return model.GradeReport{
		Grades:       grades,
		Subjects:     GroupBySubject(grades),
		Average:      AverageGrade(grades),
		Achievements: CalcAchievements(grades),
		Warning:      warning,
	}
}
