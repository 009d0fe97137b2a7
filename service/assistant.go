package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/aiwolfdial/studybuddy/model"
)

type Assistant struct {
	oracle  Oracle
	metrics *Metrics
}

func NewAssistant(oracle Oracle) *Assistant {
	return &Assistant{oracle: oracle}
}

func (a *Assistant) SetMetrics(metrics *Metrics) {
	a.metrics = metrics
}

func (a *Assistant) ask(ctx context.Context, kind string, prompt string) (string, error) {
	text, err := a.oracle.Ask(ctx, prompt)
	if a.metrics != nil {
		a.metrics.ObserveAssistant(kind, err)
	}
	return text, err
}

func (a *Assistant) HomeworkHelp(ctx context.Context, item model.ScheduleItem) (string, error) {
	return a.ask(ctx, "homework", HomeworkHelpPrompt(item))
}

func (a *Assistant) StudyPlan(ctx context.Context, week []model.DaySchedule) (string, error) {
	return a.ask(ctx, "plan", StudyPlanPrompt(week))
}

func (a *Assistant) WeekSummary(ctx context.Context, week []model.DaySchedule) (string, error) {
	return a.ask(ctx, "summary", WeekSummaryPrompt(week))
}

func (a *Assistant) GradeSummary(ctx context.Context, report model.GradeReport) (string, error) {
	return a.ask(ctx, "grades", GradeSummaryPrompt(report))
}

func HomeworkHelpPrompt(item model.ScheduleItem) string {
	return fmt.Sprintf("Объясни следующую тему или задачу простыми словами, как если бы ты был опытным наставником. Дай ключевые моменты и, возможно, простой пример. Задача: %q по предмету %q.", item.Homework, item.Subject)
}

func StudyPlanPrompt(week []model.DaySchedule) string {
	return fmt.Sprintf("Я студент, и мне нужна помощь в организации учебного времени на неделю. Вот мое расписание: ---\n%s\n---\nА вот мои важные задания: ---\n%s\n---\nСоздай для меня детальный учебный план. Предложи, когда лучше заниматься каждым заданием, разбей большие задачи на шаги. Учитывай мое расписание. Оформи план по дням. Будь мотивирующим.",
		scheduleSummary(week), importantTasks(week))
}

func WeekSummaryPrompt(week []model.DaySchedule) string {
	return fmt.Sprintf("Проанализируй мое расписание и важные задачи на неделю.\nРасписание:\n---\n%s\n---\nВажные задачи:\n---\n%s\n---\nСоздай краткую и четкую сводку на неделю. Выдели 2-3 самых ключевых момента. Ответ должен быть коротким, в виде маркированного списка.",
		scheduleSummary(week), importantTasks(week))
}

func GradeSummaryPrompt(report model.GradeReport) string {
	subjects := make([]string, 0, len(report.Subjects))
	for _, group := range report.Subjects {
		marks := make([]string, 0, len(group.Grades))
		for _, grade := range group.Grades {
			marks = append(marks, fmt.Sprintf("%s: %s", grade.Topic, grade.Score))
		}
		subjects = append(subjects, fmt.Sprintf("- %s: %s", group.Subject, strings.Join(marks, ", ")))
	}
	achievements := make([]string, 0)
	for _, achievement := range report.Achievements {
		if achievement.Unlocked {
			achievements = append(achievements, fmt.Sprintf("- %s: %s", achievement.Title, achievement.Description))
		}
	}
	achievementText := strings.Join(achievements, "\n")
	if achievementText == "" {
		achievementText = "Пока нет достижений."
	}
	return fmt.Sprintf(`Проанализируй мою успеваемость. Вот мои оценки:
---
%s
---
Мои достижения:
---
%s
---
Дай мне краткий, но содержательный анализ моей успеваемости.
Выдели сильные стороны и области, на которые стоит обратить внимание.
Предложи 1-2 конкретных совета для улучшения.
Будь позитивным и мотивирующим. Ответ дай в виде маркированного списка.`, strings.Join(subjects, "\n"), achievementText)
}

func scheduleSummary(week []model.DaySchedule) string {
	days := make([]string, 0, len(week))
	for _, day := range week {
		lines := make([]string, 0, len(day.Classes))
		for _, class := range day.Classes {
			lines = append(lines, fmt.Sprintf("  - %s: %s", class.Time, class.Subject))
		}
		if len(lines) == 0 {
			lines = append(lines, "  - Свободный день")
		}
		days = append(days, fmt.Sprintf("%s:\n%s", day.Day, strings.Join(lines, "\n")))
	}
	return strings.Join(days, "\n\n")
}

func importantTasks(week []model.DaySchedule) string {
	tasks := make([]string, 0)
	for _, day := range week {
		for _, class := range day.Classes {
			if class.IsImportant {
				tasks = append(tasks, fmt.Sprintf("- %s: %s", class.Subject, class.Homework))
			}
		}
	}
	if len(tasks) == 0 {
		return "Важных заданий нет."
	}
	return strings.Join(tasks, "\n")
}
