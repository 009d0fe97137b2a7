package model

var Weekdays = []string{"Понедельник", "Вторник", "Среда", "Четверг", "Пятница"}

type ScheduleItem struct {
	ID          string `json:"id"`
	Subject     string `json:"subject"`
	Time        string `json:"time"`
	Classroom   string `json:"classroom"`
	Teacher     string `json:"teacher"`
	Homework    string `json:"homework"`
	IsImportant bool   `json:"isImportant"`
}

type DaySchedule struct {
	Day     string         `json:"day"`
	Classes []ScheduleItem `json:"classes"`
}

func IsWeekday(day string) bool {
	for _, d := range Weekdays {
		if d == day {
			return true
		}
	}
	return false
}
