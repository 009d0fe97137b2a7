package service

import (
	"strconv"

	"github.com/aiwolfdial/studybuddy/model"
)

func SeedSchedule() map[int][]model.DaySchedule {
	next := 0
	item := func(subject, time, classroom, teacher, homework string, important bool) model.ScheduleItem {
		next++
		return model.ScheduleItem{
			ID:          strconv.Itoa(next),
			Subject:     subject,
			Time:        time,
			Classroom:   classroom,
			Teacher:     teacher,
			Homework:    homework,
			IsImportant: important,
		}
	}
	return map[int][]model.DaySchedule{
		1: {
			{Day: "Понедельник", Classes: []model.ScheduleItem{
				item("Машинное обучение", "9:00 - 10:30", "Ауд. 301", "Проф. Иванов", "Прочитать главу 3, подготовить отчет по классификации.", true),
				item("Веб-разработка", "10:45 - 12:15", "Ауд. 215", "Доц. Петров", "Завершить React компонент для дашборда.", false),
			}},
			{Day: "Вторник", Classes: []model.ScheduleItem{
				item("Базы данных", "13:00 - 14:30", "Ауд. 112", "Проф. Сидорова", "Оптимизировать SQL-запрос для отчета.", false),
			}},
			{Day: "Среда", Classes: []model.ScheduleItem{
				item("Машинное обучение", "9:00 - 10:30", "Ауд. 301", "Проф. Иванов", "Лабораторная работа №2.", true),
			}},
			{Day: "Четверг", Classes: []model.ScheduleItem{
				item("Веб-разработка", "10:45 - 12:15", "Ауд. 215", "Доц. Петров", "Code review товарища.", false),
			}},
			{Day: "Пятница", Classes: []model.ScheduleItem{
				item("Базы данных", "13:00 - 14:30", "Ауд. 112", "Проф. Сидорова", "Спроектировать схему для нового проекта.", true),
			}},
		},
		2: {
			{Day: "Понедельник", Classes: []model.ScheduleItem{
				item("Анализ данных", "9:00 - 10:30", "Ауд. 305", "Проф. Кузнецов", "Провести EDA на новом датасете.", true),
			}},
			{Day: "Вторник", Classes: []model.ScheduleItem{
				item("Компьютерные сети", "10:45 - 12:15", "Ауд. 404", "Доц. Смирнов", "Настроить виртуальную сеть в Packet Tracer.", false),
			}},
			{Day: "Среда", Classes: []model.ScheduleItem{}},
			{Day: "Четверг", Classes: []model.ScheduleItem{
				item("Безопасность систем", "13:00 - 14:30", "Ауд. 101", "Проф. Васильев", "Написать эссе о методах шифрования.", true),
			}},
			{Day: "Пятница", Classes: []model.ScheduleItem{
				item("Анализ данных", "9:00 - 10:30", "Ауд. 305", "Проф. Кузнецов", "Подготовка к презентации проекта.", false),
			}},
		},
	}
}
