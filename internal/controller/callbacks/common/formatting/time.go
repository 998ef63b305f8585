package formatting

import (
	"fmt"
	"time"
)

// FormatDate форматирует только дату
func FormatDate(t time.Time) string {
	return t.Format("02.01.2006")
}

// FormatDayMonth дата без года: 10.01
func FormatDayMonth(t time.Time) string {
	return t.Format("02.01")
}

// FormatDateTime форматирует дату и время
func FormatDateTime(t time.Time) string {
	return t.Format("02.01.2006 15:04")
}

// FormatClock обрезает секунды у времени из шаблона: "17:00:00" -> "17:00"
func FormatClock(clock string) string {
	if len(clock) >= 5 && clock[2] == ':' {
		return clock[:5]
	}
	return clock
}

// FormatClockRange диапазон времени занятия
func FormatClockRange(start, end string) string {
	if end == "" {
		return FormatClock(start)
	}
	return fmt.Sprintf("%s–%s", FormatClock(start), FormatClock(end))
}

// GetWeekdayName возвращает название дня недели на русском
func GetWeekdayName(weekday time.Weekday) string {
	names := []string{
		"Воскресенье",
		"Понедельник",
		"Вторник",
		"Среда",
		"Четверг",
		"Пятница",
		"Суббота",
	}
	if weekday >= 0 && int(weekday) < len(names) {
		return names[weekday]
	}
	return "Неизвестно"
}

// GetWeekdayShortName возвращает краткое название дня недели на русском
func GetWeekdayShortName(weekday time.Weekday) string {
	names := []string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}
	if weekday >= 0 && int(weekday) < len(names) {
		return names[weekday]
	}
	return "?"
}
