// Package calendar переводит недельные шаблоны слотов в календарные даты.
// Неделя начинается с понедельника, weekday в шаблонах: 0 = воскресенье.
package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/classbooking_bot/internal/model"
)

var (
	ErrInvalidWeekday = errors.New("weekday must be in 0..6")
	ErrInvalidClock   = errors.New("time of day must be HH:mm or HH:mm:ss")
)

const rangeLayout = "02/01/2006"

// Week вычисляет даты недель относительно "текущей" недели
type Week struct {
	clock Clock
	loc   *time.Location
}

// NewWeek создаёт календарь. loc == nil означает time.Local
func NewWeek(clock Clock, loc *time.Location) *Week {
	if clock == nil {
		clock = SystemClock{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Week{clock: clock, loc: loc}
}

// Location часовой пояс календаря
func (w *Week) Location() *time.Location {
	return w.loc
}

// Now текущее время в часовом поясе календаря
func (w *Week) Now() time.Time {
	return w.clock.Now().In(w.loc)
}

// Range границы недели
type Range struct {
	Monday time.Time
	Sunday time.Time
	Label  string // dd/MM/yyyy - dd/MM/yyyy
}

// Monday понедельник недели со смещением weekOffset от текущей
func (w *Week) Monday(weekOffset int) time.Time {
	return mondayOf(w.Now(), weekOffset)
}

// Date конкретная дата дня weekday в неделе weekOffset
func (w *Week) Date(weekOffset, weekday int) (time.Time, error) {
	if weekday < 0 || weekday > 6 {
		return time.Time{}, fmt.Errorf("%w: %d", ErrInvalidWeekday, weekday)
	}
	return shiftDays(w.Monday(weekOffset), daysFromMonday(weekday)), nil
}

// Range понедельник и воскресенье недели weekOffset
func (w *Week) Range(weekOffset int) Range {
	monday := w.Monday(weekOffset)
	sunday := shiftDays(monday, 6)
	return Range{
		Monday: monday,
		Sunday: sunday,
		Label:  monday.Format(rangeLayout) + " - " + sunday.Format(rangeLayout),
	}
}

// OffsetOf номер недели, в которую попадает дата, относительно текущей
func (w *Week) OffsetOf(date time.Time) int {
	this := mondayOf(w.Now(), 0)
	target := mondayOf(date.In(w.loc), 0)
	days := int(target.Sub(this).Round(24*time.Hour) / (24 * time.Hour))
	return days / 7
}

// Instances экземпляры шаблонов недели, сгруппированные по дню недели
func (w *Week) Instances(weekOffset int, templates []model.SlotTemplate) map[time.Weekday][]model.SlotInstance {
	monday := w.Monday(weekOffset)
	out := make(map[time.Weekday][]model.SlotInstance)
	for _, tpl := range templates {
		if tpl.Weekday < 0 || tpl.Weekday > 6 {
			continue
		}
		date := shiftDays(monday, daysFromMonday(tpl.Weekday))
		wd := time.Weekday(tpl.Weekday)
		out[wd] = append(out[wd], model.SlotInstance{Template: tpl, Date: date})
	}
	return out
}

// ToDateTime складывает дату (без времени) и время дня HH:mm[:ss]
func ToDateTime(date time.Time, clock string) (time.Time, error) {
	h, m, s, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), h, m, s, 0, date.Location()), nil
}

// StartInstant фактическое начало занятия: дата записи + время начала таймфрейма.
// Без таймфрейма (или с нечитаемым временем) берётся сама дата записи.
func StartInstant(date time.Time, tf *model.Timeframe) time.Time {
	if tf == nil || strings.TrimSpace(tf.StartTime) == "" {
		return date
	}
	start, err := ToDateTime(date, tf.StartTime)
	if err != nil {
		return date
	}
	return start
}

// ParseClock разбирает HH:mm или HH:mm:ss
func ParseClock(value string) (hour, minute, second int, err error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}

	nums := make([]int, 3)
	limits := []int{23, 59, 59}
	for i, p := range parts {
		n, convErr := strconv.Atoi(p)
		if convErr != nil || n < 0 || n > limits[i] {
			return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
		}
		nums[i] = n
	}
	return nums[0], nums[1], nums[2], nil
}

// daysFromMonday воскресенье - последний день недели
func daysFromMonday(weekday int) int {
	if weekday == 0 {
		return 6
	}
	return weekday - 1
}

func mondayOf(now time.Time, weekOffset int) time.Time {
	back := daysFromMonday(int(now.Weekday()))
	return time.Date(now.Year(), now.Month(), now.Day()-back+weekOffset*7, 0, 0, 0, 0, now.Location())
}

func shiftDays(day time.Time, n int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day()+n, 0, 0, 0, 0, day.Location())
}
