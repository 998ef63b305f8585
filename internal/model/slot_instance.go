package model

import "time"

const dateKeyLayout = "2006-01-02"

// SlotInstance конкретное занятие: шаблон + календарная дата.
// Не хранится, вычисляется по (weekOffset, weekday).
type SlotInstance struct {
	Template SlotTemplate
	Date     time.Time // полночь в часовом поясе календаря
}

// Key уникальный ключ экземпляра: templateID + дата без времени
func (i SlotInstance) Key() string {
	return i.Template.ID + "@" + i.Date.Format(dateKeyLayout)
}

// SameClass true, если оба экземпляра - одно и то же реальное занятие
func (i SlotInstance) SameClass(other SlotInstance) bool {
	return i.Key() == other.Key()
}

// MatchesBooking сравнивает ключ записи (branchSlotId, date) с экземпляром
func (i SlotInstance) MatchesBooking(b *Booking) bool {
	if b == nil || b.BranchSlotID != i.Template.ID {
		return false
	}
	return SameDate(b.Date.In(i.Date.Location()), i.Date)
}

// SameDate сравнивает только календарные даты
func SameDate(a, b time.Time) bool {
	return a.Format(dateKeyLayout) == b.Format(dateKeyLayout)
}
