package state

import "github.com/Freeeeeet/classbooking_bot/internal/service"

// UserState представляет текущее состояние пользователя в диалоге
type UserState string

const (
	StateNone UserState = "" // Нет активного состояния

	// Ожидаем комментарий родителя к записи
	StateEnteringNote UserState = "entering_note"
)

// Ключи временных данных
const (
	DataNoteSlot = "note_slot" // индекс слота в Session.Slots
)

// Session что видит опекун на экране. Индексы в callback data ссылаются
// на Slots и Bookings последнего отрисованного экрана.
type Session struct {
	StudentID  string
	WeekOffset int
	Selection  service.Selection
	Week       *service.WeekAvailability
	Slots      []service.SlotAvailability
	Bookings   []service.BookingView
}

// UserData содержит состояние диалога, временные данные и сессию
type UserData struct {
	State   UserState
	Data    map[string]interface{}
	Session Session
}
