package formatting

import (
	"github.com/Freeeeeet/classbooking_bot/internal/booking"
	"github.com/Freeeeeet/classbooking_bot/internal/model"
)

// StatusDisplay emoji и текст статуса
type StatusDisplay struct {
	Emoji string
	Text  string
}

// GetAvailabilityDisplay возвращает emoji и текст для доступности слота
func GetAvailabilityDisplay(a booking.Availability) StatusDisplay {
	displays := map[booking.Availability]StatusDisplay{
		booking.AvailabilityOpen:        {"🟢", "Можно записаться"},
		booking.AvailabilityBooked:      {"✅", "Вы записаны"},
		booking.AvailabilityFullyBooked: {"🔴", "Мест нет"},
		booking.AvailabilityNoPackage:   {"🟡", "Нет подходящего пакета"},
		booking.AvailabilityNoRoom:      {"🟠", "Выберите другую комнату"},
		booking.AvailabilityPast:        {"⚫️", "Прошло"},
	}

	if display, ok := displays[a]; ok {
		return display
	}

	return StatusDisplay{"❓", "Неизвестно"}
}

// GetBookingStatusDisplay возвращает emoji и текст для статуса записи
func GetBookingStatusDisplay(status model.BookingStatus) StatusDisplay {
	displays := map[model.BookingStatus]StatusDisplay{
		model.BookingStatusBooked:      {"✅", "Записан"},
		model.BookingStatusCompleted:   {"✔️", "Посетил"},
		model.BookingStatusNoShow:      {"🚫", "Пропустил"},
		model.BookingStatusRescheduled: {"🔁", "Перенесено"},
		model.BookingStatusCancelled:   {"❌", "Отменено"},
	}

	if display, ok := displays[status]; ok {
		return display
	}

	return StatusDisplay{"❓", string(status)}
}
