package common

import (
	"errors"

	"github.com/Freeeeeet/classbooking_bot/internal/apperror"
	"github.com/Freeeeeet/classbooking_bot/internal/booking"
	"github.com/Freeeeeet/classbooking_bot/internal/service"
)

// Общие ошибки для обработчиков
var (
	ErrNoStudent     = errors.New("no student linked to chat")
	ErrNoMessage     = errors.New("no message in callback")
	ErrInvalidFormat = errors.New("invalid callback format")
	ErrStaleScreen   = errors.New("screen is outdated")
)

// ErrorMessage возвращает пользовательское сообщение для ошибки
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoStudent):
		return "👤 Сначала укажите студента: /student <id>"
	case errors.Is(err, ErrNoMessage):
		return "❌ Ошибка обработки сообщения"
	case errors.Is(err, ErrInvalidFormat):
		return "❌ Неверный формат данных"
	case errors.Is(err, ErrStaleScreen):
		return "🔄 Экран устарел, откройте расписание заново: /schedule"

	case errors.Is(err, booking.ErrAlreadyBooked):
		return "✅ Вы уже записаны на это занятие"
	case errors.Is(err, booking.ErrSlotInPast):
		return "⚫️ Занятие уже началось"
	case errors.Is(err, booking.ErrFullyBooked):
		return "🔴 На это занятие мест нет"
	case errors.Is(err, booking.ErrNoFundingSubscription):
		return "🟡 Нет подходящего пакета для этого занятия"
	case errors.Is(err, booking.ErrSubscriptionNotFundable):
		return "🟡 В выбранном пакете не осталось занятий"
	case errors.Is(err, booking.ErrNoRoomSelected):
		return "🟠 Выберите комнату"
	case errors.Is(err, booking.ErrRoomFull):
		return "🟠 В этой комнате нет мест, выберите другую"
	case errors.Is(err, booking.ErrCancelCutoff):
		return "⏰ Отменить запись можно не позднее чем за час до начала"
	case errors.Is(err, booking.ErrBookingNotActive):
		return "ℹ️ Запись уже не активна"
	case errors.Is(err, service.ErrBookingNotFound):
		return "❌ Запись не найдена"
	}

	// Ответы бэкенда показываем как есть
	switch apperror.KindOf(err) {
	case apperror.KindTransient:
		return "⏳ " + apperror.UserMessage(err)
	case apperror.KindBackend:
		return "❌ " + apperror.UserMessage(err)
	default:
		return "❌ Произошла ошибка. Попробуйте позже."
	}
}
