package common

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/classbooking_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/classbooking_bot/internal/controller/state"
	"github.com/Freeeeeet/classbooking_bot/internal/service"
)

// maxWeekOffset насколько далеко можно листать недели в обе стороны
const maxWeekOffset = 52

// LoadWeek пересчитывает неделю из сессии и сохраняет её. Статусы и
// возможность отмены считаются заново при каждом показе.
func LoadWeek(ctx context.Context, h *callbacktypes.Handler, telegramID int64) (state.Session, error) {
	sess := h.StateManager.Session(telegramID)
	if sess.StudentID == "" {
		return sess, ErrNoStudent
	}

	week, err := h.BookingService.ProposeAvailability(ctx, sess.StudentID, sess.WeekOffset, sess.Selection)
	if err != nil {
		return sess, fmt.Errorf("propose availability: %w", err)
	}

	sess.Week = week
	sess.Selection = week.Selection
	sess.Slots = FlattenSlots(week)
	h.StateManager.SaveSession(telegramID, sess)
	return sess, nil
}

// SetWeekOffset переключает неделю в сессии
func SetWeekOffset(h *callbacktypes.Handler, telegramID int64, offset int) {
	offset = max(-maxWeekOffset, min(offset, maxWeekOffset))
	sess := h.StateManager.Session(telegramID)
	sess.WeekOffset = offset
	h.StateManager.SaveSession(telegramID, sess)
}

// LoadBookings перечитывает список записей и сохраняет его в сессии
func LoadBookings(ctx context.Context, h *callbacktypes.Handler, telegramID int64) (state.Session, error) {
	sess := h.StateManager.Session(telegramID)
	if sess.StudentID == "" {
		return sess, ErrNoStudent
	}

	bookings, err := h.BookingService.Bookings(ctx, sess.StudentID)
	if err != nil {
		return sess, fmt.Errorf("load bookings: %w", err)
	}

	sess.Bookings = bookings
	h.StateManager.SaveSession(telegramID, sess)
	return sess, nil
}

// FlattenSlots слоты недели одним списком в порядке показа. Индекс в этом
// списке и есть индекс в callback data.
func FlattenSlots(week *service.WeekAvailability) []service.SlotAvailability {
	if week == nil {
		return nil
	}
	var out []service.SlotAvailability
	for _, day := range week.Days {
		out = append(out, day.Slots...)
	}
	return out
}

// SlotAt слот по индексу из callback data
func SlotAt(sess state.Session, idx int) (service.SlotAvailability, error) {
	if idx < 0 || idx >= len(sess.Slots) {
		return service.SlotAvailability{}, ErrStaleScreen
	}
	return sess.Slots[idx], nil
}

// FindSlot индекс слота с ключом экземпляра key
func FindSlot(sess state.Session, key string) (int, bool) {
	for i := range sess.Slots {
		if sess.Slots[i].Instance.Key() == key {
			return i, true
		}
	}
	return 0, false
}

// ReloadSlot пересчитывает неделю и находит в ней слот, показанный под
// индексом idx
func ReloadSlot(ctx context.Context, h *callbacktypes.Handler, telegramID int64, idx int) (state.Session, int, error) {
	slot, err := SlotAt(h.StateManager.Session(telegramID), idx)
	if err != nil {
		return state.Session{}, 0, err
	}

	sess, err := LoadWeek(ctx, h, telegramID)
	if err != nil {
		return sess, 0, err
	}

	newIdx, ok := FindSlot(sess, slot.Instance.Key())
	if !ok {
		return sess, 0, ErrStaleScreen
	}
	return sess, newIdx, nil
}

// BookingAt запись по индексу из callback data
func BookingAt(sess state.Session, idx int) (service.BookingView, error) {
	if idx < 0 || idx >= len(sess.Bookings) {
		return service.BookingView{}, ErrStaleScreen
	}
	return sess.Bookings[idx], nil
}
