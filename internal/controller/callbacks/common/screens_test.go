package common

import (
	"testing"
	"time"

	"github.com/Freeeeeet/classbooking_bot/internal/booking"
	"github.com/Freeeeeet/classbooking_bot/internal/calendar"
	"github.com/Freeeeeet/classbooking_bot/internal/controller/state"
	"github.com/Freeeeeet/classbooking_bot/internal/ledger"
	"github.com/Freeeeeet/classbooking_bot/internal/model"
	"github.com/Freeeeeet/classbooking_bot/internal/service"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func callbacks(kb *models.InlineKeyboardMarkup) []string {
	var out []string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			out = append(out, btn.CallbackData)
		}
	}
	return out
}

func robotics(name string) model.SlotTemplate {
	return model.SlotTemplate{
		ID:        "tpl-1",
		Weekday:   5,
		Timeframe: &model.Timeframe{ID: "tf", Name: "Evening", StartTime: "17:00:00", EndTime: "18:00:00"},
		SlotType:  model.SlotType{Name: name},
		Rooms: []model.RoomOption{
			{RoomID: "r-a", RoomName: "Room A", Capacity: 10, AvailableCapacity: intPtr(3)},
			{RoomID: "r-b", RoomName: "Room B", Capacity: 8, AvailableCapacity: intPtr(0)},
			{RoomID: "r-c", RoomName: "Room C", Capacity: 5},
		},
	}
}

func weekSession(slots ...service.SlotAvailability) state.Session {
	monday := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	days := make([]service.DayAvailability, 7)
	for i := range days {
		days[i].Date = monday.AddDate(0, 0, i)
	}
	days[4].Slots = slots

	week := &service.WeekAvailability{
		WeekOffset: 0,
		Range: calendar.Range{
			Monday: monday,
			Sunday: monday.AddDate(0, 0, 6),
			Label:  "06/01/2025 - 12/01/2025",
		},
		Days: days,
		Subscriptions: []ledger.Balance{
			{Subscription: model.PackageSubscription{ID: "sub-1", PackageName: "Robotics 12"}, Total: intPtr(12), Remaining: intPtr(5), Fundable: true},
			{Subscription: model.PackageSubscription{ID: "sub-2", PackageName: "Art 8"}, Remaining: intPtr(1), Fundable: true},
		},
		SelectedSubscriptionID: "sub-1",
	}
	return state.Session{StudentID: "s-1", Week: week, Slots: FlattenSlots(week)}
}

func openSlot(name string) service.SlotAvailability {
	tpl := robotics(name)
	date := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	return service.SlotAvailability{
		Instance:              model.SlotInstance{Template: tpl, Date: date},
		Availability:          booking.AvailabilityOpen,
		Room:                  &tpl.Rooms[0],
		FundingSubscriptionID: "sub-1",
		FreeSeats:             8,
		Start:                 time.Date(2025, 1, 10, 17, 0, 0, 0, time.UTC),
	}
}

func bookedSlot(canCancel bool) service.SlotAvailability {
	slot := openSlot("Robotics")
	slot.Availability = booking.AvailabilityBooked
	slot.Reason = booking.ErrAlreadyBooked
	slot.Booking = &model.Booking{ID: "b-1", BranchSlotID: "tpl-1", RoomID: "r-a", Status: model.BookingStatusBooked}
	slot.CanCancel = canCancel
	return slot
}

func TestBuildWeekScreen(t *testing.T) {
	sess := weekSession(openSlot("Robotics"), bookedSlot(true))

	text, kb := BuildWeekScreen(sess)

	assert.Contains(t, text, "06/01/2025 - 12/01/2025")
	assert.Contains(t, text, "📦 Пакет: Robotics 12 (осталось 5 из 12)")
	assert.Contains(t, text, "<b>Пятница, 10.01</b>")
	assert.Contains(t, text, "🟢 17:00–18:00 Robotics · мест: 8")
	assert.Contains(t, text, "✅ 17:00–18:00 Robotics\n")

	require.Len(t, kb.InlineKeyboard, 4)
	assert.Equal(t, "🟢 Пт 17:00", kb.InlineKeyboard[0][0].Text)
	assert.Equal(t, []string{
		"slot:0", "slot:1",
		"sub:0", "sub:1",
		"week:-1", "week:0", "week:1",
		"my_bookings",
	}, callbacks(kb))
	assert.Equal(t, "✓ Robotics 12", kb.InlineKeyboard[1][0].Text)
}

func TestBuildWeekScreen_Empty(t *testing.T) {
	sess := weekSession()
	sess.Week.Subscriptions = nil
	sess.Week.SelectedSubscriptionID = ""

	text, kb := BuildWeekScreen(sess)
	assert.Contains(t, text, "📦 Нет активного пакета")
	assert.Contains(t, text, "На этой неделе занятий нет.")
	assert.Equal(t, []string{"week:-1", "week:0", "week:1", "my_bookings"}, callbacks(kb))
}

func TestBuildSlotScreen_Open(t *testing.T) {
	sess := weekSession(openSlot("<Art & Craft>"))

	text, kb := BuildSlotScreen(sess, 0)

	assert.Contains(t, text, "&lt;Art &amp; Craft&gt;")
	assert.Contains(t, text, "📅 Пятница, 10.01.2025")
	assert.Contains(t, text, "📦 Оплата: Robotics 12 (осталось 5 из 12)")
	assert.Contains(t, text, "✓ Room A: свободно 3 из 10")
	assert.Contains(t, text, "• Room B: свободно 0 из 8")
	assert.Contains(t, text, "• Room C: свободно 5 из 5")

	// Заполненную комнату выбрать нельзя
	assert.Equal(t, []string{"room:0:0", "room:0:2", "book:0", "note:0", "week:0"}, callbacks(kb))
}

func TestBuildSlotScreen_NoPackage(t *testing.T) {
	slot := openSlot("Robotics")
	slot.Availability = booking.AvailabilityNoPackage
	slot.Reason = booking.ErrSubscriptionNotFundable
	sess := weekSession(slot)

	text, kb := BuildSlotScreen(sess, 0)
	assert.Contains(t, text, "🟡 В выбранном пакете не осталось занятий")
	assert.NotContains(t, callbacks(kb), "book:0")
}

func TestBuildSlotScreen_Booked(t *testing.T) {
	t.Run("can cancel", func(t *testing.T) {
		sess := weekSession(openSlot("Robotics"), bookedSlot(true))

		text, kb := BuildSlotScreen(sess, 1)
		assert.Contains(t, text, "🏫 Комната: Room A")
		assert.Equal(t, []string{"cancel:1", "week:0"}, callbacks(kb))
	})

	t.Run("inside cutoff", func(t *testing.T) {
		sess := weekSession(bookedSlot(false))

		text, kb := BuildSlotScreen(sess, 0)
		assert.Contains(t, text, "Отменить запись уже нельзя")
		assert.Equal(t, []string{"week:0"}, callbacks(kb))
	})

	t.Run("completed", func(t *testing.T) {
		slot := bookedSlot(false)
		slot.Booking.Status = model.BookingStatusCompleted
		sess := weekSession(slot)

		text, _ := BuildSlotScreen(sess, 0)
		assert.Contains(t, text, "✔️ Посетил")
		assert.NotContains(t, text, "Отменить запись уже нельзя")
	})
}

func TestBuildSlotScreen_Rebook(t *testing.T) {
	slot := openSlot("Robotics")
	slot.CancelledBooking = &model.Booking{ID: "b-0", Status: model.BookingStatusCancelled}
	sess := weekSession(slot)

	text, kb := BuildSlotScreen(sess, 0)
	assert.Contains(t, text, "Ранее вы отменяли эту запись")
	assert.Contains(t, callbacks(kb), "book:0")
}

func TestBuildBookingsScreen(t *testing.T) {
	tpl := robotics("Robotics")
	start := time.Date(2025, 1, 10, 17, 0, 0, 0, time.UTC)
	bookings := []service.BookingView{
		{Booking: model.Booking{ID: "b-2", Status: model.BookingStatusBooked}, Template: &tpl, Start: start, CanCancel: true},
		{Booking: model.Booking{ID: "b-1", Status: model.BookingStatusCompleted}, Start: start.AddDate(0, 0, -7)},
	}

	text, kb := BuildBookingsScreen(bookings, 2)
	assert.Contains(t, text, "✅ Пт 10.01.2025 17:00 · Robotics · Записан")
	assert.Contains(t, text, "✔️ Пт 03.01.2025 17:00 · Занятие · Посетил")
	assert.Equal(t, []string{"bk_cancel:0", "week:2"}, callbacks(kb))

	text, kb = BuildBookingsScreen(nil, 0)
	assert.Contains(t, text, "У вас пока нет записей")
	assert.Equal(t, []string{"week:0"}, callbacks(kb))
}

func TestBuildCancelConfirmScreen(t *testing.T) {
	text, kb := BuildCancelConfirmScreen("Robotics", time.Date(2025, 1, 10, 17, 0, 0, 0, time.UTC), "confirm_cancel:1", "slot:1")
	assert.Contains(t, text, "Пятница, 10.01.2025 17:00")
	assert.Equal(t, []string{"confirm_cancel:1", "slot:1"}, callbacks(kb))
}

func TestSlotLookup(t *testing.T) {
	sess := weekSession(openSlot("Robotics"))

	_, err := SlotAt(sess, 3)
	assert.ErrorIs(t, err, ErrStaleScreen)

	idx, ok := FindSlot(sess, "tpl-1@2025-01-10")
	assert.True(t, ok)
	assert.Equal(t, 0, idx)

	_, err = BookingAt(sess, 0)
	assert.ErrorIs(t, err, ErrStaleScreen)
}
