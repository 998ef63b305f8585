package common

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Freeeeeet/classbooking_bot/internal/booking"
	"github.com/Freeeeeet/classbooking_bot/internal/capacity"
	"github.com/Freeeeeet/classbooking_bot/internal/controller/callbacks/common/formatting"
	"github.com/Freeeeeet/classbooking_bot/internal/controller/callbacks/common/keyboard"
	"github.com/Freeeeeet/classbooking_bot/internal/controller/state"
	"github.com/Freeeeeet/classbooking_bot/internal/ledger"
	"github.com/Freeeeeet/classbooking_bot/internal/model"
	"github.com/Freeeeeet/classbooking_bot/internal/service"
	"github.com/go-telegram/bot/models"
)

const maxBookingsShown = 15

// BuildWeekScreen формирует экран недели: выбранный пакет, слоты по дням,
// навигация по неделям
func BuildWeekScreen(sess state.Session) (string, *models.InlineKeyboardMarkup) {
	week := sess.Week
	var sb strings.Builder

	fmt.Fprintf(&sb, "📅 <b>Расписание на неделю</b>\n%s\n\n", week.Range.Label)

	if selected := findBalance(week.Subscriptions, week.SelectedSubscriptionID); selected != nil {
		fmt.Fprintf(&sb, "📦 Пакет: %s\n\n", formatBalance(*selected))
	} else {
		sb.WriteString("📦 Нет активного пакета\n\n")
	}

	buttons := make([]models.InlineKeyboardButton, 0, len(sess.Slots))
	idx := 0
	for _, day := range week.Days {
		if len(day.Slots) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "<b>%s, %s</b>\n",
			formatting.GetWeekdayName(day.Date.Weekday()),
			formatting.FormatDayMonth(day.Date))

		for _, slot := range day.Slots {
			display := formatting.GetAvailabilityDisplay(slot.Availability)
			fmt.Fprintf(&sb, "%s %s %s", display.Emoji, slotClock(slot.Instance.Template), html.EscapeString(SlotTitle(slot.Instance.Template)))
			if slot.Availability == booking.AvailabilityOpen || slot.Availability == booking.AvailabilityNoRoom {
				fmt.Fprintf(&sb, " · мест: %d", slot.FreeSeats)
			}
			sb.WriteString("\n")

			buttons = append(buttons, keyboard.Button(
				fmt.Sprintf("%s %s %s", display.Emoji,
					formatting.GetWeekdayShortName(day.Date.Weekday()),
					formatting.FormatClock(startClock(slot.Instance.Template))),
				indexed(CallbackSlot, idx),
			))
			idx++
		}
		sb.WriteString("\n")
	}
	if idx == 0 {
		sb.WriteString("На этой неделе занятий нет.\n")
	}

	kb := keyboard.NewBuilder().Grid(buttons, 3)

	if len(week.Subscriptions) > 1 {
		chips := make([]models.InlineKeyboardButton, 0, len(week.Subscriptions))
		for i, bal := range week.Subscriptions {
			label := bal.Subscription.PackageName
			if bal.Subscription.ID == week.SelectedSubscriptionID {
				label = "✓ " + label
			}
			chips = append(chips, keyboard.Button(label, indexed(CallbackSubscription, i)))
		}
		kb.Grid(chips, 2)
	}

	kb.Row(keyboard.WeekNavigationRow(week.WeekOffset)...).
		Row(keyboard.MyBookingsButton())

	return sb.String(), kb.Build()
}

// BuildSlotScreen формирует экран занятия: комнаты, статус, запись и отмена
func BuildSlotScreen(sess state.Session, idx int) (string, *models.InlineKeyboardMarkup) {
	slot := sess.Slots[idx]
	tpl := slot.Instance.Template
	display := formatting.GetAvailabilityDisplay(slot.Availability)

	var sb strings.Builder
	fmt.Fprintf(&sb, "📚 <b>%s</b>\n", html.EscapeString(SlotTitle(tpl)))
	if tpl.SlotType.Description != "" {
		fmt.Fprintf(&sb, "<i>%s</i>\n", html.EscapeString(tpl.SlotType.Description))
	}
	fmt.Fprintf(&sb, "\n📅 %s, %s\n",
		formatting.GetWeekdayName(slot.Instance.Date.Weekday()),
		formatting.FormatDate(slot.Instance.Date))
	fmt.Fprintf(&sb, "🕐 %s\n", slotClock(tpl))
	if names := staffNames(tpl.Staff); names != "" {
		fmt.Fprintf(&sb, "👩‍🏫 %s\n", html.EscapeString(names))
	}
	fmt.Fprintf(&sb, "📊 %s %s\n", display.Emoji, display.Text)

	if bal := findBalance(sess.Week.Subscriptions, slot.FundingSubscriptionID); bal != nil && slot.Booking == nil {
		fmt.Fprintf(&sb, "📦 Оплата: %s\n", formatBalance(*bal))
	}

	kb := keyboard.NewBuilder()

	if slot.Booking != nil {
		if room, ok := tpl.Room(slot.Booking.RoomID); ok {
			fmt.Fprintf(&sb, "🏫 Комната: %s\n", html.EscapeString(room.RoomName))
		}
		if slot.Booking.ParentNote != nil && *slot.Booking.ParentNote != "" {
			fmt.Fprintf(&sb, "📝 Комментарий: %s\n", html.EscapeString(*slot.Booking.ParentNote))
		}
		status := formatting.GetBookingStatusDisplay(slot.Booking.Status)
		fmt.Fprintf(&sb, "📋 Запись: %s %s\n", status.Emoji, status.Text)
		switch {
		case slot.CanCancel:
			kb.Row(keyboard.Button("❌ Отменить запись", indexed(CallbackCancel, idx)))
		case strings.EqualFold(string(slot.Booking.Status), string(model.BookingStatusBooked)):
			sb.WriteString("\n⏰ Отменить запись уже нельзя: до начала меньше часа.\n")
		}
	} else {
		if slot.CancelledBooking != nil {
			sb.WriteString("ℹ️ Ранее вы отменяли эту запись, можно записаться снова.\n")
		}
		if selectable(slot) {
			sb.WriteString("\n🏫 <b>Комнаты:</b>\n")
			rooms := make([]models.InlineKeyboardButton, 0, len(tpl.Rooms))
			for r := range tpl.Rooms {
				room := tpl.Rooms[r]
				free := max(capacity.Available(&room), 0)
				selected := slot.Room != nil && slot.Room.RoomID == room.RoomID
				marker := "•"
				if selected {
					marker = "✓"
				}
				fmt.Fprintf(&sb, "%s %s: свободно %d из %d\n", marker, html.EscapeString(room.RoomName), free, room.Capacity)
				if len(tpl.Rooms) > 1 && !capacity.IsRoomFull(&room) {
					label := fmt.Sprintf("%s (%d)", room.RoomName, free)
					if selected {
						label = "✓ " + label
					}
					rooms = append(rooms, keyboard.Button(label, roomCallback(idx, r)))
				}
			}
			kb.Grid(rooms, 2)
		}
		if slot.CanBook() {
			kb.Row(
				keyboard.Button("✅ Записаться", indexed(CallbackBook, idx)),
				keyboard.Button("📝 С комментарием", indexed(CallbackBookWithNote, idx)),
			)
		} else if slot.Reason != nil && slot.Availability != booking.AvailabilityPast {
			fmt.Fprintf(&sb, "\n%s\n", ErrorMessage(slot.Reason))
		}
	}

	kb.Row(keyboard.BackToWeekButton(sess.Week.WeekOffset))
	return sb.String(), kb.Build()
}

// BuildCancelConfirmScreen формирует экран подтверждения отмены
func BuildCancelConfirmScreen(title string, start time.Time, confirmCallback, backCallback string) (string, *models.InlineKeyboardMarkup) {
	text := fmt.Sprintf(
		"❓ <b>Отменить запись?</b>\n\n"+
			"📚 %s\n"+
			"📅 %s, %s\n\n"+
			"Занятие вернётся в пакет.",
		html.EscapeString(title),
		formatting.GetWeekdayName(start.Weekday()),
		formatting.FormatDateTime(start),
	)

	kb := keyboard.NewBuilder().
		Row(keyboard.ConfirmCancelButtons(confirmCallback, backCallback)...).
		Build()

	return text, kb
}

// BuildBookingsScreen формирует список записей студента, новые сверху
func BuildBookingsScreen(bookings []service.BookingView, weekOffset int) (string, *models.InlineKeyboardMarkup) {
	kb := keyboard.NewBuilder()

	if len(bookings) == 0 {
		kb.Row(keyboard.Button("📅 Расписание", keyboard.WeekCallback(weekOffset)))
		return "📋 У вас пока нет записей.\n\nОткройте расписание и запишитесь на занятие!", kb.Build()
	}

	var sb strings.Builder
	sb.WriteString("📋 <b>Мои записи</b>\n\n")

	for i, bv := range bookings {
		if i >= maxBookingsShown {
			fmt.Fprintf(&sb, "… и ещё %d\n", len(bookings)-maxBookingsShown)
			break
		}
		title := "Занятие"
		if bv.Template != nil {
			title = SlotTitle(*bv.Template)
		}
		status := formatting.GetBookingStatusDisplay(bv.Booking.Status)
		fmt.Fprintf(&sb, "%s %s %s · %s · %s\n",
			status.Emoji,
			formatting.GetWeekdayShortName(bv.Start.Weekday()),
			formatting.FormatDateTime(bv.Start),
			html.EscapeString(title),
			status.Text)

		if bv.CanCancel {
			kb.Row(keyboard.Button(
				fmt.Sprintf("❌ %s %s %s", formatting.GetWeekdayShortName(bv.Start.Weekday()), formatting.FormatDayMonth(bv.Start), title),
				indexed(CallbackBookingCancel, i),
			))
		}
	}

	kb.Row(keyboard.BackToWeekButton(weekOffset))
	return sb.String(), kb.Build()
}

// BuildBookingSuccessText текст после успешной записи
func BuildBookingSuccessText(slot service.SlotAvailability, res *service.BookingResult) string {
	text := fmt.Sprintf(
		"✅ Запись создана!\n\n"+
			"📚 %s\n"+
			"📅 %s, %s",
		html.EscapeString(SlotTitle(slot.Instance.Template)),
		formatting.GetWeekdayName(slot.Start.Weekday()),
		formatting.FormatDateTime(slot.Start),
	)
	if res != nil && res.Message != "" {
		text += "\n\n" + html.EscapeString(res.Message)
	}
	return text
}

// SlotTitle название занятия для показа
func SlotTitle(tpl model.SlotTemplate) string {
	if tpl.SlotType.Name != "" {
		return tpl.SlotType.Name
	}
	if tpl.Timeframe != nil && tpl.Timeframe.Name != "" {
		return tpl.Timeframe.Name
	}
	return "Занятие"
}

func slotClock(tpl model.SlotTemplate) string {
	if tpl.Timeframe == nil {
		return "время уточняется"
	}
	return formatting.FormatClockRange(tpl.Timeframe.StartTime, tpl.Timeframe.EndTime)
}

func startClock(tpl model.SlotTemplate) string {
	if tpl.Timeframe == nil {
		return ""
	}
	return tpl.Timeframe.StartTime
}

// selectable комнату имеет смысл выбирать только у будущего свободного занятия
func selectable(slot service.SlotAvailability) bool {
	switch slot.Availability {
	case booking.AvailabilityPast, booking.AvailabilityFullyBooked, booking.AvailabilityBooked:
		return false
	}
	return len(slot.Instance.Template.Rooms) > 0
}

func staffNames(staff []model.StaffAssignment) string {
	names := make([]string, 0, len(staff))
	for _, s := range staff {
		if s.Name != "" {
			names = append(names, s.Name)
		}
	}
	return strings.Join(names, ", ")
}

func findBalance(balances []ledger.Balance, subscriptionID string) *ledger.Balance {
	if subscriptionID == "" {
		return nil
	}
	for i := range balances {
		if balances[i].Subscription.ID == subscriptionID {
			return &balances[i]
		}
	}
	return nil
}

func formatBalance(b ledger.Balance) string {
	name := html.EscapeString(b.Subscription.PackageName)
	switch {
	case b.Remaining != nil && b.Total != nil:
		return fmt.Sprintf("%s (осталось %d из %d)", name, *b.Remaining, *b.Total)
	case b.Remaining != nil:
		return fmt.Sprintf("%s (осталось %d)", name, *b.Remaining)
	default:
		return name
	}
}
