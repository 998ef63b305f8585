package keyboard

import (
	"fmt"

	"github.com/go-telegram/bot/models"
)

// Callback data, общие для нескольких экранов
const (
	CallbackNoop       = "noop"
	CallbackMyBookings = "my_bookings"
	CallbackWeek       = "week:" // week:<offset>
)

// BackButton создаёт кнопку "Назад"
func BackButton(callbackData string) models.InlineKeyboardButton {
	return Button("⬅️ Назад", callbackData)
}

// BackToWeekButton возвращает к неделе weekOffset
func BackToWeekButton(weekOffset int) models.InlineKeyboardButton {
	return BackButton(WeekCallback(weekOffset))
}

// WeekCallback callback data экрана недели
func WeekCallback(weekOffset int) string {
	return fmt.Sprintf("%s%d", CallbackWeek, weekOffset)
}

// WeekNavigationRow ряд "◀️ | Эта неделя | ▶️"
func WeekNavigationRow(weekOffset int) []models.InlineKeyboardButton {
	return []models.InlineKeyboardButton{
		Button("◀️", WeekCallback(weekOffset-1)),
		Button("📍 Эта неделя", WeekCallback(0)),
		Button("▶️", WeekCallback(weekOffset+1)),
	}
}

// MyBookingsButton создаёт кнопку "Мои записи"
func MyBookingsButton() models.InlineKeyboardButton {
	return Button("📋 Мои записи", CallbackMyBookings)
}

// ConfirmCancelButtons создаёт ряд с кнопками Подтвердить/Отмена
func ConfirmCancelButtons(confirmCallback, cancelCallback string) []models.InlineKeyboardButton {
	return []models.InlineKeyboardButton{
		Button("✅ Подтвердить", confirmCallback),
		Button("❌ Отмена", cancelCallback),
	}
}
