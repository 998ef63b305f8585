package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/classbooking_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/classbooking_bot/internal/controller/callbacks/guardian"
	"github.com/Freeeeeet/classbooking_bot/internal/controller/state"
	"github.com/Freeeeeet/classbooking_bot/internal/ledger"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const helpText = "📚 Справка по командам:\n\n" +
	"/student <id> - Указать студента\n" +
	"/schedule - Расписание на неделю\n" +
	"/mybookings - Мои записи\n" +
	"/cancel - Отменить текущее действие\n" +
	"/help - Справка\n\n" +
	"Записаться можно, если в пакете остались занятия и в комнате есть места.\n" +
	"Отменить запись можно не позднее чем за час до начала занятия."

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	user := update.Message.From
	sess := h.stateManager.Session(user.ID)

	h.logger.Info("Start command",
		zap.Int64("telegram_id", user.ID),
		zap.String("username", user.Username),
		zap.String("student_id", sess.StudentID))

	welcomeText := fmt.Sprintf(
		"👋 Привет, %s!\n\n"+
			"Здесь можно записать ребёнка на занятия и управлять записями.\n\n",
		user.FirstName,
	)
	if sess.StudentID == "" {
		welcomeText += "Для начала укажите ID студента: /student <id>\n\n"
	} else {
		welcomeText += fmt.Sprintf("Текущий студент: %s\n\n", sess.StudentID)
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, welcomeText+helpText)
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.sendMessage(ctx, b, update.Message.Chat.ID, helpText)
}

// HandleStudent привязывает чат к студенту: /student <id>
func (h *Handlers) HandleStudent(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	studentID, ok := parseStudentArg(update.Message.Text)
	if !ok {
		h.sendError(ctx, b, chatID, "❌ Укажите ID студента: /student <id>")
		return
	}

	// Проверяем, что бэкенд знает студента, до привязки
	subs, err := h.bookingService.Subscriptions(ctx, studentID)
	if err != nil {
		h.logger.Error("Failed to load student subscriptions",
			zap.Int64("telegram_id", telegramID),
			zap.String("student_id", studentID),
			zap.Error(err))
		h.sendError(ctx, b, chatID, common.ErrorMessage(err))
		return
	}

	h.stateManager.LinkStudent(telegramID, studentID)
	h.logger.Info("Student linked",
		zap.Int64("telegram_id", telegramID),
		zap.String("student_id", studentID),
		zap.Int("subscriptions", len(subs.Balances)))

	h.sendMessage(ctx, b, chatID, formatSubscriptions(studentID, subs.Balances))

	if err := guardian.ShowWeek(ctx, b, h.screens(), telegramID, chatID, 0); err != nil {
		h.sendError(ctx, b, chatID, common.ErrorMessage(err))
	}
}

// HandleSchedule обрабатывает команду /schedule
func (h *Handlers) HandleSchedule(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	telegramID := update.Message.From.ID
	if err := guardian.ShowWeek(ctx, b, h.screens(), telegramID, update.Message.Chat.ID, 0); err != nil {
		h.logger.Error("Failed to show schedule", zap.Int64("telegram_id", telegramID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, common.ErrorMessage(err))
	}
}

// HandleMyBookings обрабатывает команду /mybookings
func (h *Handlers) HandleMyBookings(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	telegramID := update.Message.From.ID
	if err := guardian.ShowBookings(ctx, b, h.screens(), telegramID, update.Message.Chat.ID, 0); err != nil {
		h.logger.Error("Failed to show bookings", zap.Int64("telegram_id", telegramID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, common.ErrorMessage(err))
	}
}

// HandleCancel обрабатывает команду /cancel
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	telegramID := update.Message.From.ID
	if h.stateManager.GetState(telegramID) == state.StateNone {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "❌ Нет активных операций для отмены.")
		return
	}

	// Очищаем состояние
	h.stateManager.ClearState(telegramID)
	h.sendMessage(ctx, b, update.Message.Chat.ID, "✅ Операция отменена.\n\nИспользуйте /help для просмотра доступных команд.")
}

// parseStudentArg достаёт ID из "/student <id>" или "/student@bot <id>"
func parseStudentArg(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return "", false
	}
	command := fields[0]
	if at := strings.IndexByte(command, '@'); at >= 0 {
		command = command[:at]
	}
	if command != "/student" {
		return "", false
	}
	id := fields[1]
	if len(id) > StudentIDMaxLength {
		return "", false
	}
	return id, true
}

func formatSubscriptions(studentID string, balances []ledger.Balance) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "👤 Студент %s\n\n", studentID)

	if len(balances) == 0 {
		sb.WriteString("📦 Активных пакетов нет. Записаться можно только на занятия, оплаченные провайдером.")
		return sb.String()
	}

	sb.WriteString("📦 Пакеты:\n")
	for _, bal := range balances {
		fmt.Fprintf(&sb, "• %s", bal.Subscription.PackageName)
		switch {
		case bal.Remaining != nil && bal.Total != nil:
			fmt.Fprintf(&sb, ": осталось %d из %d", *bal.Remaining, *bal.Total)
		case bal.Remaining != nil:
			fmt.Fprintf(&sb, ": осталось %d", *bal.Remaining)
		}
		if !bal.Fundable {
			sb.WriteString(" (нельзя использовать)")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
