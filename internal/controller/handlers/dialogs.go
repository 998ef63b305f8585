package handlers

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Freeeeeet/classbooking_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/classbooking_bot/internal/controller/callbacks/guardian"
	"github.com/Freeeeeet/classbooking_bot/internal/controller/state"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleTextMessage обрабатывает текстовые сообщения в зависимости от состояния пользователя
func (h *Handlers) HandleTextMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	// Команды обрабатываются другими handlers. /student с аргументом может
	// попасть сюда, если сработал общий prefix-обработчик.
	if strings.HasPrefix(update.Message.Text, "/") {
		if _, ok := parseStudentArg(update.Message.Text); ok {
			h.HandleStudent(ctx, b, update)
		}
		return
	}

	telegramID := update.Message.From.ID
	currentState := h.stateManager.GetState(telegramID)

	h.logger.Debug("HandleTextMessage called",
		zap.Int64("telegram_id", telegramID),
		zap.String("state", string(currentState)))

	switch currentState {
	case state.StateEnteringNote:
		h.handleNoteStep(ctx, b, update)
	default:
		h.logger.Debug("No active state, ignoring message",
			zap.Int64("telegram_id", telegramID))
	}
}

// handleNoteStep записывает на слот с комментарием родителя
func (h *Handlers) handleNoteStep(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	note := strings.TrimSpace(update.Message.Text)

	if utf8.RuneCountInString(note) > NoteMaxLength {
		h.sendError(ctx, b, chatID,
			fmt.Sprintf("❌ Комментарий слишком длинный. Максимум %d символов.\n\nПопробуйте ещё раз:", NoteMaxLength))
		return
	}

	raw, ok := h.stateManager.GetData(telegramID, state.DataNoteSlot)
	idx, isInt := raw.(int)
	h.stateManager.ClearState(telegramID)
	if !ok || !isInt {
		h.logger.Warn("Note entered without slot", zap.Int64("telegram_id", telegramID))
		h.sendError(ctx, b, chatID, common.ErrorMessage(common.ErrStaleScreen))
		return
	}

	if err := guardian.BookSlot(ctx, b, h.screens(), telegramID, chatID, 0, idx, note); err != nil {
		h.sendError(ctx, b, chatID, common.ErrorMessage(err))
	}
}
