package handlers

import (
	"context"

	"github.com/Freeeeeet/classbooking_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/classbooking_bot/internal/controller/state"
	"github.com/Freeeeeet/classbooking_bot/internal/service"
	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

// Ограничения ввода
const (
	NoteMaxLength      = 500
	StudentIDMaxLength = 64
)

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	bookingService *service.BookingService
	stateManager   *state.Manager
	logger         *zap.Logger
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(
	bookingService *service.BookingService,
	stateManager *state.Manager,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		bookingService: bookingService,
		stateManager:   stateManager,
		logger:         logger,
	}
}

// screens зависимости для общих экранов с callback handlers
func (h *Handlers) screens() *callbacktypes.Handler {
	return &callbacktypes.Handler{
		BookingService: h.bookingService,
		StateManager:   h.stateManager,
		Logger:         h.logger,
	}
}

// sendError отправляет сообщение об ошибке и логирует если не удалось
func (h *Handlers) sendError(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send error message",
			zap.Int64("chat_id", chatID),
			zap.String("text", text),
			zap.Error(err),
		)
	}
}

// sendMessage отправляет сообщение и логирует если не удалось
func (h *Handlers) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}
