package callbacks

import (
	"context"

	"github.com/Freeeeeet/classbooking_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/classbooking_bot/internal/controller/state"
	"github.com/Freeeeeet/classbooking_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Handler обёртка над callbacktypes.Handler для регистрации в боте
type Handler struct {
	*callbacktypes.Handler
}

// NewHandler создаёт callback handler с зависимостями
func NewHandler(
	bookingService *service.BookingService,
	stateManager *state.Manager,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Handler: &callbacktypes.Handler{
			BookingService: bookingService,
			StateManager:   stateManager,
			Logger:         logger,
		},
	}
}

// HandleCallbackQuery - главный обработчик callback queries
func (h *Handler) HandleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	// Вызываем роутер
	Route(ctx, b, update.CallbackQuery, h.Handler)
}
