package callbacks

import (
	"context"
	"strings"

	"github.com/Freeeeeet/classbooking_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/classbooking_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/classbooking_bot/internal/controller/callbacks/guardian"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// ========================
// Main Callback Router
// ========================

// Route распределяет callback query по соответствующим обработчикам
func Route(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	data := callback.Data

	h.Logger.Info("Routing callback",
		zap.String("data", data),
		zap.Int64("user_id", callback.From.ID),
		zap.String("user_name", callback.From.FirstName))

	switch {
	// ===== Common Navigation =====
	case data == common.CallbackNoop:
		common.AnswerCallback(ctx, b, callback.ID, "")
	case strings.HasPrefix(data, common.CallbackWeek):
		guardian.HandleWeek(ctx, b, callback, h)
	case strings.HasPrefix(data, common.CallbackSubscription):
		guardian.HandleSubscription(ctx, b, callback, h)

	// ===== Slot: Booking =====
	case strings.HasPrefix(data, common.CallbackSlot):
		guardian.HandleSlot(ctx, b, callback, h)
	case strings.HasPrefix(data, common.CallbackRoom):
		guardian.HandleRoom(ctx, b, callback, h)
	case strings.HasPrefix(data, common.CallbackBook):
		guardian.HandleBook(ctx, b, callback, h)
	case strings.HasPrefix(data, common.CallbackBookWithNote):
		guardian.HandleBookWithNote(ctx, b, callback, h)

	// ===== Slot: Cancellation =====
	case strings.HasPrefix(data, common.CallbackCancel):
		guardian.HandleCancel(ctx, b, callback, h)
	case strings.HasPrefix(data, common.CallbackConfirmCancel):
		guardian.HandleConfirmCancel(ctx, b, callback, h)

	// ===== My Bookings =====
	case data == common.CallbackMyBookings:
		guardian.HandleMyBookings(ctx, b, callback, h)
	case strings.HasPrefix(data, common.CallbackBookingCancel):
		guardian.HandleBookingCancel(ctx, b, callback, h)
	case strings.HasPrefix(data, common.CallbackBookingConfirm):
		guardian.HandleBookingConfirm(ctx, b, callback, h)

	default:
		h.Logger.Warn("Unknown callback data", zap.String("data", data))
		common.AnswerCallback(ctx, b, callback.ID, "")
	}
}
