package guardian

import (
	"context"
	"strconv"

	"github.com/Freeeeeet/classbooking_bot/internal/booking"
	"github.com/Freeeeeet/classbooking_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/classbooking_bot/internal/controller/callbacks/common"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// ShowBookings показывает список записей. messageID == 0 - новым сообщением.
func ShowBookings(ctx context.Context, b *bot.Bot, h *callbacktypes.Handler, telegramID, chatID int64, messageID int) error {
	sess, err := common.LoadBookings(ctx, h, telegramID)
	if err != nil {
		return err
	}

	text, kb := common.BuildBookingsScreen(sess.Bookings, sess.WeekOffset)
	if err := common.ShowScreen(ctx, b, chatID, messageID, text, kb); err != nil {
		h.Logger.Error("Failed to show bookings screen", zap.Error(err), zap.Int64("telegram_id", telegramID))
		return err
	}
	return nil
}

// HandleMyBookings открывает список записей
func HandleMyBookings(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	msg := common.GetMessageFromCallback(callback)
	if msg == nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(common.ErrNoMessage))
		return
	}

	if err := ShowBookings(ctx, b, h, callback.From.ID, msg.Chat.ID, msg.ID); err != nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(err))
		return
	}
	common.AnswerCallback(ctx, b, callback.ID, "")
}

// HandleBookingCancel спрашивает подтверждение отмены из списка: bk_cancel:<idx>
func HandleBookingCancel(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	msg := common.GetMessageFromCallback(callback)
	if msg == nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(common.ErrNoMessage))
		return
	}

	idx, err := common.ParseIndex(callback.Data, common.CallbackBookingCancel)
	if err != nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(err))
		return
	}

	bv, err := common.BookingAt(h.StateManager.Session(callback.From.ID), idx)
	if err != nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(err))
		return
	}

	// Список мог устареть по времени, проверяем окно отмены по часам
	if err := booking.CheckCancel(bv.Template, &bv.Booking, h.BookingService.Week().Now()); err != nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(err))
		return
	}

	title := "Занятие"
	if bv.Template != nil {
		title = common.SlotTitle(*bv.Template)
	}
	text, kb := common.BuildCancelConfirmScreen(
		title,
		bv.Start,
		common.CallbackBookingConfirm+strconv.Itoa(idx),
		common.CallbackMyBookings,
	)
	if err := common.ShowScreen(ctx, b, msg.Chat.ID, msg.ID, text, kb); err != nil {
		h.Logger.Error("Failed to show cancel confirmation", zap.Error(err))
	}
	common.AnswerCallback(ctx, b, callback.ID, "")
}

// HandleBookingConfirm отменяет запись из списка: bk_confirm:<idx>
func HandleBookingConfirm(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	msg := common.GetMessageFromCallback(callback)
	if msg == nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(common.ErrNoMessage))
		return
	}

	idx, err := common.ParseIndex(callback.Data, common.CallbackBookingConfirm)
	if err != nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(err))
		return
	}

	telegramID := callback.From.ID
	sess := h.StateManager.Session(telegramID)
	bv, err := common.BookingAt(sess, idx)
	if err != nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(err))
		return
	}

	res, err := h.BookingService.CancelByID(ctx, sess.StudentID, bv.Booking.ID)
	if err != nil {
		h.Logger.Info("Cancellation refused",
			zap.Int64("telegram_id", telegramID),
			zap.String("booking_id", bv.Booking.ID),
			zap.Error(err))
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(err))
		return
	}

	h.Logger.Info("Booking cancelled via bot",
		zap.Int64("telegram_id", telegramID),
		zap.String("booking_id", res.BookingID))

	if err := ShowBookings(ctx, b, h, telegramID, msg.Chat.ID, msg.ID); err != nil {
		h.Logger.Warn("Failed to redraw bookings after cancellation", zap.Error(err))
	}
	common.AnswerCallback(ctx, b, callback.ID, "❌ Запись отменена, занятие вернулось в пакет")
}
