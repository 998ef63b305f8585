// Package guardian callback handlers экрана расписания опекуна
package guardian

import (
	"context"

	"github.com/Freeeeeet/classbooking_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/classbooking_bot/internal/controller/callbacks/common"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// ShowWeek показывает неделю из сессии. messageID == 0 - новым сообщением.
func ShowWeek(ctx context.Context, b *bot.Bot, h *callbacktypes.Handler, telegramID, chatID int64, messageID int) error {
	sess, err := common.LoadWeek(ctx, h, telegramID)
	if err != nil {
		return err
	}

	text, kb := common.BuildWeekScreen(sess)
	if err := common.ShowScreen(ctx, b, chatID, messageID, text, kb); err != nil {
		h.Logger.Error("Failed to show week screen", zap.Error(err), zap.Int64("telegram_id", telegramID))
		return err
	}
	return nil
}

// HandleWeek переключает неделю: week:<offset>
func HandleWeek(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	msg := common.GetMessageFromCallback(callback)
	if msg == nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(common.ErrNoMessage))
		return
	}

	offset, err := common.ParseIndex(callback.Data, common.CallbackWeek)
	if err != nil {
		h.Logger.Error("Failed to parse week offset", zap.Error(err), zap.String("data", callback.Data))
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(err))
		return
	}

	common.SetWeekOffset(h, callback.From.ID, offset)
	if err := ShowWeek(ctx, b, h, callback.From.ID, msg.Chat.ID, msg.ID); err != nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(err))
		return
	}
	common.AnswerCallback(ctx, b, callback.ID, "")
}

// HandleSubscription выбирает пакет для оплаты: sub:<idx>
func HandleSubscription(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	msg := common.GetMessageFromCallback(callback)
	if msg == nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(common.ErrNoMessage))
		return
	}

	idx, err := common.ParseIndex(callback.Data, common.CallbackSubscription)
	if err != nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(err))
		return
	}

	telegramID := callback.From.ID
	sess := h.StateManager.Session(telegramID)
	if sess.Week == nil || idx < 0 || idx >= len(sess.Week.Subscriptions) {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(common.ErrStaleScreen))
		return
	}

	chosen := sess.Week.Subscriptions[idx].Subscription
	sess.Selection.SubscriptionID = chosen.ID
	h.StateManager.SaveSession(telegramID, sess)

	h.Logger.Info("Subscription selected",
		zap.Int64("telegram_id", telegramID),
		zap.String("student_id", sess.StudentID),
		zap.String("subscription_id", chosen.ID))

	if err := ShowWeek(ctx, b, h, telegramID, msg.Chat.ID, msg.ID); err != nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(err))
		return
	}
	common.AnswerCallback(ctx, b, callback.ID, "📦 "+chosen.PackageName)
}
