package guardian

import (
	"context"
	"strconv"

	"github.com/Freeeeeet/classbooking_bot/internal/apperror"
	"github.com/Freeeeeet/classbooking_bot/internal/booking"
	"github.com/Freeeeeet/classbooking_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/classbooking_bot/internal/controller/callbacks/common"
	"github.com/Freeeeeet/classbooking_bot/internal/controller/state"
	"github.com/Freeeeeet/classbooking_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// showSlot пересчитывает неделю и показывает слот, который был под индексом idx
func showSlot(ctx context.Context, b *bot.Bot, h *callbacktypes.Handler, telegramID, chatID int64, messageID, idx int) error {
	sess, newIdx, err := common.ReloadSlot(ctx, h, telegramID, idx)
	if err != nil {
		return err
	}

	text, kb := common.BuildSlotScreen(sess, newIdx)
	return common.ShowScreen(ctx, b, chatID, messageID, text, kb)
}

// HandleSlot открывает карточку занятия: slot:<idx>
func HandleSlot(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	msg := common.GetMessageFromCallback(callback)
	if msg == nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(common.ErrNoMessage))
		return
	}

	idx, err := common.ParseIndex(callback.Data, common.CallbackSlot)
	if err != nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(err))
		return
	}

	if err := showSlot(ctx, b, h, callback.From.ID, msg.Chat.ID, msg.ID, idx); err != nil {
		h.Logger.Error("Failed to show slot", zap.Error(err), zap.String("data", callback.Data))
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(err))
		return
	}
	common.AnswerCallback(ctx, b, callback.ID, "")
}

// HandleRoom выбирает комнату для занятия: room:<idx>:<r>
func HandleRoom(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	msg := common.GetMessageFromCallback(callback)
	if msg == nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(common.ErrNoMessage))
		return
	}

	idx, roomIdx, err := common.ParseIndexPair(callback.Data, common.CallbackRoom)
	if err != nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(err))
		return
	}

	telegramID := callback.From.ID
	sess := h.StateManager.Session(telegramID)
	slot, err := common.SlotAt(sess, idx)
	if err != nil || roomIdx < 0 || roomIdx >= len(slot.Instance.Template.Rooms) {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(common.ErrStaleScreen))
		return
	}

	room := slot.Instance.Template.Rooms[roomIdx]
	if sess.Selection.Rooms == nil {
		sess.Selection.Rooms = make(map[string]string)
	}
	sess.Selection.Rooms[slot.Instance.Key()] = room.RoomID
	h.StateManager.SaveSession(telegramID, sess)

	if err := showSlot(ctx, b, h, telegramID, msg.Chat.ID, msg.ID, idx); err != nil {
		h.Logger.Error("Failed to show slot after room change", zap.Error(err), zap.String("data", callback.Data))
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(err))
		return
	}
	common.AnswerCallback(ctx, b, callback.ID, "🏫 "+room.RoomName)
}

// HandleBook записывает без комментария: book:<idx>
func HandleBook(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	msg := common.GetMessageFromCallback(callback)
	if msg == nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(common.ErrNoMessage))
		return
	}

	idx, err := common.ParseIndex(callback.Data, common.CallbackBook)
	if err != nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(err))
		return
	}

	if err := BookSlot(ctx, b, h, callback.From.ID, msg.Chat.ID, msg.ID, idx, ""); err != nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(err))
		return
	}
	common.AnswerCallback(ctx, b, callback.ID, "✅ Вы записаны")
}

// HandleBookWithNote просит ввести комментарий и ждёт текст: note:<idx>
func HandleBookWithNote(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	msg := common.GetMessageFromCallback(callback)
	if msg == nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(common.ErrNoMessage))
		return
	}

	idx, err := common.ParseIndex(callback.Data, common.CallbackBookWithNote)
	if err != nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(err))
		return
	}

	telegramID := callback.From.ID
	if _, err := common.SlotAt(h.StateManager.Session(telegramID), idx); err != nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(err))
		return
	}

	h.StateManager.SetState(telegramID, state.StateEnteringNote)
	h.StateManager.SetData(telegramID, state.DataNoteSlot, idx)

	common.AnswerCallback(ctx, b, callback.ID, "")
	common.SendText(ctx, b, msg.Chat.ID,
		"📝 Напишите комментарий для преподавателя одним сообщением.\n\nДля отмены используйте /cancel")
}

// BookSlot записывает студента на слот idx и обновляет экран. Ошибка
// возвращается для показа пользователю; после временной ошибки экран всё
// равно перерисовывается, статусы уже перечитаны.
func BookSlot(ctx context.Context, b *bot.Bot, h *callbacktypes.Handler, telegramID, chatID int64, messageID, idx int, note string) error {
	sess, newIdx, err := common.ReloadSlot(ctx, h, telegramID, idx)
	if err != nil {
		return err
	}
	slot := sess.Slots[newIdx]

	req := service.BookRequest{
		StudentID:      sess.StudentID,
		Instance:       slot.Instance,
		SubscriptionID: sess.Selection.SubscriptionID,
		Note:           note,
	}
	if slot.Room != nil {
		req.RoomID = slot.Room.RoomID
	}

	res, err := h.BookingService.Book(ctx, req)
	if err != nil {
		h.Logger.Info("Booking refused",
			zap.Int64("telegram_id", telegramID),
			zap.String("student_id", sess.StudentID),
			zap.String("slot", slot.Instance.Key()),
			zap.Stringer("kind", apperror.KindOf(err)),
			zap.Error(err))
		if apperror.Is(err, apperror.KindTransient) {
			if showErr := showSlot(ctx, b, h, telegramID, chatID, messageID, newIdx); showErr != nil {
				h.Logger.Warn("Failed to redraw slot after transient error", zap.Error(showErr))
			}
		}
		return err
	}

	// Из диалога комментария экран отправляется новым сообщением, перед ним подтверждение
	if messageID == 0 {
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      common.BuildBookingSuccessText(slot, res),
			ParseMode: models.ParseModeHTML,
		}); err != nil {
			h.Logger.Warn("Failed to send booking confirmation", zap.Error(err))
		}
	}
	if err := showSlot(ctx, b, h, telegramID, chatID, messageID, newIdx); err != nil {
		h.Logger.Warn("Failed to redraw slot after booking", zap.Error(err))
	}
	return nil
}

// HandleCancel спрашивает подтверждение отмены: cancel:<idx>
func HandleCancel(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	msg := common.GetMessageFromCallback(callback)
	if msg == nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(common.ErrNoMessage))
		return
	}

	idx, err := common.ParseIndex(callback.Data, common.CallbackCancel)
	if err != nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(err))
		return
	}

	sess, newIdx, err := common.ReloadSlot(ctx, h, callback.From.ID, idx)
	if err != nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(err))
		return
	}
	slot := sess.Slots[newIdx]
	if slot.Booking == nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(common.ErrStaleScreen))
		return
	}
	if !slot.CanCancel {
		// Пока экран был открыт, до начала осталось меньше часа
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(booking.ErrCancelCutoff))
		return
	}

	text, kb := common.BuildCancelConfirmScreen(
		common.SlotTitle(slot.Instance.Template),
		slot.Start,
		common.CallbackConfirmCancel+strconv.Itoa(newIdx),
		common.CallbackSlot+strconv.Itoa(newIdx),
	)
	if err := common.ShowScreen(ctx, b, msg.Chat.ID, msg.ID, text, kb); err != nil {
		h.Logger.Error("Failed to show cancel confirmation", zap.Error(err))
	}
	common.AnswerCallback(ctx, b, callback.ID, "")
}

// HandleConfirmCancel отменяет запись: confirm_cancel:<idx>
func HandleConfirmCancel(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, h *callbacktypes.Handler) {
	msg := common.GetMessageFromCallback(callback)
	if msg == nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(common.ErrNoMessage))
		return
	}

	idx, err := common.ParseIndex(callback.Data, common.CallbackConfirmCancel)
	if err != nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(err))
		return
	}

	telegramID := callback.From.ID
	sess := h.StateManager.Session(telegramID)
	slot, err := common.SlotAt(sess, idx)
	if err != nil || slot.Booking == nil {
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(common.ErrStaleScreen))
		return
	}

	// Окно отмены проверяется заново внутри Cancel по текущему времени
	tpl := slot.Instance.Template
	res, err := h.BookingService.Cancel(ctx, service.CancelRequest{
		StudentID: sess.StudentID,
		Booking:   *slot.Booking,
		Template:  &tpl,
	})
	if err != nil {
		h.Logger.Info("Cancellation refused",
			zap.Int64("telegram_id", telegramID),
			zap.String("booking_id", slot.Booking.ID),
			zap.Error(err))
		common.AnswerCallbackAlert(ctx, b, callback.ID, common.ErrorMessage(err))
		return
	}

	h.Logger.Info("Booking cancelled via bot",
		zap.Int64("telegram_id", telegramID),
		zap.String("booking_id", res.BookingID))

	if err := ShowWeek(ctx, b, h, telegramID, msg.Chat.ID, msg.ID); err != nil {
		h.Logger.Warn("Failed to redraw week after cancellation", zap.Error(err))
	}
	common.AnswerCallback(ctx, b, callback.ID, "❌ Запись отменена, занятие вернулось в пакет")
}
