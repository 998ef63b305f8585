package common

import (
	"fmt"

	"github.com/Freeeeeet/classbooking_bot/internal/controller/callbacks/common/keyboard"
)

// ========================
// Callback Data Patterns
// ========================
// Индексы ссылаются на слоты и записи последнего показанного экрана,
// так callback data укладывается в 64 байта Telegram.

const (
	CallbackWeek       = keyboard.CallbackWeek       // week:<offset>
	CallbackMyBookings = keyboard.CallbackMyBookings // my_bookings
	CallbackNoop       = keyboard.CallbackNoop       // noop

	CallbackSubscription  = "sub:"            // sub:<idx>
	CallbackSlot          = "slot:"           // slot:<idx>
	CallbackRoom          = "room:"           // room:<idx>:<r>
	CallbackBook          = "book:"           // book:<idx>
	CallbackBookWithNote  = "note:"           // note:<idx>
	CallbackCancel        = "cancel:"         // cancel:<idx>
	CallbackConfirmCancel = "confirm_cancel:" // confirm_cancel:<idx>

	CallbackBookingCancel  = "bk_cancel:"  // bk_cancel:<idx>
	CallbackBookingConfirm = "bk_confirm:" // bk_confirm:<idx>
)

func indexed(prefix string, idx int) string {
	return fmt.Sprintf("%s%d", prefix, idx)
}

func roomCallback(slotIdx, roomIdx int) string {
	return fmt.Sprintf("%s%d:%d", CallbackRoom, slotIdx, roomIdx)
}
