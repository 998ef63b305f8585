// Package booking описывает жизненный цикл записи студента на экземпляр слота:
// NoBooking -> Booked -> Cancelled, и повторная запись Cancelled -> Booked.
package booking

import (
	"errors"
	"strings"
	"time"

	"github.com/Freeeeeet/classbooking_bot/internal/calendar"
	"github.com/Freeeeeet/classbooking_bot/internal/capacity"
	"github.com/Freeeeeet/classbooking_bot/internal/ledger"
	"github.com/Freeeeeet/classbooking_bot/internal/model"
)

// CancelCutoff отмена возможна только строго раньше, чем за час до начала
const CancelCutoff = time.Hour

var (
	ErrAlreadyBooked           = errors.New("class is already booked for this student")
	ErrNoFundingSubscription   = errors.New("no package subscription selected")
	ErrSubscriptionNotFundable = errors.New("package subscription has no remaining sessions")
	ErrNoRoomSelected          = errors.New("no room selected")
	ErrRoomFull                = errors.New("selected room is full")
	ErrFullyBooked             = errors.New("class is fully booked")
	ErrSlotInPast              = errors.New("class has already started")
	ErrCancelCutoff            = errors.New("cancellation closes 1 hour before the class starts")
	ErrBookingNotActive        = errors.New("booking is not active")
)

type State string

const (
	StateNoBooking State = "no_booking"
	StateBooked    State = "booked"
	StateCancelled State = "cancelled"
)

// FindBooked активная (не отменённая) запись на экземпляр
func FindBooked(inst model.SlotInstance, bookings []model.Booking) *model.Booking {
	for i := range bookings {
		if inst.MatchesBooking(&bookings[i]) && !bookings[i].IsCancelled() {
			return &bookings[i]
		}
	}
	return nil
}

// FindCancelled последняя отменённая запись на экземпляр, только для информации
func FindCancelled(inst model.SlotInstance, bookings []model.Booking) *model.Booking {
	var found *model.Booking
	for i := range bookings {
		b := &bookings[i]
		if !inst.MatchesBooking(b) || !b.IsCancelled() {
			continue
		}
		if found == nil || b.CreatedAt.After(found.CreatedAt) {
			found = b
		}
	}
	return found
}

// StateOf состояние пары (студент, экземпляр) по его записям
func StateOf(inst model.SlotInstance, bookings []model.Booking) State {
	if FindBooked(inst, bookings) != nil {
		return StateBooked
	}
	if FindCancelled(inst, bookings) != nil {
		return StateCancelled
	}
	return StateNoBooking
}

// StartInstant начало занятия по записи: дата записи + startTime таймфрейма
func StartInstant(tpl *model.SlotTemplate, b *model.Booking) time.Time {
	var tf *model.Timeframe
	if tpl != nil {
		tf = tpl.Timeframe
	}
	return calendar.StartInstant(b.Date, tf)
}

// CheckCancel проверяет запись перед отменой. Время берётся при каждом вызове,
// результат нельзя кэшировать.
func CheckCancel(tpl *model.SlotTemplate, b *model.Booking, now time.Time) error {
	if b == nil || !isBookedStatus(b.Status) {
		return ErrBookingNotActive
	}
	if StartInstant(tpl, b).Sub(now) <= CancelCutoff {
		return ErrCancelCutoff
	}
	return nil
}

// CanCancel true, если до начала больше часа и запись в статусе Booked.
// Completed, NoShow, Rescheduled отображаются как записанные, но без отмены.
func CanCancel(tpl *model.SlotTemplate, b *model.Booking, now time.Time) bool {
	return CheckCancel(tpl, b, now) == nil
}

func isBookedStatus(s model.BookingStatus) bool {
	return strings.EqualFold(strings.TrimSpace(string(s)), string(model.BookingStatusBooked))
}

type Availability string

const (
	AvailabilityOpen        Availability = "open"
	AvailabilityBooked      Availability = "booked"
	AvailabilityFullyBooked Availability = "fully_booked"
	AvailabilityNoPackage   Availability = "no_package"
	AvailabilityNoRoom      Availability = "no_room"
	AvailabilityPast        Availability = "past"
)

// Candidate всё, что нужно, чтобы решить, можно ли записаться
type Candidate struct {
	Instance     model.SlotInstance
	Bookings     []model.Booking            // записи этого студента
	Subscription *model.PackageSubscription // подписка, которая оплатит запись
	Room         *model.RoomOption          // выбранная комната
	Now          time.Time
}

// Decision итог проверки: статус для отображения и причина отказа
type Decision struct {
	Availability Availability
	Booking      *model.Booking
	Err          error
}

func (d Decision) CanBook() bool {
	return d.Err == nil
}

// Evaluate проверяет все условия записи. "Всё занято" отличается от
// "нет подходящего пакета" и проверяется раньше.
func Evaluate(c Candidate, l *ledger.Ledger) Decision {
	if b := FindBooked(c.Instance, c.Bookings); b != nil {
		return Decision{Availability: AvailabilityBooked, Booking: b, Err: ErrAlreadyBooked}
	}

	start := calendar.StartInstant(c.Instance.Date, c.Instance.Template.Timeframe)
	if !start.After(c.Now) {
		return Decision{Availability: AvailabilityPast, Err: ErrSlotInPast}
	}

	if capacity.IsTemplateFull(c.Instance.Template.Rooms) {
		return Decision{Availability: AvailabilityFullyBooked, Err: ErrFullyBooked}
	}

	if c.Subscription == nil {
		return Decision{Availability: AvailabilityNoPackage, Err: ErrNoFundingSubscription}
	}
	if !l.IsFundable(c.Subscription) {
		return Decision{Availability: AvailabilityNoPackage, Err: ErrSubscriptionNotFundable}
	}

	if c.Room == nil {
		return Decision{Availability: AvailabilityNoRoom, Err: ErrNoRoomSelected}
	}
	if _, inPool := c.Instance.Template.Room(c.Room.RoomID); !inPool {
		return Decision{Availability: AvailabilityNoRoom, Err: ErrNoRoomSelected}
	}
	if capacity.IsRoomFull(c.Room) {
		return Decision{Availability: AvailabilityNoRoom, Err: ErrRoomFull}
	}

	return Decision{Availability: AvailabilityOpen}
}
