package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Freeeeeet/classbooking_bot/internal/apperror"
	"github.com/Freeeeeet/classbooking_bot/internal/booking"
	"github.com/Freeeeeet/classbooking_bot/internal/calendar"
	"github.com/Freeeeeet/classbooking_bot/internal/ledger"
	"github.com/Freeeeeet/classbooking_bot/internal/model"
	"github.com/Freeeeeet/classbooking_bot/internal/repository/base"
	"github.com/Freeeeeet/classbooking_bot/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Сообщения, которые Store возвращает как ответы бэкенда
const (
	MsgSlotNotFound         = "slot not found"
	MsgRoomNotInPool        = "room is not available for this slot"
	MsgDateMismatch         = "date does not match the slot weekday"
	MsgSlotStarted          = "slot has already started"
	MsgSubscriptionNotFound = "package subscription not found"
	MsgSubscriptionInactive = "package subscription is not active"
	MsgNoRemainingSlots     = "subscription has no remaining slots"
	MsgRoomFull             = "room is full"
	MsgSlotAlreadyBooked    = "slot already booked"
	MsgBookingNotFound      = "booking not found"
	MsgBookingNotActive     = "booking is not active"
	MsgCancelWindowClosed   = "cancellation window has closed"
)

// Store система записи в PostgreSQL, реализует service.Backend
type Store struct {
	base      *base.Repository
	templates *SlotTemplateRepository
	subs      *SubscriptionRepository
	slots     *StudentSlotRepository
	week      *calendar.Week
	logger    *zap.Logger
}

var _ service.Backend = (*Store)(nil)

func NewStore(pool *pgxpool.Pool, week *calendar.Week, logger *zap.Logger) *Store {
	return &Store{
		base:      base.NewRepository(pool),
		templates: NewSlotTemplateRepository(pool),
		subs:      NewSubscriptionRepository(pool),
		slots:     NewStudentSlotRepository(pool, week.Location()),
		week:      week,
		logger:    logger,
	}
}

// FetchSlotTemplates страница каталога с вместимостью на неделю q.WeekStart
func (s *Store) FetchSlotTemplates(ctx context.Context, q service.CatalogQuery) (*model.Page[model.SlotTemplate], error) {
	page, pageSize := normalizePage(q.Page, q.PageSize)

	templates, total, err := s.templates.ListForStudent(ctx, q.StudentID, page, pageSize)
	if err != nil {
		return nil, err
	}

	weekStart := q.WeekStart
	if weekStart.IsZero() {
		weekStart = s.week.Monday(0)
	}
	if len(templates) > 0 {
		if err := s.fillAvailability(ctx, templates, weekStart); err != nil {
			return nil, err
		}
	}

	return &model.Page[model.SlotTemplate]{Items: templates, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *Store) fillAvailability(ctx context.Context, templates []model.SlotTemplate, weekStart time.Time) error {
	ids := make([]string, len(templates))
	for i := range templates {
		ids[i] = templates[i].ID
	}

	from := dateOnly(weekStart)
	to := from.AddDate(0, 0, 6)
	taken, err := s.slots.Occupancy(ctx, ids, from, to)
	if err != nil {
		return err
	}

	for i := range templates {
		date := InstanceDate(weekStart, templates[i].Weekday).Format(time.DateOnly)
		for j := range templates[i].Rooms {
			room := &templates[i].Rooms[j]
			free := max(room.Capacity-taken[occupancyKey{templates[i].ID, date, room.RoomID}], 0)
			room.AvailableCapacity = &free
		}
	}
	return nil
}

// FetchSubscriptions все подписки студента
func (s *Store) FetchSubscriptions(ctx context.Context, studentID string) ([]model.PackageSubscription, error) {
	return s.subs.GetByStudentID(ctx, studentID)
}

// FetchSuitablePackageTotals итоги пакетов филиала студента
func (s *Store) FetchSuitablePackageTotals(ctx context.Context, studentID string) (map[string]int, error) {
	return s.subs.SuitablePackageTotals(ctx, studentID)
}

// FetchBookings страница записей студента
func (s *Store) FetchBookings(ctx context.Context, studentID string, page, pageSize int) (*model.Page[model.Booking], error) {
	page, pageSize = normalizePage(page, pageSize)
	bookings, total, err := s.slots.ListByStudent(ctx, studentID, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &model.Page[model.Booking]{Items: bookings, Total: total, Page: page, PageSize: pageSize}, nil
}

// CreateBooking создаёт запись в одной транзакции: строка комнаты шаблона и
// подписка блокируются, проверяются остаток и вместимость, затем вставка и
// used_slot + 1.
func (s *Store) CreateBooking(ctx context.Context, p model.BookingPayload) (*model.CreateBookingResult, error) {
	date := p.Date.In(s.week.Location())
	slotDate := dateOnly(date)
	bookingID := uuid.NewString()

	err := s.base.InTx(ctx, func(tx pgx.Tx) error {
		tr, err := s.templates.LockRoom(ctx, tx, p.BranchSlotID, p.RoomID)
		if err != nil {
			return err
		}
		if tr == nil {
			return apperror.Backend(http.StatusBadRequest, MsgRoomNotInPool)
		}
		if int(date.Weekday()) != tr.Weekday {
			return apperror.Backend(http.StatusBadRequest, MsgDateMismatch)
		}
		start, err := calendar.ToDateTime(date, tr.StartTime)
		if err != nil {
			return fmt.Errorf("parse start time: %w", err)
		}
		if !start.After(s.week.Now()) {
			return apperror.Backend(http.StatusBadRequest, MsgSlotStarted)
		}

		sub, err := s.subs.LockForStudent(ctx, tx, p.PackageSubscriptionID, p.StudentID)
		if err != nil {
			return err
		}
		if sub == nil {
			return apperror.Backend(http.StatusNotFound, MsgSubscriptionNotFound)
		}
		if !sub.IsActive() {
			return apperror.Backend(http.StatusConflict, MsgSubscriptionInactive)
		}
		if !ledger.New(nil).IsFundable(sub) {
			return apperror.Backend(http.StatusConflict, MsgNoRemainingSlots)
		}

		taken, err := s.slots.CountActive(ctx, tx, p.BranchSlotID, slotDate, p.RoomID)
		if err != nil {
			return err
		}
		if taken >= tr.Capacity {
			return apperror.Backend(http.StatusConflict, MsgRoomFull)
		}

		if err := s.slots.Insert(ctx, tx, bookingID, p, slotDate); err != nil {
			if base.IsUniqueViolation(err) {
				return apperror.Backend(http.StatusConflict, MsgSlotAlreadyBooked)
			}
			if base.IsForeignKeyViolation(err) {
				return apperror.Backend(http.StatusNotFound, MsgSlotNotFound)
			}
			return err
		}

		return s.subs.AdjustUsed(ctx, tx, sub.ID, 1)
	})
	if err != nil {
		var appErr *apperror.Error
		if !errors.As(err, &appErr) {
			s.logger.Error("Failed to create booking",
				zap.String("student_id", p.StudentID),
				zap.String("branch_slot_id", p.BranchSlotID),
				zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("Booking stored",
		zap.String("booking_id", bookingID),
		zap.String("student_id", p.StudentID),
		zap.String("branch_slot_id", p.BranchSlotID),
		zap.String("slot_date", slotDate.Format(time.DateOnly)),
		zap.String("room_id", p.RoomID))

	return &model.CreateBookingResult{BookingID: bookingID, Message: "Booked successfully"}, nil
}

// CancelBooking отменяет запись, если до начала больше часа, и
// возвращает занятие в подписку.
func (s *Store) CancelBooking(ctx context.Context, bookingID, studentID string) error {
	err := s.base.InTx(ctx, func(tx pgx.Tx) error {
		b, err := s.slots.LockForStudent(ctx, tx, bookingID, studentID)
		if err != nil {
			return err
		}
		if b == nil {
			return apperror.Backend(http.StatusNotFound, MsgBookingNotFound)
		}

		// Дата записи уже содержит время начала
		switch err := booking.CheckCancel(nil, b, s.week.Now()); {
		case errors.Is(err, booking.ErrBookingNotActive):
			return apperror.Backend(http.StatusConflict, MsgBookingNotActive)
		case errors.Is(err, booking.ErrCancelCutoff):
			return apperror.Backend(http.StatusConflict, MsgCancelWindowClosed)
		case err != nil:
			return err
		}

		if err := s.slots.UpdateStatus(ctx, tx, b.ID, model.BookingStatusCancelled); err != nil {
			return err
		}
		return s.subs.AdjustUsed(ctx, tx, b.PackageSubscriptionID, -1)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Booking cancelled in store",
		zap.String("booking_id", bookingID),
		zap.String("student_id", studentID))
	return nil
}

// InstanceDate дата экземпляра шаблона в неделе, начинающейся с weekStart (понедельник)
func InstanceDate(weekStart time.Time, weekday int) time.Time {
	offset := (weekday + 6) % 7
	return time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day()+offset, 0, 0, 0, 0, weekStart.Location())
}

// dateOnly календарная дата как полночь UTC, в таком виде она уходит в колонку DATE
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	return page, pageSize
}
