package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Freeeeeet/classbooking_bot/internal/apperror"
	"github.com/Freeeeeet/classbooking_bot/internal/booking"
	"github.com/Freeeeeet/classbooking_bot/internal/calendar"
	"github.com/Freeeeeet/classbooking_bot/internal/capacity"
	"github.com/Freeeeeet/classbooking_bot/internal/infra/metrics"
	"github.com/Freeeeeet/classbooking_bot/internal/ledger"
	"github.com/Freeeeeet/classbooking_bot/internal/model"
	"go.uber.org/zap"
)

var ErrBookingNotFound = errors.New("booking not found")

// RetryAfterCancelMessage совет пользователю при гонке отмены и повторной записи
const RetryAfterCancelMessage = "This class was just released and the provider is still updating it. Please wait a few seconds and try again."

const (
	defaultPageSize           = 50
	defaultCancelRefreshDelay = 500 * time.Millisecond
)

// Config настройки оркестратора
type Config struct {
	PageSize           int
	CancelRefreshDelay time.Duration
}

// BookingService координирует календарь, подписки, вместимость и жизненный цикл записи
type BookingService struct {
	backend   Backend
	week      *calendar.Week
	refresher Refresher
	cache     *viewCache
	cfg       Config
	logger    *zap.Logger
}

func NewBookingService(backend Backend, week *calendar.Week, cfg Config, logger *zap.Logger) *BookingService {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.CancelRefreshDelay <= 0 {
		cfg.CancelRefreshDelay = defaultCancelRefreshDelay
	}
	return &BookingService{
		backend: backend,
		week:    week,
		cache:   newViewCache(),
		cfg:     cfg,
		logger:  logger,
	}
}

// SetRefresher подключает планировщик отложенных обновлений
func (s *BookingService) SetRefresher(r Refresher) {
	s.refresher = r
}

// Week календарь сервиса
func (s *BookingService) Week() *calendar.Week {
	return s.week
}

// ListInstancesForWeek экземпляры шаблонов недели по дням
func (s *BookingService) ListInstancesForWeek(weekOffset int, templates []model.SlotTemplate) map[time.Weekday][]model.SlotInstance {
	return s.week.Instances(weekOffset, templates)
}

// FilterByDate экземпляры на конкретную дату
func FilterByDate(instances map[time.Weekday][]model.SlotInstance, date time.Time) []model.SlotInstance {
	var out []model.SlotInstance
	for _, list := range instances {
		for _, inst := range list {
			if model.SameDate(inst.Date, date.In(inst.Date.Location())) {
				out = append(out, inst)
			}
		}
	}
	sortInstances(out)
	return out
}

// FilterByTimeframe экземпляры одного таймфрейма
func FilterByTimeframe(instances map[time.Weekday][]model.SlotInstance, timeframeID string) []model.SlotInstance {
	var out []model.SlotInstance
	for _, list := range instances {
		for _, inst := range list {
			if tf := inst.Template.Timeframe; tf != nil && tf.ID == timeframeID {
				out = append(out, inst)
			}
		}
	}
	sortInstances(out)
	return out
}

// ResolveFundingSubscription подписка, закреплённая за слотом провайдером,
// иначе выбранная опекуном
func ResolveFundingSubscription(tpl *model.SlotTemplate, selectedSubscriptionID string) string {
	if tpl != nil && tpl.PackageSubscriptionID != nil {
		if id := strings.TrimSpace(*tpl.PackageSubscriptionID); id != "" {
			return id
		}
	}
	return selectedSubscriptionID
}

// Selection выбор пользователя на экране: подписка и комнаты по ключу экземпляра
type Selection struct {
	SubscriptionID string
	Rooms          map[string]string
}

func (sel Selection) clone() Selection {
	rooms := make(map[string]string, len(sel.Rooms))
	for k, v := range sel.Rooms {
		rooms[k] = v
	}
	return Selection{SubscriptionID: sel.SubscriptionID, Rooms: rooms}
}

// SlotAvailability состояние одного экземпляра для отображения
type SlotAvailability struct {
	Instance              model.SlotInstance
	Availability          booking.Availability
	Reason                error
	Booking               *model.Booking // активная запись студента
	CancelledBooking      *model.Booking // предыдущая отменённая запись
	CanCancel             bool
	Room                  *model.RoomOption
	FundingSubscriptionID string
	FreeSeats             int
	Start                 time.Time
}

func (a SlotAvailability) CanBook() bool {
	return a.Reason == nil
}

// DayAvailability слоты одного дня
type DayAvailability struct {
	Date  time.Time
	Slots []SlotAvailability
}

// WeekAvailability предложение на неделю
type WeekAvailability struct {
	WeekOffset             int
	Range                  calendar.Range
	Days                   []DayAvailability // понедельник..воскресенье
	Subscriptions          []ledger.Balance
	SelectedSubscriptionID string
	Selection              Selection
}

// ProposeAvailability собирает неделю: экземпляры слотов, статус записи,
// возможность отмены (по текущему времени), выбранную комнату и подписку.
// Выбор пользователя не меняется, возвращается новый.
func (s *BookingService) ProposeAvailability(ctx context.Context, studentID string, weekOffset int, sel Selection) (*WeekAvailability, error) {
	views, err := s.studentViews(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("load student views: %w", err)
	}
	weekRange := s.week.Range(weekOffset)
	cat, err := s.catalog(ctx, studentID, weekRange.Monday)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	l := views.Ledger()
	next := sel.clone()
	if ledger.Find(views.Subscriptions, next.SubscriptionID) == nil {
		next.SubscriptionID = ""
		if def := l.SelectDefault(views.Subscriptions); def != nil {
			next.SubscriptionID = def.ID
		}
	}

	bookings := views.EffectiveBookings()
	now := s.week.Now()
	instances := s.ListInstancesForWeek(weekOffset, cat.Templates)

	out := &WeekAvailability{
		WeekOffset:             weekOffset,
		Range:                  weekRange,
		Subscriptions:          l.Balances(views.Subscriptions),
		SelectedSubscriptionID: next.SubscriptionID,
	}

	for i := 0; i < 7; i++ {
		date := time.Date(weekRange.Monday.Year(), weekRange.Monday.Month(), weekRange.Monday.Day()+i, 0, 0, 0, 0, weekRange.Monday.Location())
		day := DayAvailability{Date: date}

		list := instances[date.Weekday()]
		sortInstances(list)
		for _, inst := range list {
			key := inst.Key()
			slot := s.evaluateSlot(inst, bookings, views.Subscriptions, l, next.SubscriptionID, next.Rooms[key], now)
			if slot.Room != nil {
				next.Rooms[key] = slot.Room.RoomID
			} else {
				delete(next.Rooms, key)
			}
			day.Slots = append(day.Slots, slot)
		}
		out.Days = append(out.Days, day)
	}
	out.Selection = next

	return out, nil
}

func (s *BookingService) evaluateSlot(
	inst model.SlotInstance,
	bookings []model.Booking,
	subs []model.PackageSubscription,
	l *ledger.Ledger,
	selectedSubscriptionID string,
	previousRoomID string,
	now time.Time,
) SlotAvailability {
	fundingID := ResolveFundingSubscription(&inst.Template, selectedSubscriptionID)
	room := capacity.SelectRoom(inst.Template.Rooms, previousRoomID)

	decision := booking.Evaluate(booking.Candidate{
		Instance:     inst,
		Bookings:     bookings,
		Subscription: ledger.Find(subs, fundingID),
		Room:         room,
		Now:          now,
	}, l)

	slot := SlotAvailability{
		Instance:              inst,
		Availability:          decision.Availability,
		Reason:                decision.Err,
		Booking:               decision.Booking,
		CancelledBooking:      booking.FindCancelled(inst, bookings),
		Room:                  room,
		FundingSubscriptionID: fundingID,
		FreeSeats:             capacity.FreeSeats(inst.Template.Rooms),
		Start:                 calendar.StartInstant(inst.Date, inst.Template.Timeframe),
	}
	if decision.Booking != nil {
		slot.CanCancel = booking.CanCancel(&inst.Template, decision.Booking, now)
	}
	return slot
}

// SubscriptionsView активные подписки с остатками и выбором по умолчанию
type SubscriptionsView struct {
	Balances  []ledger.Balance
	DefaultID string
}

// Subscriptions активные подписки студента для выбора
func (s *BookingService) Subscriptions(ctx context.Context, studentID string) (*SubscriptionsView, error) {
	views, err := s.studentViews(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("load student views: %w", err)
	}
	l := views.Ledger()
	out := &SubscriptionsView{Balances: l.Balances(views.Subscriptions)}
	if def := l.SelectDefault(views.Subscriptions); def != nil {
		out.DefaultID = def.ID
	}
	return out, nil
}

// BookingView запись с шаблоном для отображения
type BookingView struct {
	Booking   model.Booking
	Template  *model.SlotTemplate
	Start     time.Time
	CanCancel bool
}

// Bookings записи студента, новые сверху. CanCancel считается по текущему времени.
func (s *BookingService) Bookings(ctx context.Context, studentID string) ([]BookingView, error) {
	views, err := s.studentViews(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("load student views: %w", err)
	}
	cat, err := s.catalog(ctx, studentID, s.week.Monday(0))
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	now := s.week.Now()
	bookings := views.EffectiveBookings()
	out := make([]BookingView, 0, len(bookings))
	for i := range bookings {
		b := bookings[i]
		tpl := cat.Template(b.BranchSlotID)
		out = append(out, BookingView{
			Booking:   b,
			Template:  tpl,
			Start:     booking.StartInstant(tpl, &b),
			CanCancel: booking.CanCancel(tpl, &b, now),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.After(out[j].Start)
	})
	return out, nil
}

// BookRequest запрос на запись
type BookRequest struct {
	StudentID      string
	Instance       model.SlotInstance
	RoomID         string
	SubscriptionID string // выбранная опекуном; подписка слота имеет приоритет
	Note           string
}

// BookingResult результат успешной записи
type BookingResult struct {
	BookingID string
	Message   string
}

// Book проверяет условия записи локально, отправляет запись на бэкенд и
// перечитывает представления. Повторов нет: повторяет пользователь.
func (s *BookingService) Book(ctx context.Context, req BookRequest) (*BookingResult, error) {
	views, err := s.studentViews(ctx, req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("load student views: %w", err)
	}

	inst := req.Instance
	subscriptionID := ResolveFundingSubscription(&inst.Template, req.SubscriptionID)

	var room *model.RoomOption
	if r, ok := inst.Template.Room(req.RoomID); ok {
		room = r
	}

	decision := booking.Evaluate(booking.Candidate{
		Instance:     inst,
		Bookings:     views.EffectiveBookings(),
		Subscription: ledger.Find(views.Subscriptions, subscriptionID),
		Room:         room,
		Now:          s.week.Now(),
	}, views.Ledger())
	if !decision.CanBook() {
		metrics.BookAttempts.WithLabelValues(metrics.ResultValidation).Inc()
		s.logger.Info("Booking rejected locally",
			zap.String("student_id", req.StudentID),
			zap.String("slot", inst.Key()),
			zap.String("availability", string(decision.Availability)),
			zap.Error(decision.Err))
		return nil, apperror.Validation(decision.Err)
	}

	// То же начало, по которому Evaluate проверял прошедшие занятия
	date := calendar.StartInstant(inst.Date, inst.Template.Timeframe)

	payload := model.BookingPayload{
		StudentID:             req.StudentID,
		BranchSlotID:          inst.Template.ID,
		PackageSubscriptionID: subscriptionID,
		RoomID:                room.RoomID,
		Date:                  date,
	}
	if note := strings.TrimSpace(req.Note); note != "" {
		payload.ParentNote = &note
	}

	started := time.Now()
	res, err := s.backend.CreateBooking(ctx, payload)
	metrics.BackendRequestDuration.WithLabelValues("create_booking").Observe(time.Since(started).Seconds())
	if err != nil {
		return nil, s.bookFailed(ctx, req, err)
	}

	metrics.BookAttempts.WithLabelValues(metrics.ResultOK).Inc()
	s.logger.Info("Slot booked",
		zap.String("booking_id", res.BookingID),
		zap.String("student_id", req.StudentID),
		zap.String("slot", inst.Key()),
		zap.String("room_id", room.RoomID),
		zap.String("subscription_id", subscriptionID))

	// Баланс и вместимость уменьшил бэкенд, перечитываем
	metrics.ViewRefreshes.WithLabelValues(metrics.TriggerBook).Inc()
	if err := s.Refresh(ctx, req.StudentID); err != nil {
		s.logger.Warn("Refresh after booking failed",
			zap.String("student_id", req.StudentID),
			zap.Error(err))
	}

	return &BookingResult{BookingID: res.BookingID, Message: res.Message}, nil
}

func (s *BookingService) bookFailed(ctx context.Context, req BookRequest, err error) error {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		metrics.BookAttempts.WithLabelValues(metrics.ResultBackend).Inc()
		s.logger.Error("Failed to create booking",
			zap.String("student_id", req.StudentID),
			zap.String("slot", req.Instance.Key()),
			zap.Error(err))
		return &apperror.Error{Kind: apperror.KindBackend, Message: apperror.FallbackMessage, Err: err}
	}

	if apperror.IsAlreadyBooked(appErr) {
		metrics.BookAttempts.WithLabelValues(metrics.ResultTransient).Inc()
		s.logger.Info("Booking hit cancel/rebook race",
			zap.String("student_id", req.StudentID),
			zap.String("slot", req.Instance.Key()),
			zap.String("backend_message", appErr.Message))

		metrics.ViewRefreshes.WithLabelValues(metrics.TriggerRace).Inc()
		if _, refreshErr := s.loadStudentViews(ctx, req.StudentID); refreshErr != nil {
			s.logger.Warn("Refresh after race failed",
				zap.String("student_id", req.StudentID),
				zap.Error(refreshErr))
		}
		return apperror.Transient(RetryAfterCancelMessage, err)
	}

	metrics.BookAttempts.WithLabelValues(metrics.ResultBackend).Inc()
	s.logger.Error("Backend rejected booking",
		zap.String("student_id", req.StudentID),
		zap.String("slot", req.Instance.Key()),
		zap.Int("status", appErr.Status),
		zap.String("backend_message", appErr.Message))
	return err
}

// CancelRequest запрос на отмену записи
type CancelRequest struct {
	StudentID string
	Booking   model.Booking
	Template  *model.SlotTemplate // для времени начала; nil - берётся дата записи
}

// CancelResult результат успешной отмены
type CancelResult struct {
	BookingID string
	RefreshIn time.Duration
}

// Cancel отменяет запись, если до начала больше часа. Обновление представлений
// откладывается, чтобы бэкенд успел применить отмену.
func (s *BookingService) Cancel(ctx context.Context, req CancelRequest) (*CancelResult, error) {
	if err := booking.CheckCancel(req.Template, &req.Booking, s.week.Now()); err != nil {
		metrics.CancelAttempts.WithLabelValues(metrics.ResultValidation).Inc()
		s.logger.Info("Cancellation rejected locally",
			zap.String("booking_id", req.Booking.ID),
			zap.String("student_id", req.StudentID),
			zap.Error(err))
		return nil, apperror.Validation(err)
	}

	started := time.Now()
	err := s.backend.CancelBooking(ctx, req.Booking.ID, req.StudentID)
	metrics.BackendRequestDuration.WithLabelValues("cancel_booking").Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.CancelAttempts.WithLabelValues(metrics.ResultBackend).Inc()
		s.logger.Error("Failed to cancel booking",
			zap.String("booking_id", req.Booking.ID),
			zap.String("student_id", req.StudentID),
			zap.Error(err))
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, &apperror.Error{Kind: apperror.KindBackend, Message: apperror.FallbackMessage, Err: err}
	}

	metrics.CancelAttempts.WithLabelValues(metrics.ResultOK).Inc()
	s.logger.Info("Booking cancelled",
		zap.String("booking_id", req.Booking.ID),
		zap.String("student_id", req.StudentID))

	s.cache.markCancelled(req.StudentID, req.Booking.ID)
	s.scheduleRefresh(req.StudentID, s.cfg.CancelRefreshDelay)

	return &CancelResult{BookingID: req.Booking.ID, RefreshIn: s.cfg.CancelRefreshDelay}, nil
}

// CancelByID находит запись и шаблон в снимках и отменяет её
func (s *BookingService) CancelByID(ctx context.Context, studentID, bookingID string) (*CancelResult, error) {
	views, err := s.studentViews(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("load student views: %w", err)
	}

	var found *model.Booking
	bookings := views.EffectiveBookings()
	for i := range bookings {
		if bookings[i].ID == bookingID {
			found = &bookings[i]
			break
		}
	}
	if found == nil {
		return nil, apperror.Validation(ErrBookingNotFound)
	}

	cat, err := s.catalog(ctx, studentID, s.week.Monday(0))
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	return s.Cancel(ctx, CancelRequest{
		StudentID: studentID,
		Booking:   *found,
		Template:  cat.Template(found.BranchSlotID),
	})
}

func (s *BookingService) scheduleRefresh(studentID string, delay time.Duration) {
	metrics.ViewRefreshes.WithLabelValues(metrics.TriggerCancel).Inc()
	if s.refresher != nil {
		s.refresher.ScheduleRefresh(studentID, delay)
		return
	}
	time.AfterFunc(delay, func() {
		if err := s.Refresh(context.Background(), studentID); err != nil {
			s.logger.Warn("Delayed refresh failed",
				zap.String("student_id", studentID),
				zap.Error(err))
		}
	})
}

func sortInstances(list []model.SlotInstance) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].Date.Equal(list[j].Date) {
			return list[i].Date.Before(list[j].Date)
		}
		si, sj := startOf(list[i]), startOf(list[j])
		if si != sj {
			return si < sj
		}
		return list[i].Template.ID < list[j].Template.ID
	})
}

func startOf(inst model.SlotInstance) string {
	if inst.Template.Timeframe == nil {
		return ""
	}
	return inst.Template.Timeframe.StartTime
}
