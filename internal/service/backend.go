package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/classbooking_bot/internal/model"
)

// CatalogQuery запрос каталога слотов. WeekStart - понедельник недели,
// для которой бэкенд считает availableCapacity; нулевое значение - текущая неделя.
type CatalogQuery struct {
	StudentID string
	WeekStart time.Time
	Page      int
	PageSize  int
}

// Backend система записи провайдера: каталог, подписки, записи.
// Реализации: repository.Store (Postgres) и provider.Client (HTTP).
type Backend interface {
	FetchSlotTemplates(ctx context.Context, q CatalogQuery) (*model.Page[model.SlotTemplate], error)
	FetchSubscriptions(ctx context.Context, studentID string) ([]model.PackageSubscription, error)
	FetchSuitablePackageTotals(ctx context.Context, studentID string) (map[string]int, error)
	FetchBookings(ctx context.Context, studentID string, page, pageSize int) (*model.Page[model.Booking], error)
	CreateBooking(ctx context.Context, payload model.BookingPayload) (*model.CreateBookingResult, error)
	CancelBooking(ctx context.Context, bookingID, studentID string) error
}

// Refresher откладывает обновление представлений студента
type Refresher interface {
	ScheduleRefresh(studentID string, delay time.Duration)
}
