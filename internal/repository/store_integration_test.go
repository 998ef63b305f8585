//go:build integration

package repository

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/Freeeeeet/classbooking_bot/internal/app"
	"github.com/Freeeeeet/classbooking_bot/internal/apperror"
	"github.com/Freeeeeet/classbooking_bot/internal/calendar"
	"github.com/Freeeeeet/classbooking_bot/internal/model"
	"github.com/Freeeeeet/classbooking_bot/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Запуск: TEST_DB_DSN=postgres://... go test -tags integration ./internal/repository/...

// newTestPool пул в отдельной схеме с применёнными миграциями
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN is not set")
	}
	ctx := context.Background()

	schema := "it_" + uuid.New().String()[:8]
	admin, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
		admin.Close()
	})

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	migrator, err := app.NewMigrator(pool, "../../migrations", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, migrator.Run(ctx))
	require.NoError(t, migrator.Close())

	return pool
}

func seedFridayClass(t *testing.T, pool *pgxpool.Pool, students ...string) {
	t.Helper()
	ctx := context.Background()

	stmts := []string{
		`INSERT INTO branches (id, name) VALUES ('br-1', 'Central')`,
		`INSERT INTO rooms (id, branch_id, name) VALUES ('room-a', 'br-1', 'A')`,
		`INSERT INTO packages (id, branch_id, name, total_slots) VALUES ('pkg-10', 'br-1', 'Robotics 10', 10)`,
		`INSERT INTO slot_templates (id, branch_id, weekday, timeframe_id, timeframe_name, start_time, end_time, slot_type_name)
		 VALUES ('tpl-fri', 'br-1', 5, 'tf-1', 'Evening', '17:00', '18:00', 'Robotics')`,
		`INSERT INTO slot_template_rooms (slot_template_id, room_id, capacity) VALUES ('tpl-fri', 'room-a', 2)`,
	}
	for _, s := range stmts {
		_, err := pool.Exec(ctx, s)
		require.NoError(t, err)
	}
	for _, st := range students {
		_, err := pool.Exec(ctx, `INSERT INTO students (id, branch_id, full_name) VALUES ($1, 'br-1', $1)`, st)
		require.NoError(t, err)
		_, err = pool.Exec(ctx, `INSERT INTO package_subscriptions (id, student_id, package_id) VALUES ($1, $2, 'pkg-10')`, "sub-"+st, st)
		require.NoError(t, err)
	}
}

func fridayPayload(student string) model.BookingPayload {
	return model.BookingPayload{
		StudentID:             student,
		BranchSlotID:          "tpl-fri",
		PackageSubscriptionID: "sub-" + student,
		RoomID:                "room-a",
		Date:                  time.Date(2025, 1, 10, 17, 0, 0, 0, time.UTC),
	}
}

func requireBackendError(t *testing.T, err error, status int, message string) {
	t.Helper()
	require.Error(t, err)
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.KindBackend, appErr.Kind)
	assert.Equal(t, status, appErr.Status)
	assert.Equal(t, message, appErr.Message)
}

func usedSlots(t *testing.T, store *Store, student string) int {
	t.Helper()
	subs, err := store.FetchSubscriptions(context.Background(), student)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	return subs[0].UsedSlot
}

func activeBookings(t *testing.T, store *Store, student string) []model.Booking {
	t.Helper()
	page, err := store.FetchBookings(context.Background(), student, 1, 50)
	require.NoError(t, err)
	var out []model.Booking
	for _, b := range page.Items {
		if !b.IsCancelled() {
			out = append(out, b)
		}
	}
	return out
}

func TestStore_BookingLifecycle(t *testing.T) {
	pool := newTestPool(t)
	seedFridayClass(t, pool, "st-1", "st-2", "st-3")

	// Среда 8 января 2025, 10:00 UTC
	clock := calendar.NewFixedClock(time.Date(2025, 1, 8, 10, 0, 0, 0, time.UTC))
	store := NewStore(pool, calendar.NewWeek(clock, time.UTC), zap.NewNop())
	ctx := context.Background()

	first, err := store.CreateBooking(ctx, fridayPayload("st-1"))
	require.NoError(t, err)
	assert.Equal(t, 1, usedSlots(t, store, "st-1"))

	t.Run("second active booking is a conflict", func(t *testing.T) {
		_, err := store.CreateBooking(ctx, fridayPayload("st-1"))
		requireBackendError(t, err, http.StatusConflict, MsgSlotAlreadyBooked)

		var appErr *apperror.Error
		require.ErrorAs(t, err, &appErr)
		assert.True(t, apperror.IsAlreadyBooked(appErr))
		assert.Equal(t, 1, usedSlots(t, store, "st-1"))
	})

	t.Run("room capacity is enforced", func(t *testing.T) {
		_, err := store.CreateBooking(ctx, fridayPayload("st-2"))
		require.NoError(t, err)

		_, err = store.CreateBooking(ctx, fridayPayload("st-3"))
		requireBackendError(t, err, http.StatusConflict, MsgRoomFull)
		assert.Equal(t, 0, usedSlots(t, store, "st-3"))

		page, err := store.FetchSlotTemplates(ctx, service.CatalogQuery{
			StudentID: "st-3",
			WeekStart: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		require.NotNil(t, page.Items[0].Rooms[0].AvailableCapacity)
		assert.Equal(t, 0, *page.Items[0].Rooms[0].AvailableCapacity)
	})

	t.Run("cancel returns the session and allows rebooking", func(t *testing.T) {
		require.NoError(t, store.CancelBooking(ctx, first.BookingID, "st-1"))
		assert.Equal(t, 0, usedSlots(t, store, "st-1"))
		assert.Empty(t, activeBookings(t, store, "st-1"))

		again, err := store.CreateBooking(ctx, fridayPayload("st-1"))
		require.NoError(t, err)
		assert.NotEqual(t, first.BookingID, again.BookingID)
		assert.Equal(t, 1, usedSlots(t, store, "st-1"))

		page, err := store.FetchBookings(ctx, "st-1", 1, 50)
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
		active := activeBookings(t, store, "st-1")
		require.Len(t, active, 1)
		assert.Equal(t, again.BookingID, active[0].ID)
		assert.True(t, active[0].Date.Equal(time.Date(2025, 1, 10, 17, 0, 0, 0, time.UTC)))

		err = store.CancelBooking(ctx, first.BookingID, "st-1")
		requireBackendError(t, err, http.StatusConflict, MsgBookingNotActive)
	})

	t.Run("cancellation closes an hour before start", func(t *testing.T) {
		active := activeBookings(t, store, "st-2")
		require.Len(t, active, 1)

		clock.Set(time.Date(2025, 1, 10, 16, 15, 0, 0, time.UTC))
		err := store.CancelBooking(ctx, active[0].ID, "st-2")
		requireBackendError(t, err, http.StatusConflict, MsgCancelWindowClosed)
		assert.Equal(t, 1, usedSlots(t, store, "st-2"), "booking %s must stay active", active[0].ID)
	})
}
