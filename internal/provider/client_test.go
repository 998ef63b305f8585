package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Freeeeeet/classbooking_bot/internal/apperror"
	"github.com/Freeeeeet/classbooking_bot/internal/model"
	"github.com/Freeeeeet/classbooking_bot/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var ict = time.FixedZone("ICT", 7*60*60)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "secret", time.Second, ict, zap.NewNop())
}

func TestFetchSlotTemplates_QueryAndHeaders(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/students/s-1/branch-slots", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "25", r.URL.Query().Get("pageSize"))
		assert.Equal(t, "2025-01-06", r.URL.Query().Get("weekStart"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		_, _ = w.Write([]byte(`{
			"items": [{
				"id": "tpl-1", "weekday": 5, "branchId": "b-1",
				"timeframe": {"id": "tf", "name": "Evening", "startTime": "17:00:00", "endTime": "18:00:00"},
				"slotType": {"name": "Robotics", "description": ""},
				"rooms": [{"roomId": "r-1", "roomName": "A", "capacity": 10, "availableCapacity": 3}]
			}],
			"total": 26, "page": 2, "pageSize": 25
		}`))
	})

	page, err := client.FetchSlotTemplates(context.Background(), service.CatalogQuery{
		StudentID: "s-1",
		WeekStart: time.Date(2025, 1, 6, 0, 0, 0, 0, ict),
		Page:      2,
		PageSize:  25,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 26, page.Total)

	tpl := page.Items[0]
	assert.Equal(t, time.Friday, tpl.TimeWeekday())
	require.Len(t, tpl.Rooms, 1)
	require.NotNil(t, tpl.Rooms[0].AvailableCapacity)
	assert.Equal(t, 3, *tpl.Rooms[0].AvailableCapacity)
}

func TestFetchSuitablePackageTotals_SkipsUnknownTotals(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/students/s-1/suitable-packages", r.URL.Path)
		_, _ = w.Write([]byte(`[{"packageId":"p-1","totalSlots":12},{"packageId":"p-2"}]`))
	})

	totals, err := client.FetchSuitablePackageTotals(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"p-1": 12}, totals)
}

func TestFetchBookings_ParsesDates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/students/s-1/student-slots", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"items": [
				{"id": "b-1", "branchSlotId": "tpl-1", "date": "2025-01-10T17:00:00", "status": "Booked"},
				{"id": "b-2", "branchSlotId": "tpl-1", "date": "2025-01-03T10:00:00Z", "status": "cancelled"}
			],
			"total": 2, "page": 1, "pageSize": 50
		}`))
	})

	page, err := client.FetchBookings(context.Background(), "s-1", 1, 50)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)

	assert.Equal(t, "b-1", page.Items[0].ID)
	assert.True(t, page.Items[0].Date.Equal(time.Date(2025, 1, 10, 17, 0, 0, 0, ict)))
	assert.True(t, page.Items[1].Date.Equal(time.Date(2025, 1, 3, 17, 0, 0, 0, ict)))
	assert.True(t, page.Items[1].IsCancelled())
}

func TestCreateBooking_SendsPayload(t *testing.T) {
	note := "bring a jacket"
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/student-slots", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "s-1", body["studentId"])
		assert.Equal(t, "tpl-1", body["branchSlotId"])
		assert.Equal(t, "2025-01-10T17:00:00+07:00", body["date"])
		assert.Equal(t, note, body["parentNote"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"bookingId":"b-9","message":"Booked"}`))
	})

	res, err := client.CreateBooking(context.Background(), model.BookingPayload{
		StudentID:             "s-1",
		BranchSlotID:          "tpl-1",
		PackageSubscriptionID: "sub-1",
		RoomID:                "r-1",
		Date:                  time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC),
		ParentNote:            &note,
	})
	require.NoError(t, err)
	assert.Equal(t, "b-9", res.BookingID)
}

func TestCreateBooking_ErrorPayload(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantRace    bool
	}{
		{name: "message", status: http.StatusConflict, body: `{"message":"Slot already booked"}`, wantMessage: "Slot already booked", wantRace: true},
		{name: "error field", status: http.StatusBadRequest, body: `{"error":"Room is closed"}`, wantMessage: "Room is closed"},
		{name: "title field", status: http.StatusBadRequest, body: `{"title":"One or more validation errors occurred."}`, wantMessage: "One or more validation errors occurred."},
		{name: "no body", status: http.StatusInternalServerError, body: ``, wantMessage: apperror.FallbackMessage},
		{name: "race code", status: http.StatusConflict, body: `{"message":"Conflict","code":"SLOT_ALREADY_BOOKED_TRANSIENT"}`, wantMessage: "Conflict", wantRace: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.CreateBooking(context.Background(), model.BookingPayload{StudentID: "s-1"})
			require.Error(t, err)

			var appErr *apperror.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, apperror.KindBackend, appErr.Kind)
			assert.Equal(t, tt.status, appErr.Status)
			assert.Equal(t, tt.wantMessage, appErr.Message)
			assert.Equal(t, tt.wantRace, apperror.IsAlreadyBooked(appErr))
		})
	}
}

func TestCancelBooking(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/student-slots/b-1", r.URL.Path)
		assert.Equal(t, "s-1", r.URL.Query().Get("studentId"))
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.CancelBooking(context.Background(), "b-1", "s-1"))
}

func TestNetworkErrorIsNotAppError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := NewClient(srv.URL, "", time.Second, ict, zap.NewNop())

	_, err := client.FetchSubscriptions(context.Background(), "s-1")
	require.Error(t, err)
	assert.Zero(t, apperror.KindOf(err))
	assert.Equal(t, apperror.FallbackMessage, apperror.UserMessage(err))
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2025-01-10", ict)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 10, 0, 0, 0, 0, ict), got)

	_, err = ParseDate("10/01/2025", ict)
	assert.Error(t, err)
}

func TestFetchSubscriptions_DatesWithAndWithoutZone(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/students/s-1/package-subscriptions", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"id": "sub-1", "status": "Active", "usedSlot": 2, "totalSlots": 10,
			 "startDate": "2025-06-01T00:00:00", "endDate": "2025-09-01"},
			{"id": "sub-2", "status": "Expired", "usedSlot": 0,
			 "startDate": "2025-01-01T00:00:00Z", "endDate": null}
		]`))
	})

	subs, err := client.FetchSubscriptions(context.Background(), "s-1")
	require.NoError(t, err)
	require.Len(t, subs, 2)

	require.NotNil(t, subs[0].StartDate)
	require.NotNil(t, subs[0].EndDate)
	assert.True(t, subs[0].StartDate.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, ict)))
	assert.True(t, subs[0].EndDate.Equal(time.Date(2025, 9, 1, 0, 0, 0, 0, ict)))
	require.NotNil(t, subs[0].TotalSlots)
	assert.Equal(t, 10, *subs[0].TotalSlots)
	assert.Equal(t, 2, subs[0].UsedSlot)

	require.NotNil(t, subs[1].StartDate)
	assert.True(t, subs[1].StartDate.Equal(time.Date(2025, 1, 1, 7, 0, 0, 0, ict)))
	assert.Nil(t, subs[1].EndDate)
}

func TestFetchSubscriptions_BadDate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id": "sub-1", "status": "Active", "startDate": "01.06.2025"}]`))
	})

	_, err := client.FetchSubscriptions(context.Background(), "s-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sub-1")
}

func TestFetchBookings_CreatedAtWithAndWithoutZone(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"items": [
				{"id": "b-1", "branchSlotId": "tpl-1", "date": "2025-06-02T00:00:00", "status": "Booked", "createdAt": "2025-06-01T10:00:00"},
				{"id": "b-2", "branchSlotId": "tpl-1", "date": "2025-06-02T00:00:00", "status": "Booked", "createdAt": "2025-06-01T03:00:00Z"},
				{"id": "b-3", "branchSlotId": "tpl-1", "date": "2025-06-02T00:00:00", "status": "Booked"}
			],
			"total": 3, "page": 1, "pageSize": 50
		}`))
	})

	page, err := client.FetchBookings(context.Background(), "s-1", 1, 50)
	require.NoError(t, err)
	require.Len(t, page.Items, 3)

	want := time.Date(2025, 6, 1, 10, 0, 0, 0, ict)
	assert.True(t, page.Items[0].CreatedAt.Equal(want))
	assert.True(t, page.Items[1].CreatedAt.Equal(want))
	assert.True(t, page.Items[2].CreatedAt.IsZero())
}
