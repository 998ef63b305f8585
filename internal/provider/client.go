// Package provider HTTP/JSON клиент системы записи провайдера.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/classbooking_bot/internal/apperror"
	"github.com/Freeeeeet/classbooking_bot/internal/infra/metrics"
	"github.com/Freeeeeet/classbooking_bot/internal/model"
	"github.com/Freeeeeet/classbooking_bot/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxErrorBody = 4096

// Client реализует service.Backend поверх REST API провайдера
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	loc        *time.Location
	logger     *zap.Logger
}

var _ service.Backend = (*Client)(nil)

func NewClient(baseURL, token string, timeout time.Duration, loc *time.Location, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		loc:        loc,
		logger:     logger,
	}
}

func (c *Client) FetchSlotTemplates(ctx context.Context, q service.CatalogQuery) (*model.Page[model.SlotTemplate], error) {
	params := pageParams(q.Page, q.PageSize)
	if !q.WeekStart.IsZero() {
		params.Set("weekStart", q.WeekStart.Format(time.DateOnly))
	}

	var page model.Page[model.SlotTemplate]
	path := "/students/" + url.PathEscape(q.StudentID) + "/branch-slots"
	if err := c.do(ctx, "fetch_slot_templates", http.MethodGet, path, params, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// wireSubscription даты подписки приходят в тех же форматах, что и даты записей
type wireSubscription struct {
	model.PackageSubscription
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

func (c *Client) FetchSubscriptions(ctx context.Context, studentID string) ([]model.PackageSubscription, error) {
	var wire []wireSubscription
	path := "/students/" + url.PathEscape(studentID) + "/package-subscriptions"
	if err := c.do(ctx, "fetch_subscriptions", http.MethodGet, path, nil, nil, &wire); err != nil {
		return nil, err
	}

	subs := make([]model.PackageSubscription, 0, len(wire))
	for _, w := range wire {
		sub := w.PackageSubscription
		var err error
		if sub.StartDate, err = parseOptionalDate(w.StartDate, c.loc); err != nil {
			return nil, fmt.Errorf("parse subscription %s start date: %w", sub.ID, err)
		}
		if sub.EndDate, err = parseOptionalDate(w.EndDate, c.loc); err != nil {
			return nil, fmt.Errorf("parse subscription %s end date: %w", sub.ID, err)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

type suitablePackage struct {
	PackageID  string `json:"packageId"`
	TotalSlots *int   `json:"totalSlots"`
}

func (c *Client) FetchSuitablePackageTotals(ctx context.Context, studentID string) (map[string]int, error) {
	var packages []suitablePackage
	path := "/students/" + url.PathEscape(studentID) + "/suitable-packages"
	if err := c.do(ctx, "fetch_package_totals", http.MethodGet, path, nil, nil, &packages); err != nil {
		return nil, err
	}

	totals := make(map[string]int, len(packages))
	for _, p := range packages {
		if p.PackageID != "" && p.TotalSlots != nil {
			totals[p.PackageID] = *p.TotalSlots
		}
	}
	return totals, nil
}

// wireBooking даты записи приходят как RFC3339 или без часового пояса
type wireBooking struct {
	model.Booking
	Date      string `json:"date"`
	CreatedAt string `json:"createdAt"`
}

func (c *Client) FetchBookings(ctx context.Context, studentID string, page, pageSize int) (*model.Page[model.Booking], error) {
	var wire model.Page[wireBooking]
	path := "/students/" + url.PathEscape(studentID) + "/student-slots"
	if err := c.do(ctx, "fetch_bookings", http.MethodGet, path, pageParams(page, pageSize), nil, &wire); err != nil {
		return nil, err
	}

	out := &model.Page[model.Booking]{
		Items:    make([]model.Booking, 0, len(wire.Items)),
		Total:    wire.Total,
		Page:     wire.Page,
		PageSize: wire.PageSize,
	}
	for _, w := range wire.Items {
		b := w.Booking
		date, err := ParseDate(w.Date, c.loc)
		if err != nil {
			return nil, fmt.Errorf("parse booking %s date: %w", b.ID, err)
		}
		b.Date = date
		created, err := parseOptionalDate(w.CreatedAt, c.loc)
		if err != nil {
			return nil, fmt.Errorf("parse booking %s created at: %w", b.ID, err)
		}
		if created != nil {
			b.CreatedAt = *created
		}
		out.Items = append(out.Items, b)
	}
	return out, nil
}

type bookingRequest struct {
	StudentID             string  `json:"studentId"`
	BranchSlotID          string  `json:"branchSlotId"`
	PackageSubscriptionID string  `json:"packageSubscriptionId"`
	RoomID                string  `json:"roomId"`
	Date                  string  `json:"date"`
	ParentNote            *string `json:"parentNote,omitempty"`
}

func (c *Client) CreateBooking(ctx context.Context, p model.BookingPayload) (*model.CreateBookingResult, error) {
	body := bookingRequest{
		StudentID:             p.StudentID,
		BranchSlotID:          p.BranchSlotID,
		PackageSubscriptionID: p.PackageSubscriptionID,
		RoomID:                p.RoomID,
		Date:                  p.Date.In(c.loc).Format(time.RFC3339),
		ParentNote:            p.ParentNote,
	}

	var res model.CreateBookingResult
	if err := c.do(ctx, "create_booking", http.MethodPost, "/student-slots", nil, body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) CancelBooking(ctx context.Context, bookingID, studentID string) error {
	params := url.Values{}
	params.Set("studentId", studentID)
	return c.do(ctx, "cancel_booking", http.MethodDelete, "/student-slots/"+url.PathEscape(bookingID), params, nil, nil)
}

// do выполняет запрос. Ответ не 2xx превращается в apperror Backend с
// сообщением из тела; сетевые ошибки возвращаются обёрнутыми.
func (c *Client) do(ctx context.Context, op, method, path string, params url.Values, in, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.BackendRequestDuration.WithLabelValues("http_" + op).Observe(time.Since(started).Seconds())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		appErr := apperror.FromResponse(resp.StatusCode, body)
		c.logger.Warn("Provider request failed",
			zap.String("operation", op),
			zap.String("request_id", requestID),
			zap.Int("status", resp.StatusCode),
			zap.String("message", appErr.Message))
		return appErr
	}

	if out == nil {
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", op, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

func pageParams(page, pageSize int) url.Values {
	params := url.Values{}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		params.Set("pageSize", strconv.Itoa(pageSize))
	}
	return params
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// ParseDate разбирает дату записи. Значения без часового пояса считаются
// временем филиала.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date %q", value)
}

// parseOptionalDate пустое значение (поле отсутствует или null) даёт nil
func parseOptionalDate(value string, loc *time.Location) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := ParseDate(value, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
