package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/classbooking_bot/internal/ledger"
	"github.com/Freeeeeet/classbooking_bot/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	maxPages = 100

	// maxCachedWeeks сколько недель студента держать в кэше каталогов
	maxCachedWeeks = 8
)

// StudentViews снимок подписок, итогов пакетов и записей студента
type StudentViews struct {
	Subscriptions []model.PackageSubscription // только активные
	PackageTotals map[string]int
	Bookings      []model.Booking
	FetchedAt     time.Time

	// Записи, отмену которых бэкенд уже подтвердил, но снимок ещё старый
	cancelledIDs map[string]struct{}
}

// Ledger калькулятор остатков по этому снимку
func (v *StudentViews) Ledger() *ledger.Ledger {
	return ledger.New(v.PackageTotals)
}

// EffectiveBookings записи с учётом подтверждённых отмен
func (v *StudentViews) EffectiveBookings() []model.Booking {
	if len(v.cancelledIDs) == 0 {
		return v.Bookings
	}
	out := make([]model.Booking, len(v.Bookings))
	copy(out, v.Bookings)
	for i := range out {
		if _, ok := v.cancelledIDs[out[i].ID]; ok {
			out[i].Status = model.BookingStatusCancelled
		}
	}
	return out
}

// Catalog снимок каталога на неделю
type Catalog struct {
	WeekStart time.Time
	Templates []model.SlotTemplate
	FetchedAt time.Time
}

// Template шаблон по ID
func (c *Catalog) Template(id string) *model.SlotTemplate {
	for i := range c.Templates {
		if c.Templates[i].ID == id {
			return &c.Templates[i]
		}
	}
	return nil
}

type catalogKey struct {
	studentID string
	week      string
}

// viewCache хранит последние прочитанные снимки. Счётчики в нём не правятся:
// после записи или отмены снимок заменяется новым чтением.
type viewCache struct {
	mu       sync.RWMutex
	students map[string]*StudentViews
	catalogs map[catalogKey]*Catalog
	viewed   map[catalogKey]uint64 // порядковый номер последнего просмотра недели
	seq      uint64
}

func newViewCache() *viewCache {
	return &viewCache{
		students: make(map[string]*StudentViews),
		catalogs: make(map[catalogKey]*Catalog),
		viewed:   make(map[catalogKey]uint64),
	}
}

func weekKey(weekStart time.Time) string {
	return weekStart.Format("2006-01-02")
}

func (c *viewCache) student(studentID string) (*StudentViews, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.students[studentID]
	return v, ok
}

// putStudent заменяет снимок студента. Отмены из прежнего снимка, которых
// бэкенд ещё не показал, переносятся под той же блокировкой, что и
// markCancelled.
func (c *viewCache) putStudent(studentID string, v *StudentViews) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.students[studentID]; ok {
		v.cancelledIDs = pendingCancels(prev.cancelledIDs, v.Bookings)
	}
	c.students[studentID] = v
}

func (c *viewCache) markCancelled(studentID, bookingID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.students[studentID]
	if !ok {
		return
	}
	ids := make(map[string]struct{}, len(v.cancelledIDs)+1)
	for id := range v.cancelledIDs {
		ids[id] = struct{}{}
	}
	ids[bookingID] = struct{}{}
	updated := *v
	updated.cancelledIDs = ids
	c.students[studentID] = &updated
}

// catalog каталог недели из кэша, отмечает неделю как просмотренную
func (c *viewCache) catalog(studentID string, weekStart time.Time) (*Catalog, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := catalogKey{studentID, weekKey(weekStart)}
	v, ok := c.catalogs[key]
	if ok {
		c.seq++
		c.viewed[key] = c.seq
	}
	return v, ok
}

// putCatalog сохраняет каталог. Перечитывание не меняет порядок просмотра.
func (c *viewCache) putCatalog(studentID string, cat *Catalog) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := catalogKey{studentID, weekKey(cat.WeekStart)}
	c.catalogs[key] = cat
	if _, ok := c.viewed[key]; !ok {
		c.seq++
		c.viewed[key] = c.seq
	}
}

// pruneWeeks убирает из кэша прошедшие недели студента (раньше current) и
// всё сверх keep последних просмотренных. Возвращает оставшиеся недели.
func (c *viewCache) pruneWeeks(studentID string, current time.Time, keep int) []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	currentKey := weekKey(current)
	var live []catalogKey
	for k := range c.catalogs {
		if k.studentID != studentID {
			continue
		}
		// weekKey в формате YYYY-MM-DD сравнивается как дата
		if k.week < currentKey {
			c.dropCatalog(k)
			continue
		}
		live = append(live, k)
	}

	sort.Slice(live, func(i, j int) bool {
		return c.viewed[live[i]] > c.viewed[live[j]]
	})
	if len(live) > keep {
		for _, k := range live[keep:] {
			c.dropCatalog(k)
		}
		live = live[:keep]
	}

	out := make([]time.Time, 0, len(live))
	for _, k := range live {
		out = append(out, c.catalogs[k].WeekStart)
	}
	return out
}

// dropCatalog вызывать под mu.Lock
func (c *viewCache) dropCatalog(k catalogKey) {
	delete(c.catalogs, k)
	delete(c.viewed, k)
}

// studentIDs все студенты, по которым есть снимки
func (c *viewCache) studentIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for id := range c.students {
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for k := range c.catalogs {
		if _, ok := seen[k.studentID]; !ok {
			seen[k.studentID] = struct{}{}
			out = append(out, k.studentID)
		}
	}
	return out
}

// fetchAll читает все страницы постраничного запроса
func fetchAll[T any](ctx context.Context, pageSize int, fetch func(ctx context.Context, page, size int) (*model.Page[T], error)) ([]T, error) {
	var out []T
	for page := 1; page <= maxPages; page++ {
		p, err := fetch(ctx, page, pageSize)
		if err != nil {
			return nil, err
		}
		if p == nil {
			break
		}
		out = append(out, p.Items...)
		if len(p.Items) < pageSize || (p.Total > 0 && len(out) >= p.Total) {
			break
		}
	}
	return out, nil
}

// loadStudentViews читает подписки, итоги пакетов и записи параллельно.
// Ошибка чтения итогов пакетов не роняет представление.
func (s *BookingService) loadStudentViews(ctx context.Context, studentID string) (*StudentViews, error) {
	var (
		subs     []model.PackageSubscription
		totals   map[string]int
		bookings []model.Booking
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		all, err := s.backend.FetchSubscriptions(gctx, studentID)
		if err != nil {
			return fmt.Errorf("fetch subscriptions: %w", err)
		}
		subs = ledger.Active(all)
		return nil
	})
	g.Go(func() error {
		t, err := s.backend.FetchSuitablePackageTotals(gctx, studentID)
		if err != nil {
			s.logger.Warn("Package totals unavailable, falling back",
				zap.String("student_id", studentID),
				zap.Error(err))
			return nil
		}
		totals = t
		return nil
	})
	g.Go(func() error {
		all, err := fetchAll(gctx, s.cfg.PageSize, func(ctx context.Context, page, size int) (*model.Page[model.Booking], error) {
			return s.backend.FetchBookings(ctx, studentID, page, size)
		})
		if err != nil {
			return fmt.Errorf("fetch bookings: %w", err)
		}
		bookings = all
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	v := &StudentViews{
		Subscriptions: subs,
		PackageTotals: totals,
		Bookings:      bookings,
		FetchedAt:     s.week.Now(),
	}
	s.cache.putStudent(studentID, v)
	return v, nil
}

// pendingCancels подтверждённые отмены, которые бэкенд ещё показывает активными
func pendingCancels(ids map[string]struct{}, bookings []model.Booking) map[string]struct{} {
	if len(ids) == 0 {
		return nil
	}
	out := make(map[string]struct{})
	for i := range bookings {
		if _, ok := ids[bookings[i].ID]; ok && !bookings[i].IsCancelled() {
			out[bookings[i].ID] = struct{}{}
		}
	}
	return out
}

func (s *BookingService) loadCatalog(ctx context.Context, studentID string, weekStart time.Time) (*Catalog, error) {
	templates, err := fetchAll(ctx, s.cfg.PageSize, func(ctx context.Context, page, size int) (*model.Page[model.SlotTemplate], error) {
		return s.backend.FetchSlotTemplates(ctx, CatalogQuery{
			StudentID: studentID,
			WeekStart: weekStart,
			Page:      page,
			PageSize:  size,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("fetch slot templates: %w", err)
	}

	cat := &Catalog{WeekStart: weekStart, Templates: templates, FetchedAt: s.week.Now()}
	s.cache.putCatalog(studentID, cat)
	return cat, nil
}

func (s *BookingService) studentViews(ctx context.Context, studentID string) (*StudentViews, error) {
	if v, ok := s.cache.student(studentID); ok {
		return v, nil
	}
	return s.loadStudentViews(ctx, studentID)
}

func (s *BookingService) catalog(ctx context.Context, studentID string, weekStart time.Time) (*Catalog, error) {
	if c, ok := s.cache.catalog(studentID, weekStart); ok {
		return c, nil
	}
	return s.loadCatalog(ctx, studentID, weekStart)
}

// Refresh заново читает все представления студента: подписки, записи
// и каталоги недель, которые ещё не прошли (не больше maxCachedWeeks
// последних просмотренных). Остальные недели выбрасываются из кэша.
func (s *BookingService) Refresh(ctx context.Context, studentID string) error {
	weeks := s.cache.pruneWeeks(studentID, s.week.Monday(0), maxCachedWeeks)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.loadStudentViews(gctx, studentID)
		return err
	})
	for _, w := range weeks {
		w := w
		g.Go(func() error {
			_, err := s.loadCatalog(gctx, studentID, w)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("refresh views: %w", err)
	}

	s.logger.Debug("Views refreshed",
		zap.String("student_id", studentID),
		zap.Int("weeks", len(weeks)))
	return nil
}

// RefreshAll обновляет представления всех студентов из кэша
func (s *BookingService) RefreshAll(ctx context.Context) error {
	var failed int
	ids := s.cache.studentIDs()
	for _, id := range ids {
		if err := s.Refresh(ctx, id); err != nil {
			failed++
			s.logger.Error("Failed to refresh views",
				zap.String("student_id", id),
				zap.Error(err))
		}
	}
	if failed > 0 {
		return fmt.Errorf("refresh failed for %d of %d students", failed, len(ids))
	}
	return nil
}
