// Package ledger считает остаток занятий по пакетам студента и выбирает
// подписку, которая оплатит запись.
package ledger

import (
	"regexp"
	"strconv"

	"github.com/Freeeeeet/classbooking_bot/internal/model"
)

var firstNumber = regexp.MustCompile(`\d+`)

// Ledger знает внешние итоги по пакетам (packageID -> totalSlots), может быть пустым
type Ledger struct {
	packageTotals map[string]int
}

func New(packageTotals map[string]int) *Ledger {
	totals := make(map[string]int, len(packageTotals))
	for k, v := range packageTotals {
		totals[k] = v
	}
	return &Ledger{packageTotals: totals}
}

// TotalSlots общее число занятий пакета. ok == false - итог неизвестен.
// Порядок: snapshot, totalSlots, внешний итог пакета, used+remaining, число из названия.
func (l *Ledger) TotalSlots(sub *model.PackageSubscription) (total int, ok bool) {
	switch {
	case sub.TotalSlotsSnapshot != nil:
		return *sub.TotalSlotsSnapshot, true
	case sub.TotalSlots != nil:
		return *sub.TotalSlots, true
	}
	if t, found := l.packageTotals[sub.PackageID]; found {
		return t, true
	}
	if sub.RemainingSlots != nil {
		return sub.UsedSlot + *sub.RemainingSlots, true
	}
	// TODO: убрать разбор названия, когда бэкенд начнёт всегда отдавать totalSlots
	if m := firstNumber.FindString(sub.PackageName); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return n, true
		}
	}
	return 0, false
}

// RemainingSlots остаток занятий, не меньше нуля. ok == false - неизвестно, не блокируем.
func (l *Ledger) RemainingSlots(sub *model.PackageSubscription) (remaining int, ok bool) {
	total, ok := l.TotalSlots(sub)
	if !ok {
		return 0, false
	}
	return max(total-sub.UsedSlot, 0), true
}

// IsFundable подписка активна и остаток неизвестен или больше нуля
func (l *Ledger) IsFundable(sub *model.PackageSubscription) bool {
	if sub == nil || !sub.IsActive() {
		return false
	}
	remaining, ok := l.RemainingSlots(sub)
	return !ok || remaining > 0
}

// Active оставляет только активные подписки, порядок сохраняется
func Active(subs []model.PackageSubscription) []model.PackageSubscription {
	out := make([]model.PackageSubscription, 0, len(subs))
	for _, s := range subs {
		if s.IsActive() {
			out = append(out, s)
		}
	}
	return out
}

// SelectDefault активная подписка с остатком > 0, иначе любая активная, иначе nil
func (l *Ledger) SelectDefault(subs []model.PackageSubscription) *model.PackageSubscription {
	var firstActive *model.PackageSubscription
	for i := range subs {
		sub := &subs[i]
		if !sub.IsActive() {
			continue
		}
		if firstActive == nil {
			firstActive = sub
		}
		if remaining, ok := l.RemainingSlots(sub); ok && remaining > 0 {
			return sub
		}
	}
	return firstActive
}

// Find подписка по ID среди переданных
func Find(subs []model.PackageSubscription, id string) *model.PackageSubscription {
	if id == "" {
		return nil
	}
	for i := range subs {
		if subs[i].ID == id {
			return &subs[i]
		}
	}
	return nil
}

// Balance подписка с вычисленными итогами для отображения
type Balance struct {
	Subscription model.PackageSubscription
	Total        *int
	Remaining    *int
	Fundable     bool
}

// Balances считает итоги для каждой подписки
func (l *Ledger) Balances(subs []model.PackageSubscription) []Balance {
	out := make([]Balance, 0, len(subs))
	for i := range subs {
		b := Balance{Subscription: subs[i], Fundable: l.IsFundable(&subs[i])}
		if t, ok := l.TotalSlots(&subs[i]); ok {
			b.Total = &t
		}
		if r, ok := l.RemainingSlots(&subs[i]); ok {
			b.Remaining = &r
		}
		out = append(out, b)
	}
	return out
}
