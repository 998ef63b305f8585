package model

import (
	"strings"
	"time"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "Active"
	SubscriptionStatusExpired   SubscriptionStatus = "Expired"
	SubscriptionStatusCancelled SubscriptionStatus = "Cancelled"
	SubscriptionStatusRefunded  SubscriptionStatus = "Refunded"
	SubscriptionStatusPending   SubscriptionStatus = "Pending"
)

// PackageSubscription купленный студентом пакет занятий
type PackageSubscription struct {
	ID          string             `json:"id"`
	StudentID   string             `json:"studentId"`
	PackageID   string             `json:"packageId"`
	PackageName string             `json:"packageName"`
	Status      SubscriptionStatus `json:"status"`
	UsedSlot    int                `json:"usedSlot"`

	// Любое из полей может отсутствовать у старых записей
	TotalSlotsSnapshot *int `json:"totalSlotsSnapshot,omitempty"`
	TotalSlots         *int `json:"totalSlots,omitempty"`
	RemainingSlots     *int `json:"remainingSlots,omitempty"`

	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

// IsActive проверяет статус без учёта регистра и пробелов
func (s *PackageSubscription) IsActive() bool {
	return strings.EqualFold(strings.TrimSpace(string(s.Status)), "ACTIVE")
}
