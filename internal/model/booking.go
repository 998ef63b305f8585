package model

import (
	"strings"
	"time"
)

type BookingStatus string

const (
	BookingStatusBooked      BookingStatus = "Booked"
	BookingStatusCompleted   BookingStatus = "Completed"
	BookingStatusNoShow      BookingStatus = "NoShow"
	BookingStatusRescheduled BookingStatus = "Rescheduled"
	BookingStatusCancelled   BookingStatus = "Cancelled"
)

// Booking запись студента на конкретный экземпляр слота (StudentSlot)
type Booking struct {
	ID                    string        `json:"id"`
	StudentID             string        `json:"studentId"`
	BranchSlotID          string        `json:"branchSlotId"` // = SlotTemplate.ID
	Date                  time.Time     `json:"date"`
	RoomID                string        `json:"roomId"`
	PackageSubscriptionID string        `json:"packageSubscriptionId"`
	Status                BookingStatus `json:"status"`
	ParentNote            *string       `json:"parentNote,omitempty"`
	CreatedAt             time.Time     `json:"createdAt,omitempty"`
}

// IsCancelled проверяет статус без учёта регистра
func (b *Booking) IsCancelled() bool {
	s := strings.TrimSpace(string(b.Status))
	return strings.EqualFold(s, "cancelled") || strings.EqualFold(s, "canceled")
}

// BookingPayload тело запроса на создание записи
type BookingPayload struct {
	StudentID             string    `json:"studentId"`
	BranchSlotID          string    `json:"branchSlotId"`
	PackageSubscriptionID string    `json:"packageSubscriptionId"`
	RoomID                string    `json:"roomId"`
	Date                  time.Time `json:"date"`
	ParentNote            *string   `json:"parentNote,omitempty"`
}

// CreateBookingResult ответ бэкенда на создание записи
type CreateBookingResult struct {
	BookingID string `json:"bookingId"`
	Message   string `json:"message"`
}
