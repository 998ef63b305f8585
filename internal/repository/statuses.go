package repository

import (
	"strings"

	"github.com/Freeeeeet/classbooking_bot/internal/model"
)

// В базе статусы хранятся в snake_case, наружу отдаются значения модели

var bookingStatuses = map[string]model.BookingStatus{
	"booked":      model.BookingStatusBooked,
	"completed":   model.BookingStatusCompleted,
	"no_show":     model.BookingStatusNoShow,
	"rescheduled": model.BookingStatusRescheduled,
	"cancelled":   model.BookingStatusCancelled,
}

var subscriptionStatuses = map[string]model.SubscriptionStatus{
	"active":    model.SubscriptionStatusActive,
	"expired":   model.SubscriptionStatusExpired,
	"cancelled": model.SubscriptionStatusCancelled,
	"refunded":  model.SubscriptionStatusRefunded,
	"pending":   model.SubscriptionStatusPending,
}

const (
	dbStatusBooked    = "booked"
	dbStatusCancelled = "cancelled"
)

func bookingStatusFromDB(s string) model.BookingStatus {
	if st, ok := bookingStatuses[s]; ok {
		return st
	}
	return model.BookingStatus(s)
}

func subscriptionStatusFromDB(s string) model.SubscriptionStatus {
	if st, ok := subscriptionStatuses[s]; ok {
		return st
	}
	return model.SubscriptionStatus(s)
}

// bookingStatusToDB обратное преобразование, регистр и "canceled" не важны
func bookingStatusToDB(s model.BookingStatus) string {
	v := strings.ToLower(strings.TrimSpace(string(s)))
	switch v {
	case "canceled":
		return dbStatusCancelled
	case "noshow":
		return "no_show"
	}
	return v
}
