package handlers

import (
	"strings"
	"testing"

	"github.com/Freeeeeet/classbooking_bot/internal/ledger"
	"github.com/Freeeeeet/classbooking_bot/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestParseStudentArg(t *testing.T) {
	tests := []struct {
		text   string
		want   string
		wantOK bool
	}{
		{"/student 42", "42", true},
		{"/student@class_bot  abc-1 ", "abc-1", true},
		{"/student", "", false},
		{"/student 1 2", "", false},
		{"/students 1", "", false},
		{"/student " + strings.Repeat("x", StudentIDMaxLength+1), "", false},
	}

	for _, tt := range tests {
		got, ok := parseStudentArg(tt.text)
		assert.Equal(t, tt.wantOK, ok, tt.text)
		assert.Equal(t, tt.want, got, tt.text)
	}
}

func TestFormatSubscriptions(t *testing.T) {
	total, remaining := 12, 0
	text := formatSubscriptions("s-1", []ledger.Balance{
		{Subscription: model.PackageSubscription{PackageName: "Robotics 12"}, Total: &total, Remaining: &remaining},
	})
	assert.Contains(t, text, "👤 Студент s-1")
	assert.Contains(t, text, "• Robotics 12: осталось 0 из 12 (нельзя использовать)")

	assert.Contains(t, formatSubscriptions("s-1", nil), "Активных пакетов нет")
}
