package keyboard

import (
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Grid(t *testing.T) {
	buttons := make([]models.InlineKeyboardButton, 5)
	for i := range buttons {
		buttons[i] = Button("b", CallbackNoop)
	}

	kb := NewBuilder().Grid(buttons, 2).Row().Row(BackButton("x")).Build()
	require.Len(t, kb.InlineKeyboard, 4)
	assert.Len(t, kb.InlineKeyboard[0], 2)
	assert.Len(t, kb.InlineKeyboard[2], 1)
	assert.Equal(t, "x", kb.InlineKeyboard[3][0].CallbackData)
}

func TestWeekNavigationRow(t *testing.T) {
	row := WeekNavigationRow(-1)
	require.Len(t, row, 3)
	assert.Equal(t, "week:-2", row[0].CallbackData)
	assert.Equal(t, "week:0", row[1].CallbackData)
	assert.Equal(t, "week:0", row[2].CallbackData)
}
