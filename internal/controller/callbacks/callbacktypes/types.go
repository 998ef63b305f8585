package callbacktypes

import (
	"github.com/Freeeeeet/classbooking_bot/internal/controller/state"
	"github.com/Freeeeeet/classbooking_bot/internal/service"
	"go.uber.org/zap"
)

// Handler содержит общие зависимости для всех callback handlers
type Handler struct {
	BookingService *service.BookingService
	StateManager   *state.Manager
	Logger         *zap.Logger
}
