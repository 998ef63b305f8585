// Package capacity отвечает на вопрос, есть ли место в комнате слота.
// Числа берутся из снимка каталога и никогда не уменьшаются локально:
// после записи или отмены каталог перечитывается целиком.
package capacity

import "github.com/Freeeeeet/classbooking_bot/internal/model"

// Available свободные места комнаты. Без availableCapacity считаем свободной всю вместимость.
func Available(room *model.RoomOption) int {
	if room.AvailableCapacity != nil {
		return *room.AvailableCapacity
	}
	return room.Capacity
}

// IsRoomFull мест в комнате не осталось
func IsRoomFull(room *model.RoomOption) bool {
	return Available(room) <= 0
}

// IsTemplateFull заполнены все комнаты пула
func IsTemplateFull(rooms []model.RoomOption) bool {
	for i := range rooms {
		if !IsRoomFull(&rooms[i]) {
			return false
		}
	}
	return true
}

// SelectRoom оставляет прежний выбор, если комната ещё в пуле и не заполнена,
// иначе берёт первую незаполненную. nil - свободных комнат нет.
func SelectRoom(rooms []model.RoomOption, previousRoomID string) *model.RoomOption {
	if previousRoomID != "" {
		for i := range rooms {
			if rooms[i].RoomID == previousRoomID && !IsRoomFull(&rooms[i]) {
				return &rooms[i]
			}
		}
	}
	for i := range rooms {
		if !IsRoomFull(&rooms[i]) {
			return &rooms[i]
		}
	}
	return nil
}

// FreeSeats сумма свободных мест по всем комнатам пула
func FreeSeats(rooms []model.RoomOption) int {
	total := 0
	for i := range rooms {
		total += max(Available(&rooms[i]), 0)
	}
	return total
}
