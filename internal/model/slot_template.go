package model

import "time"

// Timeframe описывает временное окно занятия внутри дня
type Timeframe struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	StartTime   string  `json:"startTime"` // HH:mm:ss
	EndTime     string  `json:"endTime"`   // HH:mm:ss
	Description *string `json:"description,omitempty"`
}

// SlotType метаданные типа занятия
type SlotType struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// StaffAssignment преподаватель или ассистент, закреплённый за слотом/комнатой
type StaffAssignment struct {
	StaffID string `json:"staffId"`
	Name    string `json:"name"`
	Role    string `json:"role,omitempty"`
}

// RoomOption комната из пула слота с вместимостью
type RoomOption struct {
	RoomID            string            `json:"roomId"`
	RoomName          string            `json:"roomName"`
	FacilityName      *string           `json:"facilityName,omitempty"`
	Capacity          int               `json:"capacity"`
	AvailableCapacity *int              `json:"availableCapacity,omitempty"` // nil = неизвестно, считаем равным capacity
	Staff             []StaffAssignment `json:"staff,omitempty"`
}

// SlotTemplate представляет шаблон регулярного еженедельного занятия
type SlotTemplate struct {
	ID        string            `json:"id"`
	Weekday   int               `json:"weekday"` // 0 = Sunday, 6 = Saturday
	Timeframe *Timeframe        `json:"timeframe,omitempty"`
	BranchID  string            `json:"branchId"`
	SlotType  SlotType          `json:"slotType"`
	Rooms     []RoomOption      `json:"rooms"`
	Staff     []StaffAssignment `json:"staff,omitempty"`

	// Подписка, заранее закреплённая провайдером за слотом (промо-акции)
	PackageSubscriptionID *string `json:"packageSubscriptionId,omitempty"`
}

// Room ищет комнату в пуле шаблона
func (t *SlotTemplate) Room(roomID string) (*RoomOption, bool) {
	for i := range t.Rooms {
		if t.Rooms[i].RoomID == roomID {
			return &t.Rooms[i], true
		}
	}
	return nil, false
}

// TimeWeekday возвращает день недели шаблона как time.Weekday
func (t *SlotTemplate) TimeWeekday() time.Weekday {
	return time.Weekday(t.Weekday)
}
