package state

import (
	"sync"

	"github.com/Freeeeeet/classbooking_bot/internal/service"
)

// Manager управляет состояниями пользователей
type Manager struct {
	mu     sync.RWMutex
	states map[int64]*UserData // telegramID -> UserData
}

// NewManager создаёт новый менеджер состояний
func NewManager() *Manager {
	return &Manager{
		states: make(map[int64]*UserData),
	}
}

// entry возвращает запись пользователя, создавая её. Вызывать под mu.Lock.
func (sm *Manager) entry(telegramID int64) *UserData {
	userData, exists := sm.states[telegramID]
	if !exists {
		userData = &UserData{Data: make(map[string]interface{})}
		sm.states[telegramID] = userData
	}
	return userData
}

// GetState получает текущее состояние пользователя
func (sm *Manager) GetState(telegramID int64) UserState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if userData, exists := sm.states[telegramID]; exists {
		return userData.State
	}
	return StateNone
}

// SetState устанавливает состояние пользователя
func (sm *Manager) SetState(telegramID int64, state UserState) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.entry(telegramID).State = state
}

// GetData получает временные данные пользователя
func (sm *Manager) GetData(telegramID int64, key string) (interface{}, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if userData, exists := sm.states[telegramID]; exists {
		value, ok := userData.Data[key]
		return value, ok
	}
	return nil, false
}

// SetData устанавливает временные данные пользователя
func (sm *Manager) SetData(telegramID int64, key string, value interface{}) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.entry(telegramID).Data[key] = value
}

// ClearState сбрасывает диалог и временные данные. Сессия (выбранный
// студент, неделя, выбор пакета и комнат) остаётся.
func (sm *Manager) ClearState(telegramID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if userData, exists := sm.states[telegramID]; exists {
		userData.State = StateNone
		userData.Data = make(map[string]interface{})
	}
}

// Session возвращает копию сессии пользователя
func (sm *Manager) Session(telegramID int64) Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	userData, exists := sm.states[telegramID]
	if !exists {
		return Session{}
	}
	sess := userData.Session
	sess.Selection = copySelection(sess.Selection)
	return sess
}

// SaveSession сохраняет сессию пользователя
func (sm *Manager) SaveSession(telegramID int64, sess Session) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sess.Selection = copySelection(sess.Selection)
	sm.entry(telegramID).Session = sess
}

// LinkStudent привязывает чат к студенту и сбрасывает всё остальное
func (sm *Manager) LinkStudent(telegramID int64, studentID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.states[telegramID] = &UserData{
		Data:    make(map[string]interface{}),
		Session: Session{StudentID: studentID},
	}
}

func copySelection(sel service.Selection) service.Selection {
	if sel.Rooms == nil {
		return sel
	}
	rooms := make(map[string]string, len(sel.Rooms))
	for k, v := range sel.Rooms {
		rooms[k] = v
	}
	sel.Rooms = rooms
	return sel
}
