package apperror

import (
	"encoding/json"
	"strings"
)

// Payload тело ошибки бэкенда
type Payload struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Title   string `json:"title"`
	Code    string `json:"code"`
}

// Text выбирает сообщение в порядке message, error, title
func (p Payload) Text() string {
	for _, s := range []string{p.Message, p.Error, p.Title} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// FromResponse строит Backend ошибку из тела ответа
func FromResponse(status int, body []byte) *Error {
	var p Payload
	if len(body) > 0 {
		// Тело может быть не JSON - тогда остаётся общий текст
		_ = json.Unmarshal(body, &p)
	}
	err := Backend(status, p.Text())
	err.Code = strings.TrimSpace(p.Code)
	return err
}

// CodeSlotAlreadyBooked структурированный код гонки, если бэкенд его присылает
const CodeSlotAlreadyBooked = "SLOT_ALREADY_BOOKED_TRANSIENT"

// racePatterns фразы, которыми бэкенд сообщает о занятом экземпляре слота
var racePatterns = []string{
	"already booked",
	"already been booked",
	"already exists",
	"slot is taken",
	"đã đặt",
	"đã được đặt",
	"đã tồn tại",
}

// IsAlreadyBooked распознаёт гонку по коду или по тексту ошибки бэкенда
func IsAlreadyBooked(err *Error) bool {
	if err == nil {
		return false
	}
	if err.Code == CodeSlotAlreadyBooked {
		return true
	}
	return IsAlreadyBookedMessage(err.Message)
}

// IsAlreadyBookedMessage распознаёт гонку "слот уже забронирован"
func IsAlreadyBookedMessage(message string) bool {
	m := strings.ToLower(message)
	for _, p := range racePatterns {
		if strings.Contains(m, p) {
			return true
		}
	}
	return false
}
