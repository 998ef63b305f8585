// Package apperror описывает классы ошибок записи на занятия:
// локальная валидация, временная гонка на бэкенде и прочие ошибки бэкенда.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindTransient
	KindBackend
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransient:
		return "transient"
	case KindBackend:
		return "backend"
	default:
		return "unknown"
	}
}

// FallbackMessage показывается, если бэкенд не прислал текста ошибки
const FallbackMessage = "Something went wrong, please try again"

// Error ошибка с классом и сообщением для пользователя
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Status  int // HTTP статус ответа бэкенда, 0 если неизвестен
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message == "" && e.Err != nil:
		return e.Err.Error()
	case e.Code != "":
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation оборачивает sentinel-ошибку локальной проверки
func Validation(err error) *Error {
	return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
}

// Transient ошибка, после которой стоит подождать и повторить
func Transient(message string, cause error) *Error {
	return &Error{Kind: KindTransient, Message: message, Err: cause}
}

// Backend ошибка бэкенда с сообщением как есть
func Backend(status int, message string) *Error {
	if strings.TrimSpace(message) == "" {
		message = FallbackMessage
	}
	return &Error{Kind: KindBackend, Status: status, Message: message}
}

// KindOf возвращает класс ошибки или 0
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return 0
}

// Is проверяет класс ошибки
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// UserMessage текст ошибки для показа пользователю
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return FallbackMessage
}
