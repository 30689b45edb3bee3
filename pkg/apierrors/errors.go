// Package apierrors определяет каноническую форму ошибок клиента API.
// Любой сбой - HTTP статус, сетевое исключение, отмена контекста, строка -
// приводится к *Error со стабильным кодом и флагом retryable.
package apierrors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Error - нормализованная ошибка API.
type Error struct {
	Code        Code
	Message     string
	HTTPStatus  int
	Retryable   bool
	Operational bool
	Cancelled   bool
	RequestID   string
	Details     any
	cause       error
}

// Error реализует интерфейс error.
func (e *Error) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap возвращает исходную ошибку, если она была.
func (e *Error) Unwrap() error {
	return e.cause
}

// UserMessage возвращает сообщение для пользователя из фиксированной таблицы.
// Для кодов вне таблицы возвращается исходное сообщение ошибки.
func (e *Error) UserMessage() string {
	if msg, ok := userMessages[e.Code]; ok {
		return msg
	}
	return e.Message
}

// New создает нормализованную ошибку с retryable по умолчанию для кода.
func New(code Code, message string) *Error {
	return &Error{
		Code:        code,
		Message:     message,
		Retryable:   RetryableForCode(code),
		Operational: true,
	}
}

// FromStatus создает ошибку из HTTP статуса через фиксированную таблицу.
func FromStatus(status int, message, requestID string) *Error {
	code := CodeForStatus(status)
	if message == "" {
		message = string(code)
	}
	return &Error{
		Code:        code,
		Message:     message,
		HTTPStatus:  status,
		Retryable:   RetryableForCode(code),
		Operational: true,
		RequestID:   requestID,
	}
}

// FromTransport создает ошибку из сбоя транспортного уровня: отмена и
// таймаут контекста, сетевые таймауты, прочие ошибки соединения.
func FromTransport(err error) *Error {
	switch {
	case errors.Is(err, context.Canceled):
		return &Error{
			Code:        CodeNetwork,
			Message:     "request cancelled",
			Retryable:   false,
			Operational: true,
			Cancelled:   true,
			cause:       err,
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{
			Code:        CodeTimeout,
			Message:     "request deadline exceeded",
			Retryable:   true,
			Operational: true,
			cause:       err,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{
			Code:        CodeTimeout,
			Message:     netErr.Error(),
			Retryable:   true,
			Operational: true,
			cause:       err,
		}
	}

	return &Error{
		Code:        CodeNetwork,
		Message:     err.Error(),
		Retryable:   RetryableForCode(CodeNetwork),
		Operational: true,
		cause:       err,
	}
}

// Normalize приводит произвольное значение к *Error. Никогда не паникует;
// нераспознанные формы дают CodeUnknown с Operational=false.
func Normalize(v any) *Error {
	switch val := v.(type) {
	case nil:
		return &Error{
			Code:        CodeUnknown,
			Message:     "unknown error",
			Operational: false,
		}
	case *Error:
		return val
	case error:
		var apiErr *Error
		if errors.As(val, &apiErr) {
			return apiErr
		}
		if errors.Is(val, context.Canceled) || errors.Is(val, context.DeadlineExceeded) {
			return FromTransport(val)
		}
		var netErr net.Error
		if errors.As(val, &netErr) {
			return FromTransport(val)
		}
		return &Error{
			Code:        CodeUnknown,
			Message:     val.Error(),
			Operational: false,
			cause:       val,
		}
	case string:
		return &Error{
			Code:        CodeUnknown,
			Message:     val,
			Operational: false,
		}
	default:
		return &Error{
			Code:        CodeUnknown,
			Message:     fmt.Sprintf("%v", val),
			Operational: false,
		}
	}
}

// CodeOf возвращает код нормализованной ошибки либо CodeUnknown.
func CodeOf(err error) Code {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return CodeUnknown
}

// IsRetryable сообщает, можно ли повторять операцию после этой ошибки.
func IsRetryable(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	return false
}

// IsCancelled сообщает, вызвана ли ошибка отменой запроса.
func IsCancelled(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Cancelled
	}
	return false
}
