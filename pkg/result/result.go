// Package result предоставляет Result[T] - значение-результат вместо
// сигнализации ошибок исключениями: заполнена либо ветка успеха, либо
// нормализованная ошибка, никогда обе сразу.
package result

import (
	"apikit/pkg/apierrors"
)

// Result - размеченное объединение успеха и нормализованной ошибки.
type Result[T any] struct {
	Ok    bool
	Data  T
	Error *apierrors.Error
}

// OK создает успешный результат.
func OK[T any](data T) Result[T] {
	return Result[T]{Ok: true, Data: data}
}

// Fail создает неуспешный результат, нормализуя переданную ошибку.
func Fail[T any](err error) Result[T] {
	return Result[T]{Ok: false, Error: apierrors.Normalize(err)}
}

// Wrap оборачивает пару (значение, ошибка) в Result.
func Wrap[T any](data T, err error) Result[T] {
	if err != nil {
		return Fail[T](err)
	}
	return OK(data)
}

// Unwrap возвращает пару (значение, ошибка) для обратного перехода.
func (r Result[T]) Unwrap() (T, error) {
	if r.Ok {
		return r.Data, nil
	}
	var zero T
	if r.Error == nil {
		return zero, apierrors.New(apierrors.CodeUnknown, "failed result without error")
	}
	return zero, r.Error
}

// UserMessage возвращает сообщение для пользователя либо пустую строку
// для успешного результата.
func (r Result[T]) UserMessage() string {
	if r.Ok || r.Error == nil {
		return ""
	}
	return r.Error.UserMessage()
}
