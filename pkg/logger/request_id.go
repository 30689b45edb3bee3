package logger

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ctxKeyRequestID - неэкспортируемый тип ключа, исключающий коллизии
// с другими значениями контекста.
type ctxKeyRequestID struct{}

// GenerateRequestID выпускает новый сквозной идентификатор запроса.
// Клиент генерирует отдельный идентификатор на каждую сетевую попытку,
// чтобы повторы одного вызова различались на стороне сервера.
func GenerateRequestID() string {
	return uuid.New().String()
}

// NewRequestIDContext кладет идентификатор запроса в контекст. Пустой
// идентификатор заменяется свежесгенерированным.
func NewRequestIDContext(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		requestID = GenerateRequestID()
	}
	return context.WithValue(ctx, ctxKeyRequestID{}, requestID)
}

// GetRequestID возвращает идентификатор запроса из контекста.
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(ctxKeyRequestID{}).(string)
	return requestID, ok
}

// WithRequestID возвращает копию логгера с полем request_id из контекста.
func (l *Logger) WithRequestID(ctx context.Context) *Logger {
	requestID, ok := GetRequestID(ctx)
	if !ok {
		return l
	}
	return l.With(zap.String(RequestID, requestID))
}
