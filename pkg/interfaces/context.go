package interfaces

import "context"

// ContextKey тип ключей значений, которые сервис кладет в context.Context
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	TraceIDKey   ContextKey = "trace_id"
	UserIDKey    ContextKey = "user_id"
	BatchIDKey   ContextKey = "batch_id"
	ClaimsKey    ContextKey = "claims"
)

// WithBatchID добавляет идентификатор партии в контекст
func WithBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, BatchIDKey, batchID)
}

// StringFromContext возвращает строковое значение ключа или пустую строку
func StringFromContext(ctx context.Context, key ContextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}
