package interfaces

import (
	"context"
	"time"
)

// CachePort определяет интерфейс для работы с системой кэширования
// Реализация может использовать Redis или память процесса
type CachePort interface {
	// Get получает значение из кэша по ключу
	// Возвращает utils.ErrCacheMiss, если значение не найдено
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение в кэше с указанным сроком действия
	// Если expiration равно 0, срок действия не устанавливается
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error

	// Delete удаляет значение из кэша по ключу
	Delete(ctx context.Context, key string) error

	// Increment увеличивает числовое значение ключа на указанную величину
	// Если ключ не существует, он будет создан со значением delta
	// Возвращает новое значение
	Increment(ctx context.Context, key string, delta int64) (int64, error)

	// Expire задает срок жизни существующего ключа
	Expire(ctx context.Context, key string, expiration time.Duration) error

	// Close закрывает соединение с системой кэширования
	Close() error
}
