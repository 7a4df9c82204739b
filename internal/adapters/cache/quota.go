package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/athebyme/listing-pipeline/internal/utils"
	"github.com/athebyme/listing-pipeline/pkg/interfaces"
)

const quotaTTL = 48 * time.Hour

// DailyQuota суточный лимит регистраций товаров поверх счетчика в кэше.
// Лимит 0 означает отсутствие ограничения.
type DailyQuota struct {
	cache  interfaces.CachePort
	limit  int
	prefix string
	now    func() time.Time
}

// NewDailyQuota создает суточный лимит
func NewDailyQuota(cache interfaces.CachePort, limit int) *DailyQuota {
	return &DailyQuota{
		cache:  cache,
		limit:  limit,
		prefix: "quota:registrations",
		now:    time.Now,
	}
}

// Limit возвращает суточный лимит
func (q *DailyQuota) Limit() int {
	return q.limit
}

func (q *DailyQuota) key() string {
	return fmt.Sprintf("%s:%s", q.prefix, q.now().UTC().Format("20060102"))
}

// Reserve резервирует до n регистраций на текущие сутки и возвращает,
// сколько из них разрешено. Неиспользованный остаток возвращается в счетчик.
// Ошибка utils.ErrQuotaUnavailable означает, что счетчик не изменен;
// при любой другой ошибке резерв уже учтен и число разрешенных регистраций действительно.
func (q *DailyQuota) Reserve(ctx context.Context, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	if q.limit <= 0 {
		return n, nil
	}

	key := q.key()
	used, err := q.cache.Increment(ctx, key, int64(n))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", utils.ErrQuotaUnavailable, err)
	}

	var errs []error
	if used == int64(n) {
		if err := q.cache.Expire(ctx, key, quotaTTL); err != nil {
			errs = append(errs, fmt.Errorf("ошибка установки срока жизни лимита: %w", err))
		}
	}

	before := used - int64(n)
	granted := int64(q.limit) - before
	if granted < 0 {
		granted = 0
	}
	if granted > int64(n) {
		granted = int64(n)
	}

	if overshoot := int64(n) - granted; overshoot > 0 {
		if _, err := q.cache.Increment(ctx, key, -overshoot); err != nil {
			errs = append(errs, fmt.Errorf("ошибка возврата лимита: %w", err))
		}
	}

	return int(granted), errors.Join(errs...)
}

// Release возвращает n неиспользованных регистраций
func (q *DailyQuota) Release(ctx context.Context, n int) error {
	if n <= 0 || q.limit <= 0 {
		return nil
	}
	if _, err := q.cache.Increment(ctx, q.key(), -int64(n)); err != nil {
		return fmt.Errorf("ошибка возврата лимита: %w", err)
	}
	return nil
}
