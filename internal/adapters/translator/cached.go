package translator

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"time"

	"github.com/athebyme/listing-pipeline/internal/observability"
	"github.com/athebyme/listing-pipeline/internal/utils"
	"github.com/athebyme/listing-pipeline/pkg/interfaces"
)

// CachedTranslator запоминает успешные переводы в кэше.
// Ошибки перевода не кэшируются.
type CachedTranslator struct {
	next   interfaces.TranslatorPort
	cache  interfaces.CachePort
	ttl    time.Duration
	logger interfaces.LoggerPort
}

// NewCachedTranslator оборачивает переводчик кэшем
func NewCachedTranslator(next interfaces.TranslatorPort, cache interfaces.CachePort, ttl time.Duration, logger interfaces.LoggerPort) *CachedTranslator {
	return &CachedTranslator{next: next, cache: cache, ttl: ttl, logger: logger}
}

func cacheKey(text string) string {
	sum := sha1.Sum([]byte(text))
	return "translation:" + hex.EncodeToString(sum[:])
}

// Translate возвращает перевод из кэша или запрашивает его у следующего переводчика
func (c *CachedTranslator) Translate(ctx context.Context, text string) (string, error) {
	key := cacheKey(text)

	cached, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		observability.TranslationCache.WithLabelValues("hit").Inc()
		return string(cached), nil
	case errors.Is(err, utils.ErrCacheMiss):
		observability.TranslationCache.WithLabelValues("miss").Inc()
	default:
		observability.TranslationCache.WithLabelValues("error").Inc()
		c.logger.WarnWithContext(ctx, "Ошибка чтения кэша переводов",
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
	}

	translated, err := c.next.Translate(ctx, text)
	if err != nil {
		return "", err
	}

	if err := c.cache.Set(ctx, key, []byte(translated), c.ttl); err != nil {
		c.logger.WarnWithContext(ctx, "Ошибка записи в кэш переводов",
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
	}
	return translated, nil
}
