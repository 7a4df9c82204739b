package interfaces

import "context"

// TranslatorPort определяет интерфейс сервиса перевода текста.
// Реализация может использовать внешний API (OpenAI и т.д.) или кэш поверх него.
type TranslatorPort interface {
	// Translate переводит текст на целевой язык.
	// Ошибка означает, что перевод недоступен; вызывающая сторона использует исходный текст
	Translate(ctx context.Context, text string) (string, error)
}

// TranslatorFunc позволяет использовать обычную функцию как TranslatorPort
type TranslatorFunc func(ctx context.Context, text string) (string, error)

// Translate вызывает f(ctx, text)
func (f TranslatorFunc) Translate(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}
