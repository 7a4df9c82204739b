package normalizer

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/athebyme/listing-pipeline/internal/observability"
	"github.com/athebyme/listing-pipeline/pkg/interfaces"
)

const (
	// DefaultTitleMaxLength ограничение длины названия на целевом маркетплейсе
	DefaultTitleMaxLength = 100
	truncationMarker      = "..."
	minBrandLength        = 3
)

var titleGlyphs = strings.NewReplacer("™", "", "®", "", "©", "")

// NormalizedTitle результат нормализации названия товара
type NormalizedTitle struct {
	// Original очищенное исходное название
	Original string `json:"original"`
	// Brand бренд, выделенный из первого слова названия
	Brand string `json:"brand,omitempty"`
	// Name название без бренда, переведенное если перевод удался
	Name string `json:"name"`
	// Display итоговое название для карточки
	Display    string `json:"display"`
	Translated bool   `json:"translated"`
}

// TitleNormalizer приводит названия товаров к виду, допустимому на целевом маркетплейсе
type TitleNormalizer struct {
	translator interfaces.TranslatorPort
	maxLength  int
	logger     interfaces.LoggerPort
}

// NewTitleNormalizer создает нормализатор названий.
// translator может быть nil, тогда названия не переводятся.
func NewTitleNormalizer(translator interfaces.TranslatorPort, maxLength int, logger interfaces.LoggerPort) *TitleNormalizer {
	if maxLength <= len(truncationMarker) {
		maxLength = DefaultTitleMaxLength
	}
	return &TitleNormalizer{
		translator: translator,
		maxLength:  maxLength,
		logger:     logger,
	}
}

// Normalize очищает название, выделяет бренд, переводит часть без бренда
// и обрезает результат до максимальной длины. Ошибка перевода не прерывает работу:
// используется исходное название.
func (n *TitleNormalizer) Normalize(ctx context.Context, rawTitle string) NormalizedTitle {
	cleaned := strings.Join(strings.Fields(titleGlyphs.Replace(rawTitle)), " ")

	brand, name := SplitBrand(cleaned)
	result := NormalizedTitle{
		Original: cleaned,
		Brand:    brand,
		Name:     name,
	}

	if n.translator != nil && name != "" {
		translated, err := n.translator.Translate(ctx, name)
		translated = strings.TrimSpace(translated)
		switch {
		case err != nil:
			observability.TranslationFailures.Inc()
			n.logger.WarnWithContext(ctx, "Ошибка перевода названия, используется исходный текст",
				interfaces.LogField{Key: "title", Value: name},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
		case translated == "":
			observability.TranslationFailures.Inc()
			n.logger.WarnWithContext(ctx, "Сервис перевода вернул пустой результат",
				interfaces.LogField{Key: "title", Value: name},
			)
		default:
			result.Name = translated
			result.Translated = true
		}
	}

	display := result.Name
	if brand != "" {
		display = strings.TrimSpace(brand + " " + result.Name)
	}
	result.Display = Truncate(display, n.maxLength)

	return result
}

// SplitBrand выделяет бренд из первого слова названия.
// Первое слово считается брендом, если в названии больше одного слова,
// слово длиннее двух символов и начинается с заглавной буквы.
func SplitBrand(title string) (brand, name string) {
	words := strings.Fields(title)
	if len(words) < 2 {
		return "", strings.Join(words, " ")
	}

	candidate := words[0]
	first, _ := utf8.DecodeRuneInString(candidate)
	if utf8.RuneCountInString(candidate) >= minBrandLength && unicode.IsUpper(first) {
		return candidate, strings.Join(words[1:], " ")
	}
	return "", strings.Join(words, " ")
}

// Truncate обрезает строку до maxLength символов, включая маркер "..." в конце
func Truncate(s string, maxLength int) string {
	if utf8.RuneCountInString(s) <= maxLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLength-len(truncationMarker)]) + truncationMarker
}
