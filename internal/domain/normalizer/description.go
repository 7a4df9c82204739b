package normalizer

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/athebyme/listing-pipeline/internal/observability"
	"github.com/athebyme/listing-pipeline/pkg/interfaces"
)

const (
	// DefaultDescriptionMinLength описание короче этого заменяется шаблонным
	DefaultDescriptionMinLength = 50
	// DefaultDescriptionMaxLength ограничение длины ячейки документа выгрузки
	DefaultDescriptionMaxLength = 32700
	maxFeatures                 = 3
	featureSeparator            = " / "
)

var (
	serumTemplate = []string{
		"* 프리미엄 스킨케어 세럼",
		"* 피부에 깊은 영양과 수분 공급",
		"* 건강하고 윤기있는 피부로 가꾸어 드립니다",
	}
	creamTemplate = []string{
		"* 프리미엄 스킨케어 크림",
		"* 피부에 깊은 보습과 영양 공급",
		"* 부드럽고 촉촉한 피부로 가꾸어 드립니다",
	}
	genericTemplate = []string{
		"* 프리미엄 뷰티 제품",
		"* 피부 건강을 위한 전문 케어",
		"* 아름답고 건강한 피부로 가꾸어 드립니다",
	}
	serviceNotes = []string{
		"* 안전한 해외직구 상품",
		"* 빠른 배송 서비스 제공",
	}
)

// DescriptionBuilder формирует описание товара для карточки
type DescriptionBuilder struct {
	translator interfaces.TranslatorPort
	minLength  int
	maxLength  int
	logger     interfaces.LoggerPort
}

// NewDescriptionBuilder создает построитель описаний. translator может быть nil.
func NewDescriptionBuilder(translator interfaces.TranslatorPort, logger interfaces.LoggerPort) *DescriptionBuilder {
	return &DescriptionBuilder{
		translator: translator,
		minLength:  DefaultDescriptionMinLength,
		maxLength:  DefaultDescriptionMaxLength,
		logger:     logger,
	}
}

// Build возвращает очищенное описание. Источник: описание товара,
// иначе первые три характеристики через " / ". Слишком короткий результат
// заменяется шаблоном по типу товара.
func (b *DescriptionBuilder) Build(ctx context.Context, description string, features []string, title string) string {
	text := Sanitize(StripHTML(description))
	if text != "" {
		text = b.translate(ctx, text)
	} else if len(features) > 0 {
		parts := make([]string, 0, maxFeatures)
		for _, f := range features {
			f = Sanitize(f)
			if f == "" {
				continue
			}
			parts = append(parts, b.translate(ctx, f))
			if len(parts) == maxFeatures {
				break
			}
		}
		text = strings.Join(parts, featureSeparator)
	}

	text = Sanitize(text)
	if utf8.RuneCountInString(text) < b.minLength {
		text = Sanitize(Boilerplate(title))
	}

	return Truncate(text, b.maxLength)
}

func (b *DescriptionBuilder) translate(ctx context.Context, text string) string {
	if b.translator == nil {
		return text
	}
	translated, err := b.translator.Translate(ctx, text)
	if err != nil || strings.TrimSpace(translated) == "" {
		observability.TranslationFailures.Inc()
		if err != nil {
			b.logger.WarnWithContext(ctx, "Ошибка перевода описания, используется исходный текст",
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
		}
		return text
	}
	return translated
}

// Boilerplate возвращает шаблонное описание по названию товара
func Boilerplate(title string) string {
	lower := strings.ToLower(title)
	lines := genericTemplate
	switch {
	case strings.Contains(lower, "serum") || strings.Contains(title, "세럼"):
		lines = serumTemplate
	case strings.Contains(lower, "cream") || strings.Contains(title, "크림"):
		lines = creamTemplate
	}

	parts := make([]string, 0, 1+len(lines)+len(serviceNotes))
	parts = append(parts, title)
	parts = append(parts, lines...)
	parts = append(parts, serviceNotes...)
	return strings.Join(parts, "\n")
}
