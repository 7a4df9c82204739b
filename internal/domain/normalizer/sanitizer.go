package normalizer

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// symbolGlyphs знаки, которые отклоняются шаблоном выгрузки
var symbolGlyphs = map[rune]struct{}{
	'™': {},
	'®': {},
	'©': {},
	'℠': {},
}

// isStripped сообщает, удаляется ли символ при очистке
func isStripped(r rune) bool {
	switch {
	case r >= 0x10000: // эмодзи и прочие символы вне BMP
		return true
	case r >= 0x2600 && r <= 0x27BF: // Misc Symbols, Dingbats
		return true
	case r >= 0x2B00 && r <= 0x2BFF: // Misc Symbols and Arrows
		return true
	case r >= 0xFE00 && r <= 0xFE0F: // variation selectors
		return true
	case r == 0x200D: // zero width joiner из составных эмодзи
		return true
	}
	if _, ok := symbolGlyphs[r]; ok {
		return true
	}
	return unicode.IsControl(r) && !unicode.IsSpace(r)
}

// Sanitize удаляет символы, которые не принимает документ выгрузки:
// эмодзи, пиктограммы, знаки ™®©℠, управляющие символы C0 и C1.
// Пробельные последовательности схлопываются в один пробел, края обрезаются.
// Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == unicode.ReplacementChar {
			continue
		}
		if unicode.IsSpace(r) {
			b.WriteByte(' ')
			continue
		}
		if isStripped(r) {
			continue
		}
		b.WriteRune(r)
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// blockElements элементы, между которыми при извлечении текста нужен разделитель
const blockElements = "br, p, div, li, tr, td, th, h1, h2, h3, h4, h5, h6"

// StripHTML извлекает текст из HTML-описания товара.
// Текст без разметки возвращается без изменений.
func StripHTML(text string) string {
	if !strings.ContainsRune(text, '<') {
		return text
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return text
	}

	doc.Find("script, style, noscript").Remove()
	doc.Find(blockElements).Each(func(_ int, s *goquery.Selection) {
		s.AfterHtml(" ")
	})

	return doc.Text()
}
