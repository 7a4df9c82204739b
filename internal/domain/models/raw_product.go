package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// RawProduct представляет товар в том виде, в котором его вернул сборщик исходного маркетплейса.
// Запись только читается конвейером и никогда не изменяется.
type RawProduct struct {
	Title            string     `json:"title"`
	Price            PriceText  `json:"price_usd"`
	CategoryHint     string     `json:"category,omitempty"`
	Brand            string     `json:"brand,omitempty"`
	Rating           *float64   `json:"rating,omitempty"`
	ReviewCount      *int       `json:"review_count,omitempty"`
	ImageURL         string     `json:"image_url,omitempty"`
	AdditionalImages []string   `json:"additional_images,omitempty"`
	Description      string     `json:"description,omitempty"`
	Features         []string   `json:"features,omitempty"`
	CollectedAt      *time.Time `json:"crawl_timestamp,omitempty"`
}

// PriceText хранит цену в исходной валюте так, как она пришла от сборщика:
// "45.99", "$1,299.00" или число. Разбор выполняет калькулятор цен.
type PriceText string

// UnmarshalJSON принимает как строку, так и число
func (p *PriceText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = PriceText(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = PriceText(n.String())
	return nil
}

// PriceFromFloat создает PriceText из числа
func PriceFromFloat(v float64) PriceText {
	return PriceText(strconv.FormatFloat(v, 'f', -1, 64))
}

// String возвращает исходный текст цены
func (p PriceText) String() string {
	return string(p)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp разбирает время сбора в форматах RFC 3339 и ISO 8601 без часового пояса
func ParseTimestamp(s string) (*time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, true
		}
	}
	return nil, false
}

// UnmarshalJSON принимает время сбора без часового пояса; нераспознанное время отбрасывается
func (r *RawProduct) UnmarshalJSON(data []byte) error {
	type alias RawProduct
	aux := struct {
		*alias
		CollectedAt json.RawMessage `json:"crawl_timestamp,omitempty"`
	}{alias: (*alias)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.CollectedAt = nil
	var s string
	if len(aux.CollectedAt) > 0 && json.Unmarshal(aux.CollectedAt, &s) == nil {
		r.CollectedAt, _ = ParseTimestamp(s)
	}
	return nil
}
