package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidExchangeRate = errors.New("exchange rate must be positive")
	ErrInvalidMarkup       = errors.New("markup must be positive")
	ErrInvalidRoundingUnit = errors.New("rounding unit must be positive")
	ErrInvalidFloor        = errors.New("minimum price must not be negative")
)

// Policy параметры пересчета цены из исходной валюты в целевую
type Policy struct {
	ExchangeRate decimal.Decimal
	Markup       decimal.Decimal
	RoundingUnit int64
	MinPrice     int64
}

// DefaultPolicy курс 1350, наценка 1.6, округление до 800, минимум 1000
func DefaultPolicy() Policy {
	return Policy{
		ExchangeRate: decimal.NewFromInt(1350),
		Markup:       decimal.RequireFromString("1.6"),
		RoundingUnit: 800,
		MinPrice:     1000,
	}
}

// Validate проверяет параметры политики
func (p Policy) Validate() error {
	if !p.ExchangeRate.IsPositive() {
		return ErrInvalidExchangeRate
	}
	if !p.Markup.IsPositive() {
		return ErrInvalidMarkup
	}
	if p.RoundingUnit <= 0 {
		return ErrInvalidRoundingUnit
	}
	if p.MinPrice < 0 {
		return ErrInvalidFloor
	}
	return nil
}

// Calculator пересчитывает цены по фиксированной политике
type Calculator struct {
	policy Policy
}

// NewCalculator создает калькулятор цен
func NewCalculator(policy Policy) (*Calculator, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pricing policy: %w", err)
	}
	return &Calculator{policy: policy}, nil
}

// Policy возвращает политику калькулятора
func (c *Calculator) Policy() Policy {
	return c.policy
}

// ToTarget пересчитывает цену из текста источника. Невалидная цена дает 0.
func (c *Calculator) ToTarget(sourcePrice string) int64 {
	price, ok := ParseSourcePrice(sourcePrice)
	if !ok {
		return 0
	}
	return PriceToTarget(price, c.policy.ExchangeRate, c.policy.Markup, c.policy.RoundingUnit, c.policy.MinPrice)
}

// PriceToTarget переводит цену в целевую валюту:
// умножает на курс и наценку, округляет до ближайшего кратного roundingUnit
// (половина округляется вверх) и ограничивает снизу значением floor.
// Неположительная цена дает 0.
func PriceToTarget(sourcePrice, exchangeRate, markup decimal.Decimal, roundingUnit, floor int64) int64 {
	if !sourcePrice.IsPositive() || !exchangeRate.IsPositive() || !markup.IsPositive() || roundingUnit <= 0 {
		return 0
	}

	unit := decimal.NewFromInt(roundingUnit)
	converted := sourcePrice.Mul(exchangeRate).Mul(markup)
	rounded := converted.Div(unit).Round(0).Mul(unit).IntPart()

	if rounded < floor {
		return floor
	}
	return rounded
}

// ParseSourcePrice разбирает цену источника: "45.99", "$1,299.00", " 12 ".
// Возвращает false для пустой, нечисловой или неположительной цены.
func ParseSourcePrice(text string) (decimal.Decimal, bool) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "US")
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}
