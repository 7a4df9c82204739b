package config

import (
	"fmt"
	"net/http"
	"time"

	"github.com/athebyme/listing-pipeline/internal/adapters/marketplace"
	"github.com/athebyme/listing-pipeline/internal/adapters/translator"
	"github.com/athebyme/listing-pipeline/internal/domain/assembler"
	"github.com/athebyme/listing-pipeline/internal/domain/category"
	"github.com/athebyme/listing-pipeline/internal/domain/pricing"
	"github.com/athebyme/listing-pipeline/internal/utils"
	"github.com/athebyme/listing-pipeline/pkg/auth"
	"github.com/athebyme/listing-pipeline/pkg/interfaces"
	"github.com/shopspring/decimal"
)

// MarketplaceConfig настройки публикации на маркетплейсе
type MarketplaceConfig struct {
	Enabled          bool
	BaseURL          string
	ClientID         string
	ClientSecret     string
	CustomerID       string
	TokenType        string
	RequestTimeout   time.Duration
	PacingInterval   time.Duration
	DailyLimit       int
	ReturnCenterCode string
	ReturnChargeName string
}

// ClientConfig возвращает параметры HTTP-клиента маркетплейса
func (m MarketplaceConfig) ClientConfig() marketplace.ClientConfig {
	return marketplace.ClientConfig{
		BaseURL:        m.BaseURL,
		RequestTimeout: m.RequestTimeout,
		Returns: marketplace.ReturnPolicy{
			CenterCode: m.ReturnCenterCode,
			ChargeName: m.ReturnChargeName,
		},
	}
}

// CredentialsConfig возвращает параметры обмена ключей на токен
func (m MarketplaceConfig) CredentialsConfig() auth.ClientCredentialsConfig {
	return auth.ClientCredentialsConfig{
		TokenURL:     m.BaseURL + marketplace.TokenPath,
		ClientID:     m.ClientID,
		ClientSecret: m.ClientSecret,
		Type:         m.TokenType,
	}
}

// NewPublisher собирает публикатор партий из настроек.
// httpClient может быть nil.
func (m MarketplaceConfig) NewPublisher(httpClient *http.Client, logger interfaces.LoggerPort) *marketplace.Publisher {
	tokens := auth.NewClientCredentialsClient(m.CredentialsConfig(), httpClient)
	signer := marketplace.NewSigner(m.ClientID, m.ClientSecret, m.CustomerID)
	client := marketplace.NewClient(m.ClientConfig(), signer, httpClient, logger)
	clock := marketplace.RealClock()
	return marketplace.NewPublisher(tokens, client, marketplace.NewFixedIntervalPacer(m.PacingInterval, clock), clock, logger)
}

// PricingPolicy возвращает политику пересчета цен
func (c *Config) PricingPolicy() (pricing.Policy, error) {
	rate, err := decimal.NewFromString(c.Pricing.ExchangeRate)
	if err != nil {
		return pricing.Policy{}, fmt.Errorf("pricing.exchangeRate: %w", err)
	}
	markup, err := decimal.NewFromString(c.Pricing.Markup)
	if err != nil {
		return pricing.Policy{}, fmt.Errorf("pricing.markup: %w", err)
	}
	policy := pricing.Policy{
		ExchangeRate: rate,
		Markup:       markup,
		RoundingUnit: c.Pricing.RoundingUnit,
		MinPrice:     c.Pricing.MinPrice,
	}
	if err := policy.Validate(); err != nil {
		return pricing.Policy{}, err
	}
	return policy, nil
}

// CategoryTable возвращает таблицу категорий из файла или встроенную
func (c *Config) CategoryTable() (category.Table, error) {
	if c.Category.TableFile == "" {
		return category.DefaultTable(), nil
	}
	return category.LoadTable(c.Category.TableFile)
}

// AssemblerConfig возвращает настройки сборщика карточек
func (c *Config) AssemblerConfig() assembler.Config {
	return assembler.Config{
		SellerCodePrefix: c.Assembler.SellerCodePrefix,
		Workers:          c.Assembler.Workers,
		Defaults:         c.Listing,
	}
}

// OpenAIConfig возвращает настройки переводчика
func (c *Config) OpenAIConfig() translator.OpenAIConfig {
	return translator.OpenAIConfig{
		APIKey:     c.Translation.APIKey,
		BaseURL:    c.Translation.BaseURL,
		Model:      c.Translation.Model,
		TargetLang: c.Translation.TargetLang,
		Timeout:    c.Translation.Timeout,
		MaxInput:   c.Translation.MaxInput,
	}
}

// PostgresDSN возвращает строку подключения к журналу партий
func (c *Config) PostgresDSN() (string, error) {
	return utils.GenerateConnectionString(c.Postgres.Host, c.Postgres.User, c.Postgres.Password,
		c.Postgres.DBName, c.Postgres.SSLMode, c.Postgres.Port, c.Postgres.PoolSize, c.Postgres.Timeout)
}
