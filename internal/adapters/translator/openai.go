package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	DefaultModel       = openai.GPT4oMini
	DefaultTargetLang  = "Korean"
	defaultMaxInput    = 5000
	defaultTemperature = 0.2
)

var (
	ErrEmptyTranslation = errors.New("translator returned empty text")
	ErrNoChoices        = errors.New("translator returned no choices")
)

// OpenAIConfig настройки переводчика через OpenAI
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	TargetLang string
	Timeout    time.Duration
	// MaxInput максимальная длина переводимого текста в символах
	MaxInput int
}

// OpenAITranslator переводит тексты карточек через chat completion
type OpenAITranslator struct {
	client     *openai.Client
	model      string
	targetLang string
	timeout    time.Duration
	maxInput   int
}

// NewOpenAITranslator создает переводчик
func NewOpenAITranslator(cfg OpenAIConfig) *OpenAITranslator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.TargetLang == "" {
		cfg.TargetLang = DefaultTargetLang
	}
	if cfg.MaxInput <= 0 {
		cfg.MaxInput = defaultMaxInput
	}

	return &OpenAITranslator{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		targetLang: cfg.TargetLang,
		timeout:    cfg.Timeout,
		maxInput:   cfg.MaxInput,
	}
}

func (t *OpenAITranslator) systemPrompt() string {
	return fmt.Sprintf(
		"You translate e-commerce product texts into %s. "+
			"Reply with the translation only. Keep brand names, model numbers and units unchanged.",
		t.targetLang,
	)
}

// Translate переводит текст. Текст длиннее MaxInput обрезается.
func (t *OpenAITranslator) Translate(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	if r := []rune(text); len(r) > t.maxInput {
		text = strings.TrimSpace(string(r[:t.maxInput]))
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: t.systemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: defaultTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("ошибка запроса перевода: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptyTranslation
	}
	return out, nil
}
