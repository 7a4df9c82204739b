package normalizer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/athebyme/listing-pipeline/internal/adapters/logger"
)

const longDescription = "A lightweight hydrating serum with hyaluronic acid that absorbs quickly and leaves skin soft."

func TestDescriptionBuilder_UsesDescription(t *testing.T) {
	b := NewDescriptionBuilder(nil, logger.NewNopLogger())

	got := b.Build(context.Background(), "<p>"+longDescription+"</p>", nil, "Serum")
	if got != longDescription {
		t.Errorf("Build = %q, want stripped description", got)
	}
}

func TestDescriptionBuilder_FeaturesJoined(t *testing.T) {
	b := NewDescriptionBuilder(nil, logger.NewNopLogger())
	features := []string{
		"Deeply hydrates dry and dehydrated skin",
		"Fragrance free and non comedogenic formula",
		"Dermatologist tested for sensitive skin",
		"Fourth feature is ignored",
	}

	got := b.Build(context.Background(), "", features, "Serum")
	want := strings.Join(features[:3], " / ")
	if got != want {
		t.Errorf("Build = %q, want %q", got, want)
	}
}

func TestDescriptionBuilder_ShortFallsBackToBoilerplate(t *testing.T) {
	b := NewDescriptionBuilder(nil, logger.NewNopLogger())

	got := b.Build(context.Background(), "Too short", nil, "CeraVe 수분 세럼")
	if !strings.HasPrefix(got, "CeraVe 수분 세럼") {
		t.Errorf("Build = %q, want boilerplate starting with the title", got)
	}
	if !strings.Contains(got, "프리미엄 스킨케어 세럼") {
		t.Errorf("Build = %q, want serum boilerplate", got)
	}
	if strings.Contains(got, "\n") {
		t.Errorf("Build returned unsanitized text: %q", got)
	}
}

func TestDescriptionBuilder_TranslationFailureKeepsSource(t *testing.T) {
	tr := &MockTranslator{
		TranslateFunc: func(context.Context, string) (string, error) {
			return "", errors.New("unavailable")
		},
	}
	b := NewDescriptionBuilder(tr, logger.NewNopLogger())

	got := b.Build(context.Background(), longDescription, nil, "Serum")
	if got != longDescription {
		t.Errorf("Build = %q, want source description", got)
	}
}

func TestDescriptionBuilder_Capped(t *testing.T) {
	b := NewDescriptionBuilder(nil, logger.NewNopLogger())

	got := b.Build(context.Background(), strings.Repeat("가나다 ", 20000), nil, "Serum")
	if c := utf8.RuneCountInString(got); c != DefaultDescriptionMaxLength {
		t.Errorf("description length = %d, want %d", c, DefaultDescriptionMaxLength)
	}
}

func TestBoilerplate(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Vitamin C Serum", "프리미엄 스킨케어 세럼"},
		{"레티놀 크림", "프리미엄 스킨케어 크림"},
		{"Sunscreen SPF 50", "프리미엄 뷰티 제품"},
	}

	for _, tt := range tests {
		if got := Boilerplate(tt.title); !strings.Contains(got, tt.want) {
			t.Errorf("Boilerplate(%q) = %q, want it to contain %q", tt.title, got, tt.want)
		}
	}
}
