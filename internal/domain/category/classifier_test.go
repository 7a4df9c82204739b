package category

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/athebyme/listing-pipeline/internal/domain/models"
)

func newDefaultClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier(DefaultTable())
	if err != nil {
		t.Fatalf("NewClassifier failed: %v", err)
	}
	return c
}

func TestClassifier_Classify(t *testing.T) {
	c := newDefaultClassifier(t)

	tests := []struct {
		name  string
		title string
		hint  string
		want  models.CategoryCode
	}{
		{"serum in title", "Hydrating Serum 30ml", "", "50000169"},
		{"korean cream", "레티놀 크림", "", "50000167"},
		{"title beats hint", "Vitamin C Serum", "protein", "50000169"},
		{"title beats supplement hint", "Daily Moisturizer", "supplement", "50000167"},
		{"first title rule wins", "Retinol Serum", "", "50000169"},
		{"retinol rule", "Retinol Night Treatment", "", "50000167"},
		{"vitamin c with hyphen", "Vitamin-C Brightening Drops", "", "50000169"},
		{"hint fallback", "Whey Isolate 2lb", "protein", "50006674"},
		{"hint case insensitive", "Stroller Organizer", "Baby", "50002436"},
		{"hint order", "Dog Bowl", "pet kitchen", "50002439"},
		{"unknown falls back to default", "Mystery Gadget", "unknown", "50000169"},
		{"empty input falls back to default", "", "", "50000169"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.title, tt.hint); got != tt.want {
				t.Errorf("Classify(%q, %q) = %s, want %s", tt.title, tt.hint, got, tt.want)
			}
		})
	}
}

func TestClassifier_ResultAlwaysInTaxonomy(t *testing.T) {
	c := newDefaultClassifier(t)

	inputs := [][2]string{
		{"Serum", ""}, {"", "office"}, {"", "fashion"}, {"random", "random"}, {"", "skincare"},
	}
	for _, in := range inputs {
		code := c.Classify(in[0], in[1])
		if _, ok := c.Node(code); !ok {
			t.Errorf("Classify(%q, %q) = %s, not present in taxonomy", in[0], in[1], code)
		}
	}
}

func TestNewClassifier_Validation(t *testing.T) {
	t.Run("missing default", func(t *testing.T) {
		table := DefaultTable()
		table.Default = ""
		if _, err := NewClassifier(table); !errors.Is(err, ErrNoDefault) {
			t.Errorf("error = %v, want ErrNoDefault", err)
		}
	})

	t.Run("default not in taxonomy", func(t *testing.T) {
		table := DefaultTable()
		table.Default = "99999999"
		if _, err := NewClassifier(table); !errors.Is(err, ErrUnknownCategory) {
			t.Errorf("error = %v, want ErrUnknownCategory", err)
		}
	})

	t.Run("rule code not in taxonomy", func(t *testing.T) {
		table := DefaultTable()
		table.HintRules = append(table.HintRules, Rule{Keywords: []string{"toys"}, Code: "12345678"})
		if _, err := NewClassifier(table); !errors.Is(err, ErrUnknownCategory) {
			t.Errorf("error = %v, want ErrUnknownCategory", err)
		}
	})

	t.Run("rule without keywords", func(t *testing.T) {
		table := DefaultTable()
		table.TitleRules = append(table.TitleRules, Rule{Keywords: []string{" "}, Code: "50000169"})
		if _, err := NewClassifier(table); !errors.Is(err, ErrEmptyRule) {
			t.Errorf("error = %v, want ErrEmptyRule", err)
		}
	})
}

func TestLoadTable(t *testing.T) {
	yamlData := `
default: "100"
title_rules:
  - keywords: ["Toner"]
    code: "200"
hint_rules:
  - keywords: ["beauty"]
    code: "100"
taxonomy:
  - code: "100"
    name: "Beauty"
    path: "Beauty"
  - code: "200"
    name: "Toner"
    path: "Beauty > Toner"
`
	path := filepath.Join(t.TempDir(), "categories.yaml")
	if err := os.WriteFile(path, []byte(yamlData), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	table, err := LoadTable(path)
	if err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}
	c, err := NewClassifier(table)
	if err != nil {
		t.Fatalf("NewClassifier failed: %v", err)
	}

	if got := c.Classify("Rose toner", ""); got != "200" {
		t.Errorf("Classify = %s, want 200", got)
	}
	if got := c.Classify("Lip balm", ""); got != "100" {
		t.Errorf("Classify = %s, want default 100", got)
	}
	node, _ := c.Node("200")
	if node.Path != "Beauty > Toner" || node.Leaf() != "200" {
		t.Errorf("Node(200) = %+v, want path Beauty > Toner", node)
	}
}

func TestLoadTable_EmptyPathUsesDefault(t *testing.T) {
	table, err := LoadTable("")
	if err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}
	if table.Default != DefaultTable().Default {
		t.Errorf("Default = %s, want built-in default", table.Default)
	}
}

func TestLoadTable_MissingFile(t *testing.T) {
	if _, err := LoadTable(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadTable returned nil error for missing file")
	}
}

func TestLoadTable_SampleConfig(t *testing.T) {
	table, err := LoadTable(filepath.Join("..", "..", "..", "config", "categories.yaml"))
	if err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}
	c, err := NewClassifier(table)
	if err != nil {
		t.Fatalf("NewClassifier failed: %v", err)
	}

	if got := c.Classify("Hydrating Face Cream 50ml", "beauty"); got != "50000167" {
		t.Errorf("Classify = %s, want 50000167", got)
	}
	if got := c.Classify("Dog Leash", "pet"); got != "50002439" {
		t.Errorf("Classify = %s, want 50002439", got)
	}
	if c.Default() != table.Default {
		t.Errorf("Default = %s, want %s", c.Default(), table.Default)
	}
	if got := c.Classify("Plain Widget", ""); got != c.Default() {
		t.Errorf("Classify of unmatched title = %s, want default %s", got, c.Default())
	}
}
