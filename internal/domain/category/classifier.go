package category

import (
	"errors"
	"fmt"
	"strings"

	"github.com/athebyme/listing-pipeline/internal/domain/models"
)

var (
	ErrNoDefault       = errors.New("default category is not set")
	ErrUnknownCategory = errors.New("category is not present in taxonomy")
	ErrEmptyRule       = errors.New("rule has no keywords")
)

// Classifier определяет категорию товара по названию и подсказке источника.
// После создания не изменяется и безопасен для использования из нескольких горутин.
type Classifier struct {
	titleRules []Rule
	hintRules  []Rule
	fallback   models.CategoryCode
	nodes      map[models.CategoryCode]models.CategoryNode
}

// NewClassifier создает классификатор. Все коды правил и код по умолчанию
// должны присутствовать в таксономии.
func NewClassifier(table Table) (*Classifier, error) {
	if table.Default == "" {
		return nil, ErrNoDefault
	}

	nodes := make(map[models.CategoryCode]models.CategoryNode, len(table.Taxonomy))
	for _, n := range table.Taxonomy {
		nodes[n.Code] = n
	}

	check := func(code models.CategoryCode) error {
		if _, ok := nodes[code]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownCategory, code)
		}
		return nil
	}

	if err := check(table.Default); err != nil {
		return nil, err
	}
	for _, n := range table.Taxonomy {
		if n.LeafCode != "" {
			if err := check(n.LeafCode); err != nil {
				return nil, err
			}
		}
	}

	titleRules, err := normalizeRules(table.TitleRules, check)
	if err != nil {
		return nil, fmt.Errorf("title rules: %w", err)
	}
	hintRules, err := normalizeRules(table.HintRules, check)
	if err != nil {
		return nil, fmt.Errorf("hint rules: %w", err)
	}

	return &Classifier{
		titleRules: titleRules,
		hintRules:  hintRules,
		fallback:   table.Default,
		nodes:      nodes,
	}, nil
}

func normalizeRules(rules []Rule, check func(models.CategoryCode) error) ([]Rule, error) {
	out := make([]Rule, 0, len(rules))
	for i, r := range rules {
		if err := check(r.Code); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		keywords := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k != "" {
				keywords = append(keywords, k)
			}
		}
		if len(keywords) == 0 {
			return nil, fmt.Errorf("rule %d: %w", i, ErrEmptyRule)
		}
		out = append(out, Rule{Keywords: keywords, Code: r.Code})
	}
	return out, nil
}

// Classify возвращает код категории: сначала по правилам для названия,
// затем по таблице подсказок, иначе код по умолчанию. Совпадение по названию
// всегда важнее подсказки.
func (c *Classifier) Classify(title, hint string) models.CategoryCode {
	if code, ok := match(c.titleRules, strings.ToLower(title)); ok {
		return code
	}
	if code, ok := match(c.hintRules, strings.ToLower(hint)); ok {
		return code
	}
	return c.fallback
}

// Node возвращает описание категории из таксономии
func (c *Classifier) Node(code models.CategoryCode) (models.CategoryNode, bool) {
	n, ok := c.nodes[code]
	return n, ok
}

// Default возвращает код категории по умолчанию
func (c *Classifier) Default() models.CategoryCode {
	return c.fallback
}

func match(rules []Rule, text string) (models.CategoryCode, bool) {
	if text == "" {
		return "", false
	}
	for _, r := range rules {
		for _, k := range r.Keywords {
			if strings.Contains(text, k) {
				return r.Code, true
			}
		}
	}
	return "", false
}
