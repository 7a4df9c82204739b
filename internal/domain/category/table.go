package category

import (
	"fmt"
	"os"

	"github.com/athebyme/listing-pipeline/internal/domain/models"
	"gopkg.in/yaml.v3"
)

// Rule сопоставляет набор ключевых слов с кодом категории
type Rule struct {
	Keywords []string            `yaml:"keywords"`
	Code     models.CategoryCode `yaml:"code"`
}

// Table правила классификации и таксономия целевого маркетплейса.
// Порядок правил значим: побеждает первое совпадение.
type Table struct {
	Default    models.CategoryCode   `yaml:"default"`
	TitleRules []Rule                `yaml:"title_rules"`
	HintRules  []Rule                `yaml:"hint_rules"`
	Taxonomy   []models.CategoryNode `yaml:"taxonomy"`
}

// DefaultTable возвращает встроенную таблицу категорий SmartStore
func DefaultTable() Table {
	return Table{
		Default: "50000169",
		TitleRules: []Rule{
			{Keywords: []string{"serum", "세럼", "essence", "에센스"}, Code: "50000169"},
			{Keywords: []string{"cream", "크림", "moisturizer", "모이스처"}, Code: "50000167"},
			{Keywords: []string{"retinol", "레티놀"}, Code: "50000167"},
			{Keywords: []string{"hyaluronic", "히알루론산"}, Code: "50000169"},
			{Keywords: []string{"vitamin c", "비타민c", "vitamin-c"}, Code: "50000169"},
		},
		HintRules: []Rule{
			{Keywords: []string{"serum"}, Code: "50000169"},
			{Keywords: []string{"cream"}, Code: "50000167"},
			{Keywords: []string{"skincare", "beauty", "cosmetics"}, Code: "50000166"},
			{Keywords: []string{"hyaluronic"}, Code: "50000169"},
			{Keywords: []string{"retinol"}, Code: "50000167"},
			{Keywords: []string{"vitamin_c"}, Code: "50000169"},
			{Keywords: []string{"protein", "vitamin", "supplement"}, Code: "50006674"},
			{Keywords: []string{"baby"}, Code: "50002436"},
			{Keywords: []string{"pet"}, Code: "50002439"},
			{Keywords: []string{"home"}, Code: "50000131"},
			{Keywords: []string{"kitchen"}, Code: "50000156"},
			{Keywords: []string{"tech"}, Code: "50000128"},
			{Keywords: []string{"fashion"}, Code: "50000001"},
			{Keywords: []string{"office"}, Code: "50000145"},
		},
		Taxonomy: []models.CategoryNode{
			{Code: "50000169", Name: "에센스/세럼", Path: "뷰티 > 스킨케어 > 에센스/세럼"},
			{Code: "50000167", Name: "크림", Path: "뷰티 > 스킨케어 > 크림"},
			{Code: "50000166", Name: "스킨케어", Path: "뷰티 > 스킨케어", LeafCode: "50000169"},
			{Code: "50006674", Name: "비타민/미네랄", Path: "건강 > 건강기능식품 > 비타민/미네랄"},
			{Code: "50002436", Name: "출산/육아", Path: "출산/육아"},
			{Code: "50002439", Name: "반려동물", Path: "생활/건강 > 반려동물"},
			{Code: "50000131", Name: "생활용품", Path: "생활/건강 > 생활용품"},
			{Code: "50000156", Name: "주방용품", Path: "생활/건강 > 주방용품"},
			{Code: "50000128", Name: "디지털/가전", Path: "디지털/가전"},
			{Code: "50000001", Name: "패션의류", Path: "패션의류"},
			{Code: "50000145", Name: "문구/사무용품", Path: "생활/건강 > 문구/사무용품"},
		},
	}
}

// LoadTable читает таблицу категорий из YAML-файла.
// Пустой путь означает встроенную таблицу.
func LoadTable(path string) (Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("ошибка чтения таблицы категорий: %w", err)
	}

	return ParseTable(data)
}

// ParseTable разбирает таблицу категорий из YAML
func ParseTable(data []byte) (Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Table{}, fmt.Errorf("ошибка разбора таблицы категорий: %w", err)
	}
	return t, nil
}
