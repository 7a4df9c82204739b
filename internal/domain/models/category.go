package models

// CategoryCode представляет код категории целевого маркетплейса
type CategoryCode string

// String возвращает код в виде строки
func (c CategoryCode) String() string {
	return string(c)
}

// CategoryNode описывает категорию целевой таксономии
type CategoryNode struct {
	Code     CategoryCode `json:"code" yaml:"code"`
	Name     string       `json:"name" yaml:"name"`
	Path     string       `json:"path" yaml:"path"`
	LeafCode CategoryCode `json:"leaf_code,omitempty" yaml:"leaf"`
}

// Leaf возвращает код конечной категории. Если он не указан, категория сама является конечной
func (n CategoryNode) Leaf() CategoryCode {
	if n.LeafCode != "" {
		return n.LeafCode
	}
	return n.Code
}
