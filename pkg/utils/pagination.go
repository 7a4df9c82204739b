package utils

import "strings"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Pagination параметры страницы и сортировки списка
type Pagination struct {
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalItems int64  `json:"total_items"`
	TotalPages int    `json:"total_pages"`
	SortBy     string `json:"sort_by,omitempty"`
	SortDesc   bool   `json:"sort_desc"`
	HasNext    bool   `json:"has_next"`
	HasPrev    bool   `json:"has_prev"`
}

// NewPagination создает пагинацию, приводя номер и размер страницы к допустимым значениям
func NewPagination(page, pageSize int, sortBy string, sortDesc bool) *Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}

	return &Pagination{
		Page:     page,
		PageSize: pageSize,
		SortBy:   sortBy,
		SortDesc: sortDesc,
	}
}

// ParseSort разбирает параметр сортировки вида "field" или "-field" (по убыванию)
func ParseSort(raw string) (field string, desc bool) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "-") {
		return strings.TrimPrefix(raw, "-"), true
	}
	return raw, false
}

// SetTotal устанавливает общее количество элементов и пересчитывает зависимые поля
func (p *Pagination) SetTotal(totalItems int64) {
	p.TotalItems = totalItems
	p.TotalPages = int((totalItems + int64(p.PageSize) - 1) / int64(p.PageSize))
	p.HasNext = p.Page < p.TotalPages
	p.HasPrev = p.Page > 1
}

// GetOffset возвращает смещение первой записи страницы
func (p *Pagination) GetOffset() int {
	return (p.Page - 1) * p.PageSize
}

// GetLimit возвращает размер страницы
func (p *Pagination) GetLimit() int {
	return p.PageSize
}

// SortField возвращает поле сортировки, если оно входит в allowed, иначе fallback.
// Поле, не прошедшее проверку, сбрасывается в fallback и в самой пагинации.
func (p *Pagination) SortField(fallback string, allowed ...string) string {
	for _, a := range allowed {
		if p.SortBy == a {
			return a
		}
	}
	p.SortBy = fallback
	return fallback
}

// GetSortOrder возвращает выражение ORDER BY по допустимому полю
func (p *Pagination) GetSortOrder(fallback string, allowed ...string) string {
	direction := "ASC"
	if p.SortDesc {
		direction = "DESC"
	}
	return p.SortField(fallback, allowed...) + " " + direction
}

// PagedResult страница элементов вместе с ее пагинацией
type PagedResult struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

// NewPagedResult создает новый результат с пагинацией
func NewPagedResult(items interface{}, pagination *Pagination) *PagedResult {
	return &PagedResult{
		Items:      items,
		Pagination: pagination,
	}
}
