package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/athebyme/listing-pipeline/internal/domain/models"
	"github.com/athebyme/listing-pipeline/internal/utils"
	pkgutils "github.com/athebyme/listing-pipeline/pkg/utils"
)

// MemoryLedger журнал партий в памяти процесса
type MemoryLedger struct {
	mu      sync.RWMutex
	batches map[string]*models.BatchResult
}

// NewMemoryLedger создает пустой журнал партий
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{batches: make(map[string]*models.BatchResult)}
}

// SaveBatch сохраняет копию итога партии
func (m *MemoryLedger) SaveBatch(_ context.Context, result *models.BatchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[result.ID] = result.Clone()
	return nil
}

// GetBatch возвращает копию итога партии
func (m *MemoryLedger) GetBatch(_ context.Context, batchID string) (*models.BatchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.batches[batchID]
	if !ok {
		return nil, utils.ErrBatchNotFound
	}
	return r.Clone(), nil
}

// ListBatches возвращает страницу партий в порядке сортировки пагинации
func (m *MemoryLedger) ListBatches(_ context.Context, filters map[string]interface{}, pagination *pkgutils.Pagination) ([]models.BatchSummary, int, error) {
	m.mu.RLock()
	matched := make([]models.BatchSummary, 0, len(m.batches))
	for _, r := range m.batches {
		if matchFilters(r, filters) {
			matched = append(matched, r.Summary())
		}
	}
	m.mu.RUnlock()

	less := batchLess(pagination.SortField(models.BatchSortStartedAt, models.BatchSortFields...))
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if pagination.SortDesc {
			a, b = b, a
		}
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	from := pagination.GetOffset()
	if from >= total {
		return []models.BatchSummary{}, total, nil
	}
	to := from + pagination.GetLimit()
	if to > total {
		to = total
	}
	return matched[from:to], total, nil
}

// batchLess сравнение записей журнала по полю сортировки
func batchLess(field string) func(a, b models.BatchSummary) bool {
	switch field {
	case models.BatchSortFinishedAt:
		return func(a, b models.BatchSummary) bool { return a.FinishedAt.Before(b.FinishedAt) }
	case models.BatchSortTotal:
		return func(a, b models.BatchSummary) bool { return a.Total < b.Total }
	case models.BatchSortSucceeded:
		return func(a, b models.BatchSummary) bool { return a.Succeeded < b.Succeeded }
	case models.BatchSortFailed:
		return func(a, b models.BatchSummary) bool { return a.Failed < b.Failed }
	default:
		return func(a, b models.BatchSummary) bool { return a.StartedAt.Before(b.StartedAt) }
	}
}

// matchFilters применяет фильтры BatchFilter.ToMap к партии
func matchFilters(r *models.BatchResult, filters map[string]interface{}) bool {
	if v, ok := filters["state"].(string); ok && string(r.State) != v {
		return false
	}
	if v, ok := filters["states"].([]string); ok && len(v) > 0 {
		found := false
		for _, s := range v {
			if string(r.State) == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if v, ok := filters["cancelled"].(bool); ok && r.Cancelled != v {
		return false
	}
	if v, ok := filters["started_after"].(time.Time); ok && r.StartedAt.Before(v) {
		return false
	}
	if v, ok := filters["started_before"].(time.Time); ok && !r.StartedAt.Before(v) {
		return false
	}
	if v, ok := filters["with_failures"].(bool); ok && v && r.Failed == 0 {
		return false
	}
	return true
}
