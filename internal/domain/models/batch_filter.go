package models

import "time"

// Поля сортировки журнала партий
const (
	BatchSortStartedAt  = "started_at"
	BatchSortFinishedAt = "finished_at"
	BatchSortTotal      = "total"
	BatchSortSucceeded  = "succeeded"
	BatchSortFailed     = "failed"
)

// BatchSortFields допустимые поля сортировки журнала партий
var BatchSortFields = []string{
	BatchSortStartedAt, BatchSortFinishedAt, BatchSortTotal, BatchSortSucceeded, BatchSortFailed,
}

// BatchFilter представляет параметры выборки партий из журнала
type BatchFilter struct {
	// Фильтрация по состоянию
	State     BatchState   `json:"state,omitempty"`
	States    []BatchState `json:"states,omitempty"`
	Cancelled *bool        `json:"cancelled,omitempty"`

	// Фильтрация по времени запуска
	StartedAfter  time.Time `json:"started_after,omitempty"`
	StartedBefore time.Time `json:"started_before,omitempty"`

	// Только партии с ошибками публикации
	WithFailures bool `json:"with_failures,omitempty"`
}

// ToMap преобразует BatchFilter в map для построения запроса
func (f *BatchFilter) ToMap() map[string]interface{} {
	result := make(map[string]interface{})

	if f.State != "" {
		result["state"] = string(f.State)
	}

	if len(f.States) > 0 {
		states := make([]string, len(f.States))
		for i, s := range f.States {
			states[i] = string(s)
		}
		result["states"] = states
	}

	if f.Cancelled != nil {
		result["cancelled"] = *f.Cancelled
	}

	if !f.StartedAfter.IsZero() {
		result["started_after"] = f.StartedAfter
	}

	if !f.StartedBefore.IsZero() {
		result["started_before"] = f.StartedBefore
	}

	if f.WithFailures {
		result["with_failures"] = true
	}

	return result
}
