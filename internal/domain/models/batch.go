package models

import "time"

// FailureCode код ошибки публикации или выгрузки
type FailureCode string

const (
	FailureAuth            FailureCode = "AUTH_FAILURE"
	FailureMediaFetch      FailureCode = "MEDIA_FETCH_FAILURE"
	FailureTranslation     FailureCode = "TRANSLATION_FAILURE"
	FailurePublishRejected FailureCode = "PUBLISH_REJECTED"
	FailureExportEmpty     FailureCode = "EXPORT_EMPTY"
	FailureNetworkTimeout  FailureCode = "NETWORK_TIMEOUT"
	FailureTransform       FailureCode = "TRANSFORM_ERROR"
)

// BatchState состояние партии публикации
type BatchState string

const (
	BatchStateInit          BatchState = "INIT"
	BatchStateAuthenticated BatchState = "AUTHENTICATED"
	BatchStatePublishing    BatchState = "PUBLISHING"
	BatchStateCompleted     BatchState = "COMPLETED"
	BatchStateAuthFailed    BatchState = "AUTH_FAILED"
)

// Terminal сообщает, является ли состояние конечным
func (s BatchState) Terminal() bool {
	return s == BatchStateCompleted || s == BatchStateAuthFailed
}

// ExclusionReason причина, по которой карточка не отправлялась
type ExclusionReason string

const (
	ExcludedCancelled  ExclusionReason = "CANCELLED"
	ExcludedDailyLimit ExclusionReason = "DAILY_LIMIT"
)

// PublishOutcome результат публикации одной карточки
type PublishOutcome struct {
	Index          int         `json:"index"`
	SellerCode     string      `json:"seller_code"`
	Title          string      `json:"product_name"`
	Price          int64       `json:"price"`
	Succeeded      bool        `json:"succeeded"`
	RemoteID       string      `json:"product_id,omitempty"`
	FailureCode    FailureCode `json:"failure_code,omitempty"`
	FailureReason  string      `json:"reason,omitempty"`
	ImagesTotal    int         `json:"images_total"`
	ImagesUploaded int         `json:"images_uploaded"`
}

// ExcludedItem карточка, которая не отправлялась на маркетплейс
type ExcludedItem struct {
	Index      int             `json:"index"`
	SellerCode string          `json:"seller_code"`
	Title      string          `json:"product_name"`
	Reason     ExclusionReason `json:"reason"`
}

// BatchResult итог публикации партии.
// Total всегда равен Succeeded + Failed; карточки, до которых не дошла очередь, перечислены в Excluded.
type BatchResult struct {
	ID          string           `json:"id"`
	State       BatchState       `json:"state"`
	Requested   int              `json:"requested"`
	Total       int              `json:"total"`
	Succeeded   int              `json:"success"`
	Failed      int              `json:"failed"`
	Successes   []PublishOutcome `json:"success_products"`
	Failures    []PublishOutcome `json:"failed_products"`
	Excluded    []ExcludedItem   `json:"excluded,omitempty"`
	Cancelled   bool             `json:"cancelled"`
	FailureCode FailureCode      `json:"failure_code,omitempty"`
	Error       string           `json:"error,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  time.Time        `json:"finished_at"`
}

// NewBatchResult создает пустой результат партии
func NewBatchResult(id string, requested int, startedAt time.Time) *BatchResult {
	return &BatchResult{
		ID:        id,
		State:     BatchStateInit,
		Requested: requested,
		Successes: []PublishOutcome{},
		Failures:  []PublishOutcome{},
		StartedAt: startedAt,
	}
}

// Record добавляет результат публикации карточки
func (r *BatchResult) Record(o PublishOutcome) {
	r.Total++
	if o.Succeeded {
		r.Succeeded++
		r.Successes = append(r.Successes, o)
		return
	}
	r.Failed++
	r.Failures = append(r.Failures, o)
}

// Exclude отмечает карточку как не отправленную
func (r *BatchResult) Exclude(index int, l Listing, reason ExclusionReason) {
	r.Excluded = append(r.Excluded, ExcludedItem{
		Index:      index,
		SellerCode: l.SellerCode,
		Title:      l.Title,
		Reason:     reason,
	})
	if reason == ExcludedCancelled {
		r.Cancelled = true
	}
}

// Clone возвращает независимую копию результата
func (r *BatchResult) Clone() *BatchResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Successes = append([]PublishOutcome{}, r.Successes...)
	c.Failures = append([]PublishOutcome{}, r.Failures...)
	if r.Excluded != nil {
		c.Excluded = append([]ExcludedItem{}, r.Excluded...)
	}
	return &c
}

// Outcomes возвращает все результаты в порядке входной партии
func (r *BatchResult) Outcomes() []PublishOutcome {
	all := make([]PublishOutcome, 0, r.Total)
	s, f := 0, 0
	for s < len(r.Successes) || f < len(r.Failures) {
		switch {
		case f >= len(r.Failures):
			all = append(all, r.Successes[s])
			s++
		case s >= len(r.Successes):
			all = append(all, r.Failures[f])
			f++
		case r.Successes[s].Index < r.Failures[f].Index:
			all = append(all, r.Successes[s])
			s++
		default:
			all = append(all, r.Failures[f])
			f++
		}
	}
	return all
}

// BatchSummary краткая запись о партии для списков
type BatchSummary struct {
	ID         string     `json:"id"`
	State      BatchState `json:"state"`
	Requested  int        `json:"requested"`
	Total      int        `json:"total"`
	Succeeded  int        `json:"success"`
	Failed     int        `json:"failed"`
	Cancelled  bool       `json:"cancelled"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
}

// Summary возвращает краткую запись о партии
func (r *BatchResult) Summary() BatchSummary {
	return BatchSummary{
		ID:         r.ID,
		State:      r.State,
		Requested:  r.Requested,
		Total:      r.Total,
		Succeeded:  r.Succeeded,
		Failed:     r.Failed,
		Cancelled:  r.Cancelled,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}
