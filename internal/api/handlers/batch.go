package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/athebyme/listing-pipeline/internal/domain/models"
	"github.com/athebyme/listing-pipeline/internal/domain/services"
	"github.com/athebyme/listing-pipeline/internal/utils"
	"github.com/athebyme/listing-pipeline/pkg/interfaces"
	pkgutils "github.com/athebyme/listing-pipeline/pkg/utils"
	"github.com/go-chi/chi/v5"
)

// pollIntervalSeconds рекомендуемый интервал опроса выполняющейся партии
const pollIntervalSeconds = 2

// BatchHandler обработчик запросов публикации партий
type BatchHandler struct {
	pipeline services.PipelineServiceInterface
	logger   interfaces.LoggerPort
}

// NewBatchHandler создает новый обработчик партий
func NewBatchHandler(pipeline services.PipelineServiceInterface, logger interfaces.LoggerPort) *BatchHandler {
	return &BatchHandler{
		pipeline: pipeline,
		logger:   logger,
	}
}

// StartBatch запускает публикацию партии в фоне
func (h *BatchHandler) StartBatch(w http.ResponseWriter, r *http.Request) {
	raws, err := decodeProducts(r)
	if err != nil {
		writeDecodeError(w, r, err)
		return
	}

	started, err := h.pipeline.StartPublish(r.Context(), raws)
	if err != nil {
		h.writePublishError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/batches/"+started.BatchID)
	writeData(w, r, http.StatusAccepted, started, nil)
}

// PublishSync публикует партию и возвращает итог после ее завершения
func (h *BatchHandler) PublishSync(w http.ResponseWriter, r *http.Request) {
	raws, err := decodeProducts(r)
	if err != nil {
		writeDecodeError(w, r, err)
		return
	}

	result, rejections, err := h.pipeline.Publish(r.Context(), raws)
	if err != nil {
		h.writePublishError(w, r, err)
		return
	}

	status := http.StatusOK
	if result.State == models.BatchStateAuthFailed {
		status = http.StatusBadGateway
	}
	writeData(w, r, status, result, map[string]interface{}{
		"rejections": rejections,
	})
}

func (h *BatchHandler) writePublishError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, utils.ErrPublisherDisabled):
		writeError(w, r, http.StatusServiceUnavailable, "publisher_disabled", "Публикация на маркетплейсе не настроена")
	case errors.Is(err, utils.ErrNothingToPublish):
		writeError(w, r, http.StatusUnprocessableEntity, "nothing_to_publish", "Ни одна запись не прошла сборку карточки")
	default:
		h.logger.ErrorWithContext(r.Context(), "Ошибка запуска публикации",
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
		writeError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка запуска публикации")
	}
}

// GetBatch возвращает состояние партии
func (h *BatchHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "id")

	result, err := h.pipeline.GetBatch(r.Context(), batchID)
	if err != nil {
		h.writeLookupError(w, r, batchID, err)
		return
	}

	if !result.State.Terminal() {
		w.Header().Set("Retry-After", strconv.Itoa(pollIntervalSeconds))
	}
	writeData(w, r, http.StatusOK, result, nil)
}

// CancelBatch останавливает выполняющуюся партию
func (h *BatchHandler) CancelBatch(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "id")

	if err := h.pipeline.CancelBatch(r.Context(), batchID); err != nil {
		if errors.Is(err, utils.ErrBatchNotRunning) {
			writeError(w, r, http.StatusConflict, "conflict", "Партия уже завершена")
			return
		}
		h.writeLookupError(w, r, batchID, err)
		return
	}

	writeData(w, r, http.StatusAccepted, map[string]string{"batch_id": batchID, "status": "cancelling"}, nil)
}

func (h *BatchHandler) writeLookupError(w http.ResponseWriter, r *http.Request, batchID string, err error) {
	switch {
	case errors.Is(err, utils.ErrInvalidBatchID):
		writeError(w, r, http.StatusBadRequest, "bad_request", "Некорректный ID партии")
	case errors.Is(err, utils.ErrBatchNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", "Партия не найдена")
	default:
		h.logger.ErrorWithContext(r.Context(), "Ошибка получения партии",
			interfaces.LogField{Key: "batch_id", Value: batchID},
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
		writeError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка получения партии")
	}
}

// ListBatches возвращает журнал партий с пагинацией и фильтрами
func (h *BatchHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	sortBy, sortDesc := models.BatchSortStartedAt, true
	if raw := q.Get("sort"); raw != "" {
		sortBy, sortDesc = pkgutils.ParseSort(raw)
	}

	filter := &models.BatchFilter{}
	if state := q.Get("state"); state != "" {
		for _, s := range strings.Split(state, ",") {
			filter.States = append(filter.States, models.BatchState(strings.ToUpper(strings.TrimSpace(s))))
		}
	}
	if v, err := strconv.ParseBool(q.Get("cancelled")); err == nil {
		filter.Cancelled = &v
	}
	if v, err := strconv.ParseBool(q.Get("with_failures")); err == nil {
		filter.WithFailures = v
	}
	if v, err := time.Parse(time.RFC3339, q.Get("started_after")); err == nil {
		filter.StartedAfter = v
	}
	if v, err := time.Parse(time.RFC3339, q.Get("started_before")); err == nil {
		filter.StartedBefore = v
	}

	result, err := h.pipeline.ListBatches(r.Context(), filter, pkgutils.NewPagination(page, pageSize, sortBy, sortDesc))
	if err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка получения списка партий",
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
		writeError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка получения списка партий")
		return
	}

	writeData(w, r, http.StatusOK, result.Items, result.Pagination)
}
