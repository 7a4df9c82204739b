package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/athebyme/listing-pipeline/internal/adapters/export"
	"github.com/athebyme/listing-pipeline/internal/domain/services"
	"github.com/athebyme/listing-pipeline/internal/utils"
	"github.com/athebyme/listing-pipeline/pkg/interfaces"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ListingHandler обработчик запросов сборки и выгрузки карточек
type ListingHandler struct {
	pipeline services.PipelineServiceInterface
	logger   interfaces.LoggerPort
}

// NewListingHandler создает новый обработчик карточек
func NewListingHandler(pipeline services.PipelineServiceInterface, logger interfaces.LoggerPort) *ListingHandler {
	return &ListingHandler{
		pipeline: pipeline,
		logger:   logger,
	}
}

// Assemble собирает карточки и возвращает их вместе с отклоненными записями
func (h *ListingHandler) Assemble(w http.ResponseWriter, r *http.Request) {
	raws, err := decodeProducts(r)
	if err != nil {
		writeDecodeError(w, r, err)
		return
	}

	result := h.pipeline.Assemble(r.Context(), raws)

	writeData(w, r, http.StatusOK, result, map[string]int{
		"input":    len(raws),
		"listings": len(result.Listings),
		"rejected": len(result.Rejections),
	})
}

// Export формирует документ выгрузки и отдает его файлом
func (h *ListingHandler) Export(w http.ResponseWriter, r *http.Request) {
	artifact := export.Artifact(r.URL.Query().Get("artifact"))
	if artifact == "" {
		artifact = export.ArtifactUpload
	}

	raws, err := decodeProducts(r)
	if err != nil {
		writeDecodeError(w, r, err)
		return
	}

	doc, err := h.pipeline.Render(r.Context(), raws, artifact)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrInvalidArtifact):
			writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		case errors.Is(err, export.ErrExportEmpty):
			writeError(w, r, http.StatusUnprocessableEntity, "export_empty", "Ни одна запись не прошла сборку карточки")
		default:
			h.logger.ErrorWithContext(r.Context(), "Ошибка формирования документа выгрузки",
				interfaces.LogField{Key: "artifact", Value: artifact},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
			writeError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка формирования документа")
		}
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Content)))
	w.Header().Set("X-Rejected-Count", strconv.Itoa(len(doc.Rejections)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Content); err != nil {
		h.logger.WarnWithContext(r.Context(), "Не удалось отправить документ выгрузки",
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
	}
}
