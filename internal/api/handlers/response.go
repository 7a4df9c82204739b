package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/athebyme/listing-pipeline/internal/adapters/source"
	"github.com/athebyme/listing-pipeline/internal/domain/models"
	"github.com/go-chi/render"
)

// errorResponse представляет структуру ответа с ошибкой
type errorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// response представляет структуру успешного ответа
type response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{
		Error:   code,
		Code:    status,
		Message: message,
	})
}

func writeData(w http.ResponseWriter, r *http.Request, status int, data, meta interface{}) {
	render.Status(r, status)
	render.JSON(w, r, response{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// decodeProducts читает записи сборщика из тела запроса в формате JSON или CSV
func decodeProducts(r *http.Request) ([]models.RawProduct, error) {
	format, err := source.FormatFromContentType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	products, err := source.Decode(r.Body, format)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать записи: %w", err)
	}
	return products, nil
}

// writeDecodeError отвечает на ошибку чтения входных записей
func writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		writeError(w, r, http.StatusRequestEntityTooLarge, "too_large", "Тело запроса слишком большое")
	case errors.Is(err, source.ErrUnsupportedFormat):
		writeError(w, r, http.StatusUnsupportedMediaType, "unsupported_media_type", err.Error())
	default:
		writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
	}
}
