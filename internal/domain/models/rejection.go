package models

import (
	"errors"
	"fmt"
)

// RejectionReason описывает причину, по которой запись не превратилась в карточку
type RejectionReason string

const (
	// ReasonMissingRequiredField отсутствует обязательное поле или цена не положительная
	ReasonMissingRequiredField RejectionReason = "MISSING_REQUIRED_FIELD"
	// ReasonTransformError непредвиденная ошибка при сборке карточки
	ReasonTransformError RejectionReason = "TRANSFORM_ERROR"
)

// Rejection фиксирует отклоненную запись и ее позицию во входной партии
type Rejection struct {
	Index  int             `json:"index"`
	Title  string          `json:"title,omitempty"`
	Reason RejectionReason `json:"reason"`
	Detail string          `json:"detail,omitempty"`
}

// RejectionError ошибка сборки карточки с кодом причины
type RejectionError struct {
	Index  int
	Title  string
	Reason RejectionReason
	Err    error
}

// NewRejectionError создает ошибку отклонения записи
func NewRejectionError(index int, title string, reason RejectionReason, err error) *RejectionError {
	return &RejectionError{Index: index, Title: title, Reason: reason, Err: err}
}

func (e *RejectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("запись %d отклонена: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("запись %d отклонена: %s: %v", e.Index, e.Reason, e.Err)
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}

// Rejection преобразует ошибку в запись об отклонении
func (e *RejectionError) Rejection() Rejection {
	r := Rejection{Index: e.Index, Title: e.Title, Reason: e.Reason}
	if e.Err != nil {
		r.Detail = e.Err.Error()
	}
	return r
}

// AsRejection извлекает причину отклонения из цепочки ошибок.
// Любая ошибка без кода считается TRANSFORM_ERROR.
func AsRejection(index int, title string, err error) Rejection {
	var rejErr *RejectionError
	if errors.As(err, &rejErr) {
		return rejErr.Rejection()
	}
	return NewRejectionError(index, title, ReasonTransformError, err).Rejection()
}
