package utils

import (
	"errors"
	"net/http"

	apperrors "production-system/pkg/errors"

	"github.com/labstack/echo/v4"
)

type HttpResponse struct {
	Status  bool        `json:"status"`
	Body    interface{} `json:"body,omitempty"`
	Message string      `json:"message"`
}

func SuccessResponse(ctx echo.Context, body interface{}, message string, code int) error {
	return ctx.JSON(code, &HttpResponse{
		Status:  true,
		Body:    body,
		Message: message,
	})
}

// ErrorResponse транслирует типизированные ошибки ядра в HTTP-коды.
// Конфликт расписаний и конкурентное обновление отдаются как 409,
// нарушение графа статусов — как 422.
func ErrorResponse(ctx echo.Context, err error) error {
	code := http.StatusInternalServerError
	message := err.Error()

	var httpErr *apperrors.HttpError
	var validationErr *apperrors.ValidationError
	var transitionErr *apperrors.StateTransitionError
	var conflictErr *apperrors.ConflictError
	var exhaustedErr *apperrors.SchedulingExhaustedError

	switch {
	case errors.As(err, &httpErr):
		code = httpErr.Code
		message = httpErr.Message
	case errors.As(err, &validationErr):
		code = http.StatusBadRequest
	case errors.As(err, &transitionErr):
		code = http.StatusUnprocessableEntity
	case errors.As(err, &conflictErr):
		code = http.StatusConflict
	case errors.As(err, &exhaustedErr):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrConcurrency),
		errors.Is(err, apperrors.ErrConflict):
		code = http.StatusConflict
	case errors.Is(err, apperrors.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, apperrors.ErrBadRequest):
		code = http.StatusBadRequest
	case errors.Is(err, apperrors.ErrEmptyAuthHeader),
		errors.Is(err, apperrors.ErrInvalidAuthHeader),
		errors.Is(err, apperrors.ErrInvalidToken),
		errors.Is(err, apperrors.ErrTokenExpired):
		code = http.StatusUnauthorized
	}

	return ctx.JSON(code, &HttpResponse{
		Status:  false,
		Body:    struct{}{},
		Message: message,
	})
}
