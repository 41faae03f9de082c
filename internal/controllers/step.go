package controllers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"

	"production-system/internal/dto"
	"production-system/internal/services"
	apperrors "production-system/pkg/errors"
	"production-system/pkg/utils"
)

type StepController struct {
	stepService services.StepServiceInterface
	logger      *zap.Logger
}

func NewStepController(stepService services.StepServiceInterface, logger *zap.Logger) *StepController {
	return &StepController{stepService: stepService, logger: logger}
}

func (c *StepController) FindStep(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	res, err := c.stepService.FindStep(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, res, "Шаг найден", http.StatusOK)
}

func (c *StepController) StartStep(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	var payload dto.StartStepDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Некорректное тело запроса", err))
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Ошибка валидации", err))
	}

	started, err := c.stepService.StartStep(ctx.Request().Context(), id, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, started, "Шаг взят в работу", http.StatusOK)
}

func (c *StepController) CompleteStep(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	var payload dto.CompleteStepDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Некорректное тело запроса", err))
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Ошибка валидации", err))
	}

	completed, err := c.stepService.CompleteStep(ctx.Request().Context(), id, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, completed, "Шаг завершён", http.StatusOK)
}

func (c *StepController) SkipStep(ctx echo.Context) error {
	return c.withReason(ctx, c.stepService.SkipStep, "Шаг пропущен")
}

func (c *StepController) FailStep(ctx echo.Context) error {
	return c.withReason(ctx, c.stepService.FailStep, "Шаг помечен проваленным")
}

func (c *StepController) withReason(ctx echo.Context, op func(reqCtx context.Context, id uint64, payload dto.StepReasonDTO) (*dto.StepDTO, error), message string) error {
	id, err := parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	var payload dto.StepReasonDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Некорректное тело запроса", err))
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Ошибка валидации", err))
	}

	res, err := op(ctx.Request().Context(), id, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, res, message, http.StatusOK)
}
