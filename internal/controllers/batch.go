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

type BatchController struct {
	batchService services.BatchServiceInterface
	stepService  services.StepServiceInterface
	logger       *zap.Logger
}

func NewBatchController(
	batchService services.BatchServiceInterface,
	stepService services.StepServiceInterface,
	logger *zap.Logger,
) *BatchController {
	return &BatchController{batchService: batchService, stepService: stepService, logger: logger}
}

func (c *BatchController) GetBatches(ctx echo.Context) error {
	filter := utils.ParseFilterFromQuery(ctx.Request().URL.Query(), "status", "order_id", "schedule_id")

	batches, total, err := c.batchService.GetBatches(ctx.Request().Context(), filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	body := dto.PaginatedResponse[dto.BatchDTO]{
		List: batches,
		Pagination: dto.PaginationObject{
			TotalCount: total,
			Page:       uint64(filter.Page),
			Limit:      uint64(filter.Limit),
		},
	}
	return utils.SuccessResponse(ctx, body, "Список батчей получен", http.StatusOK)
}

func (c *BatchController) FindBatch(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	res, err := c.batchService.FindBatch(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, res, "Батч найден", http.StatusOK)
}

func (c *BatchController) CreateBatch(ctx echo.Context) error {
	var payload dto.CreateBatchDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Некорректное тело запроса", err))
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Ошибка валидации", err))
	}

	created, err := c.batchService.CreateBatch(ctx.Request().Context(), payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, created, "Батч создан", http.StatusCreated)
}

func (c *BatchController) PrepareBatch(ctx echo.Context) error {
	return c.lifecycle(ctx, c.batchService.PrepareBatch, "Батч переведён в подготовку")
}

func (c *BatchController) StartBatch(ctx echo.Context) error {
	return c.lifecycle(ctx, c.batchService.StartBatch, "Батч запущен в производство")
}

func (c *BatchController) QualityCheckBatch(ctx echo.Context) error {
	return c.lifecycle(ctx, c.batchService.QualityCheckBatch, "Батч передан на контроль качества")
}

func (c *BatchController) PauseBatch(ctx echo.Context) error {
	return c.lifecycle(ctx, c.batchService.PauseBatch, "Батч приостановлен")
}

func (c *BatchController) ResumeBatch(ctx echo.Context) error {
	return c.lifecycle(ctx, c.batchService.ResumeBatch, "Батч возобновлён")
}

func (c *BatchController) CompleteBatch(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	var payload dto.CompleteBatchDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Некорректное тело запроса", err))
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Ошибка валидации", err))
	}

	completed, err := c.batchService.CompleteBatch(ctx.Request().Context(), id, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, completed, "Батч завершён", http.StatusOK)
}

func (c *BatchController) RejectBatch(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	var payload dto.RejectBatchDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Некорректное тело запроса", err))
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Ошибка валидации", err))
	}

	rejected, err := c.batchService.RejectBatch(ctx.Request().Context(), id, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, rejected, "Батч забракован", http.StatusOK)
}

// GetBatchSteps отдаёт шаги батча в порядке выполнения.
func (c *BatchController) GetBatchSteps(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	steps, err := c.stepService.ListByBatch(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, steps, "Шаги батча получены", http.StatusOK)
}

func (c *BatchController) GetBatchProgress(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	progress, err := c.stepService.BatchProgress(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, progress, "Прогресс батча получен", http.StatusOK)
}

func (c *BatchController) lifecycle(ctx echo.Context, op func(reqCtx context.Context, id uint64) (*dto.BatchDTO, error), message string) error {
	id, err := parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	res, err := op(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, res, message, http.StatusOK)
}
