package controllers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"

	"production-system/internal/dto"
	"production-system/internal/services"
	apperrors "production-system/pkg/errors"
	"production-system/pkg/utils"
)

type QualityController struct {
	qualityService services.QualityServiceInterface
	logger         *zap.Logger
}

func NewQualityController(qualityService services.QualityServiceInterface, logger *zap.Logger) *QualityController {
	return &QualityController{qualityService: qualityService, logger: logger}
}

func (c *QualityController) GetTraces(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	filter := utils.ParseFilterFromQuery(ctx.Request().URL.Query(), "status", "batch_id", "lot_number")

	traces, total, err := c.qualityService.GetTraces(reqCtx, filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	body := dto.PaginatedResponse[dto.QualityTraceDTO]{
		List: traces,
		Pagination: dto.PaginationObject{
			TotalCount: total,
			Page:       uint64(filter.Page),
			Limit:      uint64(filter.Limit),
		},
	}
	return utils.SuccessResponse(ctx, body, "Список партий сырья получен", http.StatusOK)
}

func (c *QualityController) FindTrace(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	res, err := c.qualityService.FindTrace(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, res, "Партия найдена", http.StatusOK)
}

func (c *QualityController) RegisterTrace(ctx echo.Context) error {
	var payload dto.CreateQualityTraceDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Некорректное тело запроса", err))
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Ошибка валидации", err))
	}

	created, err := c.qualityService.RegisterTrace(ctx.Request().Context(), payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, created, "Партия зарегистрирована", http.StatusCreated)
}

func (c *QualityController) InspectTrace(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	var payload dto.InspectTraceDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Некорректное тело запроса", err))
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Ошибка валидации", err))
	}

	inspected, err := c.qualityService.InspectTrace(ctx.Request().Context(), id, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, inspected, "Результат контроля зафиксирован", http.StatusOK)
}

func (c *QualityController) AttachToBatch(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	batchID, err := strconv.ParseUint(ctx.Param("batch_id"), 10, 64)
	if err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Некорректный идентификатор батча", err))
	}

	attached, err := c.qualityService.AttachToBatch(ctx.Request().Context(), id, batchID)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, attached, "Партия списана в производство", http.StatusOK)
}

func (c *QualityController) ListExpiring(ctx echo.Context) error {
	traces, err := c.qualityService.ListExpiring(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, traces, "Партии с подходящим сроком получены", http.StatusOK)
}

func (c *QualityController) DeleteTrace(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	if err := c.qualityService.DeleteTrace(ctx.Request().Context(), id); err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, struct{}{}, "Запись прослеживаемости удалена", http.StatusOK)
}
