package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"

	"production-system/internal/dto"
	"production-system/internal/services"
	apperrors "production-system/pkg/errors"
	"production-system/pkg/utils"
)

type OrderController struct {
	orderService services.OrderServiceInterface
	logger       *zap.Logger
}

func NewOrderController(orderService services.OrderServiceInterface, logger *zap.Logger) *OrderController {
	return &OrderController{orderService: orderService, logger: logger}
}

func parseID(ctx echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return 0, apperrors.NewHttpError(http.StatusBadRequest, "Некорректный идентификатор", err)
	}
	return id, nil
}

func (c *OrderController) GetOrders(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	filter := utils.ParseFilterFromQuery(ctx.Request().URL.Query(), "status", "priority", "franchise_id", "standard_id")

	orders, total, err := c.orderService.GetOrders(reqCtx, filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	body := dto.PaginatedResponse[dto.OrderDTO]{
		List: orders,
		Pagination: dto.PaginationObject{
			TotalCount: total,
			Page:       uint64(filter.Page),
			Limit:      uint64(filter.Limit),
		},
	}
	return utils.SuccessResponse(ctx, body, "Список заказов получен", http.StatusOK)
}

func (c *OrderController) FindOrder(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	res, err := c.orderService.FindOrder(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, res, "Заказ найден", http.StatusOK)
}

func (c *OrderController) CreateOrder(ctx echo.Context) error {
	var payload dto.CreateOrderDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Некорректное тело запроса", err))
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Ошибка валидации", err))
	}

	created, err := c.orderService.CreateOrder(ctx.Request().Context(), payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, created, "Заказ создан", http.StatusCreated)
}

func (c *OrderController) UpdateOrder(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	var payload dto.UpdateOrderDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Некорректное тело запроса", err))
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Ошибка валидации", err))
	}

	updated, err := c.orderService.UpdateOrder(ctx.Request().Context(), id, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, updated, "Заказ обновлён", http.StatusOK)
}

func (c *OrderController) DeleteOrder(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	if err := c.orderService.DeleteOrder(ctx.Request().Context(), id); err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, struct{}{}, "Заказ удалён", http.StatusOK)
}

func (c *OrderController) ApproveOrder(ctx echo.Context) error {
	return c.lifecycle(ctx, c.orderService.ApproveOrder, "Заказ подтверждён")
}

func (c *OrderController) MarkScheduled(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	var payload struct {
		ScheduledDate *time.Time `json:"scheduled_date"`
	}
	// Дата слота необязательна, пустое тело допустимо.
	_ = ctx.Bind(&payload)

	var date time.Time
	if payload.ScheduledDate != nil {
		date = *payload.ScheduledDate
	}
	res, err := c.orderService.MarkScheduled(ctx.Request().Context(), id, date)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, res, "Заказ запланирован", http.StatusOK)
}

func (c *OrderController) MarkInProduction(ctx echo.Context) error {
	return c.lifecycle(ctx, c.orderService.MarkInProduction, "Заказ передан в производство")
}

func (c *OrderController) CompleteOrder(ctx echo.Context) error {
	return c.lifecycle(ctx, c.orderService.CompleteOrder, "Заказ выполнен")
}

func (c *OrderController) CancelOrder(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	var payload struct {
		Reason string `json:"reason"`
	}
	// Причина отмены необязательна, пустое тело допустимо.
	_ = ctx.Bind(&payload)

	cancelled, err := c.orderService.CancelOrder(ctx.Request().Context(), id, payload.Reason)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, cancelled, "Заказ отменён", http.StatusOK)
}

// lifecycle — общий обработчик переходов статуса заказа.
func (c *OrderController) lifecycle(ctx echo.Context, op func(reqCtx context.Context, id uint64) (*dto.OrderDTO, error), message string) error {
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
