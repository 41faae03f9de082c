package controllers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"

	"production-system/internal/dto"
	"production-system/internal/services"
	apperrors "production-system/pkg/errors"
	"production-system/pkg/utils"
)

type ScheduleController struct {
	scheduleService   services.ScheduleServiceInterface
	schedulingService services.SchedulingServiceInterface
	logger            *zap.Logger
}

func NewScheduleController(
	scheduleService services.ScheduleServiceInterface,
	schedulingService services.SchedulingServiceInterface,
	logger *zap.Logger,
) *ScheduleController {
	return &ScheduleController{
		scheduleService:   scheduleService,
		schedulingService: schedulingService,
		logger:            logger,
	}
}

func parseDateParam(ctx echo.Context, name string) (time.Time, error) {
	raw := ctx.QueryParam(name)
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, apperrors.NewHttpError(http.StatusBadRequest, "Некорректная дата, ожидается YYYY-MM-DD", err)
	}
	return day, nil
}

func (c *ScheduleController) GetSchedules(ctx echo.Context) error {
	filter := utils.ParseFilterFromQuery(ctx.Request().URL.Query(), "status", "production_line")

	schedules, total, err := c.scheduleService.GetSchedules(ctx.Request().Context(), filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	body := dto.PaginatedResponse[dto.ScheduleDTO]{
		List: schedules,
		Pagination: dto.PaginationObject{
			TotalCount: total,
			Page:       uint64(filter.Page),
			Limit:      uint64(filter.Limit),
		},
	}
	return utils.SuccessResponse(ctx, body, "Список расписаний получен", http.StatusOK)
}

func (c *ScheduleController) FindSchedule(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	res, err := c.scheduleService.FindSchedule(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, res, "Расписание найдено", http.StatusOK)
}

func (c *ScheduleController) CreateSchedule(ctx echo.Context) error {
	var payload dto.CreateScheduleDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Некорректное тело запроса", err))
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Ошибка валидации", err))
	}

	created, err := c.scheduleService.CreateSchedule(ctx.Request().Context(), payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, created, "Слот расписания создан", http.StatusCreated)
}

// ProposeSlot — предварительная проверка интервала без бронирования.
func (c *ScheduleController) ProposeSlot(ctx echo.Context) error {
	var payload dto.ProposeSlotDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Некорректное тело запроса", err))
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Ошибка валидации", err))
	}

	if err := c.scheduleService.ProposeSlot(ctx.Request().Context(), payload); err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, struct{}{}, "Слот свободен", http.StatusOK)
}

func (c *ScheduleController) ConfirmSchedule(ctx echo.Context) error {
	return c.lifecycle(ctx, c.scheduleService.ConfirmSchedule, "Расписание подтверждено")
}

func (c *ScheduleController) StartSchedule(ctx echo.Context) error {
	return c.lifecycle(ctx, c.scheduleService.StartSchedule, "Расписание запущено")
}

func (c *ScheduleController) CompleteSchedule(ctx echo.Context) error {
	return c.lifecycle(ctx, c.scheduleService.CompleteSchedule, "Расписание завершено")
}

func (c *ScheduleController) CancelSchedule(ctx echo.Context) error {
	return c.lifecycle(ctx, c.scheduleService.CancelSchedule, "Расписание отменено")
}

func (c *ScheduleController) ListByLineAndDate(ctx echo.Context) error {
	line := ctx.QueryParam("production_line")
	day, err := parseDateParam(ctx, "date")
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	schedules, err := c.scheduleService.ListByLineAndDate(ctx.Request().Context(), line, day)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, schedules, "Расписания линии получены", http.StatusOK)
}

func (c *ScheduleController) FindConflicts(ctx echo.Context) error {
	day, err := parseDateParam(ctx, "date")
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	conflicts, err := c.scheduleService.FindConflicts(ctx.Request().Context(), day)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, conflicts, "Проверка конфликтов выполнена", http.StatusOK)
}

// AutoSchedule запускает автопланировщик для набора заказов.
func (c *ScheduleController) AutoSchedule(ctx echo.Context) error {
	var payload dto.AutoScheduleRequestDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Некорректное тело запроса", err))
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Ошибка валидации", err))
	}

	result, err := c.schedulingService.AutoSchedule(ctx.Request().Context(), payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, result, "Автопланирование выполнено", http.StatusOK)
}

func (c *ScheduleController) lifecycle(ctx echo.Context, op func(reqCtx context.Context, id uint64) (*dto.ScheduleDTO, error), message string) error {
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
