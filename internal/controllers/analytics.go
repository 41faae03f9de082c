package controllers

import (
	"fmt"
	"net/http"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/labstack/echo/v4"

	"production-system/internal/dto"
	"production-system/internal/services"
	apperrors "production-system/pkg/errors"
	"production-system/pkg/utils"
)

type AnalyticsController struct {
	analyticsService services.AnalyticsServiceInterface
	logger           *zap.Logger
}

func NewAnalyticsController(analyticsService services.AnalyticsServiceInterface, logger *zap.Logger) *AnalyticsController {
	return &AnalyticsController{analyticsService: analyticsService, logger: logger}
}

func (c *AnalyticsController) bindPeriod(ctx echo.Context) (*dto.AnalyticsPeriodDTO, error) {
	var payload dto.AnalyticsPeriodDTO
	if err := ctx.Bind(&payload); err != nil {
		return nil, apperrors.NewHttpError(http.StatusBadRequest, "Некорректные параметры периода", err)
	}
	if err := ctx.Validate(&payload); err != nil {
		return nil, apperrors.NewHttpError(http.StatusBadRequest, "Ошибка валидации", err)
	}
	return &payload, nil
}

func (c *AnalyticsController) ProductionReport(ctx echo.Context) error {
	payload, err := c.bindPeriod(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	report, err := c.analyticsService.ProductionReport(ctx.Request().Context(), *payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, report, "Отчёт сформирован", http.StatusOK)
}

var reportOrderHeaders = []interface{}{"Статус заказа", "Количество", "Сумма"}
var reportBatchHeaders = []interface{}{"Статус батча", "Количество", "Средний выход, %", "Себестоимость"}
var reportCapacityHeaders = []interface{}{"Линия", "Слотов", "Средняя загрузка, %"}

// ExportReportXLSX выгружает производственный отчёт в Excel.
func (c *AnalyticsController) ExportReportXLSX(ctx echo.Context) error {
	payload, err := c.bindPeriod(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	report, err := c.analyticsService.ProductionReport(ctx.Request().Context(), *payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	f := excelize.NewFile()
	sheet := "Производственный отчёт"
	f.SetSheetName("Sheet1", sheet)

	style, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})

	row := 1
	setHeader := func(headers []interface{}) {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		f.SetSheetRow(sheet, cell, &headers)
		endCell, _ := excelize.CoordinatesToCellName(len(headers), row)
		f.SetCellStyle(sheet, cell, endCell, style)
		row++
	}
	setRow := func(values []interface{}) {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		f.SetSheetRow(sheet, cell, &values)
		row++
	}

	setRow([]interface{}{fmt.Sprintf("Период: %s - %s", report.DateFrom, report.DateTo)})
	row++

	setHeader(reportOrderHeaders)
	for _, s := range report.Orders {
		setRow([]interface{}{s.Status, s.Count, s.TotalAmount})
	}
	row++

	setHeader(reportBatchHeaders)
	for _, s := range report.Batches {
		setRow([]interface{}{s.Status, s.Count, s.AverageYieldRate, s.TotalCost})
	}
	row++

	setHeader(reportCapacityHeaders)
	for _, s := range report.Capacity {
		setRow([]interface{}{s.ProductionLine, s.ScheduleCount, s.AverageUtilization})
	}
	row++

	setRow([]interface{}{"Средний выход, %", report.AverageYield})
	setRow([]interface{}{"Всего произведено, ед.", report.TotalProduction})

	f.SetColWidth(sheet, "A", "A", 30)
	f.SetColWidth(sheet, "B", "D", 20)

	fileName := fmt.Sprintf("production_report_%s_%s.xlsx", report.DateFrom, report.DateTo)
	ctx.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Response().Header().Set("Content-Disposition", "attachment; filename="+fileName)
	ctx.Response().WriteHeader(http.StatusOK)
	return f.Write(ctx.Response().Writer)
}

func (c *AnalyticsController) GetFranchises(ctx echo.Context) error {
	franchises, err := c.analyticsService.GetFranchises(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, franchises, "Список франшиз получен", http.StatusOK)
}

func (c *AnalyticsController) GetStandards(ctx echo.Context) error {
	standards, err := c.analyticsService.GetStandards(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, standards, "Список стандартов получен", http.StatusOK)
}
