package routes

import (
	"github.com/labstack/echo/v4"

	"production-system/internal/controllers"
)

func runAnalyticsRouter(group *echo.Group, ctrl *controllers.AnalyticsController) {
	analytics := group.Group("/analytics")
	{
		analytics.GET("/report", ctrl.ProductionReport)
		analytics.GET("/report/xlsx", ctrl.ExportReportXLSX)
	}

	group.GET("/franchises", ctrl.GetFranchises)
	group.GET("/standards", ctrl.GetStandards)
}
