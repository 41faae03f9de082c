package routes

import (
	"github.com/labstack/echo/v4"

	"production-system/internal/controllers"
)

func runQualityRouter(group *echo.Group, ctrl *controllers.QualityController) {
	traces := group.Group("/quality/traces")
	{
		traces.GET("", ctrl.GetTraces)
		traces.POST("", ctrl.RegisterTrace)
		traces.GET("/expiring", ctrl.ListExpiring)
		traces.GET("/:id", ctrl.FindTrace)
		traces.DELETE("/:id", ctrl.DeleteTrace)

		traces.POST("/:id/inspect", ctrl.InspectTrace)
		traces.POST("/:id/attach/:batch_id", ctrl.AttachToBatch)
	}
}
