package routes

import (
	"github.com/labstack/echo/v4"

	"production-system/internal/controllers"
)

func runScheduleRouter(group *echo.Group, ctrl *controllers.ScheduleController) {
	schedules := group.Group("/schedules")
	{
		schedules.GET("", ctrl.GetSchedules)
		schedules.POST("", ctrl.CreateSchedule)
		schedules.POST("/propose", ctrl.ProposeSlot)
		schedules.POST("/auto", ctrl.AutoSchedule)
		schedules.GET("/line", ctrl.ListByLineAndDate)
		schedules.GET("/conflicts", ctrl.FindConflicts)
		schedules.GET("/:id", ctrl.FindSchedule)

		schedules.POST("/:id/confirm", ctrl.ConfirmSchedule)
		schedules.POST("/:id/start", ctrl.StartSchedule)
		schedules.POST("/:id/complete", ctrl.CompleteSchedule)
		schedules.POST("/:id/cancel", ctrl.CancelSchedule)
	}
}
