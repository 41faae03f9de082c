package routes

import (
	"github.com/labstack/echo/v4"

	"production-system/internal/controllers"
)

func runStepRouter(group *echo.Group, ctrl *controllers.StepController) {
	steps := group.Group("/steps")
	{
		steps.GET("/:id", ctrl.FindStep)
		steps.POST("/:id/start", ctrl.StartStep)
		steps.POST("/:id/complete", ctrl.CompleteStep)
		steps.POST("/:id/skip", ctrl.SkipStep)
		steps.POST("/:id/fail", ctrl.FailStep)
	}
}
