package routes

import (
	"github.com/labstack/echo/v4"

	"production-system/internal/controllers"
)

func runBatchRouter(group *echo.Group, ctrl *controllers.BatchController) {
	batches := group.Group("/batches")
	{
		batches.GET("", ctrl.GetBatches)
		batches.POST("", ctrl.CreateBatch)
		batches.GET("/:id", ctrl.FindBatch)
		batches.GET("/:id/steps", ctrl.GetBatchSteps)
		batches.GET("/:id/progress", ctrl.GetBatchProgress)

		batches.POST("/:id/prepare", ctrl.PrepareBatch)
		batches.POST("/:id/start", ctrl.StartBatch)
		batches.POST("/:id/quality_check", ctrl.QualityCheckBatch)
		batches.POST("/:id/complete", ctrl.CompleteBatch)
		batches.POST("/:id/pause", ctrl.PauseBatch)
		batches.POST("/:id/resume", ctrl.ResumeBatch)
		batches.POST("/:id/reject", ctrl.RejectBatch)
	}
}
