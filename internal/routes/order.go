package routes

import (
	"github.com/labstack/echo/v4"

	"production-system/internal/controllers"
)

func runOrderRouter(group *echo.Group, ctrl *controllers.OrderController) {
	orders := group.Group("/orders")
	{
		orders.GET("", ctrl.GetOrders)
		orders.POST("", ctrl.CreateOrder)
		orders.GET("/:id", ctrl.FindOrder)
		orders.PUT("/:id", ctrl.UpdateOrder)
		orders.DELETE("/:id", ctrl.DeleteOrder)

		orders.POST("/:id/approve", ctrl.ApproveOrder)
		orders.POST("/:id/schedule", ctrl.MarkScheduled)
		orders.POST("/:id/start", ctrl.MarkInProduction)
		orders.POST("/:id/complete", ctrl.CompleteOrder)
		orders.POST("/:id/cancel", ctrl.CancelOrder)
	}
}
