package middleware

import (
	"context"

	"production-system/pkg/contextkeys"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestID присваивает каждому запросу уникальный идентификатор и
// возвращает его клиенту в заголовке X-Request-ID.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := context.WithValue(c.Request().Context(), contextkeys.RequestIDKey, requestID)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Response().Header().Set("X-Request-ID", requestID)

			return next(c)
		}
	}
}
