package utils

import (
	"context"

	"production-system/pkg/contextkeys"
)

// GetActorFromCtx возвращает имя пользователя из контекста запроса.
// Для фоновых операций (автопланировщик) контекст актёра не обязателен,
// тогда подставляется системное имя.
func GetActorFromCtx(ctx context.Context) string {
	actor, ok := ctx.Value(contextkeys.ActorKey).(string)
	if !ok || actor == "" {
		return "system"
	}
	return actor
}

func GetUserIDFromCtx(ctx context.Context) (uint64, bool) {
	userID, ok := ctx.Value(contextkeys.UserIDKey).(int)
	if !ok || userID < 0 {
		return 0, false
	}
	return uint64(userID), true
}
