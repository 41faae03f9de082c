package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"production-system/internal/entities"
)

// cachedStandardRepository — кеширующая обёртка над справочником стандартов.
// Планировщик читает стандарт на каждый заказ, а сами стандарты меняются
// редко, поэтому короткий TTL в Redis заметно снижает нагрузку на БД.
// Ошибки кеша не фатальны: при любой проблеме идём в БД.
type cachedStandardRepository struct {
	inner  StandardRepositoryInterface
	cache  CacheRepositoryInterface
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedStandardRepository(inner StandardRepositoryInterface, cache CacheRepositoryInterface, ttl time.Duration, logger *zap.Logger) StandardRepositoryInterface {
	return &cachedStandardRepository{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

func standardCacheKey(id uint64) string {
	return fmt.Sprintf("production:standard:%d", id)
}

func (r *cachedStandardRepository) FindByID(ctx context.Context, id uint64) (*entities.ProductionStandard, error) {
	key := standardCacheKey(id)

	if raw, err := r.cache.Get(ctx, key); err == nil && raw != "" {
		var cached entities.ProductionStandard
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return &cached, nil
		}
		r.logger.Warn("повреждённая запись в кеше стандартов, удаляем", zap.String("key", key))
		_ = r.cache.Delete(ctx, key)
	}

	standard, err := r.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(standard); err == nil {
		if err := r.cache.Set(ctx, key, string(raw), r.ttl); err != nil {
			r.logger.Warn("не удалось записать стандарт в кеш", zap.String("key", key), zap.Error(err))
		}
	}
	return standard, nil
}

func (r *cachedStandardRepository) GetAll(ctx context.Context, onlyActive bool) ([]entities.ProductionStandard, error) {
	return r.inner.GetAll(ctx, onlyActive)
}
