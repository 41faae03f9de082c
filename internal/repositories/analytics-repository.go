package repositories

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"production-system/internal/dto"
)

type AnalyticsRepositoryInterface interface {
	OrderStatsByStatus(ctx context.Context, from, to time.Time) ([]dto.OrderStatsDTO, error)
	BatchStatsByStatus(ctx context.Context, from, to time.Time) ([]dto.BatchStatsDTO, error)
	CapacityByLine(ctx context.Context, from, to time.Time) ([]dto.CapacityStatsDTO, error)
	AverageYield(ctx context.Context, from, to time.Time) (float64, error)
	TotalProduction(ctx context.Context, from, to time.Time) (int64, error)
}

type analyticsRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewAnalyticsRepository(storage *pgxpool.Pool, logger *zap.Logger) AnalyticsRepositoryInterface {
	return &analyticsRepository{storage: storage, logger: logger}
}

func (r *analyticsRepository) OrderStatsByStatus(ctx context.Context, from, to time.Time) ([]dto.OrderStatsDTO, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.
		Select("status", "COUNT(*)", "COALESCE(SUM(total_amount), 0)").
		From(orderTable).
		Where(sq.GtOrEq{"order_date": from}).
		Where(sq.Lt{"order_date": to}).
		GroupBy("status").
		OrderBy("status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса статистики заказов: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]dto.OrderStatsDTO, 0)
	for rows.Next() {
		var s dto.OrderStatsDTO
		if err := rows.Scan(&s.Status, &s.Count, &s.TotalAmount); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *analyticsRepository) BatchStatsByStatus(ctx context.Context, from, to time.Time) ([]dto.BatchStatsDTO, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.
		Select("status", "COUNT(*)", "COALESCE(AVG(yield_rate), 0)", "COALESCE(SUM(total_cost), 0)").
		From(batchTable).
		Where(sq.GtOrEq{"start_time": from}).
		Where(sq.Lt{"start_time": to}).
		GroupBy("status").
		OrderBy("status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса статистики батчей: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]dto.BatchStatsDTO, 0)
	for rows.Next() {
		var s dto.BatchStatsDTO
		if err := rows.Scan(&s.Status, &s.Count, &s.AverageYieldRate, &s.TotalCost); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *analyticsRepository) CapacityByLine(ctx context.Context, from, to time.Time) ([]dto.CapacityStatsDTO, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.
		Select("production_line", "COUNT(*)", "COALESCE(AVG(capacity_utilization), 0)").
		From(scheduleTable).
		Where(sq.GtOrEq{"scheduled_date": from}).
		Where(sq.Lt{"scheduled_date": to}).
		Where(sq.NotEq{"status": "CANCELLED"}).
		GroupBy("production_line").
		OrderBy("production_line").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса загрузки линий: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]dto.CapacityStatsDTO, 0)
	for rows.Next() {
		var s dto.CapacityStatsDTO
		if err := rows.Scan(&s.ProductionLine, &s.ScheduleCount, &s.AverageUtilization); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// AverageYield считает средний выход только по завершённым батчам периода.
func (r *analyticsRepository) AverageYield(ctx context.Context, from, to time.Time) (float64, error) {
	query := fmt.Sprintf(
		"SELECT COALESCE(AVG(yield_rate), 0) FROM %s WHERE status = 'COMPLETED' AND start_time >= $1 AND start_time < $2",
		batchTable,
	)
	var avg float64
	if err := r.storage.QueryRow(ctx, query, from, to).Scan(&avg); err != nil {
		return 0, err
	}
	return avg, nil
}

func (r *analyticsRepository) TotalProduction(ctx context.Context, from, to time.Time) (int64, error) {
	query := fmt.Sprintf(
		"SELECT COALESCE(SUM(actual_quantity), 0) FROM %s WHERE status = 'COMPLETED' AND start_time >= $1 AND start_time < $2",
		batchTable,
	)
	var total int64
	if err := r.storage.QueryRow(ctx, query, from, to).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
