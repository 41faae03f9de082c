package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"production-system/internal/entities"
	apperrors "production-system/pkg/errors"
	"production-system/pkg/types"
)

const (
	batchTable  = "production_batches"
	batchFields = "id, batch_number, order_id, schedule_id, planned_quantity, actual_quantity, start_time, end_time, status, yield_rate, material_cost, labor_cost, overhead_cost, total_cost, quality_notes, issues, version, created_at, updated_at, created_by, updated_by"
)

var allowedBatchFilters = map[string]string{
	"id":          "id",
	"status":      "status",
	"order_id":    "order_id",
	"schedule_id": "schedule_id",
}

var allowedBatchSortFields = map[string]bool{
	"id":           true,
	"batch_number": true,
	"start_time":   true,
	"status":       true,
	"created_at":   true,
}

type BatchRepositoryInterface interface {
	GetBatches(ctx context.Context, filter types.Filter) ([]entities.ProductionBatch, uint64, error)
	FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.ProductionBatch, error)
	FindByNumber(ctx context.Context, tx pgx.Tx, number string) (*entities.ProductionBatch, error)
	ListByOrder(ctx context.Context, orderID uint64) ([]entities.ProductionBatch, error)
	ListByStatus(ctx context.Context, status entities.BatchStatus) ([]entities.ProductionBatch, error)
	CountByOrder(ctx context.Context, tx pgx.Tx, orderID uint64) (int, error)
	Create(ctx context.Context, tx pgx.Tx, b entities.ProductionBatch) (uint64, error)
	Update(ctx context.Context, tx pgx.Tx, b entities.ProductionBatch) error
	NextDailySequence(ctx context.Context, tx pgx.Tx, day time.Time) (int, error)
}

type batchRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewBatchRepository(storage *pgxpool.Pool, logger *zap.Logger) BatchRepositoryInterface {
	return &batchRepository{storage: storage, logger: logger}
}

func (r *batchRepository) getQuerier(tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return r.storage
}

func scanBatch(row pgx.Row) (*entities.ProductionBatch, error) {
	var b entities.ProductionBatch
	var scheduleID sql.NullInt64
	var actualQuantity sql.NullInt32
	var endTime sql.NullTime

	err := row.Scan(
		&b.ID, &b.BatchNumber, &b.OrderID, &scheduleID,
		&b.PlannedQuantity, &actualQuantity, &b.StartTime, &endTime,
		&b.Status, &b.YieldRate, &b.MaterialCost, &b.LaborCost, &b.OverheadCost, &b.TotalCost,
		&b.QualityNotes, &b.Issues, &b.Version,
		&b.CreatedAt, &b.UpdatedAt, &b.CreatedBy, &b.UpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования production_batches: %w", err)
	}

	if scheduleID.Valid {
		id := uint64(scheduleID.Int64)
		b.ScheduleID = &id
	}
	if actualQuantity.Valid {
		qty := int(actualQuantity.Int32)
		b.ActualQuantity = &qty
	}
	if endTime.Valid {
		b.EndTime = &endTime.Time
	}
	return &b, nil
}

func collectBatches(rows pgx.Rows) ([]entities.ProductionBatch, error) {
	defer rows.Close()
	batches := make([]entities.ProductionBatch, 0)
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, *b)
	}
	return batches, rows.Err()
}

func (r *batchRepository) findOne(ctx context.Context, querier Querier, where sq.Eq) (*entities.ProductionBatch, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Select(batchFields).From(batchTable).Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки SQL для поиска батча: %w", err)
	}
	return scanBatch(querier.QueryRow(ctx, query, args...))
}

func (r *batchRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.ProductionBatch, error) {
	return r.findOne(ctx, r.getQuerier(tx), sq.Eq{"id": id})
}

func (r *batchRepository) FindByNumber(ctx context.Context, tx pgx.Tx, number string) (*entities.ProductionBatch, error) {
	return r.findOne(ctx, r.getQuerier(tx), sq.Eq{"batch_number": number})
}

func (r *batchRepository) GetBatches(ctx context.Context, filter types.Filter) ([]entities.ProductionBatch, uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	baseQuery := psql.Select(batchFields).From(batchTable)
	countQuery := psql.Select("COUNT(*)").From(batchTable)

	if filter.Search != "" {
		like := sq.ILike{"batch_number": "%" + filter.Search + "%"}
		baseQuery = baseQuery.Where(like)
		countQuery = countQuery.Where(like)
	}
	for key, value := range filter.Filter {
		column, ok := allowedBatchFilters[key]
		if !ok {
			continue
		}
		baseQuery = baseQuery.Where(sq.Eq{column: value})
		countQuery = countQuery.Where(sq.Eq{column: value})
	}

	query, args, err := countQuery.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки count-запроса батчей: %w", err)
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []entities.ProductionBatch{}, 0, nil
	}

	orderBy := "id DESC"
	for field, dir := range filter.Sort {
		if !allowedBatchSortFields[field] {
			continue
		}
		direction := "ASC"
		if dir == "desc" || dir == "DESC" {
			direction = "DESC"
		}
		orderBy = field + " " + direction
		break
	}
	baseQuery = baseQuery.OrderBy(orderBy)
	if filter.Limit > 0 {
		baseQuery = baseQuery.Limit(uint64(filter.Limit)).Offset(uint64(filter.Offset))
	}

	query, args, err = baseQuery.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки запроса списка батчей: %w", err)
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	batches, err := collectBatches(rows)
	if err != nil {
		return nil, 0, err
	}
	return batches, total, nil
}

func (r *batchRepository) ListByOrder(ctx context.Context, orderID uint64) ([]entities.ProductionBatch, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE order_id = $1 ORDER BY id", batchFields, batchTable)
	rows, err := r.storage.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	return collectBatches(rows)
}

func (r *batchRepository) ListByStatus(ctx context.Context, status entities.BatchStatus) ([]entities.ProductionBatch, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE status = $1 ORDER BY start_time, id", batchFields, batchTable)
	rows, err := r.storage.Query(ctx, query, status)
	if err != nil {
		return nil, err
	}
	return collectBatches(rows)
}

func (r *batchRepository) CountByOrder(ctx context.Context, tx pgx.Tx, orderID uint64) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE order_id = $1", batchTable)
	var count int
	if err := r.getQuerier(tx).QueryRow(ctx, query, orderID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *batchRepository) Create(ctx context.Context, tx pgx.Tx, b entities.ProductionBatch) (uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Insert(batchTable).
		Columns("batch_number", "order_id", "schedule_id", "planned_quantity", "actual_quantity",
			"start_time", "end_time", "status", "yield_rate",
			"material_cost", "labor_cost", "overhead_cost", "total_cost",
			"quality_notes", "issues", "version",
			"created_by", "updated_by", "created_at", "updated_at").
		Values(b.BatchNumber, b.OrderID, b.ScheduleID, b.PlannedQuantity, b.ActualQuantity,
			b.StartTime, b.EndTime, b.Status, b.YieldRate,
			b.MaterialCost, b.LaborCost, b.OverheadCost, b.TotalCost,
			b.QualityNotes, b.Issues, 1,
			b.CreatedBy, b.UpdatedBy, sq.Expr("NOW()"), sq.Expr("NOW()")).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("ошибка сборки запроса создания батча: %w", err)
	}

	var newID uint64
	if err := r.getQuerier(tx).QueryRow(ctx, query, args...).Scan(&newID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("батч с номером %s уже существует: %w", b.BatchNumber, apperrors.ErrConflict)
		}
		return 0, fmt.Errorf("ошибка создания production_batches: %w", err)
	}
	return newID, nil
}

// Update выполняет оптимистичное обновление: строка перезаписывается только
// если её версия не изменилась с момента чтения. Иначе ErrConcurrency, и
// решение о повторе остаётся за вызывающим кодом.
func (r *batchRepository) Update(ctx context.Context, tx pgx.Tx, b entities.ProductionBatch) error {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Update(batchTable).
		Set("schedule_id", b.ScheduleID).
		Set("actual_quantity", b.ActualQuantity).
		Set("end_time", b.EndTime).
		Set("status", b.Status).
		Set("yield_rate", b.YieldRate).
		Set("material_cost", b.MaterialCost).
		Set("labor_cost", b.LaborCost).
		Set("overhead_cost", b.OverheadCost).
		Set("total_cost", b.TotalCost).
		Set("quality_notes", b.QualityNotes).
		Set("issues", b.Issues).
		Set("version", b.Version+1).
		Set("updated_by", b.UpdatedBy).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": b.ID, "version": b.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса обновления батча: %w", err)
	}

	result, err := r.getQuerier(tx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка обновления production_batches: %w", err)
	}
	if result.RowsAffected() == 0 {
		// Либо записи нет, либо версия устарела.
		if _, findErr := r.FindByID(ctx, tx, b.ID); findErr != nil {
			return findErr
		}
		return apperrors.ErrConcurrency
	}
	return nil
}

func (r *batchRepository) NextDailySequence(ctx context.Context, tx pgx.Tx, day time.Time) (int, error) {
	if err := acquireDayLock(ctx, tx, lockClassBatch, dayLockKey(day)); err != nil {
		return 0, fmt.Errorf("не удалось взять блокировку нумерации батчей: %w", err)
	}
	start, end := dayBounds(day)
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE start_time >= $1 AND start_time < $2", batchTable)
	if err := tx.QueryRow(ctx, query, start, end).Scan(&count); err != nil {
		return 0, err
	}
	return count + 1, nil
}
