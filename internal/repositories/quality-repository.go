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
	traceTable  = "quality_traces"
	traceFields = "id, lot_number, batch_id, ingredient_name, supplier_info, production_date, expiry_date, check_result, status, inspector, notes, created_at, updated_at, created_by, updated_by"
)

// allowedTraceFilters - БЕЛЫЙ СПИСОК для фильтрации (защита от SQL Injection)
var allowedTraceFilters = map[string]string{
	"id":         "id",
	"status":     "status",
	"batch_id":   "batch_id",
	"lot_number": "lot_number",
}

var allowedTraceSortFields = map[string]bool{
	"id":              true,
	"lot_number":      true,
	"expiry_date":     true,
	"production_date": true,
	"status":          true,
	"created_at":      true,
}

type TraceRepositoryInterface interface {
	GetTraces(ctx context.Context, filter types.Filter) ([]entities.QualityTrace, uint64, error)
	FindByID(ctx context.Context, id uint64) (*entities.QualityTrace, error)
	ListByBatch(ctx context.Context, batchID uint64) ([]entities.QualityTrace, error)
	ListExpiringBefore(ctx context.Context, deadline time.Time) ([]entities.QualityTrace, error)
	Create(ctx context.Context, t entities.QualityTrace) (uint64, error)
	Update(ctx context.Context, t entities.QualityTrace) error
	Delete(ctx context.Context, id uint64) error
}

type traceRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewTraceRepository(storage *pgxpool.Pool, logger *zap.Logger) TraceRepositoryInterface {
	return &traceRepository{storage: storage, logger: logger}
}

func scanTrace(row pgx.Row) (*entities.QualityTrace, error) {
	var t entities.QualityTrace
	var batchID sql.NullInt64

	err := row.Scan(
		&t.ID, &t.LotNumber, &batchID, &t.IngredientName, &t.SupplierInfo,
		&t.ProductionDate, &t.ExpiryDate,
		&t.CheckResult, &t.Status, &t.Inspector, &t.Notes,
		&t.CreatedAt, &t.UpdatedAt, &t.CreatedBy, &t.UpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования quality_traces: %w", err)
	}

	if batchID.Valid {
		id := uint64(batchID.Int64)
		t.BatchID = &id
	}
	return &t, nil
}

func collectTraces(rows pgx.Rows) ([]entities.QualityTrace, error) {
	defer rows.Close()
	traces := make([]entities.QualityTrace, 0)
	for rows.Next() {
		t, err := scanTrace(rows)
		if err != nil {
			return nil, err
		}
		traces = append(traces, *t)
	}
	return traces, rows.Err()
}

func (r *traceRepository) GetTraces(ctx context.Context, filter types.Filter) ([]entities.QualityTrace, uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	baseQuery := psql.Select(traceFields).From(traceTable)
	countQuery := psql.Select("COUNT(*)").From(traceTable)

	if filter.Search != "" {
		like := sq.Or{
			sq.ILike{"lot_number": "%" + filter.Search + "%"},
			sq.ILike{"ingredient_name": "%" + filter.Search + "%"},
			sq.ILike{"supplier_info": "%" + filter.Search + "%"},
		}
		baseQuery = baseQuery.Where(like)
		countQuery = countQuery.Where(like)
	}
	for key, value := range filter.Filter {
		column, ok := allowedTraceFilters[key]
		if !ok {
			continue
		}
		baseQuery = baseQuery.Where(sq.Eq{column: value})
		countQuery = countQuery.Where(sq.Eq{column: value})
	}

	query, args, err := countQuery.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки count-запроса партий сырья: %w", err)
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []entities.QualityTrace{}, 0, nil
	}

	orderBy := "id DESC"
	for field, dir := range filter.Sort {
		if !allowedTraceSortFields[field] {
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
		return nil, 0, fmt.Errorf("ошибка сборки запроса списка партий сырья: %w", err)
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	traces, err := collectTraces(rows)
	if err != nil {
		return nil, 0, err
	}
	return traces, total, nil
}

func (r *traceRepository) FindByID(ctx context.Context, id uint64) (*entities.QualityTrace, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", traceFields, traceTable)
	return scanTrace(r.storage.QueryRow(ctx, query, id))
}

func (r *traceRepository) ListByBatch(ctx context.Context, batchID uint64) ([]entities.QualityTrace, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE batch_id = $1 ORDER BY lot_number", traceFields, traceTable)
	rows, err := r.storage.Query(ctx, query, batchID)
	if err != nil {
		return nil, err
	}
	return collectTraces(rows)
}

// ListExpiringBefore возвращает партии со сроком годности раньше порога,
// ближайшие первыми. Забракованные партии не включаются.
func (r *traceRepository) ListExpiringBefore(ctx context.Context, deadline time.Time) ([]entities.QualityTrace, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE expiry_date < $1 AND status <> $2 ORDER BY expiry_date ASC, lot_number ASC",
		traceFields, traceTable,
	)
	rows, err := r.storage.Query(ctx, query, deadline, entities.TraceStatusFailed)
	if err != nil {
		return nil, err
	}
	return collectTraces(rows)
}

func (r *traceRepository) Create(ctx context.Context, t entities.QualityTrace) (uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Insert(traceTable).
		Columns("lot_number", "batch_id", "ingredient_name", "supplier_info",
			"production_date", "expiry_date", "check_result", "status",
			"inspector", "notes",
			"created_by", "updated_by", "created_at", "updated_at").
		Values(t.LotNumber, t.BatchID, t.IngredientName, t.SupplierInfo,
			t.ProductionDate, t.ExpiryDate, t.CheckResult, t.Status,
			t.Inspector, t.Notes,
			t.CreatedBy, t.UpdatedBy, sq.Expr("NOW()"), sq.Expr("NOW()")).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("ошибка сборки запроса создания партии сырья: %w", err)
	}

	var id uint64
	if err := r.storage.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("номер партии %s уже зарегистрирован: %w", t.LotNumber, apperrors.ErrConflict)
		}
		return 0, fmt.Errorf("ошибка создания quality_traces: %w", err)
	}
	return id, nil
}

func (r *traceRepository) Update(ctx context.Context, t entities.QualityTrace) error {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Update(traceTable).
		Set("batch_id", t.BatchID).
		Set("check_result", t.CheckResult).
		Set("status", t.Status).
		Set("inspector", t.Inspector).
		Set("notes", t.Notes).
		Set("updated_by", t.UpdatedBy).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": t.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса обновления партии сырья: %w", err)
	}

	result, err := r.storage.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка обновления quality_traces: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *traceRepository) Delete(ctx context.Context, id uint64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", traceTable)
	result, err := r.storage.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления quality_traces: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
