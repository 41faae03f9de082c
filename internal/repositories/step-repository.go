package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"production-system/internal/entities"
	apperrors "production-system/pkg/errors"
)

const (
	stepTable  = "production_steps"
	stepFields = "id, batch_id, step_number, step_name, instructions, planned_duration_minutes, actual_duration_minutes, planned_start_time, actual_start_time, completed_time, status, assigned_staff, equipment, quality_checkpoints, quality_result, notes, issues, version, created_at, updated_at, created_by, updated_by"
)

type StepRepositoryInterface interface {
	FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.ProductionStep, error)
	ListByBatch(ctx context.Context, tx pgx.Tx, batchID uint64) ([]entities.ProductionStep, error)
	ListByStatus(ctx context.Context, status entities.StepStatus) ([]entities.ProductionStep, error)
	CreateMany(ctx context.Context, tx pgx.Tx, steps []entities.ProductionStep) error
	Update(ctx context.Context, tx pgx.Tx, s entities.ProductionStep) error
}

type stepRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewStepRepository(storage *pgxpool.Pool, logger *zap.Logger) StepRepositoryInterface {
	return &stepRepository{storage: storage, logger: logger}
}

func (r *stepRepository) getQuerier(tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return r.storage
}

func scanStep(row pgx.Row) (*entities.ProductionStep, error) {
	var s entities.ProductionStep
	var actualDuration sql.NullInt32
	var plannedStart, actualStart, completed sql.NullTime

	err := row.Scan(
		&s.ID, &s.BatchID, &s.StepNumber, &s.StepName, &s.Instructions,
		&s.PlannedDurationMinutes, &actualDuration,
		&plannedStart, &actualStart, &completed,
		&s.Status, &s.AssignedStaff, &s.Equipment,
		&s.QualityCheckpoints, &s.QualityResult, &s.Notes, &s.Issues, &s.Version,
		&s.CreatedAt, &s.UpdatedAt, &s.CreatedBy, &s.UpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования production_steps: %w", err)
	}

	if actualDuration.Valid {
		minutes := int(actualDuration.Int32)
		s.ActualDurationMinutes = &minutes
	}
	if plannedStart.Valid {
		s.PlannedStartTime = &plannedStart.Time
	}
	if actualStart.Valid {
		s.ActualStartTime = &actualStart.Time
	}
	if completed.Valid {
		s.CompletedTime = &completed.Time
	}
	return &s, nil
}

func (r *stepRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.ProductionStep, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", stepFields, stepTable)
	return scanStep(r.getQuerier(tx).QueryRow(ctx, query, id))
}

// ListByBatch возвращает шаги батча в порядке выполнения.
func (r *stepRepository) ListByBatch(ctx context.Context, tx pgx.Tx, batchID uint64) ([]entities.ProductionStep, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE batch_id = $1 ORDER BY step_number", stepFields, stepTable)
	rows, err := r.getQuerier(tx).Query(ctx, query, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	steps := make([]entities.ProductionStep, 0)
	for rows.Next() {
		s, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, *s)
	}
	return steps, rows.Err()
}

func (r *stepRepository) ListByStatus(ctx context.Context, status entities.StepStatus) ([]entities.ProductionStep, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE status = $1 ORDER BY batch_id, step_number", stepFields, stepTable)
	rows, err := r.storage.Query(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	steps := make([]entities.ProductionStep, 0)
	for rows.Next() {
		s, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, *s)
	}
	return steps, rows.Err()
}

func (r *stepRepository) CreateMany(ctx context.Context, tx pgx.Tx, steps []entities.ProductionStep) error {
	if len(steps) == 0 {
		return nil
	}
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	builder := psql.Insert(stepTable).
		Columns("batch_id", "step_number", "step_name", "instructions",
			"planned_duration_minutes", "planned_start_time", "status",
			"assigned_staff", "equipment", "quality_checkpoints", "quality_result",
			"notes", "issues", "version",
			"created_by", "updated_by", "created_at", "updated_at")
	for _, s := range steps {
		builder = builder.Values(s.BatchID, s.StepNumber, s.StepName, s.Instructions,
			s.PlannedDurationMinutes, s.PlannedStartTime, s.Status,
			s.AssignedStaff, s.Equipment, s.QualityCheckpoints, s.QualityResult,
			s.Notes, s.Issues, 1,
			s.CreatedBy, s.UpdatedBy, sq.Expr("NOW()"), sq.Expr("NOW()"))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса создания шагов: %w", err)
	}

	if _, err := r.getQuerier(tx).Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("номера шагов в батче должны быть уникальны: %w", apperrors.ErrConflict)
		}
		return fmt.Errorf("ошибка создания production_steps: %w", err)
	}
	return nil
}

// Update выполняет оптимистичное обновление шага по версии, как и у батчей.
func (r *stepRepository) Update(ctx context.Context, tx pgx.Tx, s entities.ProductionStep) error {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Update(stepTable).
		Set("actual_duration_minutes", s.ActualDurationMinutes).
		Set("actual_start_time", s.ActualStartTime).
		Set("completed_time", s.CompletedTime).
		Set("status", s.Status).
		Set("assigned_staff", s.AssignedStaff).
		Set("equipment", s.Equipment).
		Set("quality_result", s.QualityResult).
		Set("notes", s.Notes).
		Set("issues", s.Issues).
		Set("version", s.Version+1).
		Set("updated_by", s.UpdatedBy).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": s.ID, "version": s.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса обновления шага: %w", err)
	}

	result, err := r.getQuerier(tx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка обновления production_steps: %w", err)
	}
	if result.RowsAffected() == 0 {
		if _, findErr := r.FindByID(ctx, tx, s.ID); findErr != nil {
			return findErr
		}
		return apperrors.ErrConcurrency
	}
	return nil
}
