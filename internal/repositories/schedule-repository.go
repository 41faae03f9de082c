package repositories

import (
	"context"
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
	scheduleTable  = "production_schedules"
	scheduleFields = "id, schedule_number, production_line, scheduled_date, start_time, end_time, status, capacity_utilization, assigned_staff, equipment, notes, created_at, updated_at, created_by, updated_by"
)

var allowedScheduleFilters = map[string]string{
	"id":              "id",
	"status":          "status",
	"production_line": "production_line",
}

var allowedScheduleSortFields = map[string]bool{
	"id":             true,
	"scheduled_date": true,
	"start_time":     true,
	"status":         true,
	"created_at":     true,
}

type ScheduleRepositoryInterface interface {
	GetSchedules(ctx context.Context, filter types.Filter) ([]entities.ProductionSchedule, uint64, error)
	FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.ProductionSchedule, error)
	ListActiveByLineAndDate(ctx context.Context, tx pgx.Tx, line string, day time.Time) ([]entities.ProductionSchedule, error)
	ListByDate(ctx context.Context, day time.Time) ([]entities.ProductionSchedule, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]entities.ProductionSchedule, error)
	Create(ctx context.Context, tx pgx.Tx, s entities.ProductionSchedule) (uint64, error)
	Update(ctx context.Context, tx pgx.Tx, s entities.ProductionSchedule) error
	Delete(ctx context.Context, tx pgx.Tx, id uint64) error
	NextDailySequence(ctx context.Context, tx pgx.Tx, day time.Time) (int, error)
}

type scheduleRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewScheduleRepository(storage *pgxpool.Pool, logger *zap.Logger) ScheduleRepositoryInterface {
	return &scheduleRepository{storage: storage, logger: logger}
}

func (r *scheduleRepository) getQuerier(tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return r.storage
}

func scanSchedule(row pgx.Row) (*entities.ProductionSchedule, error) {
	var s entities.ProductionSchedule
	err := row.Scan(
		&s.ID, &s.ScheduleNumber, &s.ProductionLine, &s.ScheduledDate,
		&s.StartTime, &s.EndTime, &s.Status, &s.CapacityUtilization,
		&s.AssignedStaff, &s.Equipment, &s.Notes,
		&s.CreatedAt, &s.UpdatedAt, &s.CreatedBy, &s.UpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования production_schedules: %w", err)
	}
	return &s, nil
}

func collectSchedules(rows pgx.Rows) ([]entities.ProductionSchedule, error) {
	defer rows.Close()
	schedules := make([]entities.ProductionSchedule, 0)
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *s)
	}
	return schedules, rows.Err()
}

func (r *scheduleRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.ProductionSchedule, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", scheduleFields, scheduleTable)
	return scanSchedule(r.getQuerier(tx).QueryRow(ctx, query, id))
}

func (r *scheduleRepository) GetSchedules(ctx context.Context, filter types.Filter) ([]entities.ProductionSchedule, uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	baseQuery := psql.Select(scheduleFields).From(scheduleTable)
	countQuery := psql.Select("COUNT(*)").From(scheduleTable)

	if filter.Search != "" {
		like := sq.Or{
			sq.ILike{"schedule_number": "%" + filter.Search + "%"},
			sq.ILike{"production_line": "%" + filter.Search + "%"},
		}
		baseQuery = baseQuery.Where(like)
		countQuery = countQuery.Where(like)
	}
	for key, value := range filter.Filter {
		column, ok := allowedScheduleFilters[key]
		if !ok {
			continue
		}
		baseQuery = baseQuery.Where(sq.Eq{column: value})
		countQuery = countQuery.Where(sq.Eq{column: value})
	}

	query, args, err := countQuery.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки count-запроса расписаний: %w", err)
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []entities.ProductionSchedule{}, 0, nil
	}

	orderBy := "scheduled_date DESC, start_time"
	for field, dir := range filter.Sort {
		if !allowedScheduleSortFields[field] {
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
		return nil, 0, fmt.Errorf("ошибка сборки запроса списка расписаний: %w", err)
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	schedules, err := collectSchedules(rows)
	if err != nil {
		return nil, 0, err
	}
	return schedules, total, nil
}

// ListActiveByLineAndDate возвращает неотменённые слоты линии за сутки.
// Именно этот список участвует в проверке конфликтов.
func (r *scheduleRepository) ListActiveByLineAndDate(ctx context.Context, tx pgx.Tx, line string, day time.Time) ([]entities.ProductionSchedule, error) {
	start, end := dayBounds(day)
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE production_line = $1 AND scheduled_date >= $2 AND scheduled_date < $3 AND status <> $4 ORDER BY start_time",
		scheduleFields, scheduleTable,
	)
	rows, err := r.getQuerier(tx).Query(ctx, query, line, start, end, entities.ScheduleStatusCancelled)
	if err != nil {
		return nil, err
	}
	return collectSchedules(rows)
}

func (r *scheduleRepository) ListByDate(ctx context.Context, day time.Time) ([]entities.ProductionSchedule, error) {
	start, end := dayBounds(day)
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE scheduled_date >= $1 AND scheduled_date < $2 ORDER BY production_line, start_time",
		scheduleFields, scheduleTable,
	)
	rows, err := r.storage.Query(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	return collectSchedules(rows)
}

func (r *scheduleRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]entities.ProductionSchedule, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE scheduled_date >= $1 AND scheduled_date < $2 ORDER BY scheduled_date, production_line, start_time",
		scheduleFields, scheduleTable,
	)
	rows, err := r.storage.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	return collectSchedules(rows)
}

func (r *scheduleRepository) Create(ctx context.Context, tx pgx.Tx, s entities.ProductionSchedule) (uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Insert(scheduleTable).
		Columns("schedule_number", "production_line", "scheduled_date", "start_time", "end_time",
			"status", "capacity_utilization", "assigned_staff", "equipment", "notes",
			"created_by", "updated_by", "created_at", "updated_at").
		Values(s.ScheduleNumber, s.ProductionLine, s.ScheduledDate, s.StartTime, s.EndTime,
			s.Status, s.CapacityUtilization, s.AssignedStaff, s.Equipment, s.Notes,
			s.CreatedBy, s.UpdatedBy, sq.Expr("NOW()"), sq.Expr("NOW()")).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("ошибка сборки запроса создания расписания: %w", err)
	}

	var newID uint64
	if err := r.getQuerier(tx).QueryRow(ctx, query, args...).Scan(&newID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return 0, fmt.Errorf("расписание с номером %s уже существует: %w", s.ScheduleNumber, apperrors.ErrConflict)
			case "23P01":
				// Exclusion constraint по (линия, интервал) сработал раньше
				// прикладной проверки.
				return 0, apperrors.NewConflictError(s.ProductionLine, s.ScheduledDate.Format("2006-01-02"),
					"линия %s уже занята в интервале %s - %s",
					s.ProductionLine, s.StartTime.Format("15:04"), s.EndTime.Format("15:04"))
			}
		}
		return 0, fmt.Errorf("ошибка создания production_schedules: %w", err)
	}
	return newID, nil
}

func (r *scheduleRepository) Update(ctx context.Context, tx pgx.Tx, s entities.ProductionSchedule) error {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Update(scheduleTable).
		Set("start_time", s.StartTime).
		Set("end_time", s.EndTime).
		Set("status", s.Status).
		Set("capacity_utilization", s.CapacityUtilization).
		Set("assigned_staff", s.AssignedStaff).
		Set("equipment", s.Equipment).
		Set("notes", s.Notes).
		Set("updated_by", s.UpdatedBy).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": s.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса обновления расписания: %w", err)
	}

	result, err := r.getQuerier(tx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка обновления production_schedules: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *scheduleRepository) Delete(ctx context.Context, tx pgx.Tx, id uint64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", scheduleTable)
	result, err := r.getQuerier(tx).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления production_schedules: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// NextDailySequence считает слоты за календарные сутки по всем линиям:
// номер расписания уникален глобально, поэтому и последовательность суточная.
func (r *scheduleRepository) NextDailySequence(ctx context.Context, tx pgx.Tx, day time.Time) (int, error) {
	if err := acquireDayLock(ctx, tx, lockClassSchedule, dayLockKey(day)); err != nil {
		return 0, fmt.Errorf("не удалось взять блокировку нумерации расписаний: %w", err)
	}
	start, end := dayBounds(day)
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE scheduled_date >= $1 AND scheduled_date < $2", scheduleTable)
	if err := tx.QueryRow(ctx, query, start, end).Scan(&count); err != nil {
		return 0, err
	}
	return count + 1, nil
}
