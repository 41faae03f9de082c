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
	orderTable  = "production_orders"
	orderFields = "id, order_number, franchise_id, standard_id, quantity, unit_price, total_amount, priority, status, order_date, required_date, scheduled_date, completed_date, special_instructions, notes, created_at, updated_at, created_by, updated_by"
)

// allowedOrderFilters - БЕЛЫЙ СПИСОК для фильтрации (защита от SQL Injection)
var allowedOrderFilters = map[string]string{
	"id":           "id",
	"status":       "status",
	"priority":     "priority",
	"franchise_id": "franchise_id",
	"standard_id":  "standard_id",
}

// allowedOrderSortFields - БЕЛЫЙ СПИСОК для сортировки
var allowedOrderSortFields = map[string]bool{
	"id":            true,
	"order_number":  true,
	"order_date":    true,
	"required_date": true,
	"status":        true,
	"created_at":    true,
}

// priorityRankSQL переводит текстовый приоритет в числовой ранг для
// сортировки очереди планирования.
const priorityRankSQL = "CASE priority WHEN 'URGENT' THEN 3 WHEN 'HIGH' THEN 2 WHEN 'NORMAL' THEN 1 ELSE 0 END"

type OrderRepositoryInterface interface {
	GetOrders(ctx context.Context, filter types.Filter) ([]entities.ProductionOrder, uint64, error)
	FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.ProductionOrder, error)
	FindByNumber(ctx context.Context, tx pgx.Tx, number string) (*entities.ProductionOrder, error)
	FindByIDs(ctx context.Context, ids []uint64) ([]entities.ProductionOrder, error)
	ListByStatus(ctx context.Context, status entities.OrderStatus) ([]entities.ProductionOrder, error)
	ListByFranchise(ctx context.Context, franchiseID uint64) ([]entities.ProductionOrder, error)
	ListByRequiredBetween(ctx context.Context, from, to time.Time) ([]entities.ProductionOrder, error)
	Create(ctx context.Context, tx pgx.Tx, o entities.ProductionOrder) (uint64, error)
	Update(ctx context.Context, tx pgx.Tx, o entities.ProductionOrder) error
	Delete(ctx context.Context, tx pgx.Tx, id uint64) error
	NextDailySequence(ctx context.Context, tx pgx.Tx, day time.Time) (int, error)
}

type orderRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewOrderRepository(storage *pgxpool.Pool, logger *zap.Logger) OrderRepositoryInterface {
	return &orderRepository{storage: storage, logger: logger}
}

func (r *orderRepository) getQuerier(tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return r.storage
}

func scanOrder(row pgx.Row) (*entities.ProductionOrder, error) {
	var o entities.ProductionOrder
	var scheduledDate, completedDate sql.NullTime

	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.FranchiseID, &o.StandardID,
		&o.Quantity, &o.UnitPrice, &o.TotalAmount, &o.Priority, &o.Status,
		&o.OrderDate, &o.RequiredDate, &scheduledDate, &completedDate,
		&o.SpecialInstructions, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt, &o.CreatedBy, &o.UpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования production_orders: %w", err)
	}

	if scheduledDate.Valid {
		o.ScheduledDate = &scheduledDate.Time
	}
	if completedDate.Valid {
		o.CompletedDate = &completedDate.Time
	}
	return &o, nil
}

func collectOrders(rows pgx.Rows) ([]entities.ProductionOrder, error) {
	defer rows.Close()
	orders := make([]entities.ProductionOrder, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (r *orderRepository) findOne(ctx context.Context, querier Querier, where sq.Eq) (*entities.ProductionOrder, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Select(orderFields).From(orderTable).Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки SQL для поиска заказа: %w", err)
	}
	return scanOrder(querier.QueryRow(ctx, query, args...))
}

func (r *orderRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.ProductionOrder, error) {
	return r.findOne(ctx, r.getQuerier(tx), sq.Eq{"id": id})
}

func (r *orderRepository) FindByNumber(ctx context.Context, tx pgx.Tx, number string) (*entities.ProductionOrder, error) {
	return r.findOne(ctx, r.getQuerier(tx), sq.Eq{"order_number": number})
}

func (r *orderRepository) FindByIDs(ctx context.Context, ids []uint64) ([]entities.ProductionOrder, error) {
	if len(ids) == 0 {
		return []entities.ProductionOrder{}, nil
	}
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Select(orderFields).From(orderTable).
		Where(sq.Eq{"id": ids}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки SQL для FindByIDs: %w", err)
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (r *orderRepository) GetOrders(ctx context.Context, filter types.Filter) ([]entities.ProductionOrder, uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	baseQuery := psql.Select(orderFields).From(orderTable)
	countQuery := psql.Select("COUNT(*)").From(orderTable)

	if filter.Search != "" {
		like := sq.Or{
			sq.ILike{"order_number": "%" + filter.Search + "%"},
			sq.ILike{"notes": "%" + filter.Search + "%"},
		}
		baseQuery = baseQuery.Where(like)
		countQuery = countQuery.Where(like)
	}
	for key, value := range filter.Filter {
		column, ok := allowedOrderFilters[key]
		if !ok {
			continue
		}
		baseQuery = baseQuery.Where(sq.Eq{column: value})
		countQuery = countQuery.Where(sq.Eq{column: value})
	}

	query, args, err := countQuery.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки count-запроса заказов: %w", err)
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []entities.ProductionOrder{}, 0, nil
	}

	orderBy := "id DESC"
	for field, dir := range filter.Sort {
		if !allowedOrderSortFields[field] {
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
		return nil, 0, fmt.Errorf("ошибка сборки запроса списка заказов: %w", err)
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListByStatus возвращает заказы в статусе в порядке очереди планирования:
// сначала приоритет по убыванию, затем требуемая дата по возрастанию.
func (r *orderRepository) ListByStatus(ctx context.Context, status entities.OrderStatus) ([]entities.ProductionOrder, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE status = $1 ORDER BY %s DESC, required_date ASC, id ASC",
		orderFields, orderTable, priorityRankSQL,
	)
	rows, err := r.storage.Query(ctx, query, status)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (r *orderRepository) ListByFranchise(ctx context.Context, franchiseID uint64) ([]entities.ProductionOrder, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE franchise_id = $1 ORDER BY order_date DESC, id", orderFields, orderTable)
	rows, err := r.storage.Query(ctx, query, franchiseID)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (r *orderRepository) ListByRequiredBetween(ctx context.Context, from, to time.Time) ([]entities.ProductionOrder, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE required_date >= $1 AND required_date < $2 ORDER BY required_date, id",
		orderFields, orderTable,
	)
	rows, err := r.storage.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (r *orderRepository) Create(ctx context.Context, tx pgx.Tx, o entities.ProductionOrder) (uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Insert(orderTable).
		Columns("order_number", "franchise_id", "standard_id", "quantity", "unit_price", "total_amount",
			"priority", "status", "order_date", "required_date", "special_instructions", "notes",
			"created_by", "updated_by", "created_at", "updated_at").
		Values(o.OrderNumber, o.FranchiseID, o.StandardID, o.Quantity, o.UnitPrice, o.TotalAmount,
			o.Priority, o.Status, o.OrderDate, o.RequiredDate, o.SpecialInstructions, o.Notes,
			o.CreatedBy, o.UpdatedBy, sq.Expr("NOW()"), sq.Expr("NOW()")).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("ошибка сборки запроса создания заказа: %w", err)
	}

	var newID uint64
	if err := r.getQuerier(tx).QueryRow(ctx, query, args...).Scan(&newID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("заказ с номером %s уже существует: %w", o.OrderNumber, apperrors.ErrConflict)
		}
		return 0, fmt.Errorf("ошибка создания production_orders: %w", err)
	}
	return newID, nil
}

func (r *orderRepository) Update(ctx context.Context, tx pgx.Tx, o entities.ProductionOrder) error {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Update(orderTable).
		Set("quantity", o.Quantity).
		Set("unit_price", o.UnitPrice).
		Set("total_amount", o.TotalAmount).
		Set("priority", o.Priority).
		Set("status", o.Status).
		Set("required_date", o.RequiredDate).
		Set("scheduled_date", o.ScheduledDate).
		Set("completed_date", o.CompletedDate).
		Set("special_instructions", o.SpecialInstructions).
		Set("notes", o.Notes).
		Set("updated_by", o.UpdatedBy).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": o.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса обновления заказа: %w", err)
	}

	result, err := r.getQuerier(tx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка обновления production_orders: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *orderRepository) Delete(ctx context.Context, tx pgx.Tx, id uint64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", orderTable)
	result, err := r.getQuerier(tx).Exec(ctx, query, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return fmt.Errorf("заказ связан с производственными батчами: %w", apperrors.ErrConflict)
		}
		return fmt.Errorf("ошибка удаления production_orders: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// NextDailySequence возвращает следующий порядковый номер заказа за сутки.
// Advisory-блокировка держит подсчёт и последующую вставку атомарными по
// отношению к параллельным транзакциям того же дня.
func (r *orderRepository) NextDailySequence(ctx context.Context, tx pgx.Tx, day time.Time) (int, error) {
	if err := acquireDayLock(ctx, tx, lockClassOrder, dayLockKey(day)); err != nil {
		return 0, fmt.Errorf("не удалось взять блокировку нумерации заказов: %w", err)
	}
	start, end := dayBounds(day)
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE order_date >= $1 AND order_date < $2", orderTable)
	if err := tx.QueryRow(ctx, query, start, end).Scan(&count); err != nil {
		return 0, err
	}
	return count + 1, nil
}
