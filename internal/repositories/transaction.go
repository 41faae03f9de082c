package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TxManagerInterface interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

type TxManager struct {
	pool *pgxpool.Pool
}

func NewTxManager(pool *pgxpool.Pool) TxManagerInterface {
	return &TxManager{pool: pool}
}

// WithinTransaction выполняет fn в транзакции: при ошибке откат, иначе фиксация.
func (m *TxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("не удалось начать транзакцию: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("не удалось зафиксировать транзакцию: %w", err)
	}
	return nil
}

// acquireDayLock берёт транзакционную advisory-блокировку для ключа нумерации,
// чтобы подсчёт суточной последовательности и вставка шли атомарно.
func acquireDayLock(ctx context.Context, tx pgx.Tx, classID int32, dayKey int32) error {
	_, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1, $2)", classID, dayKey)
	return err
}

// Классы advisory-блокировок по типам сущностей с суточной нумерацией.
const (
	lockClassOrder    int32 = 1001
	lockClassSchedule int32 = 1002
	lockClassBatch    int32 = 1003
)

// dayLockKey сводит дату к ключу вида yyyymmdd, умещающемуся в int32.
func dayLockKey(day time.Time) int32 {
	return int32(day.Year()*10000 + int(day.Month())*100 + day.Day())
}

// dayBounds возвращает полуинтервал [начало суток, начало следующих суток).
func dayBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return start, start.AddDate(0, 0, 1)
}
