package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"production-system/internal/dto"
	"production-system/internal/entities"
	"production-system/pkg/clock"
	apperrors "production-system/pkg/errors"
)

type orderTestEnv struct {
	service OrderServiceInterface
	orders  *fakeOrderRepo
	batches *fakeBatchRepo
	clk     *clock.Fake
}

func newOrderTestEnv(t *testing.T) *orderTestEnv {
	t.Helper()
	orders := newFakeOrderRepo()
	batches := newFakeBatchRepo()
	franchises := newFakeFranchiseRepo(
		entities.Franchise{ID: 1, Name: "Точка на Рудаки", Active: true},
	)
	standards := newFakeStandardRepo(
		entities.ProductionStandard{ID: 1, DishName: "Плов", CookingTimeMinutes: 90, Active: true},
		entities.ProductionStandard{ID: 2, DishName: "Снятый с производства суп", Active: false},
	)
	clk := clock.NewFake(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	service := NewOrderService(orders, batches, franchises, standards, fakeTxManager{}, clk, zap.NewNop())
	return &orderTestEnv{service: service, orders: orders, batches: batches, clk: clk}
}

func validCreateOrderDTO(clk *clock.Fake) dto.CreateOrderDTO {
	return dto.CreateOrderDTO{
		FranchiseID:  1,
		StandardID:   1,
		Quantity:     40,
		UnitPrice:    25.5,
		RequiredDate: clk.Now().Add(48 * time.Hour),
	}
}

func TestOrderService_CreateOrder(t *testing.T) {
	env := newOrderTestEnv(t)
	ctx := context.Background()

	created, err := env.service.CreateOrder(ctx, validCreateOrderDTO(env.clk))
	require.NoError(t, err)

	assert.Equal(t, "PO202503100001", created.OrderNumber, "номер содержит дату и суточный порядковый номер")
	assert.Equal(t, string(entities.OrderStatusPending), created.Status)
	assert.Equal(t, string(entities.PriorityNormal), created.Priority, "приоритет по умолчанию NORMAL")
	assert.InDelta(t, 1020.0, created.TotalAmount, 0.001, "сумма заказа пересчитывается из цены и количества")
}

func TestOrderService_CreateOrder_SequentialDailyNumbers(t *testing.T) {
	env := newOrderTestEnv(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		created, err := env.service.CreateOrder(ctx, validCreateOrderDTO(env.clk))
		require.NoError(t, err)
		assert.False(t, seen[created.OrderNumber], "номера в пределах суток не повторяются")
		seen[created.OrderNumber] = true
	}
	assert.True(t, seen["PO202503100001"])
	assert.True(t, seen["PO202503100002"])
	assert.True(t, seen["PO202503100003"])

	// Следующие сутки начинают счёт заново.
	env.clk.Advance(24 * time.Hour)
	created, err := env.service.CreateOrder(ctx, validCreateOrderDTO(env.clk))
	require.NoError(t, err)
	assert.Equal(t, "PO202503110001", created.OrderNumber)
}

func TestOrderService_CreateOrder_Validation(t *testing.T) {
	env := newOrderTestEnv(t)
	ctx := context.Background()

	payload := validCreateOrderDTO(env.clk)
	payload.RequiredDate = env.clk.Now().Add(-time.Hour)
	_, err := env.service.CreateOrder(ctx, payload)
	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr, "требуемая дата в прошлом отклоняется")

	payload = validCreateOrderDTO(env.clk)
	payload.StandardID = 2
	_, err = env.service.CreateOrder(ctx, payload)
	require.ErrorAs(t, err, &validationErr, "неактивный стандарт отклоняется")

	payload = validCreateOrderDTO(env.clk)
	payload.FranchiseID = 999
	_, err = env.service.CreateOrder(ctx, payload)
	require.ErrorAs(t, err, &validationErr, "несуществующая франшиза отклоняется")

	payload = validCreateOrderDTO(env.clk)
	payload.Priority = "SOMEDAY"
	_, err = env.service.CreateOrder(ctx, payload)
	require.ErrorAs(t, err, &validationErr, "неизвестный приоритет отклоняется")
}

func TestOrderService_ApproveOrder_TwiceRejected(t *testing.T) {
	env := newOrderTestEnv(t)
	ctx := context.Background()

	created, err := env.service.CreateOrder(ctx, validCreateOrderDTO(env.clk))
	require.NoError(t, err)

	approved, err := env.service.ApproveOrder(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entities.OrderStatusApproved), approved.Status)

	_, err = env.service.ApproveOrder(ctx, created.ID)
	assert.True(t, apperrors.IsStateTransition(err), "повторное подтверждение недопустимо")
}

func TestOrderService_Lifecycle_HappyPath(t *testing.T) {
	env := newOrderTestEnv(t)
	ctx := context.Background()

	created, err := env.service.CreateOrder(ctx, validCreateOrderDTO(env.clk))
	require.NoError(t, err)

	_, err = env.service.ApproveOrder(ctx, created.ID)
	require.NoError(t, err)

	slotStart := env.clk.Now().Add(26 * time.Hour)
	scheduled, err := env.service.MarkScheduled(ctx, created.ID, slotStart)
	require.NoError(t, err)
	require.True(t, scheduled.ScheduledDate.Valid, "дата планирования фиксируется при переходе")
	assert.Equal(t, slotStart, scheduled.ScheduledDate.Time, "фиксируется дата слота, а не момент вызова")

	_, err = env.service.MarkInProduction(ctx, created.ID)
	require.NoError(t, err)

	env.clk.Advance(4 * time.Hour)
	completed, err := env.service.CompleteOrder(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entities.OrderStatusCompleted), completed.Status)
	assert.True(t, completed.CompletedDate.Valid)

	// Терминальный статус, дальше двигаться некуда.
	_, err = env.service.CancelOrder(ctx, created.ID, "передумали")
	assert.True(t, apperrors.IsStateTransition(err))
}

func TestOrderService_MarkScheduled_ZeroDateFallsBackToNow(t *testing.T) {
	env := newOrderTestEnv(t)
	ctx := context.Background()

	created, err := env.service.CreateOrder(ctx, validCreateOrderDTO(env.clk))
	require.NoError(t, err)
	_, err = env.service.ApproveOrder(ctx, created.ID)
	require.NoError(t, err)

	scheduled, err := env.service.MarkScheduled(ctx, created.ID, time.Time{})
	require.NoError(t, err)
	require.True(t, scheduled.ScheduledDate.Valid)
	assert.Equal(t, env.clk.Now(), scheduled.ScheduledDate.Time, "ручной перевод без слота датируется текущим моментом")
}

func TestOrderService_CancelOrder_AppendsReason(t *testing.T) {
	env := newOrderTestEnv(t)
	ctx := context.Background()

	created, err := env.service.CreateOrder(ctx, validCreateOrderDTO(env.clk))
	require.NoError(t, err)

	cancelled, err := env.service.CancelOrder(ctx, created.ID, "франшиза закрылась")
	require.NoError(t, err)
	assert.Equal(t, string(entities.OrderStatusCancelled), cancelled.Status)
	assert.Contains(t, cancelled.Notes, "отменён: франшиза закрылась")
}

func TestOrderService_UpdateOrder_OnlyBeforeProduction(t *testing.T) {
	env := newOrderTestEnv(t)
	ctx := context.Background()

	created, err := env.service.CreateOrder(ctx, validCreateOrderDTO(env.clk))
	require.NoError(t, err)

	qty := 60
	updated, err := env.service.UpdateOrder(ctx, created.ID, dto.UpdateOrderDTO{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 60, updated.Quantity)
	assert.InDelta(t, 1530.0, updated.TotalAmount, 0.001, "сумма пересчитана после изменения количества")

	inWork := env.orders.put(entities.ProductionOrder{
		OrderNumber:  "PO202503100099",
		FranchiseID:  1,
		StandardID:   1,
		Quantity:     10,
		UnitPrice:    5,
		Priority:     entities.PriorityNormal,
		Status:       entities.OrderStatusInProduction,
		OrderDate:    env.clk.Now(),
		RequiredDate: env.clk.Now().Add(24 * time.Hour),
	})
	_, err = env.service.UpdateOrder(ctx, inWork.ID, dto.UpdateOrderDTO{Quantity: &qty})
	var validationErr *apperrors.ValidationError
	assert.ErrorAs(t, err, &validationErr, "заказ в производстве не редактируется")
}

func TestOrderService_DeleteOrder_BlockedByBatches(t *testing.T) {
	env := newOrderTestEnv(t)
	ctx := context.Background()

	created, err := env.service.CreateOrder(ctx, validCreateOrderDTO(env.clk))
	require.NoError(t, err)

	env.batches.put(entities.ProductionBatch{
		BatchNumber:     "PB202503100001",
		OrderID:         created.ID,
		PlannedQuantity: 40,
		StartTime:       env.clk.Now(),
		Status:          entities.BatchStatusPlanned,
	})

	err = env.service.DeleteOrder(ctx, created.ID)
	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr, "заказ с батчами удалить нельзя")

	fresh, err := env.service.CreateOrder(ctx, validCreateOrderDTO(env.clk))
	require.NoError(t, err)
	require.NoError(t, env.service.DeleteOrder(ctx, fresh.ID))

	_, err = env.service.FindOrder(ctx, fresh.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
