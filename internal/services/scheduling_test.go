package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"production-system/internal/dto"
	"production-system/internal/entities"
	"production-system/pkg/clock"
	"production-system/pkg/config"
)

type schedulingTestEnv struct {
	service   SchedulingServiceInterface
	orders    *fakeOrderRepo
	schedules *fakeScheduleRepo
	clk       *clock.Fake
	day       time.Time
}

func newSchedulingTestEnv(t *testing.T, cfg config.ProductionConfig) *schedulingTestEnv {
	t.Helper()
	orders := newFakeOrderRepo()
	schedules := newFakeScheduleRepo()
	batches := newFakeBatchRepo()
	franchises := newFakeFranchiseRepo(entities.Franchise{ID: 1, Name: "Точка на Рудаки", Active: true})
	standards := newFakeStandardRepo(
		entities.ProductionStandard{ID: 1, DishName: "Плов", CookingTimeMinutes: 90, Active: true},
	)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	clk := clock.NewFake(day.Add(9 * time.Hour))
	logger := zap.NewNop()

	orderService := NewOrderService(orders, batches, franchises, standards, fakeTxManager{}, clk, logger)
	scheduleService := NewScheduleService(schedules, fakeTxManager{}, cfg, logger)
	service := NewSchedulingService(orders, standards, orderService, scheduleService, cfg, logger)

	return &schedulingTestEnv{service: service, orders: orders, schedules: schedules, clk: clk, day: day}
}

func (env *schedulingTestEnv) approvedOrder(number string, priority entities.OrderPriority, requiredIn time.Duration) *entities.ProductionOrder {
	return env.orders.put(entities.ProductionOrder{
		OrderNumber:  number,
		FranchiseID:  1,
		StandardID:   1,
		Quantity:     40,
		UnitPrice:    25,
		Priority:     priority,
		Status:       entities.OrderStatusApproved,
		OrderDate:    env.clk.Now(),
		RequiredDate: env.clk.Now().Add(requiredIn),
	})
}

func TestSchedulingService_AutoSchedule_PriorityFirst(t *testing.T) {
	env := newSchedulingTestEnv(t, testProductionConfig())
	ctx := context.Background()

	normal := env.approvedOrder("PO202503100001", entities.PriorityNormal, 48*time.Hour)
	urgent := env.approvedOrder("PO202503100002", entities.PriorityUrgent, 24*time.Hour)

	result, err := env.service.AutoSchedule(ctx, dto.AutoScheduleRequestDTO{
		OrderIDs:  []uint64{normal.ID, urgent.ID},
		StartFrom: env.day.Add(9 * time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, result.Scheduled, 2)
	assert.Empty(t, result.Unscheduled)

	// Срочный заказ получает первый слот независимо от порядка во входе.
	assert.Contains(t, result.Scheduled[0].Notes, urgent.OrderNumber)
	assert.Equal(t, "2025-03-10 09:00:00", result.Scheduled[0].StartTime)
	assert.Equal(t, "2025-03-10 10:30:00", result.Scheduled[0].EndTime)

	// Курсор уходит за конец первого слота с паузой в 15 минут.
	assert.Contains(t, result.Scheduled[1].Notes, normal.OrderNumber)
	assert.Equal(t, "2025-03-10 10:45:00", result.Scheduled[1].StartTime)

	for _, id := range []uint64{normal.ID, urgent.ID} {
		stored, err := env.orders.FindByID(ctx, nil, id)
		require.NoError(t, err)
		assert.Equal(t, entities.OrderStatusScheduled, stored.Status)
	}
}

func TestSchedulingService_AutoSchedule_FallsBackToNextLine(t *testing.T) {
	env := newSchedulingTestEnv(t, testProductionConfig())
	ctx := context.Background()

	// Первая линия занята на время первой попытки.
	env.schedules.put(entities.ProductionSchedule{
		ScheduleNumber: "PS202503100001",
		ProductionLine: "LINE-A",
		ScheduledDate:  env.day,
		StartTime:      env.day.Add(8 * time.Hour),
		EndTime:        env.day.Add(11 * time.Hour),
		Status:         entities.ScheduleStatusConfirmed,
	})
	order := env.approvedOrder("PO202503100001", entities.PriorityNormal, 24*time.Hour)

	result, err := env.service.AutoSchedule(ctx, dto.AutoScheduleRequestDTO{
		OrderIDs:  []uint64{order.ID},
		StartFrom: env.day.Add(9 * time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, result.Scheduled, 1)
	assert.Equal(t, "LINE-B", result.Scheduled[0].ProductionLine)
	assert.Equal(t, "2025-03-10 09:00:00", result.Scheduled[0].StartTime)
}

func TestSchedulingService_AutoSchedule_NextDayRetry(t *testing.T) {
	cfg := testProductionConfig()
	cfg.Lines = []string{"LINE-A"}
	cfg.SlotProbeLimit = 2
	env := newSchedulingTestEnv(t, cfg)
	ctx := context.Background()

	// Единственная линия занята до конца суток.
	env.schedules.put(entities.ProductionSchedule{
		ScheduleNumber: "PS202503100001",
		ProductionLine: "LINE-A",
		ScheduledDate:  env.day,
		StartTime:      env.day,
		EndTime:        env.day.Add(24*time.Hour - time.Minute),
		Status:         entities.ScheduleStatusConfirmed,
	})
	order := env.approvedOrder("PO202503100001", entities.PriorityNormal, 72*time.Hour)

	result, err := env.service.AutoSchedule(ctx, dto.AutoScheduleRequestDTO{
		OrderIDs:  []uint64{order.ID},
		StartFrom: env.day.Add(9 * time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, result.Scheduled, 1)
	assert.Equal(t, "2025-03-11 08:00:00", result.Scheduled[0].StartTime, "перенос на утро следующего дня")

	stored, err := env.orders.FindByID(ctx, nil, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.OrderStatusScheduled, stored.Status)
	require.NotNil(t, stored.ScheduledDate)
	assert.Equal(t, env.day.AddDate(0, 0, 1).Add(8*time.Hour), *stored.ScheduledDate,
		"в заказе дата начала слота, а не момент запуска планировщика")
}

func TestSchedulingService_AutoSchedule_Exhausted(t *testing.T) {
	cfg := testProductionConfig()
	cfg.Lines = []string{"LINE-A"}
	cfg.SlotProbeLimit = 2
	env := newSchedulingTestEnv(t, cfg)
	ctx := context.Background()

	// Заняты и текущие, и следующие сутки.
	for i := 0; i < 2; i++ {
		day := env.day.AddDate(0, 0, i)
		env.schedules.put(entities.ProductionSchedule{
			ScheduleNumber: "PS" + day.Format("20060102") + "0001",
			ProductionLine: "LINE-A",
			ScheduledDate:  day,
			StartTime:      day,
			EndTime:        day.Add(24*time.Hour - time.Minute),
			Status:         entities.ScheduleStatusConfirmed,
		})
	}
	order := env.approvedOrder("PO202503100001", entities.PriorityNormal, 72*time.Hour)

	result, err := env.service.AutoSchedule(ctx, dto.AutoScheduleRequestDTO{
		OrderIDs:  []uint64{order.ID},
		StartFrom: env.day.Add(9 * time.Hour),
	})
	require.NoError(t, err)
	assert.Empty(t, result.Scheduled)
	require.Len(t, result.Unscheduled, 1)
	assert.Equal(t, order.ID, result.Unscheduled[0].OrderID)
	assert.Contains(t, result.Unscheduled[0].Reason, "нет свободного слота")

	// Неразмещённый заказ остаётся подтверждённым.
	stored, err := env.orders.FindByID(ctx, nil, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.OrderStatusApproved, stored.Status)
}

func TestSchedulingService_AutoSchedule_SkipsUnplannable(t *testing.T) {
	env := newSchedulingTestEnv(t, testProductionConfig())
	ctx := context.Background()

	pending := env.orders.put(entities.ProductionOrder{
		OrderNumber:  "PO202503100001",
		FranchiseID:  1,
		StandardID:   1,
		Quantity:     10,
		UnitPrice:    5,
		Priority:     entities.PriorityNormal,
		Status:       entities.OrderStatusPending,
		OrderDate:    env.clk.Now(),
		RequiredDate: env.clk.Now().Add(24 * time.Hour),
	})

	result, err := env.service.AutoSchedule(ctx, dto.AutoScheduleRequestDTO{
		OrderIDs:  []uint64{pending.ID, 999},
		StartFrom: env.day.Add(9 * time.Hour),
	})
	require.NoError(t, err)
	assert.Empty(t, result.Scheduled)
	require.Len(t, result.Unscheduled, 2)

	reasons := make(map[uint64]string, len(result.Unscheduled))
	for _, u := range result.Unscheduled {
		reasons[u.OrderID] = u.Reason
	}
	assert.Equal(t, "заказ не найден", reasons[999])
	assert.Contains(t, reasons[pending.ID], "не подтверждён")
}
