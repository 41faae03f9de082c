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
	apperrors "production-system/pkg/errors"
)

type scheduleTestEnv struct {
	service   ScheduleServiceInterface
	schedules *fakeScheduleRepo
	day       time.Time
}

func newScheduleTestEnv(t *testing.T) *scheduleTestEnv {
	t.Helper()
	schedules := newFakeScheduleRepo()
	service := NewScheduleService(schedules, fakeTxManager{}, testProductionConfig(), zap.NewNop())
	return &scheduleTestEnv{
		service:   service,
		schedules: schedules,
		day:       time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	}
}

func (env *scheduleTestEnv) slot(line string, startHour, startMin, endHour, endMin int) dto.CreateScheduleDTO {
	return dto.CreateScheduleDTO{
		ProductionLine: line,
		ScheduledDate:  env.day,
		StartTime:      env.day.Add(time.Duration(startHour)*time.Hour + time.Duration(startMin)*time.Minute),
		EndTime:        env.day.Add(time.Duration(endHour)*time.Hour + time.Duration(endMin)*time.Minute),
	}
}

func TestScheduleService_CreateSchedule(t *testing.T) {
	env := newScheduleTestEnv(t)
	ctx := context.Background()

	created, err := env.service.CreateSchedule(ctx, env.slot("LINE-A", 9, 0, 10, 30))
	require.NoError(t, err)

	assert.Equal(t, "PS202503100001", created.ScheduleNumber)
	assert.Equal(t, string(entities.ScheduleStatusPlanned), created.Status)
	assert.Equal(t, 90, created.DurationMinutes)
	assert.InDelta(t, 18.75, created.CapacityUtilization, 0.001, "90 минут от смены в 480 минут")
}

func TestScheduleService_CreateSchedule_ConflictOnSameLine(t *testing.T) {
	env := newScheduleTestEnv(t)
	ctx := context.Background()

	_, err := env.service.CreateSchedule(ctx, env.slot("LINE-A", 9, 0, 10, 30))
	require.NoError(t, err)

	// Пересечение на той же линии отклоняется.
	_, err = env.service.CreateSchedule(ctx, env.slot("LINE-A", 10, 0, 11, 0))
	assert.True(t, apperrors.IsConflict(err))

	// Тот же интервал на другой линии свободен.
	_, err = env.service.CreateSchedule(ctx, env.slot("LINE-B", 10, 0, 11, 0))
	assert.NoError(t, err)

	// Интервалы полуоткрытые: стык конец-в-начало конфликтом не считается.
	_, err = env.service.CreateSchedule(ctx, env.slot("LINE-A", 10, 30, 11, 30))
	assert.NoError(t, err)
}

func TestScheduleService_CreateSchedule_Validation(t *testing.T) {
	env := newScheduleTestEnv(t)
	ctx := context.Background()

	var validationErr *apperrors.ValidationError

	_, err := env.service.CreateSchedule(ctx, env.slot("LINE-X", 9, 0, 10, 0))
	require.ErrorAs(t, err, &validationErr, "неизвестная линия отклоняется")

	_, err = env.service.CreateSchedule(ctx, env.slot("LINE-A", 10, 0, 9, 0))
	require.ErrorAs(t, err, &validationErr, "окончание раньше начала отклоняется")

	outOfDay := env.slot("LINE-A", 9, 0, 10, 0)
	outOfDay.StartTime = outOfDay.StartTime.AddDate(0, 0, 1)
	outOfDay.EndTime = outOfDay.EndTime.AddDate(0, 0, 1)
	_, err = env.service.CreateSchedule(ctx, outOfDay)
	require.ErrorAs(t, err, &validationErr, "начало вне запланированных суток отклоняется")
}

func TestScheduleService_CancelFreesSlot(t *testing.T) {
	env := newScheduleTestEnv(t)
	ctx := context.Background()

	created, err := env.service.CreateSchedule(ctx, env.slot("LINE-A", 9, 0, 10, 30))
	require.NoError(t, err)

	cancelled, err := env.service.CancelSchedule(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entities.ScheduleStatusCancelled), cancelled.Status)

	// Отменённый слот не участвует в проверке конфликтов.
	_, err = env.service.CreateSchedule(ctx, env.slot("LINE-A", 9, 0, 10, 30))
	assert.NoError(t, err)
}

func TestScheduleService_ProposeSlot(t *testing.T) {
	env := newScheduleTestEnv(t)
	ctx := context.Background()

	_, err := env.service.CreateSchedule(ctx, env.slot("LINE-A", 9, 0, 10, 30))
	require.NoError(t, err)

	err = env.service.ProposeSlot(ctx, dto.ProposeSlotDTO{
		ProductionLine: "LINE-A",
		ScheduledDate:  env.day,
		StartTime:      env.day.Add(10 * time.Hour),
		EndTime:        env.day.Add(11 * time.Hour),
	})
	assert.True(t, apperrors.IsConflict(err), "занятый интервал возвращает конфликт без создания записи")

	err = env.service.ProposeSlot(ctx, dto.ProposeSlotDTO{
		ProductionLine: "LINE-A",
		ScheduledDate:  env.day,
		StartTime:      env.day.Add(12 * time.Hour),
		EndTime:        env.day.Add(13 * time.Hour),
	})
	assert.NoError(t, err)

	schedules, err := env.service.ListByLineAndDate(ctx, "LINE-A", env.day)
	require.NoError(t, err)
	assert.Len(t, schedules, 1, "ProposeSlot новых записей не создаёт")
}

func TestScheduleService_Lifecycle(t *testing.T) {
	env := newScheduleTestEnv(t)
	ctx := context.Background()

	created, err := env.service.CreateSchedule(ctx, env.slot("LINE-A", 9, 0, 10, 30))
	require.NoError(t, err)

	// Запуск без подтверждения недопустим.
	_, err = env.service.StartSchedule(ctx, created.ID)
	assert.True(t, apperrors.IsStateTransition(err))

	_, err = env.service.ConfirmSchedule(ctx, created.ID)
	require.NoError(t, err)
	_, err = env.service.StartSchedule(ctx, created.ID)
	require.NoError(t, err)

	// Начатую работу уже не отменить.
	_, err = env.service.CancelSchedule(ctx, created.ID)
	assert.True(t, apperrors.IsStateTransition(err))

	completed, err := env.service.CompleteSchedule(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entities.ScheduleStatusCompleted), completed.Status)
}

func TestScheduleService_CapacityUtilization_Capped(t *testing.T) {
	env := newScheduleTestEnv(t)
	ctx := context.Background()

	created, err := env.service.CreateSchedule(ctx, env.slot("LINE-A", 8, 0, 20, 0))
	require.NoError(t, err)
	assert.InDelta(t, 100.0, created.CapacityUtilization, 0.001, "загрузка не превышает 100 процентов")
}

func TestScheduleService_FindConflicts(t *testing.T) {
	env := newScheduleTestEnv(t)
	ctx := context.Background()

	conflicts, err := env.service.FindConflicts(ctx, env.day)
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	// Пересекающиеся записи, попавшие в БД в обход прикладных проверок.
	env.schedules.put(entities.ProductionSchedule{
		ScheduleNumber: "PS202503100001",
		ProductionLine: "LINE-A",
		ScheduledDate:  env.day,
		StartTime:      env.day.Add(9 * time.Hour),
		EndTime:        env.day.Add(11 * time.Hour),
		Status:         entities.ScheduleStatusPlanned,
	})
	env.schedules.put(entities.ProductionSchedule{
		ScheduleNumber: "PS202503100002",
		ProductionLine: "LINE-A",
		ScheduledDate:  env.day,
		StartTime:      env.day.Add(10 * time.Hour),
		EndTime:        env.day.Add(12 * time.Hour),
		Status:         entities.ScheduleStatusConfirmed,
	})
	env.schedules.put(entities.ProductionSchedule{
		ScheduleNumber: "PS202503100003",
		ProductionLine: "LINE-A",
		ScheduledDate:  env.day,
		StartTime:      env.day.Add(10 * time.Hour),
		EndTime:        env.day.Add(12 * time.Hour),
		Status:         entities.ScheduleStatusCancelled,
	})

	conflicts, err = env.service.FindConflicts(ctx, env.day)
	require.NoError(t, err)
	require.Len(t, conflicts, 1, "отменённые слоты в конфликтах не участвуют")
	assert.Equal(t, "LINE-A", conflicts[0].ProductionLine)
	assert.Equal(t, "PS202503100001", conflicts[0].FirstNumber)
	assert.Equal(t, "PS202503100002", conflicts[0].SecondNumber)
}
