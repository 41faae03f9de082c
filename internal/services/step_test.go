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
	apperrors "production-system/pkg/errors"
)

type stepTestEnv struct {
	service StepServiceInterface
	batches *fakeBatchRepo
	steps   *fakeStepRepo
	clk     *clock.Fake
}

func newStepTestEnv(t *testing.T) *stepTestEnv {
	t.Helper()
	batches := newFakeBatchRepo()
	steps := newFakeStepRepo()
	clk := clock.NewFake(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	service := NewStepService(steps, batches, clk, zap.NewNop())
	return &stepTestEnv{service: service, batches: batches, steps: steps, clk: clk}
}

func (env *stepTestEnv) seedBatch(status entities.BatchStatus) *entities.ProductionBatch {
	return env.batches.put(entities.ProductionBatch{
		BatchNumber:     "PB202503100001",
		OrderID:         1,
		PlannedQuantity: 50,
		StartTime:       env.clk.Now(),
		Status:          status,
	})
}

func (env *stepTestEnv) seedStep(batchID uint64, number int, status entities.StepStatus) *entities.ProductionStep {
	return env.steps.put(entities.ProductionStep{
		BatchID:                batchID,
		StepNumber:             number,
		StepName:               "Шаг",
		PlannedDurationMinutes: 30,
		Status:                 status,
		QualityResult:          entities.QualityPending,
	})
}

func TestStepService_StartStep(t *testing.T) {
	env := newStepTestEnv(t)
	ctx := context.Background()

	batch := env.seedBatch(entities.BatchStatusInProgress)
	step := env.seedStep(batch.ID, 1, entities.StepStatusPending)

	started, err := env.service.StartStep(ctx, step.ID, dto.StartStepDTO{
		AssignedStaff: "Смена А",
		Equipment:     "Котёл 2",
	})
	require.NoError(t, err)
	assert.Equal(t, string(entities.StepStatusInProgress), started.Status)
	assert.True(t, started.ActualStartTime.Valid)
	assert.Equal(t, "Смена А", started.AssignedStaff)
	assert.Equal(t, "Котёл 2", started.Equipment)
}

func TestStepService_StartStep_RequiresRunningBatch(t *testing.T) {
	env := newStepTestEnv(t)
	ctx := context.Background()

	batch := env.seedBatch(entities.BatchStatusPlanned)
	step := env.seedStep(batch.ID, 1, entities.StepStatusPending)

	_, err := env.service.StartStep(ctx, step.ID, dto.StartStepDTO{AssignedStaff: "Смена А"})
	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr, "шаги выполняются только у батча в производстве")
}

func TestStepService_CompleteStep(t *testing.T) {
	env := newStepTestEnv(t)
	ctx := context.Background()

	batch := env.seedBatch(entities.BatchStatusInProgress)
	step := env.seedStep(batch.ID, 1, entities.StepStatusInProgress)

	completed, err := env.service.CompleteStep(ctx, step.ID, dto.CompleteStepDTO{
		ActualDurationMinutes: 45,
		QualityResult:         string(entities.QualityPass),
		Notes:                 "без замечаний",
	})
	require.NoError(t, err)
	assert.Equal(t, string(entities.StepStatusCompleted), completed.Status)
	assert.Equal(t, string(entities.QualityPass), completed.QualityResult)
	assert.True(t, completed.CompletedTime.Valid)
	assert.Equal(t, 15, completed.DelayMinutes, "45 минут факта против 30 плановых")

	// Завершить можно только выполняющийся шаг.
	_, err = env.service.CompleteStep(ctx, step.ID, dto.CompleteStepDTO{
		ActualDurationMinutes: 10,
		QualityResult:         string(entities.QualityPass),
	})
	assert.True(t, apperrors.IsStateTransition(err))
}

func TestStepService_SkipStep_OnlyPending(t *testing.T) {
	env := newStepTestEnv(t)
	ctx := context.Background()

	batch := env.seedBatch(entities.BatchStatusInProgress)
	pending := env.seedStep(batch.ID, 1, entities.StepStatusPending)
	inProgress := env.seedStep(batch.ID, 2, entities.StepStatusInProgress)

	skipped, err := env.service.SkipStep(ctx, pending.ID, dto.StepReasonDTO{Reason: "ингредиент уже подготовлен"})
	require.NoError(t, err)
	assert.Equal(t, string(entities.StepStatusSkipped), skipped.Status)
	assert.Equal(t, string(entities.QualityNotRequired), skipped.QualityResult)
	assert.Contains(t, skipped.Notes, "пропущен: ингредиент уже подготовлен")

	_, err = env.service.SkipStep(ctx, inProgress.ID, dto.StepReasonDTO{Reason: "не нужен"})
	assert.True(t, apperrors.IsStateTransition(err), "начатый шаг пропустить нельзя")
}

func TestStepService_FailStep(t *testing.T) {
	env := newStepTestEnv(t)
	ctx := context.Background()

	batch := env.seedBatch(entities.BatchStatusInProgress)
	step := env.seedStep(batch.ID, 1, entities.StepStatusInProgress)

	failed, err := env.service.FailStep(ctx, step.ID, dto.StepReasonDTO{Reason: "пересол"})
	require.NoError(t, err)
	assert.Equal(t, string(entities.StepStatusFailed), failed.Status)
	assert.Equal(t, string(entities.QualityFail), failed.QualityResult)
	assert.Contains(t, failed.Issues, "пересол")
}

func TestStepService_BatchProgress(t *testing.T) {
	env := newStepTestEnv(t)
	ctx := context.Background()

	batch := env.seedBatch(entities.BatchStatusInProgress)
	env.seedStep(batch.ID, 1, entities.StepStatusCompleted)
	env.seedStep(batch.ID, 2, entities.StepStatusSkipped)
	failed := env.seedStep(batch.ID, 3, entities.StepStatusFailed)
	failed.QualityResult = entities.QualityFail
	env.steps.put(*failed)
	env.seedStep(batch.ID, 4, entities.StepStatusPending)

	progress, err := env.service.BatchProgress(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, progress.TotalSteps)
	assert.Equal(t, 2, progress.FinishedSteps, "проваленный шаг в прогресс не засчитывается")
	assert.InDelta(t, 50.0, progress.Progress, 0.001)
	assert.False(t, progress.Completed)
	assert.True(t, progress.HasQualityIssues)
}

func TestStepService_BatchProgress_Empty(t *testing.T) {
	env := newStepTestEnv(t)
	ctx := context.Background()

	batch := env.seedBatch(entities.BatchStatusPlanned)
	progress, err := env.service.BatchProgress(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, progress.TotalSteps)
	assert.InDelta(t, 0.0, progress.Progress, 0.001, "прогресс без шагов нулевой")
	assert.False(t, progress.Completed)
}
