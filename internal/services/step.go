package services

import (
	"context"

	"go.uber.org/zap"

	"production-system/internal/dto"
	"production-system/internal/entities"
	"production-system/internal/repositories"
	"production-system/pkg/clock"
	apperrors "production-system/pkg/errors"
	"production-system/pkg/utils"
)

type StepServiceInterface interface {
	FindStep(ctx context.Context, id uint64) (*dto.StepDTO, error)
	ListByBatch(ctx context.Context, batchID uint64) ([]dto.StepDTO, error)
	StartStep(ctx context.Context, id uint64, payload dto.StartStepDTO) (*dto.StepDTO, error)
	CompleteStep(ctx context.Context, id uint64, payload dto.CompleteStepDTO) (*dto.StepDTO, error)
	SkipStep(ctx context.Context, id uint64, payload dto.StepReasonDTO) (*dto.StepDTO, error)
	FailStep(ctx context.Context, id uint64, payload dto.StepReasonDTO) (*dto.StepDTO, error)
	BatchProgress(ctx context.Context, batchID uint64) (*dto.BatchProgressDTO, error)
}

// StepService отслеживает выполнение шагов внутри батча. Переходы шага
// линейны, конкурентные обновления разруливаются версией записи.
type StepService struct {
	repo      repositories.StepRepositoryInterface
	batchRepo repositories.BatchRepositoryInterface
	clk       clock.Clock
	logger    *zap.Logger
}

func NewStepService(
	repo repositories.StepRepositoryInterface,
	batchRepo repositories.BatchRepositoryInterface,
	clk clock.Clock,
	logger *zap.Logger,
) StepServiceInterface {
	return &StepService{repo: repo, batchRepo: batchRepo, clk: clk, logger: logger}
}

func (s *StepService) FindStep(ctx context.Context, id uint64) (*dto.StepDTO, error) {
	step, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	result := dto.NewStepDTO(step)
	return &result, nil
}

func (s *StepService) ListByBatch(ctx context.Context, batchID uint64) ([]dto.StepDTO, error) {
	if _, err := s.batchRepo.FindByID(ctx, nil, batchID); err != nil {
		return nil, err
	}
	steps, err := s.repo.ListByBatch(ctx, nil, batchID)
	if err != nil {
		return nil, err
	}
	return dto.NewStepDTOs(steps), nil
}

// StartStep берёт шаг в работу. Батч при этом должен производиться.
func (s *StepService) StartStep(ctx context.Context, id uint64, payload dto.StartStepDTO) (*dto.StepDTO, error) {
	step, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if !step.CanStart() {
		return nil, apperrors.NewStateTransitionError("шаг", string(step.Status), string(entities.StepStatusInProgress))
	}

	batch, err := s.batchRepo.FindByID(ctx, nil, step.BatchID)
	if err != nil {
		return nil, err
	}
	if batch.Status != entities.BatchStatusInProgress {
		return nil, apperrors.NewValidationError(
			"батч %s в статусе %s, шаги выполняются только в производстве",
			batch.BatchNumber, batch.Status.Label())
	}

	now := s.clk.Now()
	step.Status = entities.StepStatusInProgress
	step.ActualStartTime = &now
	step.AssignedStaff = payload.AssignedStaff
	if payload.Equipment != "" {
		step.Equipment = payload.Equipment
	}
	step.UpdatedBy = utils.GetActorFromCtx(ctx)

	if err := s.repo.Update(ctx, nil, *step); err != nil {
		return nil, err
	}

	s.logger.Info("шаг взят в работу",
		zap.Uint64("step_id", id),
		zap.Uint64("batch_id", step.BatchID),
		zap.Int("step_number", step.StepNumber),
		zap.String("assigned_staff", payload.AssignedStaff),
	)
	return s.FindStep(ctx, id)
}

func (s *StepService) CompleteStep(ctx context.Context, id uint64, payload dto.CompleteStepDTO) (*dto.StepDTO, error) {
	step, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if !step.CanComplete() {
		return nil, apperrors.NewStateTransitionError("шаг", string(step.Status), string(entities.StepStatusCompleted))
	}

	now := s.clk.Now()
	step.Status = entities.StepStatusCompleted
	step.ActualDurationMinutes = utils.ToPtr(payload.ActualDurationMinutes)
	step.CompletedTime = &now
	step.QualityResult = entities.QualityResult(payload.QualityResult)
	if payload.Notes != "" {
		step.Notes = payload.Notes
	}
	step.UpdatedBy = utils.GetActorFromCtx(ctx)

	if err := s.repo.Update(ctx, nil, *step); err != nil {
		return nil, err
	}

	s.logger.Info("шаг завершён",
		zap.Uint64("step_id", id),
		zap.Uint64("batch_id", step.BatchID),
		zap.Int("step_number", step.StepNumber),
		zap.String("quality_result", payload.QualityResult),
	)
	return s.FindStep(ctx, id)
}

// SkipStep помечает шаг пропущенным. Пропустить можно только неначатый шаг.
func (s *StepService) SkipStep(ctx context.Context, id uint64, payload dto.StepReasonDTO) (*dto.StepDTO, error) {
	step, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if step.Status != entities.StepStatusPending {
		return nil, apperrors.NewStateTransitionError("шаг", string(step.Status), string(entities.StepStatusSkipped))
	}

	now := s.clk.Now()
	step.Status = entities.StepStatusSkipped
	step.CompletedTime = &now
	step.QualityResult = entities.QualityNotRequired
	step.Notes = "пропущен: " + payload.Reason
	step.UpdatedBy = utils.GetActorFromCtx(ctx)

	if err := s.repo.Update(ctx, nil, *step); err != nil {
		return nil, err
	}
	return s.FindStep(ctx, id)
}

func (s *StepService) FailStep(ctx context.Context, id uint64, payload dto.StepReasonDTO) (*dto.StepDTO, error) {
	step, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if step.Status != entities.StepStatusInProgress {
		return nil, apperrors.NewStateTransitionError("шаг", string(step.Status), string(entities.StepStatusFailed))
	}

	now := s.clk.Now()
	step.Status = entities.StepStatusFailed
	step.CompletedTime = &now
	step.QualityResult = entities.QualityFail
	if step.Issues != "" {
		step.Issues += "; "
	}
	step.Issues += payload.Reason
	step.UpdatedBy = utils.GetActorFromCtx(ctx)

	if err := s.repo.Update(ctx, nil, *step); err != nil {
		return nil, err
	}

	s.logger.Warn("шаг провален",
		zap.Uint64("step_id", id),
		zap.Uint64("batch_id", step.BatchID),
		zap.Int("step_number", step.StepNumber),
		zap.String("reason", payload.Reason),
	)
	return s.FindStep(ctx, id)
}

// BatchProgress — сводка по шагам батча: доля завершённых и флаг проблем
// качества. Прогресс пустого списка шагов считается нулевым.
func (s *StepService) BatchProgress(ctx context.Context, batchID uint64) (*dto.BatchProgressDTO, error) {
	if _, err := s.batchRepo.FindByID(ctx, nil, batchID); err != nil {
		return nil, err
	}
	steps, err := s.repo.ListByBatch(ctx, nil, batchID)
	if err != nil {
		return nil, err
	}

	progress := &dto.BatchProgressDTO{
		BatchID:    batchID,
		TotalSteps: len(steps),
	}
	for i := range steps {
		if steps[i].IsDone() {
			progress.FinishedSteps++
		}
		if steps[i].QualityResult == entities.QualityFail {
			progress.HasQualityIssues = true
		}
	}
	if progress.TotalSteps > 0 {
		progress.Progress = float64(progress.FinishedSteps) / float64(progress.TotalSteps) * 100.0
		progress.Completed = progress.FinishedSteps == progress.TotalSteps
	}
	return progress, nil
}
