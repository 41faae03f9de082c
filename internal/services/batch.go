package services

import (
	"context"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"production-system/internal/dto"
	"production-system/internal/entities"
	"production-system/internal/repositories"
	"production-system/pkg/clock"
	"production-system/pkg/config"
	apperrors "production-system/pkg/errors"
	"production-system/pkg/types"
	"production-system/pkg/utils"
)

type BatchServiceInterface interface {
	GetBatches(ctx context.Context, filter types.Filter) ([]dto.BatchDTO, uint64, error)
	FindBatch(ctx context.Context, id uint64) (*dto.BatchDTO, error)
	ListByOrder(ctx context.Context, orderID uint64) ([]dto.BatchDTO, error)
	CreateBatch(ctx context.Context, payload dto.CreateBatchDTO) (*dto.BatchDTO, error)

	PrepareBatch(ctx context.Context, id uint64) (*dto.BatchDTO, error)
	StartBatch(ctx context.Context, id uint64) (*dto.BatchDTO, error)
	QualityCheckBatch(ctx context.Context, id uint64) (*dto.BatchDTO, error)
	CompleteBatch(ctx context.Context, id uint64, payload dto.CompleteBatchDTO) (*dto.BatchDTO, error)
	PauseBatch(ctx context.Context, id uint64) (*dto.BatchDTO, error)
	ResumeBatch(ctx context.Context, id uint64) (*dto.BatchDTO, error)
	RejectBatch(ctx context.Context, id uint64, payload dto.RejectBatchDTO) (*dto.BatchDTO, error)
}

// BatchService ведёт производственные батчи от создания до завершения.
// Все обновления идут через оптимистичную блокировку по версии, конфликт
// версий отдаётся вызывающему как ErrConcurrency без повторов.
type BatchService struct {
	repo      repositories.BatchRepositoryInterface
	stepRepo  repositories.StepRepositoryInterface
	orderRepo repositories.OrderRepositoryInterface
	txManager repositories.TxManagerInterface
	cfg       config.ProductionConfig
	clk       clock.Clock
	logger    *zap.Logger

	numberLocks *keyedMutex
}

func NewBatchService(
	repo repositories.BatchRepositoryInterface,
	stepRepo repositories.StepRepositoryInterface,
	orderRepo repositories.OrderRepositoryInterface,
	txManager repositories.TxManagerInterface,
	cfg config.ProductionConfig,
	clk clock.Clock,
	logger *zap.Logger,
) BatchServiceInterface {
	return &BatchService{
		repo:        repo,
		stepRepo:    stepRepo,
		orderRepo:   orderRepo,
		txManager:   txManager,
		cfg:         cfg,
		clk:         clk,
		logger:      logger,
		numberLocks: newKeyedMutex(),
	}
}

func (s *BatchService) GetBatches(ctx context.Context, filter types.Filter) ([]dto.BatchDTO, uint64, error) {
	batches, total, err := s.repo.GetBatches(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return dto.NewBatchDTOs(batches), total, nil
}

func (s *BatchService) FindBatch(ctx context.Context, id uint64) (*dto.BatchDTO, error) {
	batch, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	result := dto.NewBatchDTO(batch)
	return &result, nil
}

func (s *BatchService) ListByOrder(ctx context.Context, orderID uint64) ([]dto.BatchDTO, error) {
	batches, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return dto.NewBatchDTOs(batches), nil
}

// CreateBatch создаёт батч и его шаги одной транзакцией. Заказ должен быть
// подтверждён или уже находиться в работе.
func (s *BatchService) CreateBatch(ctx context.Context, payload dto.CreateBatchDTO) (*dto.BatchDTO, error) {
	order, err := s.orderRepo.FindByID(ctx, nil, payload.OrderID)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case entities.OrderStatusApproved, entities.OrderStatusScheduled, entities.OrderStatusInProduction:
	default:
		return nil, apperrors.NewValidationError(
			"по заказу %s в статусе %s нельзя запустить производство", order.OrderNumber, order.Status.Label())
	}

	seen := make(map[int]bool, len(payload.Steps))
	for _, step := range payload.Steps {
		if seen[step.StepNumber] {
			return nil, apperrors.NewValidationError("номер шага %d повторяется", step.StepNumber)
		}
		seen[step.StepNumber] = true
	}

	now := s.clk.Now()
	actor := utils.GetActorFromCtx(ctx)

	batch := entities.ProductionBatch{
		OrderID:         payload.OrderID,
		ScheduleID:      payload.ScheduleID,
		PlannedQuantity: payload.PlannedQuantity,
		StartTime:       now,
		Status:          entities.BatchStatusPlanned,
		MaterialCost:    payload.MaterialCost,
		LaborCost:       payload.LaborCost,
		OverheadCost:    payload.OverheadCost,
		TotalCost:       payload.MaterialCost + payload.LaborCost + payload.OverheadCost,
		QualityNotes:    payload.QualityNotes,
		Version:         1,
	}
	batch.CreatedBy = actor
	batch.UpdatedBy = actor

	key := dayKey(now)
	s.numberLocks.Lock(key)
	defer s.numberLocks.Unlock(key)

	err = s.txManager.WithinTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		seq, err := s.repo.NextDailySequence(ctx, tx, now)
		if err != nil {
			return err
		}
		batch.BatchNumber = formatDailyNumber(batchNumberPrefix, now, seq)

		id, err := s.repo.Create(ctx, tx, batch)
		if err != nil {
			return err
		}
		batch.ID = id

		steps := make([]entities.ProductionStep, 0, len(payload.Steps))
		for _, stepDTO := range payload.Steps {
			minutes := stepDTO.PlannedDurationMinutes
			if minutes <= 0 {
				minutes = s.cfg.DefaultStepMinutes
			}
			step := entities.ProductionStep{
				BatchID:                id,
				StepNumber:             stepDTO.StepNumber,
				StepName:               stepDTO.StepName,
				Instructions:           stepDTO.Instructions,
				PlannedDurationMinutes: minutes,
				Status:                 entities.StepStatusPending,
				QualityCheckpoints:     stepDTO.QualityCheckpoints,
				QualityResult:          entities.QualityPending,
				Version:                1,
			}
			step.CreatedBy = actor
			step.UpdatedBy = actor
			steps = append(steps, step)
		}
		return s.stepRepo.CreateMany(ctx, tx, steps)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("создан производственный батч",
		zap.Uint64("batch_id", batch.ID),
		zap.String("batch_number", batch.BatchNumber),
		zap.Uint64("order_id", batch.OrderID),
		zap.Int("steps", len(payload.Steps)),
	)
	return s.FindBatch(ctx, batch.ID)
}

func (s *BatchService) transition(ctx context.Context, id uint64, next entities.BatchStatus, mutate func(*entities.ProductionBatch) error) (*dto.BatchDTO, error) {
	batch, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if !batch.Status.CanTransitionTo(next) {
		return nil, apperrors.NewStateTransitionError("батч", string(batch.Status), string(next))
	}

	from := batch.Status
	batch.Status = next
	if mutate != nil {
		if err := mutate(batch); err != nil {
			return nil, err
		}
	}
	batch.UpdatedBy = utils.GetActorFromCtx(ctx)

	if err := s.repo.Update(ctx, nil, *batch); err != nil {
		return nil, err
	}

	s.logger.Info("статус батча изменён",
		zap.Uint64("batch_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(next)),
	)
	return s.FindBatch(ctx, id)
}

func (s *BatchService) PrepareBatch(ctx context.Context, id uint64) (*dto.BatchDTO, error) {
	return s.transition(ctx, id, entities.BatchStatusPreparing, nil)
}

// StartBatch запускает производство. Стартовать можно только батч, у
// которого ещё ни один шаг не начат.
func (s *BatchService) StartBatch(ctx context.Context, id uint64) (*dto.BatchDTO, error) {
	steps, err := s.stepRepo.ListByBatch(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	for i := range steps {
		if steps[i].Status != entities.StepStatusPending {
			return nil, apperrors.NewValidationError(
				"шаг %d уже в статусе %s, батч нельзя стартовать повторно",
				steps[i].StepNumber, steps[i].Status.Label())
		}
	}
	return s.transition(ctx, id, entities.BatchStatusInProgress, nil)
}

func (s *BatchService) QualityCheckBatch(ctx context.Context, id uint64) (*dto.BatchDTO, error) {
	return s.transition(ctx, id, entities.BatchStatusQualityCheck, nil)
}

// CompleteBatch завершает батч: требует, чтобы каждый шаг был выполнен или
// пропущен, фиксирует фактическое количество и пересчитывает выход и
// себестоимость.
func (s *BatchService) CompleteBatch(ctx context.Context, id uint64, payload dto.CompleteBatchDTO) (*dto.BatchDTO, error) {
	steps, err := s.stepRepo.ListByBatch(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	for i := range steps {
		if !steps[i].IsDone() {
			return nil, apperrors.NewValidationError(
				"шаг %d (%s) не завершён, батч закрыть нельзя",
				steps[i].StepNumber, steps[i].StepName)
		}
	}

	now := s.clk.Now()
	return s.transition(ctx, id, entities.BatchStatusCompleted, func(b *entities.ProductionBatch) error {
		b.ActualQuantity = utils.ToPtr(payload.ActualQuantity)
		b.EndTime = &now
		b.TotalCost = b.MaterialCost + b.LaborCost + b.OverheadCost
		b.YieldRate = entities.CalculateYieldRate(b.PlannedQuantity, b.ActualQuantity)
		return nil
	})
}

func (s *BatchService) PauseBatch(ctx context.Context, id uint64) (*dto.BatchDTO, error) {
	return s.transition(ctx, id, entities.BatchStatusOnHold, nil)
}

func (s *BatchService) ResumeBatch(ctx context.Context, id uint64) (*dto.BatchDTO, error) {
	return s.transition(ctx, id, entities.BatchStatusInProgress, nil)
}

func (s *BatchService) RejectBatch(ctx context.Context, id uint64, payload dto.RejectBatchDTO) (*dto.BatchDTO, error) {
	now := s.clk.Now()
	return s.transition(ctx, id, entities.BatchStatusRejected, func(b *entities.ProductionBatch) error {
		if b.Issues != "" {
			b.Issues += "; "
		}
		b.Issues += payload.Reason
		b.EndTime = &now
		return nil
	})
}
