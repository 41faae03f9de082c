package services

import (
	"context"

	"go.uber.org/zap"

	"production-system/internal/dto"
	"production-system/internal/entities"
	"production-system/internal/repositories"
	"production-system/pkg/clock"
	apperrors "production-system/pkg/errors"
	"production-system/pkg/types"
	"production-system/pkg/utils"
)

type QualityServiceInterface interface {
	GetTraces(ctx context.Context, filter types.Filter) ([]dto.QualityTraceDTO, uint64, error)
	FindTrace(ctx context.Context, id uint64) (*dto.QualityTraceDTO, error)
	RegisterTrace(ctx context.Context, payload dto.CreateQualityTraceDTO) (*dto.QualityTraceDTO, error)
	InspectTrace(ctx context.Context, id uint64, payload dto.InspectTraceDTO) (*dto.QualityTraceDTO, error)
	AttachToBatch(ctx context.Context, id, batchID uint64) (*dto.QualityTraceDTO, error)
	ListByBatch(ctx context.Context, batchID uint64) ([]dto.QualityTraceDTO, error)
	ListExpiring(ctx context.Context) ([]dto.QualityTraceDTO, error)
	DeleteTrace(ctx context.Context, id uint64) error
}

// QualityService ведёт прослеживаемость партий сырья: регистрация прихода,
// входной контроль, контроль сроков годности.
type QualityService struct {
	repo      repositories.TraceRepositoryInterface
	batchRepo repositories.BatchRepositoryInterface
	clk       clock.Clock
	logger    *zap.Logger
}

func NewQualityService(
	repo repositories.TraceRepositoryInterface,
	batchRepo repositories.BatchRepositoryInterface,
	clk clock.Clock,
	logger *zap.Logger,
) QualityServiceInterface {
	return &QualityService{repo: repo, batchRepo: batchRepo, clk: clk, logger: logger}
}

func (s *QualityService) GetTraces(ctx context.Context, filter types.Filter) ([]dto.QualityTraceDTO, uint64, error) {
	traces, total, err := s.repo.GetTraces(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return dto.NewQualityTraceDTOs(traces, s.clk.Now()), total, nil
}

func (s *QualityService) FindTrace(ctx context.Context, id uint64) (*dto.QualityTraceDTO, error) {
	trace, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result := dto.NewQualityTraceDTO(trace, s.clk.Now())
	return &result, nil
}

// RegisterTrace регистрирует приход партии. Новая партия всегда ожидает
// входного контроля.
func (s *QualityService) RegisterTrace(ctx context.Context, payload dto.CreateQualityTraceDTO) (*dto.QualityTraceDTO, error) {
	if payload.ExpiryDate.Before(payload.ProductionDate) {
		return nil, apperrors.NewValidationError("срок годности раньше даты производства партии %s", payload.LotNumber)
	}
	if payload.BatchID != nil {
		if _, err := s.batchRepo.FindByID(ctx, nil, *payload.BatchID); err != nil {
			return nil, apperrors.NewValidationError("батч %d не найден", *payload.BatchID)
		}
	}

	actor := utils.GetActorFromCtx(ctx)
	trace := entities.QualityTrace{
		LotNumber:      payload.LotNumber,
		BatchID:        payload.BatchID,
		IngredientName: payload.IngredientName,
		SupplierInfo:   payload.SupplierInfo,
		ProductionDate: payload.ProductionDate,
		ExpiryDate:     payload.ExpiryDate,
		Status:         entities.TraceStatusPending,
		Notes:          payload.Notes,
	}
	trace.CreatedBy = actor
	trace.UpdatedBy = actor

	id, err := s.repo.Create(ctx, trace)
	if err != nil {
		return nil, err
	}

	s.logger.Info("зарегистрирована партия сырья",
		zap.Uint64("trace_id", id),
		zap.String("lot_number", trace.LotNumber),
		zap.String("ingredient", trace.IngredientName),
	)
	return s.FindTrace(ctx, id)
}

// InspectTrace фиксирует результат входного контроля. Повторная проверка
// допускается, прежний вердикт перезаписывается.
func (s *QualityService) InspectTrace(ctx context.Context, id uint64, payload dto.InspectTraceDTO) (*dto.QualityTraceDTO, error) {
	trace, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	trace.Status = entities.TraceStatus(payload.Result)
	trace.Inspector = payload.Inspector
	trace.CheckResult = payload.CheckResult
	if payload.Notes != "" {
		trace.Notes = payload.Notes
	}
	trace.UpdatedBy = utils.GetActorFromCtx(ctx)

	if err := s.repo.Update(ctx, *trace); err != nil {
		return nil, err
	}

	s.logger.Info("входной контроль партии",
		zap.Uint64("trace_id", id),
		zap.String("lot_number", trace.LotNumber),
		zap.String("result", payload.Result),
		zap.String("inspector", payload.Inspector),
	)
	return s.FindTrace(ctx, id)
}

// AttachToBatch связывает партию с производственным батчем при списании
// в производство. Забракованная партия в производство не уходит.
func (s *QualityService) AttachToBatch(ctx context.Context, id, batchID uint64) (*dto.QualityTraceDTO, error) {
	trace, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if trace.Status == entities.TraceStatusFailed || trace.Status == entities.TraceStatusQuarantined {
		return nil, apperrors.NewValidationError("партия %s не прошла контроль и не может быть списана в производство", trace.LotNumber)
	}
	if trace.IsExpired(s.clk.Now()) {
		return nil, apperrors.NewValidationError("срок годности партии %s истёк", trace.LotNumber)
	}
	if _, err := s.batchRepo.FindByID(ctx, nil, batchID); err != nil {
		return nil, err
	}

	trace.BatchID = &batchID
	trace.UpdatedBy = utils.GetActorFromCtx(ctx)
	if err := s.repo.Update(ctx, *trace); err != nil {
		return nil, err
	}
	return s.FindTrace(ctx, id)
}

func (s *QualityService) ListByBatch(ctx context.Context, batchID uint64) ([]dto.QualityTraceDTO, error) {
	if _, err := s.batchRepo.FindByID(ctx, nil, batchID); err != nil {
		return nil, err
	}
	traces, err := s.repo.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return dto.NewQualityTraceDTOs(traces, s.clk.Now()), nil
}

// ListExpiring — партии, срок которых истёк или истекает в ближайшую
// неделю.
func (s *QualityService) ListExpiring(ctx context.Context) ([]dto.QualityTraceDTO, error) {
	now := s.clk.Now()
	traces, err := s.repo.ListExpiringBefore(ctx, now.AddDate(0, 0, 7))
	if err != nil {
		return nil, err
	}
	return dto.NewQualityTraceDTOs(traces, now), nil
}

func (s *QualityService) DeleteTrace(ctx context.Context, id uint64) error {
	trace, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if trace.BatchID != nil {
		return apperrors.NewValidationError("партия %s списана в производство, запись прослеживаемости не удаляется", trace.LotNumber)
	}
	return s.repo.Delete(ctx, id)
}
