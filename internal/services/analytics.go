package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"production-system/internal/dto"
	"production-system/internal/repositories"
	apperrors "production-system/pkg/errors"
)

type AnalyticsServiceInterface interface {
	ProductionReport(ctx context.Context, payload dto.AnalyticsPeriodDTO) (*dto.ProductionReportDTO, error)
	GetFranchises(ctx context.Context) ([]dto.FranchiseDTO, error)
	GetStandards(ctx context.Context) ([]dto.StandardDTO, error)
}

type AnalyticsService struct {
	repo          repositories.AnalyticsRepositoryInterface
	franchiseRepo repositories.FranchiseRepositoryInterface
	standardRepo  repositories.StandardRepositoryInterface
	logger        *zap.Logger
}

func NewAnalyticsService(
	repo repositories.AnalyticsRepositoryInterface,
	franchiseRepo repositories.FranchiseRepositoryInterface,
	standardRepo repositories.StandardRepositoryInterface,
	logger *zap.Logger,
) AnalyticsServiceInterface {
	return &AnalyticsService{
		repo:          repo,
		franchiseRepo: franchiseRepo,
		standardRepo:  standardRepo,
		logger:        logger,
	}
}

const analyticsDateLayout = "2006-01-02"

// parsePeriod разбирает границы периода. Верхняя граница включительно,
// поэтому к ней добавляются сутки и сравнение идёт строго меньше.
func parsePeriod(payload dto.AnalyticsPeriodDTO) (time.Time, time.Time, error) {
	from, err := time.Parse(analyticsDateLayout, payload.DateFrom)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.NewValidationError("неверный формат date_from, ожидается YYYY-MM-DD")
	}
	to, err := time.Parse(analyticsDateLayout, payload.DateTo)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.NewValidationError("неверный формат date_to, ожидается YYYY-MM-DD")
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, apperrors.NewValidationError("date_to раньше date_from")
	}
	return from, to.AddDate(0, 0, 1), nil
}

func (s *AnalyticsService) ProductionReport(ctx context.Context, payload dto.AnalyticsPeriodDTO) (*dto.ProductionReportDTO, error) {
	from, to, err := parsePeriod(payload)
	if err != nil {
		return nil, err
	}

	orders, err := s.repo.OrderStatsByStatus(ctx, from, to)
	if err != nil {
		return nil, err
	}
	batches, err := s.repo.BatchStatsByStatus(ctx, from, to)
	if err != nil {
		return nil, err
	}
	capacity, err := s.repo.CapacityByLine(ctx, from, to)
	if err != nil {
		return nil, err
	}
	averageYield, err := s.repo.AverageYield(ctx, from, to)
	if err != nil {
		return nil, err
	}
	totalProduction, err := s.repo.TotalProduction(ctx, from, to)
	if err != nil {
		return nil, err
	}

	return &dto.ProductionReportDTO{
		DateFrom:        payload.DateFrom,
		DateTo:          payload.DateTo,
		Orders:          orders,
		Batches:         batches,
		Capacity:        capacity,
		AverageYield:    averageYield,
		TotalProduction: totalProduction,
	}, nil
}

func (s *AnalyticsService) GetFranchises(ctx context.Context) ([]dto.FranchiseDTO, error) {
	franchises, err := s.franchiseRepo.GetAll(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]dto.FranchiseDTO, 0, len(franchises))
	for i := range franchises {
		out = append(out, dto.NewFranchiseDTO(&franchises[i]))
	}
	return out, nil
}

func (s *AnalyticsService) GetStandards(ctx context.Context) ([]dto.StandardDTO, error) {
	standards, err := s.standardRepo.GetAll(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]dto.StandardDTO, 0, len(standards))
	for i := range standards {
		out = append(out, dto.NewStandardDTO(&standards[i]))
	}
	return out, nil
}
