package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"production-system/internal/entities"
	apperrors "production-system/pkg/errors"
)

// Справочники франшиз и стандартов ведутся внешней системой, отсюда только
// чтение.

const (
	franchiseTable  = "franchises"
	franchiseFields = "id, name, contact_person, phone, address, active, created_at, updated_at, created_by, updated_by"

	standardTable  = "production_standards"
	standardFields = "id, dish_name, recipe, standard_weight, cooking_time_minutes, quality_standards, preparation_steps, equipment_required, active, created_at, updated_at, created_by, updated_by"
)

type FranchiseRepositoryInterface interface {
	FindByID(ctx context.Context, id uint64) (*entities.Franchise, error)
	GetAll(ctx context.Context, onlyActive bool) ([]entities.Franchise, error)
}

type franchiseRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewFranchiseRepository(storage *pgxpool.Pool, logger *zap.Logger) FranchiseRepositoryInterface {
	return &franchiseRepository{storage: storage, logger: logger}
}

func scanFranchise(row pgx.Row) (*entities.Franchise, error) {
	var f entities.Franchise
	err := row.Scan(
		&f.ID, &f.Name, &f.ContactPerson, &f.Phone, &f.Address, &f.Active,
		&f.CreatedAt, &f.UpdatedAt, &f.CreatedBy, &f.UpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования franchises: %w", err)
	}
	return &f, nil
}

func (r *franchiseRepository) FindByID(ctx context.Context, id uint64) (*entities.Franchise, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", franchiseFields, franchiseTable)
	return scanFranchise(r.storage.QueryRow(ctx, query, id))
}

func (r *franchiseRepository) GetAll(ctx context.Context, onlyActive bool) ([]entities.Franchise, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", franchiseFields, franchiseTable)
	if onlyActive {
		query += " WHERE active = TRUE"
	}
	query += " ORDER BY name"

	rows, err := r.storage.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	franchises := make([]entities.Franchise, 0)
	for rows.Next() {
		f, err := scanFranchise(rows)
		if err != nil {
			return nil, err
		}
		franchises = append(franchises, *f)
	}
	return franchises, rows.Err()
}

type StandardRepositoryInterface interface {
	FindByID(ctx context.Context, id uint64) (*entities.ProductionStandard, error)
	GetAll(ctx context.Context, onlyActive bool) ([]entities.ProductionStandard, error)
}

type standardRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewStandardRepository(storage *pgxpool.Pool, logger *zap.Logger) StandardRepositoryInterface {
	return &standardRepository{storage: storage, logger: logger}
}

func scanStandard(row pgx.Row) (*entities.ProductionStandard, error) {
	var s entities.ProductionStandard
	err := row.Scan(
		&s.ID, &s.DishName, &s.Recipe, &s.StandardWeight, &s.CookingTimeMinutes,
		&s.QualityStandards, &s.PreparationSteps, &s.EquipmentRequired, &s.Active,
		&s.CreatedAt, &s.UpdatedAt, &s.CreatedBy, &s.UpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования production_standards: %w", err)
	}
	return &s, nil
}

func (r *standardRepository) FindByID(ctx context.Context, id uint64) (*entities.ProductionStandard, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", standardFields, standardTable)
	return scanStandard(r.storage.QueryRow(ctx, query, id))
}

func (r *standardRepository) GetAll(ctx context.Context, onlyActive bool) ([]entities.ProductionStandard, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", standardFields, standardTable)
	if onlyActive {
		query += " WHERE active = TRUE"
	}
	query += " ORDER BY dish_name"

	rows, err := r.storage.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	standards := make([]entities.ProductionStandard, 0)
	for rows.Next() {
		s, err := scanStandard(rows)
		if err != nil {
			return nil, err
		}
		standards = append(standards, *s)
	}
	return standards, rows.Err()
}
