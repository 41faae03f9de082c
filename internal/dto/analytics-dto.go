package dto

import (
	"production-system/internal/entities"
)

// AnalyticsPeriodDTO — границы периода для агрегатных запросов.
type AnalyticsPeriodDTO struct {
	DateFrom string `query:"date_from" validate:"required"`
	DateTo   string `query:"date_to" validate:"required"`
}

type OrderStatsDTO struct {
	Status      string  `json:"status"`
	Count       int64   `json:"count"`
	TotalAmount float64 `json:"total_amount"`
}

type BatchStatsDTO struct {
	Status           string  `json:"status"`
	Count            int64   `json:"count"`
	AverageYieldRate float64 `json:"average_yield_rate"`
	TotalCost        float64 `json:"total_cost"`
}

type CapacityStatsDTO struct {
	ProductionLine     string  `json:"production_line"`
	ScheduleCount      int64   `json:"schedule_count"`
	AverageUtilization float64 `json:"average_utilization"`
}

type ProductionReportDTO struct {
	DateFrom        string             `json:"date_from"`
	DateTo          string             `json:"date_to"`
	Orders          []OrderStatsDTO    `json:"orders"`
	Batches         []BatchStatsDTO    `json:"batches"`
	Capacity        []CapacityStatsDTO `json:"capacity"`
	AverageYield    float64            `json:"average_yield"`
	TotalProduction int64              `json:"total_production"`
}

type FranchiseDTO struct {
	ID            uint64 `json:"id"`
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	Active        bool   `json:"active"`
}

type StandardDTO struct {
	ID                 uint64  `json:"id"`
	DishName           string  `json:"dish_name"`
	Recipe             string  `json:"recipe"`
	StandardWeight     float64 `json:"standard_weight"`
	CookingTimeMinutes int     `json:"cooking_time_minutes"`
	QualityStandards   string  `json:"quality_standards"`
	PreparationSteps   string  `json:"preparation_steps"`
	EquipmentRequired  string  `json:"equipment_required"`
	Active             bool    `json:"active"`
}

func NewFranchiseDTO(f *entities.Franchise) FranchiseDTO {
	return FranchiseDTO{
		ID:            f.ID,
		Name:          f.Name,
		ContactPerson: f.ContactPerson,
		Phone:         f.Phone,
		Address:       f.Address,
		Active:        f.Active,
	}
}

func NewStandardDTO(s *entities.ProductionStandard) StandardDTO {
	return StandardDTO{
		ID:                 s.ID,
		DishName:           s.DishName,
		Recipe:             s.Recipe,
		StandardWeight:     s.StandardWeight,
		CookingTimeMinutes: s.CookingTimeMinutes,
		QualityStandards:   s.QualityStandards,
		PreparationSteps:   s.PreparationSteps,
		EquipmentRequired:  s.EquipmentRequired,
		Active:             s.Active,
	}
}
