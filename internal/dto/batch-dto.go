package dto

import (
	"production-system/internal/entities"

	"github.com/aarondl/null/v8"
)

type CreateBatchDTO struct {
	OrderID         uint64          `json:"order_id" validate:"required"`
	ScheduleID      *uint64         `json:"schedule_id,omitempty"`
	PlannedQuantity int             `json:"planned_quantity" validate:"required,gt=0"`
	MaterialCost    float64         `json:"material_cost" validate:"omitempty,gte=0"`
	LaborCost       float64         `json:"labor_cost" validate:"omitempty,gte=0"`
	OverheadCost    float64         `json:"overhead_cost" validate:"omitempty,gte=0"`
	QualityNotes    string          `json:"quality_notes" validate:"omitempty,max=500"`
	Steps           []CreateStepDTO `json:"steps" validate:"omitempty,dive"`
}

type CompleteBatchDTO struct {
	ActualQuantity int `json:"actual_quantity" validate:"required,gte=0"`
}

type RejectBatchDTO struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type BatchDTO struct {
	ID              uint64      `json:"id"`
	BatchNumber     string      `json:"batch_number"`
	OrderID         uint64      `json:"order_id"`
	ScheduleID      null.Uint64 `json:"schedule_id"`
	PlannedQuantity int         `json:"planned_quantity"`
	ActualQuantity  null.Int    `json:"actual_quantity"`
	StartTime       string      `json:"start_time"`
	EndTime         null.Time   `json:"end_time"`
	Status          string      `json:"status"`
	StatusLabel     string      `json:"status_label"`
	YieldRate       float64     `json:"yield_rate"`
	MaterialCost    float64     `json:"material_cost"`
	LaborCost       float64     `json:"labor_cost"`
	OverheadCost    float64     `json:"overhead_cost"`
	TotalCost       float64     `json:"total_cost"`
	CostPerUnit     float64     `json:"cost_per_unit"`
	EfficiencyRate  float64     `json:"efficiency_rate"`
	QualityNotes    string      `json:"quality_notes"`
	Issues          string      `json:"issues"`
	Version         uint64      `json:"version"`
	CreatedAt       string      `json:"created_at"`
	UpdatedAt       string      `json:"updated_at"`
}

// BatchProgressDTO — сводка выполнения шагов батча.
type BatchProgressDTO struct {
	BatchID          uint64  `json:"batch_id"`
	TotalSteps       int     `json:"total_steps"`
	FinishedSteps    int     `json:"finished_steps"`
	Progress         float64 `json:"progress"`
	Completed        bool    `json:"completed"`
	HasQualityIssues bool    `json:"has_quality_issues"`
}

func NewBatchDTO(b *entities.ProductionBatch) BatchDTO {
	return BatchDTO{
		ID:              b.ID,
		BatchNumber:     b.BatchNumber,
		OrderID:         b.OrderID,
		ScheduleID:      null.Uint64FromPtr(b.ScheduleID),
		PlannedQuantity: b.PlannedQuantity,
		ActualQuantity:  null.IntFromPtr(b.ActualQuantity),
		StartTime:       b.StartTime.Format(dtoTimeLayout),
		EndTime:         null.TimeFromPtr(b.EndTime),
		Status:          string(b.Status),
		StatusLabel:     b.Status.Label(),
		YieldRate:       b.YieldRate,
		MaterialCost:    b.MaterialCost,
		LaborCost:       b.LaborCost,
		OverheadCost:    b.OverheadCost,
		TotalCost:       b.TotalCost,
		CostPerUnit:     b.CostPerUnit(),
		EfficiencyRate:  b.EfficiencyRate(),
		QualityNotes:    b.QualityNotes,
		Issues:          b.Issues,
		Version:         b.Version,
		CreatedAt:       b.CreatedAt.Format(dtoTimeLayout),
		UpdatedAt:       b.UpdatedAt.Format(dtoTimeLayout),
	}
}

func NewBatchDTOs(batches []entities.ProductionBatch) []BatchDTO {
	out := make([]BatchDTO, 0, len(batches))
	for i := range batches {
		out = append(out, NewBatchDTO(&batches[i]))
	}
	return out
}
