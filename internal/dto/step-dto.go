package dto

import (
	"production-system/internal/entities"

	"github.com/aarondl/null/v8"
)

type CreateStepDTO struct {
	StepNumber             int    `json:"step_number" validate:"required,gt=0"`
	StepName               string `json:"step_name" validate:"required,max=200"`
	Instructions           string `json:"instructions" validate:"omitempty,max=1000"`
	PlannedDurationMinutes int    `json:"planned_duration_minutes" validate:"omitempty,gt=0"`
	QualityCheckpoints     string `json:"quality_checkpoints" validate:"omitempty,max=500"`
}

type StartStepDTO struct {
	AssignedStaff string `json:"assigned_staff" validate:"required,max=200"`
	Equipment     string `json:"equipment" validate:"omitempty,max=200"`
}

type CompleteStepDTO struct {
	ActualDurationMinutes int    `json:"actual_duration_minutes" validate:"required,gt=0"`
	QualityResult         string `json:"quality_result" validate:"required,oneof=PASS FAIL PENDING NOT_REQUIRED"`
	Notes                 string `json:"notes" validate:"omitempty,max=500"`
}

type StepReasonDTO struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type StepDTO struct {
	ID                     uint64    `json:"id"`
	BatchID                uint64    `json:"batch_id"`
	StepNumber             int       `json:"step_number"`
	StepName               string    `json:"step_name"`
	Instructions           string    `json:"instructions"`
	PlannedDurationMinutes int       `json:"planned_duration_minutes"`
	ActualDurationMinutes  null.Int  `json:"actual_duration_minutes"`
	PlannedStartTime       null.Time `json:"planned_start_time"`
	ActualStartTime        null.Time `json:"actual_start_time"`
	CompletedTime          null.Time `json:"completed_time"`
	Status                 string    `json:"status"`
	StatusLabel            string    `json:"status_label"`
	AssignedStaff          string    `json:"assigned_staff"`
	Equipment              string    `json:"equipment"`
	QualityCheckpoints     string    `json:"quality_checkpoints"`
	QualityResult          string    `json:"quality_result"`
	QualityResultLabel     string    `json:"quality_result_label"`
	DelayMinutes           int       `json:"delay_minutes"`
	Efficiency             float64   `json:"efficiency"`
	Notes                  string    `json:"notes"`
	Issues                 string    `json:"issues"`
	Version                uint64    `json:"version"`
	CreatedAt              string    `json:"created_at"`
	UpdatedAt              string    `json:"updated_at"`
}

func NewStepDTO(s *entities.ProductionStep) StepDTO {
	return StepDTO{
		ID:                     s.ID,
		BatchID:                s.BatchID,
		StepNumber:             s.StepNumber,
		StepName:               s.StepName,
		Instructions:           s.Instructions,
		PlannedDurationMinutes: s.PlannedDurationMinutes,
		ActualDurationMinutes:  null.IntFromPtr(s.ActualDurationMinutes),
		PlannedStartTime:       null.TimeFromPtr(s.PlannedStartTime),
		ActualStartTime:        null.TimeFromPtr(s.ActualStartTime),
		CompletedTime:          null.TimeFromPtr(s.CompletedTime),
		Status:                 string(s.Status),
		StatusLabel:            s.Status.Label(),
		AssignedStaff:          s.AssignedStaff,
		Equipment:              s.Equipment,
		QualityCheckpoints:     s.QualityCheckpoints,
		QualityResult:          string(s.QualityResult),
		QualityResultLabel:     s.QualityResult.Label(),
		DelayMinutes:           s.DelayMinutes(),
		Efficiency:             s.Efficiency(),
		Notes:                  s.Notes,
		Issues:                 s.Issues,
		Version:                s.Version,
		CreatedAt:              s.CreatedAt.Format(dtoTimeLayout),
		UpdatedAt:              s.UpdatedAt.Format(dtoTimeLayout),
	}
}

func NewStepDTOs(steps []entities.ProductionStep) []StepDTO {
	out := make([]StepDTO, 0, len(steps))
	for i := range steps {
		out = append(out, NewStepDTO(&steps[i]))
	}
	return out
}
