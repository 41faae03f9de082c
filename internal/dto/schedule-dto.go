package dto

import (
	"time"

	"production-system/internal/entities"
)

type CreateScheduleDTO struct {
	ProductionLine string    `json:"production_line" validate:"required,max=50"`
	ScheduledDate  time.Time `json:"scheduled_date" validate:"required"`
	StartTime      time.Time `json:"start_time" validate:"required"`
	EndTime        time.Time `json:"end_time" validate:"required"`
	AssignedStaff  string    `json:"assigned_staff" validate:"omitempty,max=200"`
	Equipment      string    `json:"equipment" validate:"omitempty,max=200"`
	Notes          string    `json:"notes" validate:"omitempty,max=500"`
}

// ProposeSlotDTO — запрос свободного слота без создания записи.
type ProposeSlotDTO struct {
	ProductionLine string    `json:"production_line" validate:"required,max=50"`
	ScheduledDate  time.Time `json:"scheduled_date" validate:"required"`
	StartTime      time.Time `json:"start_time" validate:"required"`
	EndTime        time.Time `json:"end_time" validate:"required"`
}

type ScheduleDTO struct {
	ID                  uint64  `json:"id"`
	ScheduleNumber      string  `json:"schedule_number"`
	ProductionLine      string  `json:"production_line"`
	ScheduledDate       string  `json:"scheduled_date"`
	StartTime           string  `json:"start_time"`
	EndTime             string  `json:"end_time"`
	DurationMinutes     int     `json:"duration_minutes"`
	Status              string  `json:"status"`
	StatusLabel         string  `json:"status_label"`
	CapacityUtilization float64 `json:"capacity_utilization"`
	AssignedStaff       string  `json:"assigned_staff"`
	Equipment           string  `json:"equipment"`
	Notes               string  `json:"notes"`
	CreatedAt           string  `json:"created_at"`
	UpdatedAt           string  `json:"updated_at"`
}

// ScheduleConflictDTO описывает пару пересекающихся расписаний.
type ScheduleConflictDTO struct {
	ProductionLine string `json:"production_line"`
	FirstNumber    string `json:"first_number"`
	SecondNumber   string `json:"second_number"`
	FirstInterval  string `json:"first_interval"`
	SecondInterval string `json:"second_interval"`
}

func NewScheduleDTO(s *entities.ProductionSchedule) ScheduleDTO {
	return ScheduleDTO{
		ID:                  s.ID,
		ScheduleNumber:      s.ScheduleNumber,
		ProductionLine:      s.ProductionLine,
		ScheduledDate:       s.ScheduledDate.Format("2006-01-02"),
		StartTime:           s.StartTime.Format(dtoTimeLayout),
		EndTime:             s.EndTime.Format(dtoTimeLayout),
		DurationMinutes:     s.DurationMinutes(),
		Status:              string(s.Status),
		StatusLabel:         s.Status.Label(),
		CapacityUtilization: s.CapacityUtilization,
		AssignedStaff:       s.AssignedStaff,
		Equipment:           s.Equipment,
		Notes:               s.Notes,
		CreatedAt:           s.CreatedAt.Format(dtoTimeLayout),
		UpdatedAt:           s.UpdatedAt.Format(dtoTimeLayout),
	}
}

func NewScheduleDTOs(schedules []entities.ProductionSchedule) []ScheduleDTO {
	out := make([]ScheduleDTO, 0, len(schedules))
	for i := range schedules {
		out = append(out, NewScheduleDTO(&schedules[i]))
	}
	return out
}
