package entities

import (
	"time"

	"production-system/pkg/types"
)

type ScheduleStatus string

const (
	ScheduleStatusPlanned    ScheduleStatus = "PLANNED"
	ScheduleStatusConfirmed  ScheduleStatus = "CONFIRMED"
	ScheduleStatusInProgress ScheduleStatus = "IN_PROGRESS"
	ScheduleStatusCompleted  ScheduleStatus = "COMPLETED"
	ScheduleStatusCancelled  ScheduleStatus = "CANCELLED"
)

var scheduleTransitions = map[ScheduleStatus][]ScheduleStatus{
	ScheduleStatusPlanned:    {ScheduleStatusConfirmed, ScheduleStatusCancelled},
	ScheduleStatusConfirmed:  {ScheduleStatusInProgress, ScheduleStatusCancelled},
	ScheduleStatusInProgress: {ScheduleStatusCompleted},
	ScheduleStatusCompleted:  {},
	ScheduleStatusCancelled:  {},
}

func (s ScheduleStatus) CanTransitionTo(next ScheduleStatus) bool {
	for _, allowed := range scheduleTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

var scheduleStatusLabels = map[ScheduleStatus]string{
	ScheduleStatusPlanned:    "Запланировано",
	ScheduleStatusConfirmed:  "Подтверждено",
	ScheduleStatusInProgress: "Выполняется",
	ScheduleStatusCompleted:  "Завершено",
	ScheduleStatusCancelled:  "Отменено",
}

func (s ScheduleStatus) Label() string {
	if label, ok := scheduleStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

// ProductionSchedule — зарезервированный интервал времени на конкретной
// производственной линии.
type ProductionSchedule struct {
	ID                  uint64         `json:"id" db:"id"`
	ScheduleNumber      string         `json:"schedule_number" db:"schedule_number"`
	ProductionLine      string         `json:"production_line" db:"production_line"`
	ScheduledDate       time.Time      `json:"scheduled_date" db:"scheduled_date"`
	StartTime           time.Time      `json:"start_time" db:"start_time"`
	EndTime             time.Time      `json:"end_time" db:"end_time"`
	Status              ScheduleStatus `json:"status" db:"status"`
	CapacityUtilization float64        `json:"capacity_utilization" db:"capacity_utilization"`
	AssignedStaff       string         `json:"assigned_staff" db:"assigned_staff"`
	Equipment           string         `json:"equipment" db:"equipment"`
	Notes               string         `json:"notes" db:"notes"`

	types.BaseEntity
}

// Overlaps проверяет пересечение полуоткрытых интервалов [start, end)
// двух расписаний на одной линии в один календарный день.
func (s *ProductionSchedule) Overlaps(other *ProductionSchedule) bool {
	if s.ProductionLine != other.ProductionLine {
		return false
	}
	if !sameCalendarDay(s.ScheduledDate, other.ScheduledDate) {
		return false
	}
	return s.StartTime.Before(other.EndTime) && s.EndTime.After(other.StartTime)
}

func (s *ProductionSchedule) DurationMinutes() int {
	return int(s.EndTime.Sub(s.StartTime).Minutes())
}

// IsActive — расписание занимает слот на доске (учитывается при проверке
// конфликтов). Отменённые слоты не занимают.
func (s *ProductionSchedule) IsActive() bool {
	return s.Status != ScheduleStatusCancelled
}

func sameCalendarDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
