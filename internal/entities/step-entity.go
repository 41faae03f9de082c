package entities

import (
	"time"

	"production-system/pkg/types"
)

type StepStatus string

const (
	StepStatusPending    StepStatus = "PENDING"
	StepStatusInProgress StepStatus = "IN_PROGRESS"
	StepStatusCompleted  StepStatus = "COMPLETED"
	StepStatusSkipped    StepStatus = "SKIPPED"
	StepStatusFailed     StepStatus = "FAILED"
)

var stepStatusLabels = map[StepStatus]string{
	StepStatusPending:    "Ожидает",
	StepStatusInProgress: "Выполняется",
	StepStatusCompleted:  "Выполнен",
	StepStatusSkipped:    "Пропущен",
	StepStatusFailed:     "Провален",
}

func (s StepStatus) Label() string {
	if label, ok := stepStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

// IsFinished — шаг больше не участвует в выполнении батча.
func (s StepStatus) IsFinished() bool {
	return s == StepStatusCompleted || s == StepStatusSkipped || s == StepStatusFailed
}

type QualityResult string

const (
	QualityPass        QualityResult = "PASS"
	QualityFail        QualityResult = "FAIL"
	QualityPending     QualityResult = "PENDING"
	QualityNotRequired QualityResult = "NOT_REQUIRED"
)

var qualityResultLabels = map[QualityResult]string{
	QualityPass:        "Годен",
	QualityFail:        "Брак",
	QualityPending:     "Ожидает проверки",
	QualityNotRequired: "Проверка не требуется",
}

func (q QualityResult) Label() string {
	if label, ok := qualityResultLabels[q]; ok {
		return label
	}
	return string(q)
}

// ProductionStep — единица работы внутри батча. StepNumber задаёт порядок
// выполнения и уникален в пределах батча.
type ProductionStep struct {
	ID                     uint64        `json:"id" db:"id"`
	BatchID                uint64        `json:"batch_id" db:"batch_id"`
	StepNumber             int           `json:"step_number" db:"step_number"`
	StepName               string        `json:"step_name" db:"step_name"`
	Instructions           string        `json:"instructions" db:"instructions"`
	PlannedDurationMinutes int           `json:"planned_duration_minutes" db:"planned_duration_minutes"`
	ActualDurationMinutes  *int          `json:"actual_duration_minutes" db:"actual_duration_minutes"`
	PlannedStartTime       *time.Time    `json:"planned_start_time" db:"planned_start_time"`
	ActualStartTime        *time.Time    `json:"actual_start_time" db:"actual_start_time"`
	CompletedTime          *time.Time    `json:"completed_time" db:"completed_time"`
	Status                 StepStatus    `json:"status" db:"status"`
	AssignedStaff          string        `json:"assigned_staff" db:"assigned_staff"`
	Equipment              string        `json:"equipment" db:"equipment"`
	QualityCheckpoints     string        `json:"quality_checkpoints" db:"quality_checkpoints"`
	QualityResult          QualityResult `json:"quality_result" db:"quality_result"`
	Notes                  string        `json:"notes" db:"notes"`
	Issues                 string        `json:"issues" db:"issues"`

	// Version — счётчик оптимистичной блокировки: один шаг могут
	// одновременно обновлять несколько сотрудников.
	Version uint64 `json:"version" db:"version"`

	types.BaseEntity
}

func (s *ProductionStep) CanStart() bool {
	return s.Status == StepStatusPending
}

func (s *ProductionStep) CanComplete() bool {
	return s.Status == StepStatusInProgress
}

// IsDone — шаг засчитывается в прогресс батча.
func (s *ProductionStep) IsDone() bool {
	return s.Status == StepStatusCompleted || s.Status == StepStatusSkipped
}

// DelayMinutes — превышение фактической длительности над плановой.
func (s *ProductionStep) DelayMinutes() int {
	if s.ActualDurationMinutes == nil {
		return 0
	}
	return *s.ActualDurationMinutes - s.PlannedDurationMinutes
}

// Efficiency — отношение плановой длительности к фактической в процентах;
// 0, если факт отсутствует или равен нулю.
func (s *ProductionStep) Efficiency() float64 {
	if s.ActualDurationMinutes == nil || *s.ActualDurationMinutes == 0 {
		return 0
	}
	return float64(s.PlannedDurationMinutes) / float64(*s.ActualDurationMinutes) * 100.0
}
