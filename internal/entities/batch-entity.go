package entities

import (
	"math"
	"time"

	"production-system/pkg/types"
)

type BatchStatus string

const (
	BatchStatusPlanned      BatchStatus = "PLANNED"
	BatchStatusPreparing    BatchStatus = "PREPARING"
	BatchStatusInProgress   BatchStatus = "IN_PROGRESS"
	BatchStatusQualityCheck BatchStatus = "QUALITY_CHECK"
	BatchStatusCompleted    BatchStatus = "COMPLETED"
	BatchStatusRejected     BatchStatus = "REJECTED"
	BatchStatusOnHold       BatchStatus = "ON_HOLD"
)

// Счастливый путь PLANNED→PREPARING→IN_PROGRESS→QUALITY_CHECK→COMPLETED.
// REJECTED достижим из любого активного статуса и терминален; ON_HOLD
// работает как пауза вокруг IN_PROGRESS. Завершение допускается и сразу
// из IN_PROGRESS, если контроль качества не выделен отдельной фазой.
var batchTransitions = map[BatchStatus][]BatchStatus{
	BatchStatusPlanned:      {BatchStatusPreparing, BatchStatusInProgress, BatchStatusRejected},
	BatchStatusPreparing:    {BatchStatusInProgress, BatchStatusRejected},
	BatchStatusInProgress:   {BatchStatusQualityCheck, BatchStatusCompleted, BatchStatusOnHold, BatchStatusRejected},
	BatchStatusQualityCheck: {BatchStatusCompleted, BatchStatusRejected},
	BatchStatusOnHold:       {BatchStatusInProgress, BatchStatusRejected},
	BatchStatusCompleted:    {},
	BatchStatusRejected:     {},
}

func (s BatchStatus) CanTransitionTo(next BatchStatus) bool {
	for _, allowed := range batchTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusRejected
}

var batchStatusLabels = map[BatchStatus]string{
	BatchStatusPlanned:      "Запланирован",
	BatchStatusPreparing:    "Подготовка",
	BatchStatusInProgress:   "Производится",
	BatchStatusQualityCheck: "Контроль качества",
	BatchStatusCompleted:    "Завершён",
	BatchStatusRejected:     "Забракован",
	BatchStatusOnHold:       "Приостановлен",
}

func (s BatchStatus) Label() string {
	if label, ok := batchStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

// ProductionBatch — один производственный прогон по заказу, опционально
// привязанный к слоту расписания. Шаги принадлежат батчу и адресуются
// только по его идентификатору.
type ProductionBatch struct {
	ID              uint64      `json:"id" db:"id"`
	BatchNumber     string      `json:"batch_number" db:"batch_number"`
	OrderID         uint64      `json:"order_id" db:"order_id"`
	ScheduleID      *uint64     `json:"schedule_id" db:"schedule_id"`
	PlannedQuantity int         `json:"planned_quantity" db:"planned_quantity"`
	ActualQuantity  *int        `json:"actual_quantity" db:"actual_quantity"`
	StartTime       time.Time   `json:"start_time" db:"start_time"`
	EndTime         *time.Time  `json:"end_time" db:"end_time"`
	Status          BatchStatus `json:"status" db:"status"`
	YieldRate       float64     `json:"yield_rate" db:"yield_rate"`
	MaterialCost    float64     `json:"material_cost" db:"material_cost"`
	LaborCost       float64     `json:"labor_cost" db:"labor_cost"`
	OverheadCost    float64     `json:"overhead_cost" db:"overhead_cost"`
	TotalCost       float64     `json:"total_cost" db:"total_cost"`
	QualityNotes    string      `json:"quality_notes" db:"quality_notes"`
	Issues          string      `json:"issues" db:"issues"`

	// Version — счётчик оптимистичной блокировки; сравнивается при каждом
	// UPDATE, расхождение означает конкурентное изменение.
	Version uint64 `json:"version" db:"version"`

	types.BaseEntity
}

// CalculateYieldRate — процент фактического выхода от планового.
// Нулевой план или отсутствующий факт дают 0.
func CalculateYieldRate(planned int, actual *int) float64 {
	if planned == 0 || actual == nil {
		return 0
	}
	return float64(*actual) / float64(planned) * 100.0
}

// CostPerUnit — себестоимость единицы, округление half-up до двух знаков.
func (b *ProductionBatch) CostPerUnit() float64 {
	if b.ActualQuantity == nil || *b.ActualQuantity == 0 {
		return 0
	}
	raw := b.TotalCost / float64(*b.ActualQuantity)
	return math.Round(raw*100) / 100
}

func (b *ProductionBatch) EfficiencyRate() float64 {
	return CalculateYieldRate(b.PlannedQuantity, b.ActualQuantity)
}

func (b *ProductionBatch) ActualDurationMinutes() int {
	if b.EndTime == nil {
		return 0
	}
	return int(b.EndTime.Sub(b.StartTime).Minutes())
}
