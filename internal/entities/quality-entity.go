package entities

import (
	"time"

	"production-system/pkg/types"
)

type TraceStatus string

const (
	TraceStatusPending     TraceStatus = "PENDING"
	TraceStatusPassed      TraceStatus = "PASSED"
	TraceStatusFailed      TraceStatus = "FAILED"
	TraceStatusQuarantined TraceStatus = "QUARANTINED"
)

func (s TraceStatus) Valid() bool {
	switch s {
	case TraceStatusPending, TraceStatusPassed, TraceStatusFailed, TraceStatusQuarantined:
		return true
	}
	return false
}

var traceStatusLabels = map[TraceStatus]string{
	TraceStatusPending:     "Ожидает проверки",
	TraceStatusPassed:      "Годен",
	TraceStatusFailed:      "Брак",
	TraceStatusQuarantined: "На карантине",
}

func (s TraceStatus) Label() string {
	if label, ok := traceStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

// expiringSoonWindow — горизонт предупреждения о подходящем сроке годности.
const expiringSoonWindow = 7 * 24 * time.Hour

// QualityTrace — запись прослеживаемости партии сырья: поставщик, сроки,
// результат входного контроля. Номер партии уникален; привязка к
// производственному батчу необязательна и появляется при списании партии
// в производство.
type QualityTrace struct {
	ID             uint64      `json:"id" db:"id"`
	LotNumber      string      `json:"lot_number" db:"lot_number"`
	BatchID        *uint64     `json:"batch_id" db:"batch_id"`
	IngredientName string      `json:"ingredient_name" db:"ingredient_name"`
	SupplierInfo   string      `json:"supplier_info" db:"supplier_info"`
	ProductionDate time.Time   `json:"production_date" db:"production_date"`
	ExpiryDate     time.Time   `json:"expiry_date" db:"expiry_date"`
	CheckResult    string      `json:"check_result" db:"check_result"`
	Status         TraceStatus `json:"status" db:"status"`
	Inspector      string      `json:"inspector" db:"inspector"`
	Notes          string      `json:"notes" db:"notes"`

	types.BaseEntity
}

func (t *QualityTrace) IsExpired(now time.Time) bool {
	return now.After(t.ExpiryDate)
}

// IsExpiringSoon — срок годности истекает в ближайшую неделю, но ещё
// не истёк.
func (t *QualityTrace) IsExpiringSoon(now time.Time) bool {
	if t.IsExpired(now) {
		return false
	}
	return now.Add(expiringSoonWindow).After(t.ExpiryDate)
}
