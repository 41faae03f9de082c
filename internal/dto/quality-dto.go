package dto

import (
	"time"

	"github.com/aarondl/null/v8"

	"production-system/internal/entities"
)

type CreateQualityTraceDTO struct {
	LotNumber      string    `json:"lot_number" validate:"required,max=50"`
	BatchID        *uint64   `json:"batch_id" validate:"omitempty,gt=0"`
	IngredientName string    `json:"ingredient_name" validate:"required,max=255"`
	SupplierInfo   string    `json:"supplier_info" validate:"required,max=500"`
	ProductionDate time.Time `json:"production_date" validate:"required"`
	ExpiryDate     time.Time `json:"expiry_date" validate:"required"`
	Notes          string    `json:"notes" validate:"omitempty,max=1000"`
}

type InspectTraceDTO struct {
	Inspector   string `json:"inspector" validate:"required,max=255"`
	Result      string `json:"result" validate:"required,oneof=PASSED FAILED QUARANTINED"`
	CheckResult string `json:"check_result" validate:"omitempty,max=2000"`
	Notes       string `json:"notes" validate:"omitempty,max=1000"`
}

type QualityTraceDTO struct {
	ID             uint64      `json:"id"`
	LotNumber      string      `json:"lot_number"`
	BatchID        null.Uint64 `json:"batch_id"`
	IngredientName string      `json:"ingredient_name"`
	SupplierInfo   string      `json:"supplier_info"`
	ProductionDate string      `json:"production_date"`
	ExpiryDate     string      `json:"expiry_date"`
	CheckResult    string      `json:"check_result"`
	Status         string      `json:"status"`
	StatusLabel    string      `json:"status_label"`
	Inspector      string      `json:"inspector"`
	Notes          string      `json:"notes"`
	Expired        bool        `json:"expired"`
	ExpiringSoon   bool        `json:"expiring_soon"`
	CreatedAt      string      `json:"created_at"`
	UpdatedAt      string      `json:"updated_at"`
}

// NewQualityTraceDTO принимает текущий момент явно: флаги срока годности
// зависят от него.
func NewQualityTraceDTO(t *entities.QualityTrace, now time.Time) QualityTraceDTO {
	return QualityTraceDTO{
		ID:             t.ID,
		LotNumber:      t.LotNumber,
		BatchID:        null.Uint64FromPtr(t.BatchID),
		IngredientName: t.IngredientName,
		SupplierInfo:   t.SupplierInfo,
		ProductionDate: t.ProductionDate.Format("2006-01-02"),
		ExpiryDate:     t.ExpiryDate.Format("2006-01-02"),
		CheckResult:    t.CheckResult,
		Status:         string(t.Status),
		StatusLabel:    t.Status.Label(),
		Inspector:      t.Inspector,
		Notes:          t.Notes,
		Expired:        t.IsExpired(now),
		ExpiringSoon:   t.IsExpiringSoon(now),
		CreatedAt:      t.CreatedAt.Format(dtoTimeLayout),
		UpdatedAt:      t.UpdatedAt.Format(dtoTimeLayout),
	}
}

func NewQualityTraceDTOs(traces []entities.QualityTrace, now time.Time) []QualityTraceDTO {
	out := make([]QualityTraceDTO, 0, len(traces))
	for i := range traces {
		out = append(out, NewQualityTraceDTO(&traces[i], now))
	}
	return out
}
