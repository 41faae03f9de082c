package dto

import (
	"time"

	"production-system/internal/entities"

	"github.com/aarondl/null/v8"
)

type CreateOrderDTO struct {
	FranchiseID         uint64    `json:"franchise_id" validate:"required"`
	StandardID          uint64    `json:"standard_id" validate:"required"`
	Quantity            int       `json:"quantity" validate:"required,gt=0"`
	UnitPrice           float64   `json:"unit_price" validate:"required,gt=0"`
	Priority            string    `json:"priority" validate:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
	RequiredDate        time.Time `json:"required_date" validate:"required"`
	SpecialInstructions string    `json:"special_instructions" validate:"omitempty,max=500"`
	Notes               string    `json:"notes" validate:"omitempty,max=500"`
}

type UpdateOrderDTO struct {
	Quantity            *int       `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	UnitPrice           *float64   `json:"unit_price,omitempty" validate:"omitempty,gt=0"`
	Priority            *string    `json:"priority,omitempty" validate:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
	RequiredDate        *time.Time `json:"required_date,omitempty"`
	SpecialInstructions *string    `json:"special_instructions,omitempty" validate:"omitempty,max=500"`
	Notes               *string    `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type OrderDTO struct {
	ID                  uint64    `json:"id"`
	OrderNumber         string    `json:"order_number"`
	FranchiseID         uint64    `json:"franchise_id"`
	StandardID          uint64    `json:"standard_id"`
	Quantity            int       `json:"quantity"`
	UnitPrice           float64   `json:"unit_price"`
	TotalAmount         float64   `json:"total_amount"`
	Priority            string    `json:"priority"`
	PriorityLabel       string    `json:"priority_label"`
	Status              string    `json:"status"`
	StatusLabel         string    `json:"status_label"`
	OrderDate           string    `json:"order_date"`
	RequiredDate        string    `json:"required_date"`
	ScheduledDate       null.Time `json:"scheduled_date"`
	CompletedDate       null.Time `json:"completed_date"`
	SpecialInstructions string    `json:"special_instructions"`
	Notes               string    `json:"notes"`
	CreatedAt           string    `json:"created_at"`
	UpdatedAt           string    `json:"updated_at"`
}

const dtoTimeLayout = "2006-01-02 15:04:05"

func NewOrderDTO(o *entities.ProductionOrder) OrderDTO {
	return OrderDTO{
		ID:                  o.ID,
		OrderNumber:         o.OrderNumber,
		FranchiseID:         o.FranchiseID,
		StandardID:          o.StandardID,
		Quantity:            o.Quantity,
		UnitPrice:           o.UnitPrice,
		TotalAmount:         o.TotalAmount,
		Priority:            string(o.Priority),
		PriorityLabel:       o.Priority.Label(),
		Status:              string(o.Status),
		StatusLabel:         o.Status.Label(),
		OrderDate:           o.OrderDate.Format(dtoTimeLayout),
		RequiredDate:        o.RequiredDate.Format(dtoTimeLayout),
		ScheduledDate:       null.TimeFromPtr(o.ScheduledDate),
		CompletedDate:       null.TimeFromPtr(o.CompletedDate),
		SpecialInstructions: o.SpecialInstructions,
		Notes:               o.Notes,
		CreatedAt:           o.CreatedAt.Format(dtoTimeLayout),
		UpdatedAt:           o.UpdatedAt.Format(dtoTimeLayout),
	}
}

func NewOrderDTOs(orders []entities.ProductionOrder) []OrderDTO {
	out := make([]OrderDTO, 0, len(orders))
	for i := range orders {
		out = append(out, NewOrderDTO(&orders[i]))
	}
	return out
}
