package entities

import (
	"time"

	"production-system/pkg/types"
)

type OrderStatus string

const (
	OrderStatusPending      OrderStatus = "PENDING"
	OrderStatusApproved     OrderStatus = "APPROVED"
	OrderStatusScheduled    OrderStatus = "SCHEDULED"
	OrderStatusInProduction OrderStatus = "IN_PRODUCTION"
	OrderStatusCompleted    OrderStatus = "COMPLETED"
	OrderStatusCancelled    OrderStatus = "CANCELLED"
)

// Граф переходов заказа. CANCELLED достижим из любого нетерминального
// статуса, терминальные статусы не имеют исходящих переходов.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:      {OrderStatusApproved, OrderStatusCancelled},
	OrderStatusApproved:     {OrderStatusScheduled, OrderStatusCancelled},
	OrderStatusScheduled:    {OrderStatusInProduction, OrderStatusCancelled},
	OrderStatusInProduction: {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted:    {},
	OrderStatusCancelled:    {},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// Label возвращает отображаемое имя статуса. Логика переходов от
// отображаемых строк не зависит.
func (s OrderStatus) Label() string {
	if label, ok := orderStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

var orderStatusLabels = map[OrderStatus]string{
	OrderStatusPending:      "Ожидает подтверждения",
	OrderStatusApproved:     "Подтверждён",
	OrderStatusScheduled:    "Запланирован",
	OrderStatusInProduction: "В производстве",
	OrderStatusCompleted:    "Выполнен",
	OrderStatusCancelled:    "Отменён",
}

type OrderPriority string

const (
	PriorityLow    OrderPriority = "LOW"
	PriorityNormal OrderPriority = "NORMAL"
	PriorityHigh   OrderPriority = "HIGH"
	PriorityUrgent OrderPriority = "URGENT"
)

var priorityRanks = map[OrderPriority]int{
	PriorityLow:    0,
	PriorityNormal: 1,
	PriorityHigh:   2,
	PriorityUrgent: 3,
}

// Rank задаёт порядок сортировки: больший ранг планируется раньше.
func (p OrderPriority) Rank() int {
	return priorityRanks[p]
}

func (p OrderPriority) Valid() bool {
	_, ok := priorityRanks[p]
	return ok
}

var priorityLabels = map[OrderPriority]string{
	PriorityLow:    "Низкий",
	PriorityNormal: "Обычный",
	PriorityHigh:   "Высокий",
	PriorityUrgent: "Срочный",
}

func (p OrderPriority) Label() string {
	if label, ok := priorityLabels[p]; ok {
		return label
	}
	return string(p)
}

// ProductionOrder — заказ на производство. Связи с батчами и расписаниями
// держатся только по идентификаторам, никаких вложенных ссылок.
type ProductionOrder struct {
	ID                  uint64        `json:"id" db:"id"`
	OrderNumber         string        `json:"order_number" db:"order_number"`
	FranchiseID         uint64        `json:"franchise_id" db:"franchise_id"`
	StandardID          uint64        `json:"standard_id" db:"standard_id"`
	Quantity            int           `json:"quantity" db:"quantity"`
	UnitPrice           float64       `json:"unit_price" db:"unit_price"`
	TotalAmount         float64       `json:"total_amount" db:"total_amount"`
	Priority            OrderPriority `json:"priority" db:"priority"`
	Status              OrderStatus   `json:"status" db:"status"`
	OrderDate           time.Time     `json:"order_date" db:"order_date"`
	RequiredDate        time.Time     `json:"required_date" db:"required_date"`
	ScheduledDate       *time.Time    `json:"scheduled_date" db:"scheduled_date"`
	CompletedDate       *time.Time    `json:"completed_date" db:"completed_date"`
	SpecialInstructions string        `json:"special_instructions" db:"special_instructions"`
	Notes               string        `json:"notes" db:"notes"`

	types.BaseEntity
}

// RecalculateTotal пересчитывает сумму заказа; вызывается при каждом
// сохранении.
func (o *ProductionOrder) RecalculateTotal() {
	o.TotalAmount = o.UnitPrice * float64(o.Quantity)
}
