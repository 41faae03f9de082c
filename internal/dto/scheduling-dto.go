package dto

import "time"

// AutoScheduleRequestDTO — запрос на автоматическое планирование
// подтверждённых заказов начиная с указанного момента.
type AutoScheduleRequestDTO struct {
	OrderIDs  []uint64  `json:"order_ids" validate:"required,min=1,dive,required"`
	StartFrom time.Time `json:"start_from" validate:"required"`
}

// UnscheduledOrderDTO — заказ, который не удалось разместить, с причиной.
type UnscheduledOrderDTO struct {
	OrderID uint64 `json:"order_id"`
	Reason  string `json:"reason"`
}

// AutoScheduleResultDTO — результат прогона планировщика: для каждого
// входного заказа либо созданный слот, либо причина отказа.
type AutoScheduleResultDTO struct {
	Scheduled   []ScheduleDTO         `json:"scheduled"`
	Unscheduled []UnscheduledOrderDTO `json:"unscheduled"`
}
