package entities

import "production-system/pkg/types"

// Franchise — точка-заказчик. Справочник ведётся внешней системой,
// здесь только чтение.
type Franchise struct {
	ID            uint64 `json:"id" db:"id"`
	Name          string `json:"name" db:"name"`
	ContactPerson string `json:"contact_person" db:"contact_person"`
	Phone         string `json:"phone" db:"phone"`
	Address       string `json:"address" db:"address"`
	Active        bool   `json:"active" db:"active"`

	types.BaseEntity
}

// ProductionStandard — производственный стандарт (рецептура): длительность
// приготовления, требуемое оборудование, контрольные точки качества.
type ProductionStandard struct {
	ID                 uint64  `json:"id" db:"id"`
	DishName           string  `json:"dish_name" db:"dish_name"`
	Recipe             string  `json:"recipe" db:"recipe"`
	StandardWeight     float64 `json:"standard_weight" db:"standard_weight"`
	CookingTimeMinutes int     `json:"cooking_time_minutes" db:"cooking_time_minutes"`
	QualityStandards   string  `json:"quality_standards" db:"quality_standards"`
	PreparationSteps   string  `json:"preparation_steps" db:"preparation_steps"`
	EquipmentRequired  string  `json:"equipment_required" db:"equipment_required"`
	Active             bool    `json:"active" db:"active"`

	types.BaseEntity
}
