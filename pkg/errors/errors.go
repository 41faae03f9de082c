package errors

import (
	"errors"
	"fmt"
)

var (
	// JWT и токены
	ErrInvalidSigningMethod = fmt.Errorf("неверный метод подписи токена")
	ErrInvalidToken         = fmt.Errorf("недопустимый токен")
	ErrTokenExpired         = fmt.Errorf("срок действия токена истёк")
	ErrTokenNotYetValid     = fmt.Errorf("токен ещё не активен")
	ErrTokenIsNotAccess     = fmt.Errorf("токен не является access-токеном")

	// Авторизация
	ErrEmptyAuthHeader   = fmt.Errorf("заголовок авторизации отсутствует")
	ErrInvalidAuthHeader = fmt.Errorf("неверный формат заголовка авторизации")

	// Общие
	ErrNotFound    = fmt.Errorf("запись не найдена")
	ErrBadRequest  = fmt.Errorf("неверный запрос")
	ErrConflict    = fmt.Errorf("конфликт данных, такая запись уже существует")
	ErrConcurrency = fmt.Errorf("запись была изменена параллельно, перечитайте и повторите операцию")
)

// ValidationError — нарушение бизнес-валидации (отсутствующее или
// некорректное поле), которое не ловится валидатором DTO.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// StateTransitionError — попытка перевести сущность в статус, недостижимый
// из её текущего статуса. Состояние сущности при этом не меняется.
type StateTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("недопустимый переход статуса %s: %s -> %s", e.Entity, e.From, e.To)
}

func NewStateTransitionError(entity, from, to string) error {
	return &StateTransitionError{Entity: entity, From: from, To: to}
}

func IsStateTransition(err error) bool {
	var target *StateTransitionError
	return errors.As(err, &target)
}

// ConflictError — пересечение интервалов на одной производственной линии
// в один календарный день.
type ConflictError struct {
	ProductionLine string
	Date           string
	Message        string
}

func (e *ConflictError) Error() string { return e.Message }

func NewConflictError(line, date, format string, args ...interface{}) error {
	return &ConflictError{
		ProductionLine: line,
		Date:           date,
		Message:        fmt.Sprintf(format, args...),
	}
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// SchedulingExhaustedError — автопланировщик исчерпал лимит попыток подбора
// слота. Ошибка привязана к конкретному заказу, а не ко всему прогону.
type SchedulingExhaustedError struct {
	OrderID uint64
	Reason  string
}

func (e *SchedulingExhaustedError) Error() string {
	return fmt.Sprintf("не удалось запланировать заказ %d: %s", e.OrderID, e.Reason)
}

func NewSchedulingExhaustedError(orderID uint64, reason string) error {
	return &SchedulingExhaustedError{OrderID: orderID, Reason: reason}
}

// HttpError — ошибка для транспортного слоя с HTTP-кодом и пользовательским
// сообщением. Техническая причина хранится отдельно и наружу не отдаётся.
type HttpError struct {
	Code    int
	Message string
	Err     error
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error) *HttpError {
	return &HttpError{Code: code, Message: message, Err: err}
}
