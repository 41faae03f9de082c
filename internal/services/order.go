package services

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"production-system/internal/dto"
	"production-system/internal/entities"
	"production-system/internal/repositories"
	"production-system/pkg/clock"
	apperrors "production-system/pkg/errors"
	"production-system/pkg/types"
	"production-system/pkg/utils"
)

type OrderServiceInterface interface {
	GetOrders(ctx context.Context, filter types.Filter) ([]dto.OrderDTO, uint64, error)
	FindOrder(ctx context.Context, id uint64) (*dto.OrderDTO, error)
	CreateOrder(ctx context.Context, payload dto.CreateOrderDTO) (*dto.OrderDTO, error)
	UpdateOrder(ctx context.Context, id uint64, payload dto.UpdateOrderDTO) (*dto.OrderDTO, error)
	DeleteOrder(ctx context.Context, id uint64) error

	ApproveOrder(ctx context.Context, id uint64) (*dto.OrderDTO, error)
	MarkScheduled(ctx context.Context, id uint64, date time.Time) (*dto.OrderDTO, error)
	MarkInProduction(ctx context.Context, id uint64) (*dto.OrderDTO, error)
	CompleteOrder(ctx context.Context, id uint64) (*dto.OrderDTO, error)
	CancelOrder(ctx context.Context, id uint64, reason string) (*dto.OrderDTO, error)
}

type OrderService struct {
	repo          repositories.OrderRepositoryInterface
	batchRepo     repositories.BatchRepositoryInterface
	franchiseRepo repositories.FranchiseRepositoryInterface
	standardRepo  repositories.StandardRepositoryInterface
	txManager     repositories.TxManagerInterface
	clk           clock.Clock
	logger        *zap.Logger

	// numberLocks сериализует выдачу суточных номеров внутри процесса,
	// advisory-блокировка в репозитории закрывает межпроцессные гонки.
	numberLocks *keyedMutex
}

func NewOrderService(
	repo repositories.OrderRepositoryInterface,
	batchRepo repositories.BatchRepositoryInterface,
	franchiseRepo repositories.FranchiseRepositoryInterface,
	standardRepo repositories.StandardRepositoryInterface,
	txManager repositories.TxManagerInterface,
	clk clock.Clock,
	logger *zap.Logger,
) OrderServiceInterface {
	return &OrderService{
		repo:          repo,
		batchRepo:     batchRepo,
		franchiseRepo: franchiseRepo,
		standardRepo:  standardRepo,
		txManager:     txManager,
		clk:           clk,
		logger:        logger,
		numberLocks:   newKeyedMutex(),
	}
}

func (s *OrderService) GetOrders(ctx context.Context, filter types.Filter) ([]dto.OrderDTO, uint64, error) {
	orders, total, err := s.repo.GetOrders(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return dto.NewOrderDTOs(orders), total, nil
}

func (s *OrderService) FindOrder(ctx context.Context, id uint64) (*dto.OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	result := dto.NewOrderDTO(order)
	return &result, nil
}

func (s *OrderService) CreateOrder(ctx context.Context, payload dto.CreateOrderDTO) (*dto.OrderDTO, error) {
	if _, err := s.franchiseRepo.FindByID(ctx, payload.FranchiseID); err != nil {
		return nil, apperrors.NewValidationError("франшиза %d не найдена", payload.FranchiseID)
	}
	standard, err := s.standardRepo.FindByID(ctx, payload.StandardID)
	if err != nil {
		return nil, apperrors.NewValidationError("производственный стандарт %d не найден", payload.StandardID)
	}
	if !standard.Active {
		return nil, apperrors.NewValidationError("производственный стандарт %q неактивен", standard.DishName)
	}

	now := s.clk.Now()
	if !payload.RequiredDate.After(now) {
		return nil, apperrors.NewValidationError("требуемая дата должна быть в будущем")
	}

	priority := entities.OrderPriority(payload.Priority)
	if payload.Priority == "" {
		priority = entities.PriorityNormal
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("неизвестный приоритет %q", payload.Priority)
	}

	actor := utils.GetActorFromCtx(ctx)
	order := entities.ProductionOrder{
		FranchiseID:         payload.FranchiseID,
		StandardID:          payload.StandardID,
		Quantity:            payload.Quantity,
		UnitPrice:           payload.UnitPrice,
		Priority:            priority,
		Status:              entities.OrderStatusPending,
		OrderDate:           now,
		RequiredDate:        payload.RequiredDate,
		SpecialInstructions: payload.SpecialInstructions,
		Notes:               payload.Notes,
	}
	order.CreatedBy = actor
	order.UpdatedBy = actor
	order.RecalculateTotal()

	key := dayKey(now)
	s.numberLocks.Lock(key)
	defer s.numberLocks.Unlock(key)

	err = s.txManager.WithinTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		seq, err := s.repo.NextDailySequence(ctx, tx, now)
		if err != nil {
			return err
		}
		order.OrderNumber = formatDailyNumber(orderNumberPrefix, now, seq)

		id, err := s.repo.Create(ctx, tx, order)
		if err != nil {
			return err
		}
		order.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("создан производственный заказ",
		zap.Uint64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("priority", string(order.Priority)),
	)
	return s.FindOrder(ctx, order.ID)
}

func (s *OrderService) UpdateOrder(ctx context.Context, id uint64, payload dto.UpdateOrderDTO) (*dto.OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	// Редактируются только неначатые заказы.
	if order.Status != entities.OrderStatusPending && order.Status != entities.OrderStatusApproved {
		return nil, apperrors.NewValidationError("заказ %s уже в работе и не может быть изменён", order.OrderNumber)
	}

	if payload.Quantity != nil {
		order.Quantity = *payload.Quantity
	}
	if payload.UnitPrice != nil {
		order.UnitPrice = *payload.UnitPrice
	}
	if payload.Priority != nil {
		priority := entities.OrderPriority(*payload.Priority)
		if !priority.Valid() {
			return nil, apperrors.NewValidationError("неизвестный приоритет %q", *payload.Priority)
		}
		order.Priority = priority
	}
	if payload.RequiredDate != nil {
		order.RequiredDate = *payload.RequiredDate
	}
	if payload.SpecialInstructions != nil {
		order.SpecialInstructions = *payload.SpecialInstructions
	}
	if payload.Notes != nil {
		order.Notes = *payload.Notes
	}
	order.UpdatedBy = utils.GetActorFromCtx(ctx)
	order.RecalculateTotal()

	if err := s.repo.Update(ctx, nil, *order); err != nil {
		return nil, err
	}
	return s.FindOrder(ctx, id)
}

func (s *OrderService) DeleteOrder(ctx context.Context, id uint64) error {
	order, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return err
	}
	count, err := s.batchRepo.CountByOrder(ctx, nil, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperrors.NewValidationError("заказ %s нельзя удалить: по нему есть производственные батчи", order.OrderNumber)
	}
	return s.repo.Delete(ctx, nil, id)
}

// transition переводит заказ в следующий статус с проверкой графа переходов.
func (s *OrderService) transition(ctx context.Context, id uint64, next entities.OrderStatus, mutate func(*entities.ProductionOrder)) (*dto.OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, apperrors.NewStateTransitionError("заказ", string(order.Status), string(next))
	}

	from := order.Status
	order.Status = next
	if mutate != nil {
		mutate(order)
	}
	order.UpdatedBy = utils.GetActorFromCtx(ctx)

	if err := s.repo.Update(ctx, nil, *order); err != nil {
		return nil, err
	}

	s.logger.Info("статус заказа изменён",
		zap.Uint64("order_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(next)),
	)
	return s.FindOrder(ctx, id)
}

func (s *OrderService) ApproveOrder(ctx context.Context, id uint64) (*dto.OrderDTO, error) {
	return s.transition(ctx, id, entities.OrderStatusApproved, nil)
}

// MarkScheduled фиксирует дату слота, в который размещён заказ. Нулевая
// дата означает "на текущий момент" для ручного перевода без слота.
func (s *OrderService) MarkScheduled(ctx context.Context, id uint64, date time.Time) (*dto.OrderDTO, error) {
	if date.IsZero() {
		date = s.clk.Now()
	}
	return s.transition(ctx, id, entities.OrderStatusScheduled, func(o *entities.ProductionOrder) {
		o.ScheduledDate = &date
	})
}

func (s *OrderService) MarkInProduction(ctx context.Context, id uint64) (*dto.OrderDTO, error) {
	return s.transition(ctx, id, entities.OrderStatusInProduction, nil)
}

func (s *OrderService) CompleteOrder(ctx context.Context, id uint64) (*dto.OrderDTO, error) {
	now := s.clk.Now()
	return s.transition(ctx, id, entities.OrderStatusCompleted, func(o *entities.ProductionOrder) {
		o.CompletedDate = &now
	})
}

func (s *OrderService) CancelOrder(ctx context.Context, id uint64, reason string) (*dto.OrderDTO, error) {
	return s.transition(ctx, id, entities.OrderStatusCancelled, func(o *entities.ProductionOrder) {
		if reason != "" {
			if o.Notes != "" {
				o.Notes += "; "
			}
			o.Notes += "отменён: " + reason
		}
	})
}
