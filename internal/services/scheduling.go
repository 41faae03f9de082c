package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"production-system/internal/dto"
	"production-system/internal/entities"
	"production-system/internal/repositories"
	"production-system/pkg/config"
	apperrors "production-system/pkg/errors"
)

type SchedulingServiceInterface interface {
	AutoSchedule(ctx context.Context, payload dto.AutoScheduleRequestDTO) (*dto.AutoScheduleResultDTO, error)
}

// SchedulingService размещает подтверждённые заказы по свободным слотам.
// Жадная стратегия: заказы в порядке приоритета, линии в фиксированном
// порядке, по времени курсор только вперёд.
type SchedulingService struct {
	orderRepo       repositories.OrderRepositoryInterface
	standardRepo    repositories.StandardRepositoryInterface
	orderService    OrderServiceInterface
	scheduleService ScheduleServiceInterface
	cfg             config.ProductionConfig
	logger          *zap.Logger
}

func NewSchedulingService(
	orderRepo repositories.OrderRepositoryInterface,
	standardRepo repositories.StandardRepositoryInterface,
	orderService OrderServiceInterface,
	scheduleService ScheduleServiceInterface,
	cfg config.ProductionConfig,
	logger *zap.Logger,
) SchedulingServiceInterface {
	return &SchedulingService{
		orderRepo:       orderRepo,
		standardRepo:    standardRepo,
		orderService:    orderService,
		scheduleService: scheduleService,
		cfg:             cfg,
		logger:          logger,
	}
}

// estimateDuration определяет длительность слота по стандарту блюда.
func (s *SchedulingService) estimateDuration(standard *entities.ProductionStandard) time.Duration {
	minutes := standard.CookingTimeMinutes
	if minutes <= 0 {
		minutes = s.cfg.DefaultStepMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// nextDayStart переносит курсор на начало рабочего дня следующих суток.
func (s *SchedulingService) nextDayStart(cursor time.Time) time.Time {
	next := cursor.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), s.cfg.NextDayStartHour, 0, 0, 0, next.Location())
}

// placeOrder подбирает заказу слот: до SlotProbeLimit почасовых попыток от
// курсора, каждая попытка перебирает линии в настроенном порядке. Возвращает
// созданное расписание и границы занятого интервала.
func (s *SchedulingService) placeOrder(ctx context.Context, order *entities.ProductionOrder, cursor time.Time, duration time.Duration) (*dto.ScheduleDTO, time.Time, time.Time, error) {
	for probe := 0; probe < s.cfg.SlotProbeLimit; probe++ {
		start := cursor.Add(time.Duration(probe) * time.Hour)
		end := start.Add(duration)
		day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())

		// Слот лежит целиком внутри суток курсора; остаток лимита попыток
		// за полночь не расходуется, перенос на утро делает вызывающий.
		if end.YearDay() != start.YearDay() || end.Year() != start.Year() {
			break
		}

		for _, line := range s.cfg.Lines {
			created, err := s.scheduleService.CreateSchedule(ctx, dto.CreateScheduleDTO{
				ProductionLine: line,
				ScheduledDate:  day,
				StartTime:      start,
				EndTime:        end,
				Notes:          "автопланирование заказа " + order.OrderNumber,
			})
			if err == nil {
				return created, start, end, nil
			}
			if apperrors.IsConflict(err) {
				continue
			}
			return nil, time.Time{}, time.Time{}, err
		}
	}
	return nil, time.Time{}, time.Time{}, apperrors.NewSchedulingExhaustedError(order.ID, "нет свободного слота в пределах лимита попыток")
}

func (s *SchedulingService) AutoSchedule(ctx context.Context, payload dto.AutoScheduleRequestDTO) (*dto.AutoScheduleResultDTO, error) {
	orders, err := s.orderRepo.FindByIDs(ctx, payload.OrderIDs)
	if err != nil {
		return nil, err
	}

	found := make(map[uint64]bool, len(orders))
	for i := range orders {
		found[orders[i].ID] = true
	}

	result := &dto.AutoScheduleResultDTO{
		Scheduled:   make([]dto.ScheduleDTO, 0),
		Unscheduled: make([]dto.UnscheduledOrderDTO, 0),
	}
	for _, id := range payload.OrderIDs {
		if !found[id] {
			result.Unscheduled = append(result.Unscheduled, dto.UnscheduledOrderDTO{
				OrderID: id,
				Reason:  "заказ не найден",
			})
		}
	}

	// Очередь планирования: приоритет по убыванию, требуемая дата по
	// возрастанию, ID для стабильности.
	queue := make([]entities.ProductionOrder, 0, len(orders))
	for i := range orders {
		if orders[i].Status != entities.OrderStatusApproved {
			result.Unscheduled = append(result.Unscheduled, dto.UnscheduledOrderDTO{
				OrderID: orders[i].ID,
				Reason:  "заказ не подтверждён, текущий статус " + string(orders[i].Status),
			})
			continue
		}
		queue = append(queue, orders[i])
	}
	sort.SliceStable(queue, func(i, j int) bool {
		if queue[i].Priority.Rank() != queue[j].Priority.Rank() {
			return queue[i].Priority.Rank() > queue[j].Priority.Rank()
		}
		if !queue[i].RequiredDate.Equal(queue[j].RequiredDate) {
			return queue[i].RequiredDate.Before(queue[j].RequiredDate)
		}
		return queue[i].ID < queue[j].ID
	})

	cursor := payload.StartFrom
	for i := range queue {
		order := &queue[i]

		standard, err := s.standardRepo.FindByID(ctx, order.StandardID)
		if err != nil {
			result.Unscheduled = append(result.Unscheduled, dto.UnscheduledOrderDTO{
				OrderID: order.ID,
				Reason:  "производственный стандарт недоступен",
			})
			continue
		}
		duration := s.estimateDuration(standard)

		created, slotStart, slotEnd, err := s.placeOrder(ctx, order, cursor, duration)
		if err != nil {
			var exhausted *apperrors.SchedulingExhaustedError
			if !errors.As(err, &exhausted) {
				return nil, err
			}
			// Один перенос на утро следующего дня, потом отказ.
			created, slotStart, slotEnd, err = s.placeOrder(ctx, order, s.nextDayStart(cursor), duration)
			if err != nil {
				if !errors.As(err, &exhausted) {
					return nil, err
				}
				s.logger.Warn("заказ не размещён планировщиком",
					zap.Uint64("order_id", order.ID),
					zap.String("order_number", order.OrderNumber),
				)
				result.Unscheduled = append(result.Unscheduled, dto.UnscheduledOrderDTO{
					OrderID: order.ID,
					Reason:  exhausted.Reason,
				})
				continue
			}
		}

		// Заказу проставляется дата начала слота, а не момент запуска
		// планировщика: при переносе на следующий день они различаются.
		if _, err := s.orderService.MarkScheduled(ctx, order.ID, slotStart); err != nil {
			return nil, err
		}

		s.logger.Info("заказ размещён планировщиком",
			zap.Uint64("order_id", order.ID),
			zap.String("schedule_number", created.ScheduleNumber),
			zap.String("production_line", created.ProductionLine),
		)
		result.Scheduled = append(result.Scheduled, *created)

		// Курсор уходит за конец занятого слота с настроенной паузой.
		if slotEnd.After(cursor) {
			cursor = slotEnd.Add(s.cfg.SlotGap)
		}
	}
	return result, nil
}
