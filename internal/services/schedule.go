package services

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"production-system/internal/dto"
	"production-system/internal/entities"
	"production-system/internal/repositories"
	"production-system/pkg/config"
	apperrors "production-system/pkg/errors"
	"production-system/pkg/types"
	"production-system/pkg/utils"
)

type ScheduleServiceInterface interface {
	GetSchedules(ctx context.Context, filter types.Filter) ([]dto.ScheduleDTO, uint64, error)
	FindSchedule(ctx context.Context, id uint64) (*dto.ScheduleDTO, error)
	ProposeSlot(ctx context.Context, payload dto.ProposeSlotDTO) error
	CreateSchedule(ctx context.Context, payload dto.CreateScheduleDTO) (*dto.ScheduleDTO, error)
	ConfirmSchedule(ctx context.Context, id uint64) (*dto.ScheduleDTO, error)
	StartSchedule(ctx context.Context, id uint64) (*dto.ScheduleDTO, error)
	CompleteSchedule(ctx context.Context, id uint64) (*dto.ScheduleDTO, error)
	CancelSchedule(ctx context.Context, id uint64) (*dto.ScheduleDTO, error)
	ListByLineAndDate(ctx context.Context, line string, day time.Time) ([]dto.ScheduleDTO, error)
	FindConflicts(ctx context.Context, day time.Time) ([]dto.ScheduleConflictDTO, error)
}

type ScheduleService struct {
	repo      repositories.ScheduleRepositoryInterface
	txManager repositories.TxManagerInterface
	cfg       config.ProductionConfig
	logger    *zap.Logger

	// slotLocks сериализует проверку конфликтов и вставку по ключу
	// (линия, дата). Без этого две параллельные заявки могут пройти
	// проверку одновременно и занять один интервал.
	slotLocks   *keyedMutex
	numberLocks *keyedMutex
}

func NewScheduleService(
	repo repositories.ScheduleRepositoryInterface,
	txManager repositories.TxManagerInterface,
	cfg config.ProductionConfig,
	logger *zap.Logger,
) ScheduleServiceInterface {
	return &ScheduleService{
		repo:        repo,
		txManager:   txManager,
		cfg:         cfg,
		logger:      logger,
		slotLocks:   newKeyedMutex(),
		numberLocks: newKeyedMutex(),
	}
}

func (s *ScheduleService) knownLine(line string) bool {
	for _, l := range s.cfg.Lines {
		if l == line {
			return true
		}
	}
	return false
}

// capacityUtilization — процент смены, занимаемый интервалом, с потолком 100.
func (s *ScheduleService) capacityUtilization(start, end time.Time) float64 {
	minutes := end.Sub(start).Minutes()
	utilization := minutes / float64(s.cfg.ShiftMinutes) * 100.0
	if utilization > 100.0 {
		return 100.0
	}
	return utilization
}

func (s *ScheduleService) validateInterval(line string, day, start, end time.Time) error {
	if !s.knownLine(line) {
		return apperrors.NewValidationError("неизвестная производственная линия %q", line)
	}
	if !end.After(start) {
		return apperrors.NewValidationError("окончание интервала должно быть позже начала")
	}
	if start.Year() != day.Year() || start.YearDay() != day.YearDay() {
		return apperrors.NewValidationError("начало интервала должно попадать в запланированные сутки")
	}
	return nil
}

// checkOverlap ищет пересечение кандидата с активными слотами линии.
// Интервалы полуоткрытые: стык конец-в-начало конфликтом не считается.
func checkOverlap(candidate *entities.ProductionSchedule, existing []entities.ProductionSchedule) error {
	for i := range existing {
		other := &existing[i]
		if other.ID == candidate.ID {
			continue
		}
		if candidate.Overlaps(other) {
			return apperrors.NewConflictError(
				candidate.ProductionLine,
				candidate.ScheduledDate.Format("2006-01-02"),
				"линия %s занята расписанием %s в интервале %s - %s",
				candidate.ProductionLine, other.ScheduleNumber,
				other.StartTime.Format("15:04"), other.EndTime.Format("15:04"),
			)
		}
	}
	return nil
}

func (s *ScheduleService) GetSchedules(ctx context.Context, filter types.Filter) ([]dto.ScheduleDTO, uint64, error) {
	schedules, total, err := s.repo.GetSchedules(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return dto.NewScheduleDTOs(schedules), total, nil
}

func (s *ScheduleService) FindSchedule(ctx context.Context, id uint64) (*dto.ScheduleDTO, error) {
	schedule, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	result := dto.NewScheduleDTO(schedule)
	return &result, nil
}

// ProposeSlot проверяет интервал без создания записи. Возвращает nil, если
// слот свободен, и ConflictError, если занят.
func (s *ScheduleService) ProposeSlot(ctx context.Context, payload dto.ProposeSlotDTO) error {
	if err := s.validateInterval(payload.ProductionLine, payload.ScheduledDate, payload.StartTime, payload.EndTime); err != nil {
		return err
	}
	existing, err := s.repo.ListActiveByLineAndDate(ctx, nil, payload.ProductionLine, payload.ScheduledDate)
	if err != nil {
		return err
	}
	candidate := &entities.ProductionSchedule{
		ProductionLine: payload.ProductionLine,
		ScheduledDate:  payload.ScheduledDate,
		StartTime:      payload.StartTime,
		EndTime:        payload.EndTime,
	}
	return checkOverlap(candidate, existing)
}

func (s *ScheduleService) CreateSchedule(ctx context.Context, payload dto.CreateScheduleDTO) (*dto.ScheduleDTO, error) {
	if err := s.validateInterval(payload.ProductionLine, payload.ScheduledDate, payload.StartTime, payload.EndTime); err != nil {
		return nil, err
	}

	actor := utils.GetActorFromCtx(ctx)
	schedule := entities.ProductionSchedule{
		ProductionLine:      payload.ProductionLine,
		ScheduledDate:       payload.ScheduledDate,
		StartTime:           payload.StartTime,
		EndTime:             payload.EndTime,
		Status:              entities.ScheduleStatusPlanned,
		CapacityUtilization: s.capacityUtilization(payload.StartTime, payload.EndTime),
		AssignedStaff:       payload.AssignedStaff,
		Equipment:           payload.Equipment,
		Notes:               payload.Notes,
	}
	schedule.CreatedBy = actor
	schedule.UpdatedBy = actor

	slotKey := lineDayKey(payload.ProductionLine, payload.ScheduledDate)
	s.slotLocks.Lock(slotKey)
	defer s.slotLocks.Unlock(slotKey)

	numberKey := dayKey(payload.ScheduledDate)
	s.numberLocks.Lock(numberKey)
	defer s.numberLocks.Unlock(numberKey)

	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		existing, err := s.repo.ListActiveByLineAndDate(ctx, tx, payload.ProductionLine, payload.ScheduledDate)
		if err != nil {
			return err
		}
		if err := checkOverlap(&schedule, existing); err != nil {
			return err
		}

		seq, err := s.repo.NextDailySequence(ctx, tx, payload.ScheduledDate)
		if err != nil {
			return err
		}
		schedule.ScheduleNumber = formatDailyNumber(scheduleNumberPrefix, payload.ScheduledDate, seq)

		id, err := s.repo.Create(ctx, tx, schedule)
		if err != nil {
			return err
		}
		schedule.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("создан слот расписания",
		zap.Uint64("schedule_id", schedule.ID),
		zap.String("schedule_number", schedule.ScheduleNumber),
		zap.String("production_line", schedule.ProductionLine),
	)
	return s.FindSchedule(ctx, schedule.ID)
}

func (s *ScheduleService) transition(ctx context.Context, id uint64, next entities.ScheduleStatus) (*dto.ScheduleDTO, error) {
	schedule, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if !schedule.Status.CanTransitionTo(next) {
		return nil, apperrors.NewStateTransitionError("расписание", string(schedule.Status), string(next))
	}

	schedule.Status = next
	schedule.UpdatedBy = utils.GetActorFromCtx(ctx)
	if err := s.repo.Update(ctx, nil, *schedule); err != nil {
		return nil, err
	}
	return s.FindSchedule(ctx, id)
}

func (s *ScheduleService) ConfirmSchedule(ctx context.Context, id uint64) (*dto.ScheduleDTO, error) {
	return s.transition(ctx, id, entities.ScheduleStatusConfirmed)
}

func (s *ScheduleService) StartSchedule(ctx context.Context, id uint64) (*dto.ScheduleDTO, error) {
	return s.transition(ctx, id, entities.ScheduleStatusInProgress)
}

func (s *ScheduleService) CompleteSchedule(ctx context.Context, id uint64) (*dto.ScheduleDTO, error) {
	return s.transition(ctx, id, entities.ScheduleStatusCompleted)
}

// CancelSchedule освобождает слот: отменённое расписание перестаёт
// участвовать в проверке конфликтов.
func (s *ScheduleService) CancelSchedule(ctx context.Context, id uint64) (*dto.ScheduleDTO, error) {
	return s.transition(ctx, id, entities.ScheduleStatusCancelled)
}

func (s *ScheduleService) ListByLineAndDate(ctx context.Context, line string, day time.Time) ([]dto.ScheduleDTO, error) {
	if !s.knownLine(line) {
		return nil, apperrors.NewValidationError("неизвестная производственная линия %q", line)
	}
	schedules, err := s.repo.ListActiveByLineAndDate(ctx, nil, line, day)
	if err != nil {
		return nil, err
	}
	return dto.NewScheduleDTOs(schedules), nil
}

// FindConflicts возвращает все пары пересекающихся активных слотов за сутки.
// В норме список пуст, непустой результат означает повреждение данных в обход
// прикладных проверок.
func (s *ScheduleService) FindConflicts(ctx context.Context, day time.Time) ([]dto.ScheduleConflictDTO, error) {
	schedules, err := s.repo.ListByDate(ctx, day)
	if err != nil {
		return nil, err
	}

	conflicts := make([]dto.ScheduleConflictDTO, 0)
	for i := range schedules {
		if !schedules[i].IsActive() {
			continue
		}
		for j := i + 1; j < len(schedules); j++ {
			if !schedules[j].IsActive() {
				continue
			}
			if schedules[i].Overlaps(&schedules[j]) {
				conflicts = append(conflicts, dto.ScheduleConflictDTO{
					ProductionLine: schedules[i].ProductionLine,
					FirstNumber:    schedules[i].ScheduleNumber,
					SecondNumber:   schedules[j].ScheduleNumber,
					FirstInterval:  schedules[i].StartTime.Format("15:04") + " - " + schedules[i].EndTime.Format("15:04"),
					SecondInterval: schedules[j].StartTime.Format("15:04") + " - " + schedules[j].EndTime.Format("15:04"),
				})
			}
		}
	}
	return conflicts, nil
}
