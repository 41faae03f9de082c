package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"production-system/internal/entities"
	"production-system/pkg/config"
	apperrors "production-system/pkg/errors"
	"production-system/pkg/types"
)

func testProductionConfig() config.ProductionConfig {
	return config.ProductionConfig{
		Lines:              []string{"LINE-A", "LINE-B", "LINE-C"},
		ShiftMinutes:       480,
		SlotProbeLimit:     24,
		SlotGap:            15 * time.Minute,
		NextDayStartHour:   8,
		StandardCacheTTL:   10 * time.Minute,
		DefaultStepMinutes: 30,
	}
}

// Фейки повторяют контракт репозиториев в памяти, включая оптимистичную
// блокировку по версии и суточную нумерацию. Транзакции схлопываются в
// прямой вызов, изоляция тестам не нужна.

type fakeTxManager struct{}

func (fakeTxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}

func sameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

type fakeOrderRepo struct {
	mu    sync.Mutex
	seq   uint64
	items map[uint64]*entities.ProductionOrder
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{items: make(map[uint64]*entities.ProductionOrder)}
}

// put кладёт заказ напрямую, минуя сервисный слой. Для подготовки фикстур.
func (r *fakeOrderRepo) put(o entities.ProductionOrder) *entities.ProductionOrder {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o.ID == 0 {
		r.seq++
		o.ID = r.seq
	} else if o.ID > r.seq {
		r.seq = o.ID
	}
	stored := o
	r.items[o.ID] = &stored
	return &stored
}

func (r *fakeOrderRepo) all() []entities.ProductionOrder {
	out := make([]entities.ProductionOrder, 0, len(r.items))
	for _, o := range r.items {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeOrderRepo) GetOrders(ctx context.Context, filter types.Filter) ([]entities.ProductionOrder, uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.all()
	return out, uint64(len(out)), nil
}

func (r *fakeOrderRepo) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.ProductionOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.items[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *o
	return &copied, nil
}

func (r *fakeOrderRepo) FindByNumber(ctx context.Context, tx pgx.Tx, number string) (*entities.ProductionOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.items {
		if o.OrderNumber == number {
			copied := *o
			return &copied, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeOrderRepo) FindByIDs(ctx context.Context, ids []uint64) ([]entities.ProductionOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.ProductionOrder, 0, len(ids))
	for _, id := range ids {
		if o, ok := r.items[id]; ok {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) ListByStatus(ctx context.Context, status entities.OrderStatus) ([]entities.ProductionOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.ProductionOrder, 0)
	for _, o := range r.all() {
		if o.Status == status {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority.Rank() != out[j].Priority.Rank() {
			return out[i].Priority.Rank() > out[j].Priority.Rank()
		}
		if !out[i].RequiredDate.Equal(out[j].RequiredDate) {
			return out[i].RequiredDate.Before(out[j].RequiredDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *fakeOrderRepo) ListByFranchise(ctx context.Context, franchiseID uint64) ([]entities.ProductionOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.ProductionOrder, 0)
	for _, o := range r.all() {
		if o.FranchiseID == franchiseID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) ListByRequiredBetween(ctx context.Context, from, to time.Time) ([]entities.ProductionOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.ProductionOrder, 0)
	for _, o := range r.all() {
		if !o.RequiredDate.Before(from) && o.RequiredDate.Before(to) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) Create(ctx context.Context, tx pgx.Tx, o entities.ProductionOrder) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	o.ID = r.seq
	stored := o
	r.items[o.ID] = &stored
	return o.ID, nil
}

func (r *fakeOrderRepo) Update(ctx context.Context, tx pgx.Tx, o entities.ProductionOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[o.ID]; !ok {
		return apperrors.ErrNotFound
	}
	stored := o
	r.items[o.ID] = &stored
	return nil
}

func (r *fakeOrderRepo) Delete(ctx context.Context, tx pgx.Tx, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeOrderRepo) NextDailySequence(ctx context.Context, tx pgx.Tx, day time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, o := range r.items {
		if sameDay(o.OrderDate, day) {
			count++
		}
	}
	return count + 1, nil
}

type fakeScheduleRepo struct {
	mu    sync.Mutex
	seq   uint64
	items map[uint64]*entities.ProductionSchedule
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{items: make(map[uint64]*entities.ProductionSchedule)}
}

func (r *fakeScheduleRepo) put(s entities.ProductionSchedule) *entities.ProductionSchedule {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == 0 {
		r.seq++
		s.ID = r.seq
	} else if s.ID > r.seq {
		r.seq = s.ID
	}
	stored := s
	r.items[s.ID] = &stored
	return &stored
}

func (r *fakeScheduleRepo) all() []entities.ProductionSchedule {
	out := make([]entities.ProductionSchedule, 0, len(r.items))
	for _, s := range r.items {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeScheduleRepo) GetSchedules(ctx context.Context, filter types.Filter) ([]entities.ProductionSchedule, uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.all()
	return out, uint64(len(out)), nil
}

func (r *fakeScheduleRepo) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.ProductionSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *fakeScheduleRepo) ListActiveByLineAndDate(ctx context.Context, tx pgx.Tx, line string, day time.Time) ([]entities.ProductionSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.ProductionSchedule, 0)
	for _, s := range r.all() {
		if s.ProductionLine == line && sameDay(s.ScheduledDate, day) && s.IsActive() {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *fakeScheduleRepo) ListByDate(ctx context.Context, day time.Time) ([]entities.ProductionSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.ProductionSchedule, 0)
	for _, s := range r.all() {
		if sameDay(s.ScheduledDate, day) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeScheduleRepo) ListByDateRange(ctx context.Context, from, to time.Time) ([]entities.ProductionSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.ProductionSchedule, 0)
	for _, s := range r.all() {
		if !s.ScheduledDate.Before(from) && s.ScheduledDate.Before(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeScheduleRepo) Create(ctx context.Context, tx pgx.Tx, s entities.ProductionSchedule) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	s.ID = r.seq
	stored := s
	r.items[s.ID] = &stored
	return s.ID, nil
}

func (r *fakeScheduleRepo) Update(ctx context.Context, tx pgx.Tx, s entities.ProductionSchedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[s.ID]; !ok {
		return apperrors.ErrNotFound
	}
	stored := s
	r.items[s.ID] = &stored
	return nil
}

func (r *fakeScheduleRepo) Delete(ctx context.Context, tx pgx.Tx, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeScheduleRepo) NextDailySequence(ctx context.Context, tx pgx.Tx, day time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, s := range r.items {
		if sameDay(s.ScheduledDate, day) {
			count++
		}
	}
	return count + 1, nil
}

type fakeBatchRepo struct {
	mu    sync.Mutex
	seq   uint64
	items map[uint64]*entities.ProductionBatch

	// beforeUpdate выполняется до проверки версии. Тесты конкурентности
	// подменяют им запись между чтением и записью сервиса.
	beforeUpdate func()
}

func newFakeBatchRepo() *fakeBatchRepo {
	return &fakeBatchRepo{items: make(map[uint64]*entities.ProductionBatch)}
}

func (r *fakeBatchRepo) put(b entities.ProductionBatch) *entities.ProductionBatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == 0 {
		r.seq++
		b.ID = r.seq
	} else if b.ID > r.seq {
		r.seq = b.ID
	}
	if b.Version == 0 {
		b.Version = 1
	}
	stored := b
	r.items[b.ID] = &stored
	return &stored
}

func (r *fakeBatchRepo) all() []entities.ProductionBatch {
	out := make([]entities.ProductionBatch, 0, len(r.items))
	for _, b := range r.items {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeBatchRepo) GetBatches(ctx context.Context, filter types.Filter) ([]entities.ProductionBatch, uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.all()
	return out, uint64(len(out)), nil
}

func (r *fakeBatchRepo) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.ProductionBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.items[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (r *fakeBatchRepo) FindByNumber(ctx context.Context, tx pgx.Tx, number string) (*entities.ProductionBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.items {
		if b.BatchNumber == number {
			copied := *b
			return &copied, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeBatchRepo) ListByOrder(ctx context.Context, orderID uint64) ([]entities.ProductionBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.ProductionBatch, 0)
	for _, b := range r.all() {
		if b.OrderID == orderID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBatchRepo) ListByStatus(ctx context.Context, status entities.BatchStatus) ([]entities.ProductionBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.ProductionBatch, 0)
	for _, b := range r.all() {
		if b.Status == status {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBatchRepo) CountByOrder(ctx context.Context, tx pgx.Tx, orderID uint64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, b := range r.items {
		if b.OrderID == orderID {
			count++
		}
	}
	return count, nil
}

func (r *fakeBatchRepo) Create(ctx context.Context, tx pgx.Tx, b entities.ProductionBatch) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	b.ID = r.seq
	stored := b
	r.items[b.ID] = &stored
	return b.ID, nil
}

func (r *fakeBatchRepo) Update(ctx context.Context, tx pgx.Tx, b entities.ProductionBatch) error {
	if r.beforeUpdate != nil {
		r.beforeUpdate()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[b.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if stored.Version != b.Version {
		return apperrors.ErrConcurrency
	}
	b.Version++
	updated := b
	r.items[b.ID] = &updated
	return nil
}

func (r *fakeBatchRepo) NextDailySequence(ctx context.Context, tx pgx.Tx, day time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, b := range r.items {
		if sameDay(b.StartTime, day) {
			count++
		}
	}
	return count + 1, nil
}

type fakeStepRepo struct {
	mu    sync.Mutex
	seq   uint64
	items map[uint64]*entities.ProductionStep
}

func newFakeStepRepo() *fakeStepRepo {
	return &fakeStepRepo{items: make(map[uint64]*entities.ProductionStep)}
}

func (r *fakeStepRepo) put(s entities.ProductionStep) *entities.ProductionStep {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == 0 {
		r.seq++
		s.ID = r.seq
	} else if s.ID > r.seq {
		r.seq = s.ID
	}
	if s.Version == 0 {
		s.Version = 1
	}
	stored := s
	r.items[s.ID] = &stored
	return &stored
}

func (r *fakeStepRepo) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.ProductionStep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *fakeStepRepo) ListByBatch(ctx context.Context, tx pgx.Tx, batchID uint64) ([]entities.ProductionStep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.ProductionStep, 0)
	for _, s := range r.items {
		if s.BatchID == batchID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StepNumber < out[j].StepNumber })
	return out, nil
}

func (r *fakeStepRepo) ListByStatus(ctx context.Context, status entities.StepStatus) ([]entities.ProductionStep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.ProductionStep, 0)
	for _, s := range r.items {
		if s.Status == status {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeStepRepo) CreateMany(ctx context.Context, tx pgx.Tx, steps []entities.ProductionStep) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range steps {
		r.seq++
		steps[i].ID = r.seq
		stored := steps[i]
		r.items[stored.ID] = &stored
	}
	return nil
}

func (r *fakeStepRepo) Update(ctx context.Context, tx pgx.Tx, s entities.ProductionStep) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[s.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if stored.Version != s.Version {
		return apperrors.ErrConcurrency
	}
	s.Version++
	updated := s
	r.items[s.ID] = &updated
	return nil
}

type fakeFranchiseRepo struct {
	items map[uint64]entities.Franchise
}

func newFakeFranchiseRepo(franchises ...entities.Franchise) *fakeFranchiseRepo {
	r := &fakeFranchiseRepo{items: make(map[uint64]entities.Franchise)}
	for _, f := range franchises {
		r.items[f.ID] = f
	}
	return r
}

func (r *fakeFranchiseRepo) FindByID(ctx context.Context, id uint64) (*entities.Franchise, error) {
	f, ok := r.items[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &f, nil
}

func (r *fakeFranchiseRepo) GetAll(ctx context.Context, onlyActive bool) ([]entities.Franchise, error) {
	out := make([]entities.Franchise, 0, len(r.items))
	for _, f := range r.items {
		if onlyActive && !f.Active {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeStandardRepo struct {
	items map[uint64]entities.ProductionStandard
}

func newFakeStandardRepo(standards ...entities.ProductionStandard) *fakeStandardRepo {
	r := &fakeStandardRepo{items: make(map[uint64]entities.ProductionStandard)}
	for _, s := range standards {
		r.items[s.ID] = s
	}
	return r
}

func (r *fakeStandardRepo) FindByID(ctx context.Context, id uint64) (*entities.ProductionStandard, error) {
	s, ok := r.items[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &s, nil
}

func (r *fakeStandardRepo) GetAll(ctx context.Context, onlyActive bool) ([]entities.ProductionStandard, error) {
	out := make([]entities.ProductionStandard, 0, len(r.items))
	for _, s := range r.items {
		if onlyActive && !s.Active {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeTraceRepo struct {
	mu    sync.Mutex
	seq   uint64
	items map[uint64]*entities.QualityTrace
}

func newFakeTraceRepo() *fakeTraceRepo {
	return &fakeTraceRepo{items: make(map[uint64]*entities.QualityTrace)}
}

func (r *fakeTraceRepo) put(t entities.QualityTrace) *entities.QualityTrace {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == 0 {
		r.seq++
		t.ID = r.seq
	} else if t.ID > r.seq {
		r.seq = t.ID
	}
	stored := t
	r.items[t.ID] = &stored
	return &stored
}

func (r *fakeTraceRepo) GetTraces(ctx context.Context, filter types.Filter) ([]entities.QualityTrace, uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.QualityTrace, 0, len(r.items))
	for _, t := range r.items {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, uint64(len(out)), nil
}

func (r *fakeTraceRepo) FindByID(ctx context.Context, id uint64) (*entities.QualityTrace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTraceRepo) ListByBatch(ctx context.Context, batchID uint64) ([]entities.QualityTrace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.QualityTrace, 0)
	for _, t := range r.items {
		if t.BatchID != nil && *t.BatchID == batchID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LotNumber < out[j].LotNumber })
	return out, nil
}

func (r *fakeTraceRepo) ListExpiringBefore(ctx context.Context, deadline time.Time) ([]entities.QualityTrace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.QualityTrace, 0)
	for _, t := range r.items {
		if t.Status != entities.TraceStatusFailed && t.ExpiryDate.Before(deadline) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiryDate.Equal(out[j].ExpiryDate) {
			return out[i].ExpiryDate.Before(out[j].ExpiryDate)
		}
		return out[i].LotNumber < out[j].LotNumber
	})
	return out, nil
}

func (r *fakeTraceRepo) Create(ctx context.Context, t entities.QualityTrace) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.LotNumber == t.LotNumber {
			return 0, apperrors.ErrConflict
		}
	}
	r.seq++
	t.ID = r.seq
	stored := t
	r.items[t.ID] = &stored
	return t.ID, nil
}

func (r *fakeTraceRepo) Update(ctx context.Context, t entities.QualityTrace) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[t.ID]; !ok {
		return apperrors.ErrNotFound
	}
	stored := t
	r.items[t.ID] = &stored
	return nil
}

func (r *fakeTraceRepo) Delete(ctx context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.items, id)
	return nil
}
