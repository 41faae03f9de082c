package clock

import "time"

// Clock отдаёт текущее время. Сервисы получают его через конструктор,
// чтобы тесты могли управлять временем детерминированно.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System возвращает часы на основе time.Now.
func System() Clock { return systemClock{} }

// Fake — управляемые часы для тестов.
type Fake struct {
	Current time.Time
}

func NewFake(t time.Time) *Fake { return &Fake{Current: t} }

func (f *Fake) Now() time.Time { return f.Current }

func (f *Fake) Set(t time.Time) { f.Current = t }

func (f *Fake) Advance(d time.Duration) { f.Current = f.Current.Add(d) }
