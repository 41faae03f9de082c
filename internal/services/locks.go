package services

import (
	"fmt"
	"sync"
	"time"
)

// keyedMutex сериализует операции по строковому ключу внутри процесса.
// Используется поверх блокировок БД: проверка конфликтов и вставка слота
// должны идти атомарно по ключу (линия, дата), нумерация по ключу даты.
// Запись ключа удаляется, когда ей никто не владеет и не ждёт её, иначе
// карта растёт на ключ за каждые сутки работы процесса.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

func (k *keyedMutex) Lock(key string) {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &keyedLock{}
		k.locks[key] = lock
	}
	lock.refs++
	k.mu.Unlock()
	lock.mu.Lock()
}

func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if ok {
		lock.refs--
		if lock.refs == 0 {
			delete(k.locks, key)
		}
	}
	k.mu.Unlock()
	if ok {
		lock.mu.Unlock()
	}
}

func lineDayKey(line string, day time.Time) string {
	return fmt.Sprintf("%s|%s", line, day.Format("2006-01-02"))
}

func dayKey(day time.Time) string {
	return day.Format("2006-01-02")
}
