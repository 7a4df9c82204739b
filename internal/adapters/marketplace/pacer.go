package marketplace

import (
	"context"
	"time"
)

// DefaultPacingInterval пауза между публикациями карточек
const DefaultPacingInterval = 2 * time.Second

// Clock источник времени, подменяемый в тестах
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock возвращает системные часы
func RealClock() Clock { return realClock{} }

// Pacer выдерживает паузу перед очередной публикацией
type Pacer interface {
	Wait(ctx context.Context) error
}

// FixedIntervalPacer ждет одинаковый интервал перед каждой карточкой,
// кроме первой, вне зависимости от исхода предыдущей публикации
type FixedIntervalPacer struct {
	interval time.Duration
	clock    Clock
}

// NewFixedIntervalPacer создает пейсер с фиксированным интервалом
func NewFixedIntervalPacer(interval time.Duration, clock Clock) *FixedIntervalPacer {
	if interval < 0 {
		interval = 0
	}
	if clock == nil {
		clock = RealClock()
	}
	return &FixedIntervalPacer{interval: interval, clock: clock}
}

// Interval возвращает настроенный интервал
func (p *FixedIntervalPacer) Interval() time.Duration {
	return p.interval
}

// Wait блокируется на интервал или до отмены контекста
func (p *FixedIntervalPacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.interval == 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.clock.After(p.interval):
		return nil
	}
}
