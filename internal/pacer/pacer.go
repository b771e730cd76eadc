// Package pacer реализует фиксированные паузы, соблюдающие лимиты внешних сервисов.
package pacer

import (
	"context"
	"time"
)

// SleepFunc выполняет одно ожидание; отмена контекста прерывает его.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Governor выдерживает паузы конвейера: между опросами статуса задачи,
// между окнами, между пакетами записи и после ошибки окна. Это паузы
// успешного пути, а не backoff: они соблюдают бюджет вызовов внешнего API.
type Governor struct {
	pollInterval time.Duration
	windowDelay  time.Duration
	batchDelay   time.Duration
	cooldown     time.Duration
	sleep        SleepFunc
}

// New создаёт Governor. Нулевой sleep означает ожидание на таймере;
// тесты передают свою функцию и считают вызовы вместо реальных пауз.
func New(pollInterval, windowDelay, batchDelay, cooldown time.Duration, sleep SleepFunc) *Governor {
	if sleep == nil {
		sleep = waitTimer
	}
	return &Governor{
		pollInterval: pollInterval,
		windowDelay:  windowDelay,
		batchDelay:   batchDelay,
		cooldown:     cooldown,
		sleep:        sleep,
	}
}

// AwaitPoll выдерживает паузу перед следующим опросом статуса задачи.
func (g *Governor) AwaitPoll(ctx context.Context) error {
	return g.sleep(ctx, g.pollInterval)
}

// AwaitNextWindow выдерживает паузу после окна: API допускает одно создание отчёта в минуту.
func (g *Governor) AwaitNextWindow(ctx context.Context) error {
	return g.sleep(ctx, g.windowDelay)
}

// AwaitNextBatch выдерживает короткую паузу между пакетами записи в хранилище.
func (g *Governor) AwaitNextBatch(ctx context.Context) error {
	return g.sleep(ctx, g.batchDelay)
}

// AwaitCooldown выдерживает увеличенную паузу после ошибки окна при исторической загрузке.
func (g *Governor) AwaitCooldown(ctx context.Context) error {
	return g.sleep(ctx, g.cooldown)
}

func waitTimer(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
