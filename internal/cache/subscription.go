package cache

import (
	"context"
	"errors"
	"fmt"
)

type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusResolved
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPending:
		return "pending"
	case StatusResolved:
		return "resolved"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ErrIdle - у подписки нет запроса (skip)
var ErrIdle = errors.New("query skipped")

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Subscription - взгляд подписчика на одну запись кеша
type Subscription struct {
	key string
	e   *entry
	hit bool
}

// Idle - подписка без запроса: не создает и не читает записи
func Idle() *Subscription {
	return &Subscription{}
}

func (s *Subscription) Key() string {
	return s.key
}

// Cached - запись уже была в кеше на момент Query
func (s *Subscription) Cached() bool {
	return s.hit
}

func (s *Subscription) Status() Status {
	if s.e == nil {
		return StatusIdle
	}
	select {
	case <-s.e.done:
		if s.e.err != nil {
			return StatusFailed
		}
		return StatusResolved
	default:
		return StatusPending
	}
}

// Done закрывается, когда запись получила результат. Для idle закрыт сразу.
func (s *Subscription) Done() <-chan struct{} {
	if s.e == nil {
		return closedChan
	}
	return s.e.done
}

// Wait ждет результата записи. Отмена ctx прекращает ожидание только
// этого подписчика, сам запрос доходит до конца.
func (s *Subscription) Wait(ctx context.Context) (any, error) {
	if s.e == nil {
		return nil, ErrIdle
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.e.done:
		return s.e.value, s.e.err
	}
}

// Await - типизированная обертка над Wait
func Await[T any](ctx context.Context, s *Subscription) (T, error) {
	var zero T
	v, err := s.Wait(ctx)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache %q: unexpected payload type %T", s.key, v)
	}
	return typed, nil
}
