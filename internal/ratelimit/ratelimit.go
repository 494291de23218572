package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Limiter - rate limiter на чат (sliding window).
// Не дает одному чату выесть общую квоту Gate.
type Limiter struct {
	mu       sync.Mutex
	requests map[int64][]time.Time
	limit    int
	window   time.Duration
	clock    clockwork.Clock
}

type Config struct {
	RequestsPerMinute int
	Clock             clockwork.Clock
}

func New(cfg Config) *Limiter {
	limit := cfg.RequestsPerMinute
	if limit <= 0 {
		limit = 20
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Limiter{
		requests: make(map[int64][]time.Time),
		limit:    limit,
		window:   time.Minute,
		clock:    clock,
	}
}

func (l *Limiter) Allow(chatID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	fresh := l.freshLocked(chatID, now)
	if len(fresh) >= l.limit {
		return false
	}

	l.requests[chatID] = append(fresh, now)
	return true
}

func (l *Limiter) RemainingRequests(chatID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cnt := len(l.freshLocked(chatID, l.clock.Now()))
	if rem := l.limit - cnt; rem > 0 {
		return rem
	}
	return 0
}

// ResetTime - когда освободится следующий слот
func (l *Limiter) ResetTime(chatID int64) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	fresh := l.freshLocked(chatID, now)
	if len(fresh) == 0 {
		return now
	}
	// timestamps добавляются по возрастанию, самый старый первый
	return fresh[0].Add(l.window)
}

// Run чистит чаты без свежих запросов, пока ctx жив
func (l *Limiter) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = 5 * time.Minute
	}
	tick := l.clock.NewTicker(every)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.Chan():
			l.cleanup()
		}
	}
}

func (l *Limiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	for chatID := range l.requests {
		if len(l.freshLocked(chatID, now)) == 0 {
			delete(l.requests, chatID)
		}
	}
}

// freshLocked выкидывает устаревшие timestamps чата и сохраняет остаток
func (l *Limiter) freshLocked(chatID int64, now time.Time) []time.Time {
	old, ok := l.requests[chatID]
	if !ok {
		return nil
	}

	cutoff := now.Add(-l.window)
	fresh := old[:0] // reuse underlying array
	for _, t := range old {
		if t.After(cutoff) {
			fresh = append(fresh, t)
		}
	}
	l.requests[chatID] = fresh
	return fresh
}

func (l *Limiter) trackedChats() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.requests)
}
