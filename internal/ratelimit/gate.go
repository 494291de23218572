package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kitbuilder587/anime-bot/internal/metrics"
)

const (
	DefaultMinInterval  = 500 * time.Millisecond
	DefaultMaxPerWindow = 30
	DefaultWindow       = time.Minute
)

type GateConfig struct {
	MinInterval  time.Duration
	MaxPerWindow int
	Window       time.Duration
}

// Gate - общий на процесс шлюз исходящих запросов к каталогу.
// Держит минимальный интервал между запросами и квоту на окно.
// Слот выдается под мьютексом, ожидание идет снаружи, поэтому очередь FIFO.
type Gate struct {
	mu      sync.Mutex
	cfg     GateConfig
	spacing *rate.Limiter

	windowStart   time.Time
	countInWindow int
	lastIssue     time.Time

	clock   clockwork.Clock
	logger  *zap.Logger
	metrics *metrics.Metrics
}

type GateOption func(*Gate)

func WithClock(c clockwork.Clock) GateOption {
	return func(g *Gate) { g.clock = c }
}

func WithLogger(l *zap.Logger) GateOption {
	return func(g *Gate) { g.logger = l }
}

func WithMetrics(m *metrics.Metrics) GateOption {
	return func(g *Gate) { g.metrics = m }
}

func NewGate(cfg GateConfig, opts ...GateOption) *Gate {
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	if cfg.MaxPerWindow <= 0 {
		cfg.MaxPerWindow = DefaultMaxPerWindow
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}

	g := &Gate{
		cfg:     cfg,
		spacing: rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		clock:   clockwork.NewRealClock(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Acquire возвращается, когда вызывающему можно сделать ровно один запрос.
// Зарезервированный слот не возвращается даже при отмене ctx.
func (g *Gate) Acquire(ctx context.Context) error {
	now := g.clock.Now()
	at := g.reserve(now)
	wait := at.Sub(now)

	if g.metrics != nil {
		g.metrics.RecordRateLimitWait(wait)
	}

	if wait <= 0 {
		return nil
	}

	g.logger.Debug("rate limit wait",
		zap.Duration("wait", wait),
		zap.Time("issue_at", at),
	)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-g.clock.After(wait):
		return nil
	}
}

// reserve считает момент выдачи следующего слота и фиксирует его
func (g *Gate) reserve(now time.Time) time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()

	// очередь: время слотов не убывает
	at := now
	if at.Before(g.lastIssue) {
		at = g.lastIssue
	}

	if g.windowStart.IsZero() || at.Sub(g.windowStart) > g.cfg.Window {
		g.windowStart = at
		g.countInWindow = 0
	}

	if g.countInWindow >= g.cfg.MaxPerWindow {
		at = g.windowStart.Add(g.cfg.Window)
		g.windowStart = at
		g.countInWindow = 0
	}

	// float-арифметика rate дает наносекундный шум
	delay := g.spacing.ReserveN(at, 1).DelayFrom(at).Round(time.Microsecond)
	at = at.Add(delay)

	g.lastIssue = at
	g.countInWindow++
	return at
}

type GateStats struct {
	CountInWindow int
	MaxPerWindow  int
	WindowStart   time.Time
	LastIssue     time.Time
}

func (g *Gate) Stats() GateStats {
	g.mu.Lock()
	defer g.mu.Unlock()

	return GateStats{
		CountInWindow: g.countInWindow,
		MaxPerWindow:  g.cfg.MaxPerWindow,
		WindowStart:   g.windowStart,
		LastIssue:     g.lastIssue,
	}
}
