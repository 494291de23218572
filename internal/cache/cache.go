package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/anime-bot/internal/metrics"
)

// Fetcher делает сам запрос к API
type Fetcher func(ctx context.Context) (any, error)

// Acquirer - разрешение на один исходящий запрос (ratelimit.Gate)
type Acquirer interface {
	Acquire(ctx context.Context) error
}

type entry struct {
	key  string
	tags []string

	// запрос предыдущей записи с тем же ключом, выкинутой пока он шел
	prev *entry

	// value/err пишутся один раз до close(done)
	done  chan struct{}
	value any
	err   error
}

// Cache - кеш ответов API с дедупликацией запросов.
// Записи живут до инвалидации по тегу, вытеснения нет.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	byTag   map[string]map[string]struct{}
	// последняя запущенная запись по ключу, пока ее запрос не завершился.
	// Переживает инвалидацию, чтобы на ключ шел максимум один запрос.
	running map[string]*entry

	gate    Acquirer
	logger  *zap.Logger
	metrics *metrics.Metrics

	inflight sync.WaitGroup
}

type Option func(*Cache)

func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

func New(gate Acquirer, opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]*entry),
		byTag:   make(map[string]map[string]struct{}),
		running: make(map[string]*entry),
		gate:    gate,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query возвращает подписку на запись key. Если записи нет, создает
// pending-запись и запускает ровно один fetch через gate.
// Pending, resolved и failed записи отдаются как есть, без нового запроса.
// Если по ключу еще идет запрос выкинутой записи, новый fetch стартует
// только после его завершения.
func (c *Cache) Query(key string, tags []string, fetch Fetcher) *Subscription {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.RecordCacheHit()
		}
		return &Subscription{key: key, e: e, hit: true}
	}

	e := &entry{
		key:  key,
		tags: append([]string(nil), tags...),
		prev: c.running[key],
		done: make(chan struct{}),
	}
	c.entries[key] = e
	c.running[key] = e
	for _, tag := range e.tags {
		keys, ok := c.byTag[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.byTag[tag] = keys
		}
		keys[key] = struct{}{}
	}
	size := len(c.entries)
	c.inflight.Add(1)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordCacheMiss()
		c.metrics.SetCacheEntries(size)
	}

	go c.run(e, fetch)

	return &Subscription{key: key, e: e}
}

// Peek - подписка на существующую запись без запуска запроса
func (c *Cache) Peek(key string) (*Subscription, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return &Subscription{key: key, e: e, hit: true}, true
}

func (c *Cache) run(e *entry, fetch Fetcher) {
	defer c.inflight.Done()

	if e.prev != nil {
		<-e.prev.done
		e.prev = nil
	}

	// подписчики не отменяют запрос: он всегда доходит до результата
	ctx := context.Background()
	start := time.Now()

	value, err := c.fetch(ctx, e, fetch)
	e.value, e.err = value, err
	close(e.done)

	c.mu.Lock()
	if c.running[e.key] == e {
		delete(c.running, e.key)
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("query failed",
			zap.String("key", e.key),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return
	}

	c.logger.Debug("query resolved",
		zap.String("key", e.key),
		zap.Duration("duration", time.Since(start)),
	)
}

func (c *Cache) fetch(ctx context.Context, e *entry, fetch Fetcher) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic in fetcher",
				zap.String("key", e.key),
				zap.Any("panic", r),
			)
			value, err = nil, fmt.Errorf("fetch %q: panic: %v", e.key, r)
		}
	}()

	if c.gate != nil {
		if err := c.gate.Acquire(ctx); err != nil {
			return nil, fmt.Errorf("acquire rate limit: %w", err)
		}
	}
	return fetch(ctx)
}

// Invalidate выкидывает все записи с любым из тегов.
// Запрос, уже идущий для выкинутой записи, отдаст результат только своим
// подписчикам. Следующий Query сделает новый запрос после его завершения.
func (c *Cache) Invalidate(tags ...string) int {
	c.mu.Lock()

	dropped := make(map[string]int, len(tags))
	total := 0
	for _, tag := range tags {
		for key := range c.byTag[tag] {
			e, ok := c.entries[key]
			if !ok {
				continue
			}
			c.removeLocked(e)
			dropped[tag]++
			total++
		}
		delete(c.byTag, tag)
	}
	size := len(c.entries)
	c.mu.Unlock()

	if total > 0 {
		c.logger.Debug("cache invalidated",
			zap.Strings("tags", tags),
			zap.Int("dropped", total),
		)
	}
	if c.metrics != nil {
		for tag, n := range dropped {
			c.metrics.RecordInvalidation(tag, n)
		}
		c.metrics.SetCacheEntries(size)
	}
	return total
}

func (c *Cache) removeLocked(e *entry) {
	delete(c.entries, e.key)
	for _, tag := range e.tags {
		keys := c.byTag[tag]
		delete(keys, e.key)
		if len(keys) == 0 {
			delete(c.byTag, tag)
		}
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Wait ждет завершения всех запущенных запросов
func (c *Cache) Wait() {
	c.inflight.Wait()
}
