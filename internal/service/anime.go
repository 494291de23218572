package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/anime-bot/internal/cache"
	"github.com/kitbuilder587/anime-bot/internal/domain"
	"github.com/kitbuilder587/anime-bot/internal/jikan"
	"github.com/kitbuilder587/anime-bot/internal/metrics"
)

const (
	EndpointSearch = "anime"
	EndpointDetail = "animeById"

	TagAnime       = "Anime"
	TagAnimeDetail = "AnimeDetail"
)

// DetailTag - тег одной карточки, "AnimeDetail:<id>"
func DetailTag(id int) string {
	return TagAnimeDetail + ":" + strconv.Itoa(id)
}

func SearchKey(p domain.SearchParams) string {
	return cache.MakeKey(EndpointSearch, p.Query, strconv.Itoa(p.Page), strconv.Itoa(p.Limit))
}

func DetailKey(id int) string {
	return cache.MakeKey(EndpointDetail, strconv.Itoa(id))
}

// ParseAnimeID - локальная проверка id из команды, до сети такие ошибки не доходят
func ParseAnimeID(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: anime id %q", domain.ErrInvalidParameters, raw)
	}
	return id, nil
}

type AnimeServiceDeps struct {
	Client  jikan.AnimeClient
	Cache   *cache.Cache
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// AnimeService - эндпоинты каталога поверх кеша и общего rate limit
type AnimeService struct {
	client  jikan.AnimeClient
	cache   *cache.Cache
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewAnimeService(deps AnimeServiceDeps) *AnimeService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Cache == nil {
		deps.Cache = cache.New(nil, cache.WithLogger(deps.Logger), cache.WithMetrics(deps.Metrics))
	}

	return &AnimeService{
		client:  deps.Client,
		cache:   deps.Cache,
		logger:  deps.Logger,
		metrics: deps.Metrics,
	}
}

// Search - подписка на страницу выдачи; skip дает idle без запроса
func (s *AnimeService) Search(params domain.SearchParams, skip bool) *cache.Subscription {
	params.Sanitize()
	if skip || params.Query == "" {
		return cache.Idle()
	}

	return s.cache.Query(SearchKey(params), []string{TagAnime}, func(ctx context.Context) (any, error) {
		return s.instrument(ctx, "search", func(ctx context.Context) (any, error) {
			return s.client.SearchAnime(ctx, params)
		})
	})
}

func (s *AnimeService) Detail(id int, skip bool) *cache.Subscription {
	if skip || id <= 0 {
		return cache.Idle()
	}

	tags := []string{TagAnimeDetail, DetailTag(id)}
	return s.cache.Query(DetailKey(id), tags, func(ctx context.Context) (any, error) {
		return s.instrument(ctx, "detail", func(ctx context.Context) (any, error) {
			return s.client.GetAnimeByID(ctx, id)
		})
	})
}

func (s *AnimeService) SearchAnime(ctx context.Context, params domain.SearchParams) (*domain.SearchPage, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return cache.Await[*domain.SearchPage](ctx, s.Search(params, false))
}

func (s *AnimeService) AnimeByID(ctx context.Context, id int) (*domain.AnimeDetail, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: anime id %d", domain.ErrInvalidParameters, id)
	}
	return cache.Await[*domain.AnimeDetail](ctx, s.Detail(id, false))
}

func (s *AnimeService) InvalidateSearch() int {
	return s.cache.Invalidate(TagAnime)
}

func (s *AnimeService) InvalidateAnime(id int) int {
	return s.cache.Invalidate(DetailTag(id))
}

func (s *AnimeService) CacheSize() int {
	return s.cache.Len()
}

func (s *AnimeService) instrument(ctx context.Context, endpoint string, call func(context.Context) (any, error)) (any, error) {
	start := time.Now()
	v, err := call(ctx)
	duration := time.Since(start)

	status := outcome(err)
	if s.metrics != nil {
		s.metrics.RecordAPIRequest(endpoint, status, duration)
	}

	if err != nil {
		s.logger.Warn("catalog request failed",
			zap.String("endpoint", endpoint),
			zap.String("outcome", status),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("catalog request",
		zap.String("endpoint", endpoint),
		zap.Duration("duration", duration),
	)
	return v, nil
}

// outcome - метка метрики по таксономии ошибок
func outcome(err error) string {
	var (
		netErr    *jikan.NetworkError
		httpErr   *jikan.HTTPError
		decodeErr *jikan.DecodeError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &netErr):
		return "network_error"
	case errors.As(err, &httpErr):
		return "http_" + strconv.Itoa(httpErr.Status)
	case errors.As(err, &decodeErr):
		return "decode_error"
	case errors.Is(err, domain.ErrInvalidParameters):
		return "invalid_parameters"
	default:
		return "error"
	}
}
