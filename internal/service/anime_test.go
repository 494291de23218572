package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kitbuilder587/anime-bot/internal/cache"
	"github.com/kitbuilder587/anime-bot/internal/domain"
	"github.com/kitbuilder587/anime-bot/internal/jikan"
	"github.com/kitbuilder587/anime-bot/internal/jikan/mock"
	"github.com/kitbuilder587/anime-bot/internal/metrics"
	"github.com/kitbuilder587/anime-bot/internal/ratelimit"
)

func testCatalog() []domain.AnimeDetail {
	return []domain.AnimeDetail{
		{Anime: domain.Anime{ID: 5, Title: "Cowboy Bebop: Tengoku no Tobira"}},
		{Anime: domain.Anime{ID: 20, Title: "Naruto"}},
		{Anime: domain.Anime{ID: 1735, Title: "Naruto: Shippuuden"}},
	}
}

func newTestService(t *testing.T, client jikan.AnimeClient) (*AnimeService, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	gate := ratelimit.NewGate(ratelimit.GateConfig{MinInterval: 0, MaxPerWindow: 1000})
	c := cache.New(gate, cache.WithMetrics(m))
	svc := NewAnimeService(AnimeServiceDeps{
		Client:  client,
		Cache:   c,
		Logger:  zap.NewNop(),
		Metrics: m,
	})
	return svc, m
}

func ctxT(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "anime:naruto:1:20", SearchKey(domain.SearchParams{Query: "naruto", Page: 1, Limit: 20}))
	assert.Equal(t, "anime:naruto:2:20", SearchKey(domain.SearchParams{Query: "naruto", Page: 2, Limit: 20}))
	assert.Equal(t, "animeById:5", DetailKey(5))
	assert.Equal(t, "AnimeDetail:5", DetailTag(5))
}

func TestAnimeService_SearchPagesAreDistinctKeys(t *testing.T) {
	client := mock.New().WithCatalog(testCatalog()...)
	svc, _ := newTestService(t, client)
	ctx := ctxT(t)

	p1 := domain.SearchParams{Query: "naruto", Page: 1, Limit: 20}
	_, err := svc.SearchAnime(ctx, p1)
	require.NoError(t, err)
	_, err = svc.SearchAnime(ctx, p1)
	require.NoError(t, err)

	search, _ := client.Calls()
	assert.Equal(t, 1, search, "same key is served from the cache")

	page, err := svc.SearchAnime(ctx, domain.SearchParams{Query: "naruto", Page: 2, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Pagination.CurrentPage)

	search, _ = client.Calls()
	assert.Equal(t, 2, search, "next page triggers a second fetch")
}

func TestAnimeService_ConcurrentSearchFetchesOnce(t *testing.T) {
	client := mock.New().WithCatalog(testCatalog()...).WithDelay(50 * time.Millisecond)
	svc, _ := newTestService(t, client)
	ctx := ctxT(t)

	params := domain.SearchParams{Query: "naruto", Page: 1, Limit: 20}

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			page, err := svc.SearchAnime(ctx, params)
			if err == nil && page.Pagination.Total != 2 {
				err = errors.New("unexpected total")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	search, _ := client.Calls()
	assert.Equal(t, 1, search)
}

func TestAnimeService_SkipIsIdle(t *testing.T) {
	client := mock.New()
	svc, _ := newTestService(t, client)

	assert.Equal(t, cache.StatusIdle, svc.Search(domain.SearchParams{Query: "naruto", Page: 1, Limit: 20}, true).Status())
	assert.Equal(t, cache.StatusIdle, svc.Search(domain.SearchParams{Query: "   ", Page: 1, Limit: 20}, false).Status())
	assert.Equal(t, cache.StatusIdle, svc.Detail(5, true).Status())
	assert.Equal(t, cache.StatusIdle, svc.Detail(0, false).Status())

	search, detail := client.Calls()
	assert.Zero(t, search)
	assert.Zero(t, detail)
	assert.Zero(t, svc.CacheSize())
}

func TestAnimeService_InvalidateDetailRefetches(t *testing.T) {
	client := mock.New().WithCatalog(testCatalog()...)
	svc, _ := newTestService(t, client)
	ctx := ctxT(t)

	detail, err := svc.AnimeByID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "Cowboy Bebop: Tengoku no Tobira", detail.Title)

	_, err = svc.AnimeByID(ctx, 5)
	require.NoError(t, err)
	_, calls := client.Calls()
	assert.Equal(t, 1, calls)

	assert.Equal(t, 1, svc.InvalidateAnime(5))

	_, err = svc.AnimeByID(ctx, 5)
	require.NoError(t, err)
	_, calls = client.Calls()
	assert.Equal(t, 2, calls)
}

func TestAnimeService_InvalidateSearch(t *testing.T) {
	client := mock.New().WithCatalog(testCatalog()...)
	svc, _ := newTestService(t, client)
	ctx := ctxT(t)

	svc.SearchAnime(ctx, domain.SearchParams{Query: "naruto", Page: 1, Limit: 20})
	svc.SearchAnime(ctx, domain.SearchParams{Query: "bebop", Page: 1, Limit: 20})
	svc.AnimeByID(ctx, 20)

	assert.Equal(t, 2, svc.InvalidateSearch())
	assert.Equal(t, 1, svc.CacheSize(), "detail entries are not tagged Anime")
}

func TestAnimeService_InvalidIDNeverReachesNetwork(t *testing.T) {
	client := mock.New().WithCatalog(testCatalog()...)
	svc, _ := newTestService(t, client)

	_, err := svc.AnimeByID(ctxT(t), 0)
	require.ErrorIs(t, err, domain.ErrInvalidParameters)

	_, calls := client.Calls()
	assert.Zero(t, calls)
}

func TestAnimeService_SearchValidation(t *testing.T) {
	svc, _ := newTestService(t, mock.New())

	_, err := svc.SearchAnime(ctxT(t), domain.SearchParams{Query: " ", Page: 1, Limit: 20})
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)

	_, err = svc.SearchAnime(ctxT(t), domain.SearchParams{Query: "x", Page: 0, Limit: 20})
	assert.ErrorIs(t, err, domain.ErrInvalidParameters)
}

func TestAnimeService_ErrorsAreTerminal(t *testing.T) {
	netErr := &jikan.NetworkError{Err: errors.New("connection refused")}
	client := mock.New().WithError(netErr)
	svc, m := newTestService(t, client)
	ctx := ctxT(t)

	_, err := svc.AnimeByID(ctx, 5)
	var got *jikan.NetworkError
	require.ErrorAs(t, err, &got)

	// клиент уже здоров, но запись failed до инвалидации
	client.WithError(nil).WithCatalog(testCatalog()...)
	_, err = svc.AnimeByID(ctx, 5)
	require.ErrorAs(t, err, &got)
	_, calls := client.Calls()
	assert.Equal(t, 1, calls)

	svc.InvalidateAnime(5)
	_, err = svc.AnimeByID(ctx, 5)
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.APIRequestsTotal.WithLabelValues("detail", "network_error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.APIRequestsTotal.WithLabelValues("detail", "ok")))
}

func TestAnimeService_NotFound(t *testing.T) {
	svc, m := newTestService(t, mock.New().WithCatalog(testCatalog()...))

	_, err := svc.AnimeByID(ctxT(t), 404)
	assert.ErrorIs(t, err, jikan.ErrNotFound)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.APIRequestsTotal.WithLabelValues("detail", "http_404")))
}

func TestAnimeService_LogsRequests(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	svc := NewAnimeService(AnimeServiceDeps{
		Client: mock.New().WithCatalog(testCatalog()...),
		Logger: zap.New(core),
	})

	_, err := svc.AnimeByID(ctxT(t), 20)
	require.NoError(t, err)

	entries := logs.FilterMessage("catalog request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "detail", entries[0].ContextMap()["endpoint"])
}

func TestParseAnimeID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"5", 5, false},
		{" 20 ", 20, false},
		{"", 0, true},
		{"abc", 0, true},
		{"0", 0, true},
		{"-3", 0, true},
		{"1.5", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAnimeID(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidParameters)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", outcome(nil))
	assert.Equal(t, "network_error", outcome(&jikan.NetworkError{Err: errors.New("x")}))
	assert.Equal(t, "http_429", outcome(&jikan.HTTPError{Status: 429}))
	assert.Equal(t, "decode_error", outcome(&jikan.DecodeError{Err: errors.New("x")}))
	assert.Equal(t, "invalid_parameters", outcome(domain.ErrInvalidParameters))
	assert.Equal(t, "error", outcome(errors.New("other")))
}
