package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kitbuilder587/anime-bot/internal/domain"
	"github.com/kitbuilder587/anime-bot/internal/jikan"
)

// Client - каталог в памяти для тестов
type Client struct {
	Catalog []domain.AnimeDetail
	Error   error
	Delay   time.Duration

	SearchCalls  int
	DetailCalls  int
	LastSearch   domain.SearchParams
	LastDetailID int

	mu sync.Mutex
}

func New() *Client {
	return &Client{}
}

func (c *Client) WithCatalog(items ...domain.AnimeDetail) *Client {
	c.Catalog = items
	return c
}

func (c *Client) WithError(err error) *Client {
	c.Error = err
	return c
}

func (c *Client) WithDelay(delay time.Duration) *Client {
	c.Delay = delay
	return c
}

func (c *Client) SearchAnime(ctx context.Context, params domain.SearchParams) (*domain.SearchPage, error) {
	c.mu.Lock()
	c.SearchCalls++
	c.LastSearch = params
	catalog, err, delay := c.Catalog, c.Error, c.Delay
	c.mu.Unlock()

	if err := sleep(ctx, delay); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	var matched []domain.Anime
	for _, a := range catalog {
		if containsFold(a.Title, params.Query) {
			matched = append(matched, a.Anime)
		}
	}

	limit := params.Limit
	if limit <= 0 {
		limit = domain.DefaultResultsPerPage
	}
	page := params.Page
	if page < 1 {
		page = 1
	}

	last := (len(matched) + limit - 1) / limit
	if last < 1 {
		last = 1
	}

	from := (page - 1) * limit
	to := from + limit
	if from > len(matched) {
		from = len(matched)
	}
	if to > len(matched) {
		to = len(matched)
	}
	items := append([]domain.Anime(nil), matched[from:to]...)

	return &domain.SearchPage{
		Pagination: domain.Pagination{
			LastVisiblePage: last,
			HasNextPage:     page < last,
			CurrentPage:     page,
			Count:           len(items),
			Total:           len(matched),
			PerPage:         limit,
		},
		Items: items,
	}, nil
}

func (c *Client) GetAnimeByID(ctx context.Context, id int) (*domain.AnimeDetail, error) {
	c.mu.Lock()
	c.DetailCalls++
	c.LastDetailID = id
	catalog, err, delay := c.Catalog, c.Error, c.Delay
	c.mu.Unlock()

	if err := sleep(ctx, delay); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	for i := range catalog {
		if catalog[i].ID == id {
			detail := catalog[i]
			return &detail, nil
		}
	}
	return nil, &jikan.HTTPError{Status: 404, Message: fmt.Sprintf("anime %d does not exist", id)}
}

func (c *Client) Calls() (search, detail int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.SearchCalls, c.DetailCalls
}

func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SearchCalls = 0
	c.DetailCalls = 0
	c.LastSearch = domain.SearchParams{}
	c.LastDetailID = 0
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
