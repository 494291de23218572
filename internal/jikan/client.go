package jikan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/anime-bot/internal/domain"
)

const (
	DefaultBaseURL = "https://api.jikan.moe/v4"
	DefaultTimeout = 15 * time.Second

	maxBodySize = 4 << 20
)

// AnimeClient - доступ к каталогу аниме
type AnimeClient interface {
	SearchAnime(ctx context.Context, params domain.SearchParams) (*domain.SearchPage, error)
	GetAnimeByID(ctx context.Context, id int) (*domain.AnimeDetail, error)
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

// SearchAnime - GET /anime?q=&page=&limit=
// Повторов нет: ошибка отдается как есть, повтор решает вызывающий.
func (c *Client) SearchAnime(ctx context.Context, params domain.SearchParams) (*domain.SearchPage, error) {
	q := url.Values{}
	q.Set("q", params.Query)
	q.Set("page", strconv.Itoa(params.Page))
	q.Set("limit", strconv.Itoa(params.Limit))

	var resp searchResponse
	if err := c.get(ctx, "/anime", q, &resp); err != nil {
		return nil, err
	}
	if resp.Pagination == nil {
		return nil, &DecodeError{Err: errors.New("missing pagination")}
	}

	items := make([]domain.Anime, len(resp.Data))
	for i := range resp.Data {
		items[i] = resp.Data[i].toDomain()
	}

	return &domain.SearchPage{
		Pagination: resp.Pagination.toDomain(),
		Items:      items,
	}, nil
}

// GetAnimeByID - GET /anime/{id}
func (c *Client) GetAnimeByID(ctx context.Context, id int) (*domain.AnimeDetail, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: anime id %d", domain.ErrInvalidParameters, id)
	}

	var resp detailResponse
	if err := c.get(ctx, "/anime/"+strconv.Itoa(id), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, &DecodeError{Err: errors.New("missing data")}
	}

	return resp.Data.toDetail(), nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &NetworkError{Err: fmt.Errorf("read response: %w", err)}
	}

	c.logger.Debug("catalog response",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{Status: resp.StatusCode, Message: errorMessage(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}

// errorMessage достает текст ошибки из тела, если это json каталога
func errorMessage(body []byte) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}
