package jikan

import (
	"time"

	"github.com/kitbuilder587/anime-bot/internal/domain"
)

type apiImage struct {
	ImageURL      string `json:"image_url"`
	SmallImageURL string `json:"small_image_url"`
	LargeImageURL string `json:"large_image_url"`
}

type apiImages struct {
	JPG  apiImage `json:"jpg"`
	WebP apiImage `json:"webp"`
}

type apiGenre struct {
	MalID int    `json:"mal_id"`
	Name  string `json:"name"`
}

type apiAired struct {
	From   *string `json:"from"`
	To     *string `json:"to"`
	String string  `json:"string"`
}

type apiTrailer struct {
	YouTubeID *string `json:"youtube_id"`
	URL       *string `json:"url"`
}

type apiAnime struct {
	MalID         int         `json:"mal_id"`
	URL           string      `json:"url"`
	Title         string      `json:"title"`
	TitleEnglish  *string     `json:"title_english"`
	TitleJapanese string      `json:"title_japanese"`
	Images        apiImages   `json:"images"`
	Synopsis      *string     `json:"synopsis"`
	Type          *string     `json:"type"`
	Episodes      *int        `json:"episodes"`
	Status        string      `json:"status"`
	Score         *float64    `json:"score"`
	Rank          *int        `json:"rank"`
	Popularity    int         `json:"popularity"`
	Members       int         `json:"members"`
	Favorites     int         `json:"favorites"`
	Genres        []apiGenre  `json:"genres"`
	Aired         apiAired    `json:"aired"`
	Background    *string     `json:"background"`
	Premiered     *string     `json:"premiered"`
	Trailer       *apiTrailer `json:"trailer"`
}

type apiPagination struct {
	LastVisiblePage int  `json:"last_visible_page"`
	HasNextPage     bool `json:"has_next_page"`
	CurrentPage     int  `json:"current_page"`
	Items           struct {
		Count   int `json:"count"`
		Total   int `json:"total"`
		PerPage int `json:"per_page"`
	} `json:"items"`
}

type searchResponse struct {
	Pagination *apiPagination `json:"pagination"`
	Data       []apiAnime     `json:"data"`
}

type detailResponse struct {
	Data *apiAnime `json:"data"`
}

type errorResponse struct {
	Status  any    `json:"status"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (a *apiAnime) toDomain() domain.Anime {
	genres := make([]domain.Genre, len(a.Genres))
	for i, g := range a.Genres {
		genres[i] = domain.Genre{ID: g.MalID, Name: g.Name}
	}

	var synopsis string
	if a.Synopsis != nil {
		synopsis = *a.Synopsis
	}

	return domain.Anime{
		ID:            a.MalID,
		Title:         a.Title,
		TitleEnglish:  a.TitleEnglish,
		TitleJapanese: a.TitleJapanese,
		Images: domain.Images{
			ImageURL:      a.Images.JPG.ImageURL,
			SmallImageURL: a.Images.JPG.SmallImageURL,
			LargeImageURL: a.Images.JPG.LargeImageURL,
		},
		Type:       a.Type,
		Episodes:   a.Episodes,
		Status:     a.Status,
		Score:      a.Score,
		Rank:       a.Rank,
		Popularity: a.Popularity,
		Members:    a.Members,
		Favorites:  a.Favorites,
		Synopsis:   synopsis,
		Genres:     genres,
		Aired: domain.Aired{
			From:   parseTime(a.Aired.From),
			To:     parseTime(a.Aired.To),
			String: a.Aired.String,
		},
	}
}

func (a *apiAnime) toDetail() *domain.AnimeDetail {
	d := &domain.AnimeDetail{
		Anime:      a.toDomain(),
		URL:        a.URL,
		Background: nonEmpty(a.Background),
		Premiered:  nonEmpty(a.Premiered),
	}
	if a.Trailer != nil && a.Trailer.YouTubeID != nil && *a.Trailer.YouTubeID != "" {
		d.Trailer = &domain.Trailer{YouTubeID: *a.Trailer.YouTubeID}
		if a.Trailer.URL != nil {
			d.Trailer.URL = *a.Trailer.URL
		}
	}
	return d
}

func (p *apiPagination) toDomain() domain.Pagination {
	return domain.Pagination{
		LastVisiblePage: p.LastVisiblePage,
		HasNextPage:     p.HasNextPage,
		CurrentPage:     p.CurrentPage,
		Count:           p.Items.Count,
		Total:           p.Items.Total,
		PerPage:         p.Items.PerPage,
	}
}

// parseTime - даты каталога в RFC3339, битая дата считается отсутствующей
func parseTime(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil
	}
	return &t
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
