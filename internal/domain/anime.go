package domain

import "time"

type Genre struct {
	ID   int
	Name string
}

type Images struct {
	ImageURL      string
	SmallImageURL string
	LargeImageURL string
}

type Aired struct {
	From   *time.Time
	To     *time.Time
	String string
}

type Trailer struct {
	YouTubeID string
	URL       string
}

// Anime - карточка тайтла из выдачи поиска.
// Опциональные поля каталога - указатели, nil значит "нет данных".
type Anime struct {
	ID            int
	Title         string
	TitleEnglish  *string
	TitleJapanese string
	Images        Images
	Type          *string
	Episodes      *int
	Status        string
	Score         *float64
	Rank          *int
	Popularity    int
	Members       int
	Favorites     int
	Synopsis      string
	Genres        []Genre
	Aired         Aired
}

// AnimeDetail - полная страница тайтла
type AnimeDetail struct {
	Anime
	URL        string
	Background *string
	Premiered  *string
	Trailer    *Trailer
}

func (a *Anime) DisplayTitle() string {
	if a.TitleEnglish != nil && *a.TitleEnglish != "" && *a.TitleEnglish != a.Title {
		return a.Title + " / " + *a.TitleEnglish
	}
	return a.Title
}

func (a *Anime) Year() int {
	if a.Aired.From == nil {
		return 0
	}
	return a.Aired.From.Year()
}

type Pagination struct {
	LastVisiblePage int
	HasNextPage     bool
	CurrentPage     int
	Count           int
	Total           int
	PerPage         int
}

// Contains - попадает ли страница в известный диапазон выдачи
func (p Pagination) Contains(page int) bool {
	last := p.LastVisiblePage
	if last < 1 {
		last = 1
	}
	return page >= 1 && page <= last
}

type SearchPage struct {
	Pagination Pagination
	Items      []Anime
}
