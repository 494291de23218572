package domain

import (
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestAnime_DisplayTitle(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		english *string
		want    string
	}{
		{"no english", "Shingeki no Kyojin", nil, "Shingeki no Kyojin"},
		{"empty english", "Shingeki no Kyojin", strPtr(""), "Shingeki no Kyojin"},
		{"same english", "Naruto", strPtr("Naruto"), "Naruto"},
		{"different english", "Shingeki no Kyojin", strPtr("Attack on Titan"), "Shingeki no Kyojin / Attack on Titan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Anime{Title: tt.title, TitleEnglish: tt.english}
			if got := a.DisplayTitle(); got != tt.want {
				t.Errorf("DisplayTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnime_Year(t *testing.T) {
	var a Anime
	if a.Year() != 0 {
		t.Errorf("Year() without date = %d, want 0", a.Year())
	}

	from := time.Date(1998, time.April, 3, 0, 0, 0, 0, time.UTC)
	a.Aired.From = &from
	if a.Year() != 1998 {
		t.Errorf("Year() = %d, want 1998", a.Year())
	}
}

func TestPagination_Contains(t *testing.T) {
	tests := []struct {
		name string
		p    Pagination
		page int
		want bool
	}{
		{"first", Pagination{LastVisiblePage: 5}, 1, true},
		{"last", Pagination{LastVisiblePage: 5}, 5, true},
		{"past last", Pagination{LastVisiblePage: 5}, 6, false},
		{"zero", Pagination{LastVisiblePage: 5}, 0, false},
		{"empty result has one page", Pagination{LastVisiblePage: 0}, 1, true},
		{"empty result second page", Pagination{LastVisiblePage: 0}, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Contains(tt.page); got != tt.want {
				t.Errorf("Contains(%d) = %v, want %v", tt.page, got, tt.want)
			}
		})
	}
}
