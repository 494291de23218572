package telegram

import (
	"slices"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/kitbuilder587/anime-bot/internal/domain"
	"github.com/kitbuilder587/anime-bot/internal/ratelimit"
)

func ptr[T any](v T) *T { return &v }

func TestVisiblePages(t *testing.T) {
	tests := []struct {
		current, last int
		want          []int
	}{
		{1, 1, []int{1}},
		{2, 3, []int{1, 2, 3}},
		{3, 5, []int{1, 2, 3, 4, 5}},
		{1, 10, []int{1, 2, 3, pageGap, 10}},
		{4, 10, []int{1, 2, 3, 4, 5, 6, pageGap, 10}},
		{5, 10, []int{1, pageGap, 3, 4, 5, 6, 7, pageGap, 10}},
		{7, 10, []int{1, pageGap, 5, 6, 7, 8, 9, 10}},
		{10, 10, []int{1, pageGap, 8, 9, 10}},
	}

	for _, tt := range tests {
		got := VisiblePages(tt.current, tt.last)
		if !slices.Equal(got, tt.want) {
			t.Errorf("VisiblePages(%d, %d) = %v, want %v", tt.current, tt.last, got, tt.want)
		}
	}
}

func TestPaginationKeyboard(t *testing.T) {
	if kb := PaginationKeyboard(domain.Pagination{LastVisiblePage: 1, CurrentPage: 1}); kb != nil {
		t.Error("single page should have no keyboard")
	}

	kb := PaginationKeyboard(domain.Pagination{LastVisiblePage: 10, CurrentPage: 5, HasNextPage: true})
	if kb == nil || len(kb.InlineKeyboard) != 2 {
		t.Fatalf("want numbers row and nav row, got %+v", kb)
	}

	var data []string
	for _, b := range kb.InlineKeyboard[0] {
		data = append(data, *b.CallbackData)
	}
	want := []string{"page:1", noopCallback, "page:3", "page:4", noopCallback, "page:6", "page:7", noopCallback, "page:10"}
	if !slices.Equal(data, want) {
		t.Errorf("numbers row = %v, want %v", data, want)
	}

	nav := kb.InlineKeyboard[1]
	if len(nav) != 2 || *nav[0].CallbackData != "page:4" || *nav[1].CallbackData != "page:6" {
		t.Errorf("unexpected nav row %+v", nav)
	}

	first := PaginationKeyboard(domain.Pagination{LastVisiblePage: 3, CurrentPage: 1, HasNextPage: true})
	if nav := first.InlineKeyboard[1]; len(nav) != 1 || *nav[0].CallbackData != "page:2" {
		t.Errorf("first page should only have next, got %+v", nav)
	}

	last := PaginationKeyboard(domain.Pagination{LastVisiblePage: 3, CurrentPage: 3})
	if nav := last.InlineKeyboard[1]; len(nav) != 1 || *nav[0].CallbackData != "page:2" {
		t.Errorf("last page should only have prev, got %+v", nav)
	}
}

func TestFormatSearchPage(t *testing.T) {
	page := &domain.SearchPage{
		Pagination: domain.Pagination{LastVisiblePage: 3, CurrentPage: 2, Total: 45, PerPage: 20, HasNextPage: true},
		Items: []domain.Anime{
			{ID: 20, Title: "Naruto", TitleEnglish: ptr("Naruto"), Type: ptr("TV"), Score: ptr(8.0)},
			{ID: 1735, Title: "Naruto: Shippuuden", TitleEnglish: ptr("Naruto Shippuden")},
		},
	}

	result := FormatSearchPage("naruto <3", page)

	checks := []string{
		"naruto &lt;3",
		"Страница 2 из 3 (всего 45)",
		"21. <b>Naruto</b> (TV) ★ 8.00",
		"/anime_20",
		"22. <b>Naruto: Shippuuden / Naruto Shippuden</b>",
		"/anime_1735",
	}
	for _, want := range checks {
		if !strings.Contains(result, want) {
			t.Errorf("FormatSearchPage() should contain %q, got:\n%s", want, result)
		}
	}
}

func TestFormatAnimeDetail(t *testing.T) {
	d := &domain.AnimeDetail{
		Anime: domain.Anime{
			ID:            1,
			Title:         "Cowboy Bebop",
			TitleJapanese: "カウボーイビバップ",
			Type:          ptr("TV"),
			Episodes:      ptr(26),
			Status:        "Finished Airing",
			Score:         ptr(8.75),
			Rank:          ptr(28),
			Popularity:    43,
			Synopsis:      "Crime is timeless & <bounty> hunters",
			Genres:        []domain.Genre{{ID: 1, Name: "Action"}, {ID: 24, Name: "Sci-Fi"}},
			Aired:         domain.Aired{String: "Apr 3, 1998 to Apr 24, 1999"},
			Images:        domain.Images{ImageURL: "https://cdn.example/1.jpg"},
		},
		URL:       "https://myanimelist.net/anime/1/Cowboy_Bebop",
		Premiered: ptr("spring 1998"),
	}

	result := FormatAnimeDetail(d)

	checks := []string{
		"<b>Cowboy Bebop</b>",
		"<i>カウボーイビバップ</i>",
		"<b>Эпизоды:</b> 26",
		"<b>Оценка:</b> 8.75",
		"<b>Рейтинг:</b> #28",
		"<b>Жанры:</b> Action, Sci-Fi",
		"<b>Сезон:</b> spring 1998",
		"Crime is timeless &amp; &lt;bounty&gt; hunters",
		`<a href="https://myanimelist.net/anime/1/Cowboy_Bebop">MyAnimeList</a>`,
		`<a href="https://cdn.example/1.jpg">Постер</a>`,
	}
	for _, want := range checks {
		if !strings.Contains(result, want) {
			t.Errorf("FormatAnimeDetail() should contain %q", want)
		}
	}
	if strings.Contains(result, "Предыстория") {
		t.Error("missing background should not be rendered")
	}
	if strings.Contains(result, "Трейлер") {
		t.Error("missing trailer should not be rendered")
	}
}

func TestFormatHistory(t *testing.T) {
	if got := FormatHistory(nil, 0); got != "История просмотров пуста." {
		t.Errorf("FormatHistory(empty) = %q", got)
	}

	got := FormatHistory([]int{5, 20}, 20)
	for _, want := range []string{"1. /anime_5\n", "2. /anime_20 (открыт)", "Всего: 2"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatHistory() should contain %q, got:\n%s", want, got)
		}
	}
}

func TestFormatStatus(t *testing.T) {
	got := FormatStatus(ratelimit.GateStats{CountInWindow: 3, MaxPerWindow: 30}, 7, 19)
	for _, want := range []string{"3 из 30", "Записей в кеше: 7", "Осталось команд в этом чате: 19"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatStatus() should contain %q, got:\n%s", want, got)
		}
	}
}

func TestSplitMessage_Short(t *testing.T) {
	parts := SplitMessage("короткий текст", 100)
	if len(parts) != 1 || parts[0] != "короткий текст" {
		t.Errorf("SplitMessage(short) = %v", parts)
	}
}

func TestSplitMessage_Long(t *testing.T) {
	text := strings.Repeat("слово <b>жирный</b> текст\n", 400)

	parts := SplitMessage(text, maxMessageLen)
	if len(parts) < 2 {
		t.Fatalf("expected several parts, got %d", len(parts))
	}
	for i, p := range parts {
		if len(p) > maxMessageLen {
			t.Errorf("part %d is %d bytes, limit %d", i, len(p), maxMessageLen)
		}
		if !utf8.ValidString(p) {
			t.Errorf("part %d is not valid UTF-8", i)
		}
		if strings.Count(p, "<b>") != strings.Count(p, "</b>") {
			t.Errorf("part %d breaks a tag pair", i)
		}
	}
	if strings.Join(parts, "") != text {
		t.Error("parts should join back into the original text")
	}
}

func TestSplitMessage_NoSpaces(t *testing.T) {
	text := strings.Repeat("я", 3000) // 6000 байт без пробелов

	parts := SplitMessage(text, maxMessageLen)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	for i, p := range parts {
		if !utf8.ValidString(p) {
			t.Errorf("part %d cuts a rune", i)
		}
	}
	if strings.Join(parts, "") != text {
		t.Error("parts should join back into the original text")
	}
}

func TestSafeCuts(t *testing.T) {
	text := `ab <a href="x">l</a> &amp; c`

	tests := []struct {
		pos  int
		want bool
	}{
		{0, true},
		{3, true},   // перед <a
		{5, false},  // внутри тега
		{15, false}, // внутри <a>...</a>
		{20, true},  // после </a>
		{21, true},  // перед &amp;
		{23, false}, // внутри &amp;
		{26, true},  // после ;
	}
	safe := safeCuts(text, len(text)-1)
	for _, tt := range tests {
		if safe[tt.pos] != tt.want {
			t.Errorf("safeCuts[%d] = %v, want %v", tt.pos, safe[tt.pos], tt.want)
		}
	}
}

func TestSplitMessage_KeepsEntity(t *testing.T) {
	text := strings.Repeat("a", maxMessageLen-3) + "&amp;" + strings.Repeat("b", 100)

	parts := SplitMessage(text, maxMessageLen)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if !strings.HasPrefix(parts[1], "&amp;") {
		t.Errorf("entity was split: second part starts with %q", parts[1][:8])
	}
	if strings.Join(parts, "") != text {
		t.Error("parts should join back into the original text")
	}
}

func TestSplitMessage_KeepsTagPair(t *testing.T) {
	text := strings.Repeat("x", 4000) + "<b>" + strings.Repeat("y", 200) + "</b>" + strings.Repeat("z", 100)

	parts := SplitMessage(text, maxMessageLen)
	if len(parts) < 2 {
		t.Fatalf("expected several parts, got %d", len(parts))
	}
	for i, p := range parts {
		if strings.Count(p, "<b>") != strings.Count(p, "</b>") {
			t.Errorf("part %d leaves a tag open: %q", i, p[max(0, len(p)-20):])
		}
	}
	if parts[0] != strings.Repeat("x", 4000) {
		t.Errorf("first part should end before <b>, got %d bytes", len(parts[0]))
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("короткий", 20); got != "короткий" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate("абвгдеёжзи", 5); got != "абвг…" {
		t.Errorf("truncate(long) = %q", got)
	}
}
