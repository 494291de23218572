package telegram

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kitbuilder587/anime-bot/internal/domain"
	"github.com/kitbuilder587/anime-bot/internal/ratelimit"
)

const (
	maxMessageLen = 4096 // лимит телеграма
	maxVisible    = 5
	// ellipsis в списке страниц
	pageGap = -1

	noopCallback = "noop"
)

// VisiblePages - окно до пяти страниц вокруг текущей, плюс первая и последняя
// через pageGap, если они не попали в окно
func VisiblePages(current, last int) []int {
	if last <= maxVisible {
		pages := make([]int, 0, last)
		for i := 1; i <= last; i++ {
			pages = append(pages, i)
		}
		return pages
	}

	start := max(1, current-2)
	end := min(last, current+2)

	var pages []int
	if start > 1 {
		pages = append(pages, 1)
		if start > 2 {
			pages = append(pages, pageGap)
		}
	}
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	if end < last {
		if end < last-1 {
			pages = append(pages, pageGap)
		}
		pages = append(pages, last)
	}
	return pages
}

// PaginationKeyboard - nil, если страница одна
func PaginationKeyboard(p domain.Pagination) *tgbotapi.InlineKeyboardMarkup {
	if p.LastVisiblePage <= 1 {
		return nil
	}

	var numbers []tgbotapi.InlineKeyboardButton
	for _, page := range VisiblePages(p.CurrentPage, p.LastVisiblePage) {
		switch {
		case page == pageGap:
			numbers = append(numbers, tgbotapi.NewInlineKeyboardButtonData("…", noopCallback))
		case page == p.CurrentPage:
			numbers = append(numbers, tgbotapi.NewInlineKeyboardButtonData("· "+strconv.Itoa(page)+" ·", noopCallback))
		default:
			numbers = append(numbers, tgbotapi.NewInlineKeyboardButtonData(strconv.Itoa(page), pageCallbackData(page)))
		}
	}

	var nav []tgbotapi.InlineKeyboardButton
	if p.CurrentPage > 1 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("‹ Назад", pageCallbackData(p.CurrentPage-1)))
	}
	if p.HasNextPage {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Вперед ›", pageCallbackData(p.CurrentPage+1)))
	}

	rows := [][]tgbotapi.InlineKeyboardButton{tgbotapi.NewInlineKeyboardRow(numbers...)}
	if len(nav) > 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(nav...))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

func FormatSearchPage(query string, page *domain.SearchPage) string {
	p := page.Pagination

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>Поиск: %s</b>\n", html.EscapeString(query))
	fmt.Fprintf(&sb, "Страница %d из %d (всего %d)\n\n", p.CurrentPage, max(p.LastVisiblePage, 1), p.Total)

	perPage := p.PerPage
	if perPage < 1 {
		perPage = len(page.Items)
	}
	offset := (max(p.CurrentPage, 1) - 1) * perPage

	for i := range page.Items {
		a := &page.Items[i]
		fmt.Fprintf(&sb, "%d. <b>%s</b>", offset+i+1, html.EscapeString(truncate(a.DisplayTitle(), 120)))
		if meta := shortMeta(a); meta != "" {
			sb.WriteString(" " + meta)
		}
		fmt.Fprintf(&sb, "\n   /anime_%d\n", a.ID)
	}

	return strings.TrimRight(sb.String(), "\n")
}

// shortMeta: "(TV, 2004) ★ 8.78"
func shortMeta(a *domain.Anime) string {
	var parts []string
	if a.Type != nil && *a.Type != "" {
		parts = append(parts, html.EscapeString(*a.Type))
	}
	if y := a.Year(); y > 0 {
		parts = append(parts, strconv.Itoa(y))
	}

	var meta string
	if len(parts) > 0 {
		meta = "(" + strings.Join(parts, ", ") + ")"
	}
	if a.Score != nil {
		meta = strings.TrimSpace(meta + " ★ " + strconv.FormatFloat(*a.Score, 'f', 2, 64))
	}
	return meta
}

func FormatAnimeDetail(d *domain.AnimeDetail) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "<b>%s</b>\n", html.EscapeString(d.DisplayTitle()))
	if d.TitleJapanese != "" {
		fmt.Fprintf(&sb, "<i>%s</i>\n", html.EscapeString(d.TitleJapanese))
	}
	sb.WriteString("\n")

	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&sb, "<b>%s:</b> %s\n", label, html.EscapeString(value))
		}
	}

	if d.Type != nil {
		line("Тип", *d.Type)
	}
	if d.Episodes != nil {
		line("Эпизоды", strconv.Itoa(*d.Episodes))
	}
	line("Статус", d.Status)
	line("Выход", d.Aired.String)
	if d.Premiered != nil {
		line("Сезон", *d.Premiered)
	}
	if d.Score != nil {
		line("Оценка", strconv.FormatFloat(*d.Score, 'f', 2, 64))
	}
	if d.Rank != nil {
		line("Рейтинг", "#"+strconv.Itoa(*d.Rank))
	}
	if d.Popularity > 0 {
		line("Популярность", "#"+strconv.Itoa(d.Popularity))
	}
	if d.Members > 0 {
		line("Участники", strconv.Itoa(d.Members))
	}
	if d.Favorites > 0 {
		line("В избранном", strconv.Itoa(d.Favorites))
	}
	if len(d.Genres) > 0 {
		names := make([]string, 0, len(d.Genres))
		for _, g := range d.Genres {
			names = append(names, g.Name)
		}
		line("Жанры", strings.Join(names, ", "))
	}

	if d.Synopsis != "" {
		fmt.Fprintf(&sb, "\n<b>Описание</b>\n%s\n", html.EscapeString(d.Synopsis))
	}
	if d.Background != nil {
		fmt.Fprintf(&sb, "\n<b>Предыстория</b>\n%s\n", html.EscapeString(*d.Background))
	}

	var links []string
	if d.Trailer != nil && d.Trailer.URL != "" {
		links = append(links, link(d.Trailer.URL, "Трейлер"))
	}
	if d.URL != "" {
		links = append(links, link(d.URL, "MyAnimeList"))
	}
	if img := d.Images.LargeImageURL; img != "" {
		links = append(links, link(img, "Постер"))
	} else if d.Images.ImageURL != "" {
		links = append(links, link(d.Images.ImageURL, "Постер"))
	}
	if len(links) > 0 {
		sb.WriteString("\n" + strings.Join(links, " | ") + "\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

func FormatHistory(ids []int, current int) string {
	if len(ids) == 0 {
		return "История просмотров пуста."
	}

	var sb strings.Builder
	sb.WriteString("<b>Просмотренные тайтлы:</b>\n\n")
	for i, id := range ids {
		fmt.Fprintf(&sb, "%d. /anime_%d", i+1, id)
		if id == current {
			sb.WriteString(" (открыт)")
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\nВсего: %d", len(ids))
	return sb.String()
}

func FormatStatus(gate ratelimit.GateStats, cacheSize, chatRemaining int) string {
	var sb strings.Builder
	sb.WriteString("<b>Состояние</b>\n\n")
	fmt.Fprintf(&sb, "Запросов к каталогу в текущем окне: %d из %d\n", gate.CountInWindow, gate.MaxPerWindow)
	fmt.Fprintf(&sb, "Записей в кеше: %d\n", cacheSize)
	fmt.Fprintf(&sb, "Осталось команд в этом чате: %d", chatRemaining)
	return sb.String()
}

func link(url, text string) string {
	return fmt.Sprintf("<a href=\"%s\">%s</a>", html.EscapeString(url), html.EscapeString(text))
}

// SplitMessage режет текст на части не длиннее maxLen байт,
// не разрывая HTML-теги, сущности и UTF-8 символы
func SplitMessage(text string, maxLen int) []string {
	var parts []string
	for len(text) > maxLen {
		cut := findSafeSplitPoint(text, maxLen)
		parts = append(parts, text[:cut])
		text = text[cut:]
	}
	if text != "" || len(parts) == 0 {
		parts = append(parts, text)
	}
	return parts
}

func findSafeSplitPoint(text string, maxLen int) int {
	safe := safeCuts(text, maxLen)

	// перевод строки лучше пробела
	for _, sep := range []byte{'\n', ' '} {
		for i := maxLen - 1; i > maxLen/2; i-- {
			if text[i] == sep && safe[i+1] {
				return i + 1
			}
		}
	}

	// не нашли - режем в последней позиции вне тега и сущности
	for cut := maxLen; cut > 0; cut-- {
		if safe[cut] {
			return cut
		}
	}

	// тег открыт на всем отрезке, остается граница символа
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if cut == 0 {
		return maxLen
	}
	return cut
}

// maxEntityLen - самая длинная сущность вместе с & и ;
const maxEntityLen = 8

// safeCuts[i] - можно ли резать перед байтом i: не внутри <...>,
// не внутри &...; , все теги закрыты и i на границе символа
func safeCuts(text string, limit int) []bool {
	safe := make([]bool, limit+1)
	var (
		inTag, closing, inEntity bool
		depth                    int
	)
	for i := 0; i <= limit && i < len(text); i++ {
		c := text[i]
		safe[i] = !inTag && !inEntity && depth == 0 && utf8.RuneStart(c)

		switch {
		case inTag:
			if c == '>' {
				inTag = false
				if closing && depth > 0 {
					depth--
				} else if !closing {
					depth++
				}
			}
		case c == '<':
			inTag = true
			closing = i+1 < len(text) && text[i+1] == '/'
		case inEntity:
			if c == ';' {
				inEntity = false
			}
		case c == '&':
			inEntity = isEntityStart(text, i)
		}
	}
	return safe
}

func isEntityStart(text string, pos int) bool {
	end := min(pos+maxEntityLen, len(text))
	return strings.IndexByte(text[pos+1:end], ';') >= 0
}

// truncate по рунам, с многоточием
func truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	r := []rune(s)
	return string(r[:maxRunes-1]) + "…"
}
