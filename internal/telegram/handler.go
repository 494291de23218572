package telegram

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/anime-bot/internal/cache"
	"github.com/kitbuilder587/anime-bot/internal/domain"
	"github.com/kitbuilder587/anime-bot/internal/jikan"
	"github.com/kitbuilder587/anime-bot/internal/ratelimit"
	"github.com/kitbuilder587/anime-bot/internal/service"
)

const (
	msgGenericError    = "Произошла ошибка. Попробуйте позже."
	msgThrottled       = "Слишком много запросов. Пожалуйста, подождите минуту."
	msgSearchFirst     = "Сначала выполните поиск: отправьте название аниме."
	msgUnknownCommand  = "Неизвестная команда. Используйте /help для справки."
	msgSearchUsage     = "Введите название аниме: /search naruto"
	msgPageUsage       = "Укажите номер страницы: /page 2"
	msgAnimeUsage      = "Укажите ID аниме: /anime 20"
	msgLimitRange      = "Количество результатов на странице: от 1 до 25."
	msgLastPage        = "Это последняя страница."
	msgFirstPage       = "Это первая страница."
	msgNothingToReload = "Нечего обновлять."
)

const helpText = `<b>Поиск аниме по каталогу MyAnimeList</b>

Просто отправьте название, например: <i>cowboy bebop</i>

<b>Поиск:</b>
/search запрос - Новый поиск
/page N - Перейти на страницу
/next, /prev - Следующая и предыдущая страница
/limit N - Результатов на странице (1-25)
/clear - Сбросить поиск

<b>Карточка тайтла:</b>
/anime ID - Открыть тайтл
/close - Закрыть карточку
/history - Просмотренные тайтлы
/forget - Очистить историю

<b>Прочее:</b>
/refresh - Перезапросить то, что показано
/status - Лимиты и кеш
/help - Эта справка`

type Handler struct {
	bot *Bot
}

func NewHandler(bot *Bot) *Handler {
	return &Handler{bot: bot}
}

func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID
	cmd := ParseCommand(msg.Text)

	h.bot.logger.Info("received message",
		zap.Int64("chat_id", chatID),
		zap.String("command", cmd.Name),
		zap.Bool("is_command", cmd.Name != ""),
	)

	if cmd.Name == "" && cmd.Args == "" {
		return
	}
	if !h.allow(chatID) {
		h.bot.Send(chatID, msgThrottled)
		return
	}

	sess := h.bot.session(chatID)

	switch cmd.Name {
	case "":
		h.handleSearch(ctx, chatID, sess, cmd.Args)
	case "search":
		if cmd.Args == "" {
			h.bot.Send(chatID, msgSearchUsage)
			return
		}
		h.handleSearch(ctx, chatID, sess, cmd.Args)
	case "start", "help":
		h.bot.Send(chatID, helpText)
	case "page":
		page, ok := cmd.IntArg()
		if !ok {
			h.bot.Send(chatID, msgPageUsage)
			return
		}
		h.gotoPage(ctx, chatID, sess, page, 0)
	case "next":
		h.handleNext(ctx, chatID, sess)
	case "prev":
		h.handlePrev(ctx, chatID, sess)
	case "limit":
		h.handleLimit(ctx, chatID, sess, cmd)
	case "clear":
		sess.search.Clear()
		sess.forgetPagination()
		sess.setShown(viewNone)
		h.bot.Send(chatID, "Поиск сброшен.")
	case "anime":
		h.handleAnime(ctx, chatID, sess, cmd.Args)
	case "close":
		h.handleClose(chatID, sess)
	case "history":
		st := sess.detail.State()
		h.bot.Send(chatID, FormatHistory(st.ViewedIDs, st.CurrentID))
	case "forget":
		sess.detail.ClearViewedHistory()
		h.bot.Send(chatID, "История просмотров очищена.")
	case "refresh":
		h.handleRefresh(ctx, chatID, sess)
	case "status":
		h.handleStatus(chatID)
	default:
		h.bot.Send(chatID, msgUnknownCommand)
	}
}

// HandleCallback - кнопки пагинации под выдачей
func (h *Handler) HandleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil {
		h.bot.AnswerCallback(cb.ID, "")
		return
	}
	chatID := cb.Message.Chat.ID

	page, ok := ParsePageCallback(cb.Data)
	if !ok {
		h.bot.AnswerCallback(cb.ID, "")
		return
	}
	if !h.allow(chatID) {
		h.bot.AnswerCallback(cb.ID, msgThrottled)
		return
	}
	h.bot.AnswerCallback(cb.ID, "")

	h.gotoPage(ctx, chatID, h.bot.session(chatID), page, cb.Message.MessageID)
}

func (h *Handler) allow(chatID int64) bool {
	if h.bot.rateLimiter.Allow(chatID) {
		return true
	}
	h.bot.logger.Warn("chat rate limit exceeded",
		zap.Int64("chat_id", chatID),
		zap.Time("reset_at", h.bot.rateLimiter.ResetTime(chatID)),
	)
	h.bot.RecordRateLimitHit()
	return false
}

func (h *Handler) handleSearch(ctx context.Context, chatID int64, sess *session, query string) {
	if utf8.RuneCountInString(query) > domain.MaxQueryLength {
		h.bot.Send(chatID, mapErrorToMessage(domain.ErrQueryTooLong))
		return
	}

	sess.search.Submit(query)
	sess.forgetPagination()
	h.showSearch(ctx, chatID, sess, 0)
}

func (h *Handler) handleNext(ctx context.Context, chatID int64, sess *session) {
	p, ok := sess.lastPagination()
	if !ok || sess.search.State().Skip() {
		h.bot.Send(chatID, msgSearchFirst)
		return
	}
	if !p.HasNextPage {
		h.bot.Send(chatID, msgLastPage)
		return
	}
	h.gotoPage(ctx, chatID, sess, sess.search.State().CurrentPage+1, 0)
}

func (h *Handler) handlePrev(ctx context.Context, chatID int64, sess *session) {
	st := sess.search.State()
	if st.Skip() {
		h.bot.Send(chatID, msgSearchFirst)
		return
	}
	if st.CurrentPage <= 1 {
		h.bot.Send(chatID, msgFirstPage)
		return
	}
	h.gotoPage(ctx, chatID, sess, st.CurrentPage-1, 0)
}

// gotoPage меняет страницу; номер сверяется с последней известной пагинацией.
// editID != 0 - перерисовать сообщение с кнопками вместо нового.
func (h *Handler) gotoPage(ctx context.Context, chatID int64, sess *session, page, editID int) {
	if sess.search.State().Skip() {
		h.bot.Send(chatID, msgSearchFirst)
		return
	}
	if p, ok := sess.lastPagination(); (ok && !p.Contains(page)) || page < 1 {
		h.bot.Send(chatID, mapErrorToMessage(domain.ErrPageOutOfRange))
		return
	}

	sess.search.SetPage(page)
	h.showSearch(ctx, chatID, sess, editID)
}

func (h *Handler) handleLimit(ctx context.Context, chatID int64, sess *session, cmd Command) {
	n, ok := cmd.IntArg()
	if !ok {
		h.bot.Send(chatID, fmt.Sprintf("Результатов на странице: %d. Изменить: /limit 10",
			sess.search.State().ResultsPerPage))
		return
	}

	st, err := sess.search.SetResultsPerPage(n)
	if err != nil {
		h.bot.Send(chatID, msgLimitRange)
		return
	}
	sess.forgetPagination()

	if st.Skip() {
		h.bot.Send(chatID, fmt.Sprintf("Теперь результатов на странице: %d.", n))
		return
	}
	h.showSearch(ctx, chatID, sess, 0)
}

// showSearch рендерит текущую страницу выдачи из состояния чата
func (h *Handler) showSearch(ctx context.Context, chatID int64, sess *session, editID int) {
	st := sess.search.State()
	sub := h.bot.catalog.Search(st.Params(), st.Skip())
	if sub.Status() == cache.StatusIdle {
		h.bot.Send(chatID, msgSearchFirst)
		return
	}
	if sub.Status() == cache.StatusPending {
		h.bot.SendTyping(chatID)
	}

	page, err := cache.Await[*domain.SearchPage](ctx, sub)
	if err != nil {
		h.bot.logger.Error("search failed",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.String("query", st.Query),
			zap.Int("page", st.CurrentPage),
		)
		h.bot.Send(chatID, mapErrorToMessage(err))
		return
	}

	sess.rememberPagination(page.Pagination)
	sess.setShown(viewSearch)

	if len(page.Items) == 0 {
		h.bot.Send(chatID, mapErrorToMessage(domain.ErrNoResults))
		return
	}

	text := FormatSearchPage(st.Query, page)
	keyboard := PaginationKeyboard(page.Pagination)

	if editID != 0 {
		err := h.bot.Edit(chatID, editID, text, keyboard)
		if err == nil {
			return
		}
		h.bot.logger.Debug("edit failed, sending new message", zap.Error(err))
	}
	if err := h.bot.SendWithKeyboard(chatID, text, keyboard); err != nil {
		h.bot.logger.Error("failed to send message", zap.Error(err))
	}
}

func (h *Handler) handleAnime(ctx context.Context, chatID int64, sess *session, raw string) {
	id, err := service.ParseAnimeID(raw)
	if err != nil {
		h.bot.Send(chatID, msgAnimeUsage)
		return
	}

	sess.detail.SetCurrentAnime(id)
	h.showDetail(ctx, chatID, sess, id)
}

func (h *Handler) showDetail(ctx context.Context, chatID int64, sess *session, id int) {
	sub := h.bot.catalog.Detail(id, false)
	if sub.Status() == cache.StatusPending {
		h.bot.SendTyping(chatID)
	}

	detail, err := cache.Await[*domain.AnimeDetail](ctx, sub)
	if err != nil {
		h.bot.logger.Error("detail failed",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.Int("anime_id", id),
		)
		h.bot.Send(chatID, mapErrorToMessage(err))
		return
	}
	sess.setShown(viewDetail)

	for _, part := range SplitMessage(FormatAnimeDetail(detail), maxMessageLen) {
		if err := h.bot.Send(chatID, part); err != nil {
			h.bot.logger.Error("failed to send message", zap.Error(err))
		}
	}
}

func (h *Handler) handleClose(chatID int64, sess *session) {
	if !sess.detail.State().HasCurrent() {
		h.bot.Send(chatID, "Нет открытой карточки.")
		return
	}
	sess.detail.ClearCurrentAnime()
	if sess.lastShown() == viewDetail {
		sess.setShown(viewNone)
	}
	h.bot.Send(chatID, "Карточка закрыта.")
}

// handleRefresh сбрасывает кеш того, что показано последним, и запрашивает заново
func (h *Handler) handleRefresh(ctx context.Context, chatID int64, sess *session) {
	switch sess.lastShown() {
	case viewDetail:
		st := sess.detail.State()
		if !st.HasCurrent() {
			break
		}
		h.bot.catalog.InvalidateAnime(st.CurrentID)
		h.showDetail(ctx, chatID, sess, st.CurrentID)
		return
	case viewSearch:
		if sess.search.State().Skip() {
			break
		}
		h.bot.catalog.InvalidateSearch()
		h.showSearch(ctx, chatID, sess, 0)
		return
	}
	h.bot.Send(chatID, msgNothingToReload)
}

func (h *Handler) handleStatus(chatID int64) {
	var stats ratelimit.GateStats
	if h.bot.gate != nil {
		stats = h.bot.gate.Stats()
	}
	h.bot.Send(chatID, FormatStatus(stats, h.bot.catalog.CacheSize(), h.bot.rateLimiter.RemainingRequests(chatID)))
}

func mapErrorToMessage(err error) string {
	var (
		netErr    *jikan.NetworkError
		httpErr   *jikan.HTTPError
		decodeErr *jikan.DecodeError
	)

	switch {
	case errors.Is(err, domain.ErrEmptyQuery):
		return "Пустой запрос. Введите название аниме."
	case errors.Is(err, domain.ErrQueryTooLong):
		return fmt.Sprintf("Запрос слишком длинный. Максимум %d символов.", domain.MaxQueryLength)
	case errors.Is(err, domain.ErrPageOutOfRange):
		return "Такой страницы нет в выдаче."
	case errors.Is(err, domain.ErrNoResults):
		return "Ничего не найдено. Попробуйте другой запрос."
	case errors.Is(err, domain.ErrInvalidParameters):
		return "Некорректные параметры запроса."
	case errors.Is(err, jikan.ErrNotFound):
		return "Аниме не найдено."
	case errors.Is(err, jikan.ErrRateLimited):
		return "Каталог перегружен запросами. Попробуйте /refresh через минуту."
	case errors.As(err, &httpErr):
		return fmt.Sprintf("Каталог ответил ошибкой %d. Попробуйте /refresh позже.", httpErr.Status)
	case errors.As(err, &netErr):
		return "Каталог недоступен. Попробуйте /refresh позже."
	case errors.As(err, &decodeErr):
		return "Каталог вернул некорректный ответ."
	case errors.Is(err, context.DeadlineExceeded):
		return "Превышено время ожидания ответа."
	default:
		return msgGenericError
	}
}
