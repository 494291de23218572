package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/anime-bot/internal/cache"
	"github.com/kitbuilder587/anime-bot/internal/domain"
	"github.com/kitbuilder587/anime-bot/internal/metrics"
	"github.com/kitbuilder587/anime-bot/internal/ratelimit"
)

// BotAPI - часть *tgbotapi.BotAPI, которой пользуется бот
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Catalog - запросы к каталогу через кеш
type Catalog interface {
	Search(params domain.SearchParams, skip bool) *cache.Subscription
	Detail(id int, skip bool) *cache.Subscription
	InvalidateSearch() int
	InvalidateAnime(id int) int
	CacheSize() int
}

type GateStatser interface {
	Stats() ratelimit.GateStats
}

type BotConfig struct {
	Token          string
	Debug          bool
	ResultsPerPage int
}

type Deps struct {
	Catalog Catalog
	Gate    GateStatser
	// Limiter - троттлинг команд по чатам
	Limiter *ratelimit.Limiter
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

type Bot struct {
	api         BotAPI
	catalog     Catalog
	gate        GateStatser
	logger      *zap.Logger
	metrics     *metrics.Metrics
	handler     *Handler
	rateLimiter *ratelimit.Limiter
	sessions    *sessions
	wg          sync.WaitGroup
}

func New(cfg BotConfig, deps Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	api.Debug = cfg.Debug

	bot := newBot(api, cfg, deps)
	bot.logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
	)

	return bot, nil
}

func newBot(api BotAPI, cfg BotConfig, deps Deps) *Bot {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Limiter == nil {
		deps.Limiter = ratelimit.New(ratelimit.Config{})
	}

	bot := &Bot{
		api:         api,
		catalog:     deps.Catalog,
		gate:        deps.Gate,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
		rateLimiter: deps.Limiter,
		sessions:    newSessions(cfg.ResultsPerPage),
	}
	bot.handler = NewHandler(bot)
	return bot
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("bot started, waiting for updates")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("bot stopping, waiting for handlers to finish")
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			b.logger.Info("all handlers finished")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return nil
			}
			if update.Message == nil && update.CallbackQuery == nil {
				continue
			}
			b.wg.Add(1)
			go func(upd tgbotapi.Update) {
				defer b.wg.Done()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	startTime := time.Now()
	reqType := updateType(update)

	if b.metrics != nil {
		b.metrics.IncRequestsInFlight()
		defer b.metrics.DecRequestsInFlight()
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic in update handler",
				zap.Any("panic", r),
				zap.Int64("chat_id", updateChatID(update)),
			)
			if b.metrics != nil {
				b.metrics.RecordRequest(reqType, "panic", time.Since(startTime))
			}
		}
	}()

	if update.CallbackQuery != nil {
		b.handler.HandleCallback(ctx, update.CallbackQuery)
	} else {
		b.handler.HandleMessage(ctx, update.Message)
	}

	if b.metrics != nil {
		b.metrics.RecordRequest(reqType, "processed", time.Since(startTime))
	}
}

func updateType(update tgbotapi.Update) string {
	switch {
	case update.CallbackQuery != nil:
		return "callback"
	case update.Message != nil && update.Message.IsCommand():
		return "command"
	default:
		return "search"
	}
}

func updateChatID(update tgbotapi.Update) int64 {
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil && update.CallbackQuery.Message.Chat != nil:
		return update.CallbackQuery.Message.Chat.ID
	case update.Message != nil && update.Message.Chat != nil:
		return update.Message.Chat.ID
	default:
		return 0
	}
}

// session заводит состояние чата при первом обращении
func (b *Bot) session(chatID int64) *session {
	sess, created := b.sessions.get(chatID)
	if created && b.metrics != nil {
		b.metrics.SetActiveChats(b.sessions.count())
	}
	return sess
}

func (b *Bot) Send(chatID int64, text string) error {
	return b.SendWithKeyboard(chatID, text, nil)
}

func (b *Bot) SendWithKeyboard(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	_, err := b.api.Send(msg)
	return err
}

// Edit перерисовывает сообщение со страницей поиска после нажатия кнопки
func (b *Bot) Edit(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true
	edit.ReplyMarkup = keyboard
	_, err := b.api.Send(edit)
	return err
}

func (b *Bot) AnswerCallback(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.logger.Debug("failed to answer callback", zap.Error(err))
	}
}

func (b *Bot) SendTyping(chatID int64) {
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	if _, err := b.api.Request(action); err != nil {
		b.logger.Debug("failed to send typing", zap.Error(err))
	}
}

func (b *Bot) RecordRateLimitHit() {
	if b.metrics != nil {
		b.metrics.RecordRateLimitHit()
	}
}
