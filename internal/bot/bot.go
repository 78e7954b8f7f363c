// Package bot is the telegram surface of the paper trading service.
package bot

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/leonid6372/upbit-paper/internal/catalog"
	"github.com/leonid6372/upbit-paper/internal/common/config"
	"github.com/leonid6372/upbit-paper/internal/common/domain"
	"github.com/leonid6372/upbit-paper/internal/ticker"
	"github.com/leonid6372/upbit-paper/internal/trade"
	"github.com/leonid6372/upbit-paper/pkg/dictionary"
	"github.com/leonid6372/upbit-paper/pkg/errs"
	"github.com/leonid6372/upbit-paper/pkg/log"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"gopkg.in/telebot.v4"
)

type Bot struct {
	Telebot *telebot.Bot
	cfg     *config.Bot
	ctx     context.Context

	// chat id -> language code, read through from the chats repository
	languages *cache.Cache
	// chat id -> *pendingOrder
	pending *cache.Cache
	// market code -> struct{}, the markets chats looked at recently
	watched *cache.Cache
	// orders snapshots of watched with their registry updates
	watchMu sync.Mutex

	deps *Dependencies
}

type Dependencies struct {
	registry   *ticker.Registry
	trade      *trade.Service
	catalog    *catalog.Catalog
	chats      domain.ChatsRepository
	dictionary *dictionary.Dictionary
}

type pendingOrder struct {
	Side string
	Code string
}

// Option adjusts the telebot settings, mostly for tests.
type Option func(*telebot.Settings)

func New(ctx context.Context,
	cfg *config.Bot,
	registry *ticker.Registry,
	trade *trade.Service,
	catalog *catalog.Catalog,
	chats domain.ChatsRepository,
	dictionary *dictionary.Dictionary,
	opts ...Option,
) (*Bot, error) {
	settings := telebot.Settings{
		Token:  cfg.APIKey,
		Poller: &telebot.LongPoller{Timeout: cfg.Timeout},
	}

	for _, opt := range opts {
		opt(&settings)
	}

	b, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("telebot.NewBot: %w", err)
	}

	bot := &Bot{
		Telebot:   b,
		cfg:       cfg,
		ctx:       ctx,
		languages: cache.New(languagesTTL, time.Minute),
		pending:   cache.New(pendingOrderTTL, time.Minute),
		watched:   cache.New(watchTTL, time.Minute),
		deps: &Dependencies{
			registry:   registry,
			trade:      trade,
			catalog:    catalog,
			chats:      chats,
			dictionary: dictionary,
		},
	}

	bot.watched.OnEvicted(func(string, any) {
		bot.resubscribe()
	})

	if err := bot.setCommands(); err != nil {
		return nil, fmt.Errorf("bot.setCommands: %w", err)
	}

	bot.setupMiddlewares()
	bot.setupMessageRoutes()
	bot.setupCallbackRoutes()

	return bot, nil
}

func (b *Bot) setCommands() error {
	commands := []telebot.Command{
		{Text: "start", Description: "📈 Get started"},
		{Text: "language", Description: "🌎 Choose language"},
		{Text: "markets", Description: "🪙 KRW markets"},
		{Text: "price", Description: "💹 Price of a market, e.g. /price KRW-BTC"},
		{Text: "buy", Description: "🟢 Buy, e.g. /buy KRW-BTC 0.01"},
		{Text: "sell", Description: "🔴 Sell, e.g. /sell KRW-BTC 0.01"},
		{Text: "portfolio", Description: "💼 Balance and positions"},
		{Text: "history", Description: "📜 Operations history"},
		{Text: "status", Description: "📡 Price feed status"},
	}

	if err := b.Telebot.SetCommands(commands); err != nil {
		return errs.NewStack(err)
	}

	return nil
}

func (b *Bot) setupMiddlewares() {
	b.Telebot.Use(
		b.recoveryMiddleware,
		b.defaultErrorMiddleware,
		b.allowedChatsMiddleware,
		b.contextMiddleware,
	)
}

func (b *Bot) setupMessageRoutes() {
	message := b.Telebot.Group()

	message.Handle("/start", b.startHandler)
	message.Handle("/language", b.selectLanguageHandler)
	message.Handle("/markets", b.marketsListHandler)
	message.Handle("/price", b.priceHandler)
	message.Handle("/buy", b.orderCommandHandler(domain.OperationTypeBuy))
	message.Handle("/sell", b.orderCommandHandler(domain.OperationTypeSell))
	message.Handle("/portfolio", b.portfolioHandler)
	message.Handle("/history", b.historyHandler)
	message.Handle("/status", b.statusHandler)
	message.Handle(telebot.OnText, b.textHandler)
}

func (b *Bot) setupCallbackRoutes() {
	callback := b.Telebot.Group()

	callback.Handle(&telebot.Btn{Unique: cbkLanguage}, b.setLanguageHandler)
	callback.Handle(&telebot.Btn{Unique: cbkMarketsPage}, b.marketsListHandler)
	callback.Handle(&telebot.Btn{Unique: cbkMarket}, b.priceHandler)
	callback.Handle(&telebot.Btn{Unique: cbkHistoryPage}, b.historyHandler)
	callback.Handle(&telebot.Btn{Unique: cbkBuy}, b.orderButtonHandler(domain.OperationTypeBuy))
	callback.Handle(&telebot.Btn{Unique: cbkSell}, b.orderButtonHandler(domain.OperationTypeSell))
}

func (b *Bot) Start() {
	b.Telebot.Start()
}

func (b *Bot) Stop() {
	b.Telebot.Stop()
	b.deps.registry.Unsubscribe(Handle)
}

func (b *Bot) language(c telebot.Context) string {
	chat := c.Chat()
	if chat == nil {
		return dictionary.DefaultLanguage
	}

	key := chatKey(chat.ID)

	if lang, ok := b.languages.Get(key); ok {
		return lang.(string)
	}

	ctx, ok := c.Get(ctxContext).(context.Context)
	if !ok {
		ctx = b.ctx
	}

	lang, err := b.deps.chats.GetChatLanguage(ctx, chat.ID)
	if err != nil {
		log.Warn("failed to load chat language", zap.Int64("chat_id", chat.ID), zap.Error(err))
	}

	if !b.deps.dictionary.Has(lang) {
		lang = dictionary.DefaultLanguage

		if sender := c.Sender(); sender != nil && b.deps.dictionary.Has(sender.LanguageCode) {
			lang = sender.LanguageCode
		}
	}

	b.languages.SetDefault(key, lang)

	return lang
}

// watch adds code to the markets kept fresh for the bot.
func (b *Bot) watch(code string) {
	_, known := b.watched.Get(code)

	b.watched.SetDefault(code, struct{}{})

	if !known {
		b.resubscribe()
	}
}

func (b *Bot) resubscribe() {
	b.watchMu.Lock()
	defer b.watchMu.Unlock()

	items := b.watched.Items()

	codes := make([]string, 0, len(items))
	for code := range items {
		codes = append(codes, code)
	}

	sort.Strings(codes)

	b.deps.registry.Subscribe(Handle, codes)
}

func chatKey(id int64) string {
	return fmt.Sprint(id)
}
