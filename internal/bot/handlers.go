package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/leonid6372/upbit-paper/internal/common/domain"
	"github.com/leonid6372/upbit-paper/internal/traderrs"
	"github.com/leonid6372/upbit-paper/pkg/errs"
	"github.com/shopspring/decimal"
	"gopkg.in/telebot.v4"
)

func (b *Bot) startHandler(c telebot.Context) error {
	lang := b.language(c)

	data := map[string]any{
		"OpeningBalance": b.deps.trade.Ledger().OpeningBalance(),
		"ButtonMarkets":  b.deps.dictionary.Text(lang, btnMarkets),
	}

	text := b.deps.dictionary.Text(lang, msgStart, data)

	if err := c.Send(text, &telebot.SendOptions{
		ReplyMarkup: b.mainMenuKeyboard(lang),
		ParseMode:   telebot.ModeHTML,
	}); err != nil {
		return errs.NewStack(fmt.Errorf("failed to send message: %v", err))
	}

	return nil
}

func (b *Bot) selectLanguageHandler(c telebot.Context) error {
	text := b.deps.dictionary.Text(b.language(c), msgLanguage)

	if err := c.Send(text, &telebot.SendOptions{ReplyMarkup: b.languagesKeyboard()}); err != nil {
		return errs.NewStack(fmt.Errorf("failed to send message: %v", err))
	}

	return nil
}

func (b *Bot) setLanguageHandler(c telebot.Context) error {
	defer c.Respond()

	ctx := c.Get(ctxContext).(context.Context)
	args := c.Args()

	if len(args) != 1 || !b.deps.dictionary.Has(args[0]) {
		return errs.NewStack(fmt.Errorf("failed to parse data: unknown language %v", args))
	}

	chatID := c.Chat().ID

	if err := b.deps.chats.SetChatLanguage(ctx, chatID, args[0]); err != nil {
		return fmt.Errorf("failed to save language: %w", err)
	}

	b.languages.SetDefault(chatKey(chatID), args[0])

	return b.startHandler(c)
}

func (b *Bot) marketsListHandler(c telebot.Context) error {
	defer c.Respond()

	ctx := c.Get(ctxContext).(context.Context)
	lang := b.language(c)

	currentPage, err := b.getCurrentPage(c)
	if err != nil {
		return err
	}

	markets, err := b.deps.catalog.List(ctx)
	if err != nil {
		return b.send(c, b.deps.dictionary.Text(lang, msgMarketsUnavailable), nil)
	}

	pagesCount := domain.PagesCount(int64(len(markets)), domain.MarketsPerPage)
	currentPage = clampPage(currentPage, pagesCount)

	from := (currentPage - 1) * domain.MarketsPerPage
	to := min(from+domain.MarketsPerPage, int64(len(markets)))

	data := map[string]any{
		"CurrentPage": currentPage,
		"PagesCount":  pagesCount,
	}

	text := b.deps.dictionary.Text(lang, msgMarketsList, data)

	markup := b.marketsListByPageKeyboard(lang, markets[from:to], currentPage, pagesCount)

	return b.send(c, text, markup)
}

func (b *Bot) priceHandler(c telebot.Context) error {
	defer c.Respond()

	lang := b.language(c)
	args := c.Args()

	if len(args) != 1 {
		return b.send(c, b.deps.dictionary.Text(lang, msgUsagePrice), nil)
	}

	code := normalizeCode(args[0])

	if err := b.deps.catalog.Check(c.Get(ctxContext).(context.Context), code); err != nil {
		return b.sendError(c, lang, code, err)
	}

	b.watch(code)

	t, ok := b.deps.registry.Cache().Latest(code)
	if !ok {
		return b.send(c, b.deps.dictionary.Text(lang, msgPricePending, map[string]any{"Code": code}), nil)
	}

	data := map[string]any{
		"Code":   t.Code,
		"Price":  t.TradePrice,
		"Change": changeText(t.SignedChangeRate),
		"Volume": t.AccTradePrice24h.Round(0),
		"Status": b.deps.registry.Cache().Status().String(),
	}

	text := b.deps.dictionary.Text(lang, msgPriceCard, data)

	return b.send(c, text, b.priceKeyboard(lang, t.Code))
}

// orderCommandHandler serves "/buy CODE QTY" and "/sell CODE QTY".
func (b *Bot) orderCommandHandler(side string) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		lang := b.language(c)
		args := c.Args()

		if len(args) != 2 {
			return b.send(c, b.deps.dictionary.Text(lang, msgUsageOrder), nil)
		}

		quantity, err := decimal.NewFromString(args[1])
		if err != nil {
			return b.send(c, b.deps.dictionary.Text(lang, msgInvalidQuantity), nil)
		}

		return b.executeOrder(c, side, normalizeCode(args[0]), quantity)
	}
}

// orderButtonHandler remembers the side and market and asks the chat for a quantity.
func (b *Bot) orderButtonHandler(side string) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		defer c.Respond()

		args := c.Args()

		if len(args) != 1 {
			return errs.NewStack(fmt.Errorf("failed to parse data: param code not found"))
		}

		code := normalizeCode(args[0])
		lang := b.language(c)

		b.pending.SetDefault(chatKey(c.Chat().ID), &pendingOrder{Side: side, Code: code})

		data := map[string]any{
			"Code": code,
			"Side": b.sideText(lang, side),
		}

		return b.send(c, b.deps.dictionary.Text(lang, msgEnterQuantity, data), nil)
	}
}

func (b *Bot) textHandler(c telebot.Context) error {
	if handler := b.menuHandler(c.Text()); handler != nil {
		return handler(c)
	}

	lang := b.language(c)
	key := chatKey(c.Chat().ID)

	raw, ok := b.pending.Get(key)
	if !ok {
		return b.send(c, b.deps.dictionary.Text(lang, msgUnknownCommand), nil)
	}

	quantity, err := decimal.NewFromString(strings.TrimSpace(c.Text()))
	if err != nil {
		return b.send(c, b.deps.dictionary.Text(lang, msgInvalidQuantity), nil)
	}

	b.pending.Delete(key)

	order := raw.(*pendingOrder)

	return b.executeOrder(c, order.Side, order.Code, quantity)
}

func (b *Bot) executeOrder(c telebot.Context, side, code string, quantity decimal.Decimal) error {
	ctx := c.Get(ctxContext).(context.Context)
	lang := b.language(c)

	receipt, err := b.deps.trade.Execute(ctx, tradeOrder(side, code, quantity))
	if err != nil {
		return b.sendError(c, lang, code, err)
	}

	op := receipt.Operation

	data := map[string]any{
		"Side":     b.sideText(lang, op.Type),
		"Code":     op.Code,
		"Quantity": op.Quantity,
		"Price":    op.Price,
		"Total":    op.TotalAmount,
		"Balance":  receipt.Balance,
	}

	return b.send(c, b.deps.dictionary.Text(lang, msgOrderFilled, data), nil)
}

// sendError explains a named order rejection to the chat. Other errors go to the error middleware.
func (b *Bot) sendError(c telebot.Context, lang, code string, err error) error {
	name := traderrs.Name(err)
	if name == "" {
		return err
	}

	return b.send(c, b.deps.dictionary.Text(lang, msgErrorPrefix+name, map[string]any{"Code": code}), nil)
}

func (b *Bot) portfolioHandler(c telebot.Context) error {
	lang := b.language(c)
	v := b.deps.trade.Portfolio()

	var sb strings.Builder

	sb.WriteString(b.deps.dictionary.Text(lang, msgPortfolio, map[string]any{
		"Balance":         v.Balance,
		"TotalEvaluation": v.TotalEvaluation,
		"TotalAsset":      v.TotalAsset,
		"TotalProfitLoss": v.TotalProfitLoss,
		"TotalProfitRate": rateText(v.TotalProfitRate),
	}))

	if len(v.Positions) == 0 {
		sb.WriteString("\n\n")
		sb.WriteString(b.deps.dictionary.Text(lang, msgPortfolioEmpty))
	}

	for _, p := range v.Positions {
		sb.WriteString("\n\n")
		sb.WriteString(b.deps.dictionary.Text(lang, msgPortfolioPosition, map[string]any{
			"Code":         p.Code,
			"Quantity":     p.Quantity,
			"AveragePrice": p.AveragePrice,
			"CurrentPrice": p.CurrentPrice,
			"ProfitLoss":   p.ProfitLoss,
			"ProfitRate":   rateText(p.ProfitRate),
		}))
	}

	return b.send(c, sb.String(), nil)
}

func (b *Bot) historyHandler(c telebot.Context) error {
	defer c.Respond()

	ctx := c.Get(ctxContext).(context.Context)
	lang := b.language(c)

	currentPage, err := b.getCurrentPage(c)
	if err != nil {
		return err
	}

	operations, pagesCount, err := b.deps.trade.History(ctx, currentPage)
	if err != nil {
		return errs.NewStack(fmt.Errorf("failed to get operations: %w", err))
	}

	if len(operations) == 0 {
		return b.send(c, b.deps.dictionary.Text(lang, msgHistoryEmpty), nil)
	}

	var sb strings.Builder

	sb.WriteString(b.deps.dictionary.Text(lang, msgHistory, map[string]any{
		"CurrentPage": currentPage,
		"PagesCount":  pagesCount,
	}))

	for _, op := range operations {
		sb.WriteString("\n")
		sb.WriteString(b.deps.dictionary.Text(lang, msgHistoryOperation, map[string]any{
			"CreatedAt": op.CreatedAt.Format("2006-01-02 15:04"),
			"Side":      b.sideText(lang, op.Type),
			"Code":      op.Code,
			"Quantity":  op.Quantity,
			"Price":     op.Price,
		}))
	}

	markup := &telebot.ReplyMarkup{}
	markup.Inline(b.addPaginationCbkButtons(nil, lang, cbkHistoryPage, currentPage, pagesCount)...)

	return b.send(c, sb.String(), markup)
}

func (b *Bot) statusHandler(c telebot.Context) error {
	lang := b.language(c)
	cache := b.deps.registry.Cache()

	updatedAt := "-"
	if at := cache.UpdatedAt(); !at.IsZero() {
		updatedAt = at.Format("2006-01-02 15:04:05")
	}

	data := map[string]any{
		"Status":      cache.Status().String(),
		"Markets":     strings.Join(b.deps.registry.EffectiveSet(), ", "),
		"Subscribers": b.deps.registry.Subscribers(),
		"UpdatedAt":   updatedAt,
	}

	return b.send(c, b.deps.dictionary.Text(lang, msgStatus, data), nil)
}

func (b *Bot) defaultErrorHandler(c telebot.Context) error {
	text := b.deps.dictionary.Text(b.language(c), msgDefaultError)

	if err := c.Send(text); err != nil {
		return fmt.Errorf("failed to send message: %v", err)
	}

	return nil
}
