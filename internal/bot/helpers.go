package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leonid6372/upbit-paper/internal/common/domain"
	"github.com/leonid6372/upbit-paper/internal/trade"
	"github.com/leonid6372/upbit-paper/pkg/errs"
	"github.com/leonid6372/upbit-paper/pkg/format"
	"github.com/shopspring/decimal"
	"gopkg.in/telebot.v4"
)

func (b *Bot) send(c telebot.Context, text string, markup *telebot.ReplyMarkup) error {
	opts := &telebot.SendOptions{ParseMode: telebot.ModeHTML}
	if markup != nil {
		opts.ReplyMarkup = markup
	}

	if err := c.Send(text, opts); err != nil {
		return errs.NewStack(fmt.Errorf("failed to send message: %v", err))
	}

	return nil
}

// menuHandler maps a main menu button, in any language, to its handler.
func (b *Bot) menuHandler(text string) telebot.HandlerFunc {
	routes := map[string]telebot.HandlerFunc{
		btnMarkets:   b.marketsListHandler,
		btnPortfolio: b.portfolioHandler,
		btnHistory:   b.historyHandler,
		btnStatus:    b.statusHandler,
	}

	for _, lang := range b.deps.dictionary.Languages() {
		for btn, handler := range routes {
			if text == b.deps.dictionary.Text(lang, btn) {
				return handler
			}
		}
	}

	return nil
}

func (b *Bot) sideText(lang, side string) string {
	if side == domain.OperationTypeSell {
		return b.deps.dictionary.Text(lang, msgSideSell)
	}

	return b.deps.dictionary.Text(lang, msgSideBuy)
}

func (b *Bot) getCurrentPage(c telebot.Context) (int64, error) {
	args := c.Args()

	if len(args) == 1 {
		currentPage, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return 0, errs.NewStack(fmt.Errorf("failed to parse current page: %v", err))
		}

		return currentPage, nil
	}

	return 1, nil
}

func (b *Bot) addPaginationCbkButtons(
	rows []telebot.Row, lang, cbkName string, currentPage, pagesCount int64,
) []telebot.Row {
	markup := &telebot.ReplyMarkup{}

	if pagesCount < 2 {
		return rows
	}

	var row telebot.Row

	if currentPage > 1 {
		row = append(row, markup.Data(
			b.deps.dictionary.Text(lang, btnPreviousPage),
			cbkName, strconv.FormatInt(currentPage-1, 10),
		))
	}

	if currentPage < pagesCount {
		row = append(row, markup.Data(
			b.deps.dictionary.Text(lang, btnNextPage),
			cbkName, strconv.FormatInt(currentPage+1, 10),
		))
	}

	return append(rows, row)
}

func tradeOrder(side, code string, quantity decimal.Decimal) trade.Order {
	return trade.Order{Side: side, Code: code, Quantity: quantity}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func clampPage(page, pagesCount int64) int64 {
	if page > pagesCount {
		page = pagesCount
	}

	if page < 1 {
		page = 1
	}

	return page
}

// changeText renders a signed fraction such as 0.0123.
func changeText(rate decimal.Decimal) string {
	return format.Percent(rate)
}

// rateText renders a rate already expressed in percent.
func rateText(pct decimal.Decimal) string {
	return format.Percent(pct.Shift(-2))
}
