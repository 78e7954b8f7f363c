package bot

import (
	"fmt"

	"github.com/leonid6372/upbit-paper/internal/common/domain"
	"gopkg.in/telebot.v4"
)

func (b *Bot) mainMenuKeyboard(lang string) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}

	markets := telebot.Btn{Text: b.deps.dictionary.Text(lang, btnMarkets)}
	portfolio := telebot.Btn{Text: b.deps.dictionary.Text(lang, btnPortfolio)}
	history := telebot.Btn{Text: b.deps.dictionary.Text(lang, btnHistory)}
	status := telebot.Btn{Text: b.deps.dictionary.Text(lang, btnStatus)}

	rows := []telebot.Row{
		{markets, portfolio},
		{history, status},
	}

	markup.Reply(rows...)
	markup.ResizeKeyboard = true
	return markup
}

func (b *Bot) languagesKeyboard() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	var rows []telebot.Row

	for _, lang := range b.deps.dictionary.Languages() {
		text := b.deps.dictionary.Text(lang, btnLanguage)

		btn := markup.Data(text, cbkLanguage, lang)
		rows = append(rows, telebot.Row{btn})
	}

	markup.Inline(rows...)
	return markup
}

func (b *Bot) marketsListByPageKeyboard(
	lang string, markets []*domain.Market, currentPage, pagesCount int64,
) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	rows := make([]telebot.Row, 0, len(markets)+1)

	for _, m := range markets {
		name := m.EnglishName
		if lang == "ko" && m.KoreanName != "" {
			name = m.KoreanName
		}

		text := fmt.Sprintf("%s · %s", m.Code, name)
		rows = append(rows, telebot.Row{markup.Data(text, cbkMarket, m.Code)})
	}

	rows = b.addPaginationCbkButtons(rows, lang, cbkMarketsPage, currentPage, pagesCount)

	markup.Inline(rows...)
	return markup
}

func (b *Bot) priceKeyboard(lang, code string) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}

	rows := []telebot.Row{{
		markup.Data(b.deps.dictionary.Text(lang, btnBuy), cbkBuy, code),
		markup.Data(b.deps.dictionary.Text(lang, btnSell), cbkSell, code),
	}}

	markup.Inline(rows...)
	return markup
}
