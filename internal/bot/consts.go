package bot

import "time"

// Handle is the registry subscription holding the markets chats looked at recently.
const Handle = "bot"

const (
	watchTTL        = 10 * time.Minute
	languagesTTL    = time.Hour
	pendingOrderTTL = 5 * time.Minute
	handlerTimeout  = 15 * time.Second
)

const ctxContext = "context"

const (
	cbkLanguage    = "language"
	cbkMarket      = "market"
	cbkMarketsPage = "markets_page"
	cbkHistoryPage = "history_page"
	cbkBuy         = "buy"
	cbkSell        = "sell"
)

const (
	msgDefaultError       = "unknown_error"
	msgStart              = "start"
	msgLanguage           = "select_language"
	msgMarketsList        = "markets_list"
	msgMarketsUnavailable = "markets_unavailable"
	msgPriceCard          = "price_card"
	msgPricePending       = "price_pending"
	msgUsagePrice         = "usage_price"
	msgUsageOrder         = "usage_order"
	msgEnterQuantity      = "enter_quantity"
	msgInvalidQuantity    = "invalid_quantity"
	msgOrderFilled        = "order_filled"
	msgPortfolio          = "portfolio"
	msgPortfolioPosition  = "portfolio_position"
	msgPortfolioEmpty     = "portfolio_empty"
	msgHistory            = "history"
	msgHistoryOperation   = "history_operation"
	msgHistoryEmpty       = "history_empty"
	msgStatus             = "status"
	msgErrorPrefix        = "error_"
	msgSideBuy            = "side_buy"
	msgSideSell           = "side_sell"
	msgUnknownCommand     = "unknown_command"
)

const (
	btnLanguage     = "button_language"
	btnMarkets      = "button_markets"
	btnPortfolio    = "button_portfolio"
	btnHistory      = "button_history"
	btnStatus       = "button_status"
	btnBuy          = "button_buy"
	btnSell         = "button_sell"
	btnNextPage     = "button_next_page"
	btnPreviousPage = "button_previous_page"
)
