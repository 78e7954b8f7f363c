package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type MarketsClient interface {
	GetMarkets(ctx context.Context) ([]*Market, error)
}

// Ticker is an immutable price snapshot of a single market.
type Ticker struct {
	Code             string          `json:"code"`
	TradePrice       decimal.Decimal `json:"trade_price"`
	SignedChangeRate decimal.Decimal `json:"signed_change_rate"`
	AccTradePrice24h decimal.Decimal `json:"acc_trade_price_24h"`
	CapturedAt       time.Time       `json:"captured_at"`
}

type Market struct {
	Code        string `json:"code"`
	KoreanName  string `json:"korean_name"`
	EnglishName string `json:"english_name"`
}
