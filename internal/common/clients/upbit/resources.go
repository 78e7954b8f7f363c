package upbit

import (
	"time"

	"github.com/leonid6372/upbit-paper/internal/common/domain"
	"github.com/shopspring/decimal"
)

type tickerResponse struct {
	Market           string          `json:"market"`
	TradePrice       decimal.Decimal `json:"trade_price"`
	SignedChangeRate decimal.Decimal `json:"signed_change_rate"`
	AccTradePrice24h decimal.Decimal `json:"acc_trade_price_24h"`
	Timestamp        int64           `json:"timestamp"`
}

func (res *tickerResponse) CreateDomain(fetchedAt time.Time) *domain.Ticker {
	capturedAt := fetchedAt
	if res.Timestamp > 0 {
		capturedAt = time.UnixMilli(res.Timestamp)
	}

	return &domain.Ticker{
		Code:             res.Market,
		TradePrice:       res.TradePrice,
		SignedChangeRate: res.SignedChangeRate,
		AccTradePrice24h: res.AccTradePrice24h,
		CapturedAt:       capturedAt,
	}
}

type marketResponse struct {
	Market      string `json:"market"`
	KoreanName  string `json:"korean_name"`
	EnglishName string `json:"english_name"`
}

func (res *marketResponse) CreateDomain() *domain.Market {
	return &domain.Market{
		Code:        res.Market,
		KoreanName:  res.KoreanName,
		EnglishName: res.EnglishName,
	}
}
