package ledger

import (
	"github.com/shopspring/decimal"
)

const ratePrecision = 4

// QuoteFunc returns the current trade price of code, if one is known.
type QuoteFunc func(code string) (decimal.Decimal, bool)

type PositionValuation struct {
	Position

	// CurrentPrice falls back to the average price when no quote is known.
	CurrentPrice decimal.Decimal `json:"current_price"`
	Priced       bool            `json:"priced"`
	Evaluation   decimal.Decimal `json:"evaluation"`
	ProfitLoss   decimal.Decimal `json:"profit_loss"`
	// ProfitRate is in percent.
	ProfitRate decimal.Decimal `json:"profit_rate"`
}

type Valuation struct {
	Balance         decimal.Decimal     `json:"balance"`
	TotalEvaluation decimal.Decimal     `json:"total_evaluation"`
	TotalAsset      decimal.Decimal     `json:"total_asset"`
	TotalProfitLoss decimal.Decimal     `json:"total_profit_loss"`
	TotalProfitRate decimal.Decimal     `json:"total_profit_rate"`
	Positions       []PositionValuation `json:"positions"`
}

// Evaluate marks the book to market with quote.
func (l *Ledger) Evaluate(quote QuoteFunc) *Valuation {
	l.mu.RLock()
	balance := l.balance
	positions := l.positionsLocked()
	l.mu.RUnlock()

	v := &Valuation{
		Balance:   balance,
		Positions: make([]PositionValuation, 0, len(positions)),
	}

	totalCost := decimal.Zero
	hundred := decimal.NewFromInt(100)

	for _, p := range positions {
		pv := PositionValuation{Position: p, CurrentPrice: p.AveragePrice}

		if quote != nil {
			if price, ok := quote(p.Code); ok {
				pv.CurrentPrice = price
				pv.Priced = true
			}
		}

		cost := p.AveragePrice.Mul(p.Quantity)
		pv.Evaluation = pv.CurrentPrice.Mul(p.Quantity)
		pv.ProfitLoss = pv.Evaluation.Sub(cost)

		if cost.IsPositive() {
			pv.ProfitRate = pv.ProfitLoss.Mul(hundred).DivRound(cost, ratePrecision)
		}

		v.TotalEvaluation = v.TotalEvaluation.Add(pv.Evaluation)
		totalCost = totalCost.Add(cost)
		v.Positions = append(v.Positions, pv)
	}

	v.TotalAsset = balance.Add(v.TotalEvaluation)
	v.TotalProfitLoss = v.TotalEvaluation.Sub(totalCost)

	if totalCost.IsPositive() {
		v.TotalProfitRate = v.TotalProfitLoss.Mul(hundred).DivRound(totalCost, ratePrecision)
	}

	return v
}
