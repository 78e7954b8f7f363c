package traderrs

import "errors"

// Ledger rejections. The ledger is left unchanged whenever one of these is returned.
var (
	ErrInvalidPrice          = errors.New("invalid price")
	ErrInvalidQuantity       = errors.New("invalid quantity")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrNoPosition            = errors.New("no position")
	ErrInsufficientQuantity  = errors.New("insufficient quantity")
	ErrInvalidOpeningBalance = errors.New("invalid opening balance")
)

var (
	ErrEmptyCode        = errors.New("empty market code")
	ErrUnknownSide      = errors.New("unknown order side")
	ErrPriceUnavailable = errors.New("price unavailable")
	ErrUnknownMarket    = errors.New("unknown market")
)

// Infrastructure failures. The order was not committed.
var (
	ErrMarketsUnavailable = errors.New("market list unavailable")
	ErrJournalUnavailable = errors.New("journal unavailable")
	// ErrStaleOperation means the book moved between preparing and committing an operation.
	ErrStaleOperation = errors.New("stale operation")
)

// Name returns a stable identifier of an order rejection, or "" for any other error.
func Name(err error) string {
	switch {
	case errors.Is(err, ErrInvalidPrice):
		return "invalid_price"
	case errors.Is(err, ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrNoPosition):
		return "no_position"
	case errors.Is(err, ErrInsufficientQuantity):
		return "insufficient_quantity"
	case errors.Is(err, ErrEmptyCode):
		return "empty_code"
	case errors.Is(err, ErrUnknownSide):
		return "unknown_side"
	case errors.Is(err, ErrPriceUnavailable):
		return "price_unavailable"
	case errors.Is(err, ErrUnknownMarket):
		return "unknown_market"
	case errors.Is(err, ErrMarketsUnavailable):
		return "markets_unavailable"
	case errors.Is(err, ErrJournalUnavailable):
		return "journal_unavailable"
	default:
		return ""
	}
}
