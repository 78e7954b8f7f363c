// Package ledger is the paper-trading book: a cash balance and the held positions with
// their volume-weighted average cost. Every command is validated completely before the
// book is touched, so a rejected command leaves no trace.
package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leonid6372/upbit-paper/internal/common/domain"
	"github.com/leonid6372/upbit-paper/internal/traderrs"
	"github.com/shopspring/decimal"
)

// DefaultOpeningBalance is the paper capital a fresh session starts with, in KRW.
const DefaultOpeningBalance = 10_000_000

// averagePricePrecision is the number of fractional digits kept for the average cost.
const averagePricePrecision = 16

type Position struct {
	Code         string          `json:"code"`
	Quantity     decimal.Decimal `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
}

// Receipt describes the state right after a committed command. Position is nil when the
// command closed the position.
type Receipt struct {
	Operation *domain.Operation `json:"operation"`
	Balance   decimal.Decimal   `json:"balance"`
	Position  *Position         `json:"position,omitempty"`
}

type Ledger struct {
	mu sync.RWMutex

	openingBalance decimal.Decimal
	balance        decimal.Decimal
	positions      map[string]*Position

	now   func() time.Time
	newID func() uuid.UUID
}

func New(openingBalance decimal.Decimal) (*Ledger, error) {
	if openingBalance.IsNegative() {
		return nil, fmt.Errorf("%w: %s", traderrs.ErrInvalidOpeningBalance, openingBalance)
	}

	return &Ledger{
		openingBalance: openingBalance,
		balance:        openingBalance,
		positions:      make(map[string]*Position),
		now:            time.Now,
		newID:          uuid.New,
	}, nil
}

// Restore builds a ledger by replaying committed operations in order. Every operation must
// replay cleanly and land on the balance it recorded.
func Restore(openingBalance decimal.Decimal, operations []*domain.Operation) (*Ledger, error) {
	l, err := New(openingBalance)
	if err != nil {
		return nil, err
	}

	for i, op := range operations {
		if _, err := l.Commit(op); err != nil {
			return nil, fmt.Errorf("replay operation #%d (%s): %w", i+1, op.ID, err)
		}
	}

	return l, nil
}

// Buy spends price*quantity of cash on code.
func (l *Ledger) Buy(code string, price, quantity decimal.Decimal) (*Receipt, error) {
	return l.execute(domain.OperationTypeBuy, code, price, quantity)
}

// Sell returns price*quantity of cash for a part of a held position.
func (l *Ledger) Sell(code string, price, quantity decimal.Decimal) (*Receipt, error) {
	return l.execute(domain.OperationTypeSell, code, price, quantity)
}

func (l *Ledger) execute(side, code string, price, quantity decimal.Decimal) (*Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	op, err := l.prepareLocked(side, code, price, quantity)
	if err != nil {
		return nil, err
	}

	l.applyLocked(op)

	return l.receipt(op), nil
}

// Prepare validates a command against the current book and returns the operation that
// Commit would apply. The book is not touched.
func (l *Ledger) Prepare(side, code string, price, quantity decimal.Decimal) (*domain.Operation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.prepareLocked(side, code, price, quantity)
}

func (l *Ledger) prepareLocked(side, code string, price, quantity decimal.Decimal) (*domain.Operation, error) {
	if err := l.validate(side, code, price, quantity); err != nil {
		return nil, err
	}

	total := price.Mul(quantity)

	return &domain.Operation{
		ID:          l.newID(),
		Type:        side,
		Code:        code,
		Quantity:    quantity,
		Price:       price,
		TotalAmount: total,
		Balance:     l.settledBalance(side, total),
		CreatedAt:   l.now(),
	}, nil
}

// Commit applies an operation returned by Prepare, or one read back from the journal. It
// fails with the book untouched when op no longer validates or would not land on op.Balance.
func (l *Ledger) Commit(op *domain.Operation) (*Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.validate(op.Type, op.Code, op.Price, op.Quantity); err != nil {
		return nil, err
	}

	if balance := l.settledBalance(op.Type, op.Price.Mul(op.Quantity)); !balance.Equal(op.Balance) {
		return nil, fmt.Errorf("%w: balance would be %s, operation says %s",
			traderrs.ErrStaleOperation, balance, op.Balance)
	}

	l.applyLocked(op)

	return l.receipt(op), nil
}

func (l *Ledger) validate(side, code string, price, quantity decimal.Decimal) error {
	switch side {
	case domain.OperationTypeBuy:
		return l.validateBuy(code, price, quantity)
	case domain.OperationTypeSell:
		return l.validateSell(code, price, quantity)
	default:
		return fmt.Errorf("%w: %q", traderrs.ErrUnknownSide, side)
	}
}

func (l *Ledger) settledBalance(side string, total decimal.Decimal) decimal.Decimal {
	if side == domain.OperationTypeSell {
		return l.balance.Add(total)
	}

	return l.balance.Sub(total)
}

// applyLocked books a validated operation.
func (l *Ledger) applyLocked(op *domain.Operation) {
	if op.Type == domain.OperationTypeSell {
		l.applySell(op.Code, op.Price, op.Quantity)
		return
	}

	l.applyBuy(op.Code, op.Price, op.Quantity)
}

func validateOrder(code string, price, quantity decimal.Decimal) error {
	if code == "" {
		return traderrs.ErrEmptyCode
	}

	if !price.IsPositive() {
		return fmt.Errorf("%w: %s", traderrs.ErrInvalidPrice, price)
	}

	if !quantity.IsPositive() {
		return fmt.Errorf("%w: %s", traderrs.ErrInvalidQuantity, quantity)
	}

	return nil
}

func (l *Ledger) validateBuy(code string, price, quantity decimal.Decimal) error {
	if err := validateOrder(code, price, quantity); err != nil {
		return err
	}

	if cost := price.Mul(quantity); cost.GreaterThan(l.balance) {
		return fmt.Errorf("%w: cost %s, balance %s", traderrs.ErrInsufficientFunds, cost, l.balance)
	}

	return nil
}

func (l *Ledger) validateSell(code string, price, quantity decimal.Decimal) error {
	if err := validateOrder(code, price, quantity); err != nil {
		return err
	}

	held, ok := l.positions[code]
	if !ok {
		return fmt.Errorf("%w: %s", traderrs.ErrNoPosition, code)
	}

	if quantity.GreaterThan(held.Quantity) {
		return fmt.Errorf("%w: want %s, hold %s", traderrs.ErrInsufficientQuantity, quantity, held.Quantity)
	}

	return nil
}

func (l *Ledger) applyBuy(code string, price, quantity decimal.Decimal) {
	cost := price.Mul(quantity)
	l.balance = l.balance.Sub(cost)

	held, ok := l.positions[code]
	if !ok {
		l.positions[code] = &Position{Code: code, Quantity: quantity, AveragePrice: price}
		return
	}

	newQty := held.Quantity.Add(quantity)
	newAvg := held.AveragePrice.Mul(held.Quantity).Add(cost).DivRound(newQty, averagePricePrecision)

	l.positions[code] = &Position{Code: code, Quantity: newQty, AveragePrice: newAvg}
}

func (l *Ledger) applySell(code string, price, quantity decimal.Decimal) {
	l.balance = l.balance.Add(price.Mul(quantity))

	held := l.positions[code]
	newQty := held.Quantity.Sub(quantity)

	if newQty.IsZero() {
		delete(l.positions, code)
		return
	}

	l.positions[code] = &Position{Code: code, Quantity: newQty, AveragePrice: held.AveragePrice}
}

func (l *Ledger) receipt(op *domain.Operation) *Receipt {
	r := &Receipt{Operation: op, Balance: l.balance}

	if held, ok := l.positions[op.Code]; ok {
		p := *held
		r.Position = &p
	}

	return r
}

func (l *Ledger) OpeningBalance() decimal.Decimal {
	return l.openingBalance
}

func (l *Ledger) Balance() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.balance
}

func (l *Ledger) Position(code string) (Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	held, ok := l.positions[code]
	if !ok {
		return Position{}, false
	}

	return *held, true
}

// Positions returns a copy of the book ordered by code.
func (l *Ledger) Positions() []Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.positionsLocked()
}

func (l *Ledger) positionsLocked() []Position {
	positions := make([]Position, 0, len(l.positions))
	for _, p := range l.positions {
		positions = append(positions, *p)
	}

	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Code < positions[j].Code
	})

	return positions
}

// Codes returns the held market codes ordered by code.
func (l *Ledger) Codes() []string {
	positions := l.Positions()

	codes := make([]string, 0, len(positions))
	for _, p := range positions {
		codes = append(codes, p.Code)
	}

	return codes
}
