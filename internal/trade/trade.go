// Package trade executes paper orders against the ledger at cached market prices and keeps
// the operation journal in step with the book.
package trade

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/leonid6372/upbit-paper/internal/common/domain"
	"github.com/leonid6372/upbit-paper/internal/ledger"
	"github.com/leonid6372/upbit-paper/internal/ticker"
	"github.com/leonid6372/upbit-paper/internal/traderrs"
	"github.com/leonid6372/upbit-paper/pkg/errs"
	"github.com/leonid6372/upbit-paper/pkg/log"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Quotes is the read side of the ticker cache.
type Quotes interface {
	Latest(code string) (*domain.Ticker, bool)
}

// PortfolioHandle is the registry subscription that keeps held markets priced.
const PortfolioHandle ticker.Handle = "portfolio"

// Markets tells listed market codes from unknown ones.
type Markets interface {
	Check(ctx context.Context, code string) error
}

// Watcher is the write side of the subscription registry.
type Watcher interface {
	Subscribe(h ticker.Handle, codes []string)
}

type Order struct {
	Side     string
	Code     string
	Quantity decimal.Decimal
	// Price is the execution price. The latest cached trade price is used when nil.
	Price *decimal.Decimal
}

type Service struct {
	// mu keeps the journal in ledger commit order.
	mu sync.Mutex

	ledger  *ledger.Ledger
	repo    domain.OperationsRepository
	quotes  Quotes
	markets Markets

	watcher Watcher
}

func NewService(l *ledger.Ledger, repo domain.OperationsRepository, quotes Quotes, markets Markets) *Service {
	return &Service{
		ledger:  l,
		repo:    repo,
		quotes:  quotes,
		markets: markets,
	}
}

// WatchPositions subscribes the held markets now and after every commit.
func (s *Service) WatchPositions(w Watcher) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.watcher = w
	s.watchLocked()
}

func (s *Service) watchLocked() {
	if s.watcher != nil {
		s.watcher.Subscribe(PortfolioHandle, s.ledger.Codes())
	}
}

// RestoreLedger rebuilds the book from the journal.
func RestoreLedger(ctx context.Context, openingBalance decimal.Decimal, repo domain.OperationsRepository) (*ledger.Ledger, error) {
	operations, err := repo.GetOperations(ctx)
	if err != nil {
		return nil, err
	}

	l, err := ledger.Restore(openingBalance, operations)
	if err != nil {
		return nil, errs.NewStack(err)
	}

	log.Info("ledger restored",
		zap.Int("operations", len(operations)),
		zap.Stringer("balance", l.Balance()),
	)

	return l, nil
}

// Execute journals order and then commits it to the ledger. An order the journal could not
// take is rejected with ErrJournalUnavailable and leaves the ledger untouched.
func (s *Service) Execute(ctx context.Context, order Order) (*ledger.Receipt, error) {
	code := strings.ToUpper(strings.TrimSpace(order.Code))
	if code == "" {
		return nil, traderrs.ErrEmptyCode
	}

	side := strings.ToLower(order.Side)
	if side != domain.OperationTypeBuy && side != domain.OperationTypeSell {
		return nil, fmt.Errorf("%w: %q", traderrs.ErrUnknownSide, order.Side)
	}

	if err := s.markets.Check(ctx, code); err != nil {
		return nil, err
	}

	price, err := s.price(code, order.Price)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	op, err := s.ledger.Prepare(side, code, price, order.Quantity)
	if err != nil {
		log.Debug("order rejected",
			zap.String("side", side),
			zap.String("code", code),
			zap.Error(err),
		)

		return nil, err
	}

	if err := s.repo.SaveOperation(ctx, op); err != nil {
		log.Error("failed to journal operation",
			zap.String("id", op.ID.String()),
			zap.String("code", code),
			zap.Error(err),
		)

		return nil, fmt.Errorf("%w: operation %s: %w", traderrs.ErrJournalUnavailable, op.ID, err)
	}

	receipt, err := s.ledger.Commit(op)
	if err != nil {
		// only reachable when the ledger is traded around the service
		return nil, errs.NewStack(fmt.Errorf("commit journaled operation %s: %w", op.ID, err))
	}

	s.watchLocked()

	log.Info("order committed",
		zap.String("id", op.ID.String()),
		zap.String("side", op.Type),
		zap.String("code", op.Code),
		zap.Stringer("quantity", op.Quantity),
		zap.Stringer("price", op.Price),
		zap.Stringer("balance", op.Balance),
	)

	return receipt, nil
}

func (s *Service) Buy(ctx context.Context, code string, quantity decimal.Decimal) (*ledger.Receipt, error) {
	return s.Execute(ctx, Order{Side: domain.OperationTypeBuy, Code: code, Quantity: quantity})
}

func (s *Service) Sell(ctx context.Context, code string, quantity decimal.Decimal) (*ledger.Receipt, error) {
	return s.Execute(ctx, Order{Side: domain.OperationTypeSell, Code: code, Quantity: quantity})
}

func (s *Service) price(code string, price *decimal.Decimal) (decimal.Decimal, error) {
	if price != nil {
		return *price, nil
	}

	t, ok := s.quotes.Latest(code)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", traderrs.ErrPriceUnavailable, code)
	}

	return t.TradePrice, nil
}

// Portfolio marks the book to the cached prices.
func (s *Service) Portfolio() *ledger.Valuation {
	return s.ledger.Evaluate(func(code string) (decimal.Decimal, bool) {
		t, ok := s.quotes.Latest(code)
		if !ok {
			return decimal.Zero, false
		}

		return t.TradePrice, true
	})
}

// History returns a page of the journal, newest first, and the number of pages.
func (s *Service) History(ctx context.Context, page int64) ([]*domain.Operation, int64, error) {
	pages, err := s.repo.GetOperationsPagesCount(ctx)
	if err != nil {
		return nil, 0, err
	}

	operations, err := s.repo.GetOperationsByPage(ctx, page)
	if err != nil {
		return nil, 0, err
	}

	return operations, pages, nil
}

// HeldCodes returns the codes of the open positions.
func (s *Service) HeldCodes() []string {
	return s.ledger.Codes()
}

func (s *Service) Ledger() *ledger.Ledger {
	return s.ledger
}
