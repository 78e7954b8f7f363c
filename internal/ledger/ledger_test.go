package ledger

import (
	"errors"
	"testing"

	"github.com/leonid6372/upbit-paper/internal/common/domain"
	"github.com/leonid6372/upbit-paper/internal/traderrs"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newLedger(t *testing.T, balance string) *Ledger {
	t.Helper()

	l, err := New(d(balance))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	return l
}

func assertDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()

	if !got.Equal(d(want)) {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}

func TestBuyOnEmptyLedger(t *testing.T) {
	l := newLedger(t, "10000")

	r, err := l.Buy("X", d("100"), d("2"))
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}

	assertDecimal(t, "balance", l.Balance(), "9800")
	assertDecimal(t, "receipt balance", r.Balance, "9800")

	p, ok := l.Position("X")
	if !ok {
		t.Fatal("expected position X")
	}

	assertDecimal(t, "quantity", p.Quantity, "2")
	assertDecimal(t, "average price", p.AveragePrice, "100")

	if r.Operation.Type != domain.OperationTypeBuy || r.Operation.Code != "X" {
		t.Errorf("unexpected operation %+v", r.Operation)
	}

	assertDecimal(t, "total amount", r.Operation.TotalAmount, "200")
}

func TestBuyWeightedAverage(t *testing.T) {
	l := newLedger(t, "10000")

	if _, err := l.Buy("X", d("100"), d("2")); err != nil {
		t.Fatalf("Buy: %v", err)
	}

	r, err := l.Buy("X", d("200"), d("2"))
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}

	assertDecimal(t, "quantity", r.Position.Quantity, "4")
	assertDecimal(t, "average price", r.Position.AveragePrice, "150")
	assertDecimal(t, "balance", l.Balance(), "9400")
}

func TestSellWholePositionRemovesIt(t *testing.T) {
	l := newLedger(t, "10000")

	if _, err := l.Buy("X", d("100"), d("2")); err != nil {
		t.Fatalf("Buy: %v", err)
	}

	if _, err := l.Buy("X", d("200"), d("2")); err != nil {
		t.Fatalf("Buy: %v", err)
	}

	before := l.Balance()

	r, err := l.Sell("X", d("150"), d("4"))
	if err != nil {
		t.Fatalf("Sell: %v", err)
	}

	if _, ok := l.Position("X"); ok {
		t.Error("expected position X to be removed")
	}

	if r.Position != nil {
		t.Errorf("expected nil position in receipt, got %+v", r.Position)
	}

	assertDecimal(t, "balance increase", l.Balance().Sub(before), "600")

	if len(l.Positions()) != 0 {
		t.Errorf("expected empty book, got %v", l.Positions())
	}
}

func TestPartialSellKeepsAverage(t *testing.T) {
	l := newLedger(t, "10000")

	if _, err := l.Buy("X", d("100"), d("3")); err != nil {
		t.Fatalf("Buy: %v", err)
	}

	r, err := l.Sell("X", d("500"), d("1"))
	if err != nil {
		t.Fatalf("Sell: %v", err)
	}

	assertDecimal(t, "quantity", r.Position.Quantity, "2")
	assertDecimal(t, "average price", r.Position.AveragePrice, "100")
	assertDecimal(t, "balance", l.Balance(), "10200")
}

func TestRejectionsLeaveLedgerUnchanged(t *testing.T) {
	tests := []struct {
		name string
		run  func(l *Ledger) error
		want error
	}{
		{
			name: "insufficient funds",
			run: func(l *Ledger) error {
				_, err := l.Buy("X", d("50"), d("1000"))
				return err
			},
			want: traderrs.ErrInsufficientFunds,
		},
		{
			name: "no position",
			run: func(l *Ledger) error {
				_, err := l.Sell("Y", d("10"), d("1"))
				return err
			},
			want: traderrs.ErrNoPosition,
		},
		{
			name: "insufficient quantity",
			run: func(l *Ledger) error {
				_, err := l.Sell("X", d("10"), d("3"))
				return err
			},
			want: traderrs.ErrInsufficientQuantity,
		},
		{
			name: "zero price",
			run: func(l *Ledger) error {
				_, err := l.Buy("X", d("0"), d("1"))
				return err
			},
			want: traderrs.ErrInvalidPrice,
		},
		{
			name: "negative quantity",
			run: func(l *Ledger) error {
				_, err := l.Sell("X", d("10"), d("-1"))
				return err
			},
			want: traderrs.ErrInvalidQuantity,
		},
		{
			name: "empty code",
			run: func(l *Ledger) error {
				_, err := l.Buy("", d("10"), d("1"))
				return err
			},
			want: traderrs.ErrEmptyCode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLedger(t, "10000")

			if _, err := l.Buy("X", d("100"), d("2")); err != nil {
				t.Fatalf("Buy: %v", err)
			}

			err := tt.run(l)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}

			assertDecimal(t, "balance", l.Balance(), "9800")

			p, ok := l.Position("X")
			if !ok {
				t.Fatal("expected position X to survive")
			}

			assertDecimal(t, "quantity", p.Quantity, "2")
			assertDecimal(t, "average price", p.AveragePrice, "100")
		})
	}
}

func TestBuyExactBalance(t *testing.T) {
	l := newLedger(t, "1000")

	if _, err := l.Buy("X", d("250"), d("4")); err != nil {
		t.Fatalf("expected buy of the whole balance to pass, got %v", err)
	}

	assertDecimal(t, "balance", l.Balance(), "0")
}

func TestNoDriftAcrossManyTrades(t *testing.T) {
	l := newLedger(t, "10000000")

	for i := 0; i < 1000; i++ {
		if _, err := l.Buy("KRW-BTC", d("0.1"), d("0.001")); err != nil {
			t.Fatalf("Buy #%d: %v", i, err)
		}
	}

	p, _ := l.Position("KRW-BTC")
	assertDecimal(t, "quantity", p.Quantity, "1")
	assertDecimal(t, "average price", p.AveragePrice, "0.1")
	assertDecimal(t, "balance", l.Balance(), "9999999.9")
}

func TestNewRejectsNegativeBalance(t *testing.T) {
	if _, err := New(d("-1")); !errors.Is(err, traderrs.ErrInvalidOpeningBalance) {
		t.Fatalf("expected ErrInvalidOpeningBalance, got %v", err)
	}
}

func TestRestoreReplaysJournal(t *testing.T) {
	src := newLedger(t, "10000")

	var ops []*domain.Operation

	for _, step := range []func() (*Receipt, error){
		func() (*Receipt, error) { return src.Buy("X", d("100"), d("2")) },
		func() (*Receipt, error) { return src.Buy("Y", d("10"), d("5")) },
		func() (*Receipt, error) { return src.Buy("X", d("200"), d("2")) },
		func() (*Receipt, error) { return src.Sell("Y", d("12"), d("5")) },
	} {
		r, err := step()
		if err != nil {
			t.Fatalf("step: %v", err)
		}

		ops = append(ops, r.Operation)
	}

	restored, err := Restore(d("10000"), ops)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	assertDecimal(t, "balance", restored.Balance(), src.Balance().String())

	if got, want := restored.Codes(), src.Codes(); len(got) != 1 || got[0] != want[0] {
		t.Errorf("codes = %v, want %v", got, want)
	}

	p, _ := restored.Position("X")
	assertDecimal(t, "average price", p.AveragePrice, "150")
}

func TestRestoreDetectsDivergence(t *testing.T) {
	ops := []*domain.Operation{{
		Type:     domain.OperationTypeBuy,
		Code:     "X",
		Quantity: d("1"),
		Price:    d("100"),
		Balance:  d("1"),
	}}

	if _, err := Restore(d("10000"), ops); !errors.Is(err, traderrs.ErrStaleOperation) {
		t.Fatalf("expected ErrStaleOperation, got %v", err)
	}
}

func TestRestoreRejectsInvalidOperation(t *testing.T) {
	ops := []*domain.Operation{{
		Type:     domain.OperationTypeSell,
		Code:     "X",
		Quantity: d("1"),
		Price:    d("100"),
		Balance:  d("10100"),
	}}

	if _, err := Restore(d("10000"), ops); !errors.Is(err, traderrs.ErrNoPosition) {
		t.Fatalf("expected ErrNoPosition, got %v", err)
	}
}

func TestPrepareLeavesBookUntouched(t *testing.T) {
	l := newLedger(t, "10000")

	op, err := l.Prepare(domain.OperationTypeBuy, "X", d("100"), d("3"))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	assertDecimal(t, "balance after prepare", l.Balance(), "10000")
	assertDecimal(t, "operation balance", op.Balance, "9700")
	assertDecimal(t, "total amount", op.TotalAmount, "300")

	if _, ok := l.Position("X"); ok {
		t.Fatal("prepare opened a position")
	}

	r, err := l.Commit(op)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if r.Operation != op || r.Position == nil {
		t.Errorf("unexpected receipt %+v", r)
	}

	assertDecimal(t, "balance after commit", l.Balance(), "9700")
}

func TestPrepareRejections(t *testing.T) {
	l := newLedger(t, "100")

	if _, err := l.Prepare(domain.OperationTypeSell, "X", d("1"), d("1")); !errors.Is(err, traderrs.ErrNoPosition) {
		t.Errorf("sell: %v", err)
	}

	if _, err := l.Prepare(domain.OperationTypeBuy, "X", d("200"), d("1")); !errors.Is(err, traderrs.ErrInsufficientFunds) {
		t.Errorf("buy: %v", err)
	}

	if _, err := l.Prepare("short", "X", d("1"), d("1")); !errors.Is(err, traderrs.ErrUnknownSide) {
		t.Errorf("short: %v", err)
	}
}

func TestCommitRejectsStaleOperation(t *testing.T) {
	l := newLedger(t, "10000")

	op, err := l.Prepare(domain.OperationTypeBuy, "X", d("100"), d("1"))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	if _, err := l.Buy("Y", d("50"), d("1")); err != nil {
		t.Fatalf("Buy: %v", err)
	}

	if _, err := l.Commit(op); !errors.Is(err, traderrs.ErrStaleOperation) {
		t.Fatalf("expected ErrStaleOperation, got %v", err)
	}

	assertDecimal(t, "balance", l.Balance(), "9950")

	if _, ok := l.Position("X"); ok {
		t.Error("stale operation was booked")
	}
}
