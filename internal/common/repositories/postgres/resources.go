package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/leonid6372/upbit-paper/internal/common/domain"
	"github.com/shopspring/decimal"
)

// Operation is a journal row. Numeric columns are read as text to keep their exact scale.
type Operation struct {
	ID   uuid.UUID `db:"id"`
	Type string    `db:"type"`
	Code string    `db:"code"`

	Quantity    string `db:"quantity"`
	Price       string `db:"price"`
	TotalAmount string `db:"total_amount"`
	Balance     string `db:"balance"`

	CreatedAt time.Time `db:"created_at"`
}

func (o *Operation) CreateDomain() (*domain.Operation, error) {
	operation := &domain.Operation{
		ID:        o.ID,
		Type:      o.Type,
		Code:      o.Code,
		CreatedAt: o.CreatedAt,
	}

	for _, f := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"quantity", o.Quantity, &operation.Quantity},
		{"price", o.Price, &operation.Price},
		{"total_amount", o.TotalAmount, &operation.TotalAmount},
		{"balance", o.Balance, &operation.Balance},
	} {
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return nil, fmt.Errorf("operation %s: parse %s: %w", o.ID, f.name, err)
		}

		*f.dst = v
	}

	return operation, nil
}
