package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OperationsRepository interface {
	SaveOperation(ctx context.Context, operation *Operation) error
	// GetOperations returns the whole journal in commit order.
	GetOperations(ctx context.Context) ([]*Operation, error)
	GetOperationsPagesCount(ctx context.Context) (int64, error)
	// GetOperationsByPage returns a page of the journal, newest first. Pages start at 1.
	GetOperationsByPage(ctx context.Context, page int64) ([]*Operation, error)
}

// Operation is a committed ledger command.
type Operation struct {
	ID uuid.UUID `json:"id"`

	Type        string          `json:"type"`
	Code        string          `json:"code"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Balance     decimal.Decimal `json:"balance"`

	CreatedAt time.Time `json:"created_at"`
}

func PagesCount(itemsCount, perPage int64) int64 {
	return (itemsCount + perPage - 1) / perPage
}
