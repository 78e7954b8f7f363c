package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/leonid6372/upbit-paper/internal/common/domain"
	"github.com/leonid6372/upbit-paper/pkg/errs"
)

const selectOperations = `SELECT
		id,
		type,
		code,
		quantity::text,
		price::text,
		total_amount::text,
		balance::text,
		created_at
	FROM operations`

type operationsRepository struct {
	psql *pgxpool.Pool
}

func NewOperationsRepository(pool *pgxpool.Pool) domain.OperationsRepository {
	return &operationsRepository{
		psql: pool,
	}
}

func (or *operationsRepository) SaveOperation(ctx context.Context, operation *domain.Operation) error {
	query := `INSERT INTO operations(
			id,
			type,
			code,
			quantity,
			price,
			total_amount,
			balance,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := or.psql.Exec(ctx,
		query,
		operation.ID,
		operation.Type,
		operation.Code,
		operation.Quantity,
		operation.Price,
		operation.TotalAmount,
		operation.Balance,
		operation.CreatedAt,
	)
	if err != nil {
		return errs.NewStack(err)
	}

	return nil
}

func (or *operationsRepository) GetOperations(ctx context.Context) ([]*domain.Operation, error) {
	query := selectOperations + ` ORDER BY seq`

	return or.query(ctx, query)
}

func (or *operationsRepository) GetOperationsPagesCount(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM operations`
	var operationsCount int64
	if err := or.psql.QueryRow(ctx, query).Scan(&operationsCount); err != nil {
		return 0, errs.NewStack(err)
	}

	return domain.PagesCount(operationsCount, domain.OperationsPerPage), nil
}

func (or *operationsRepository) GetOperationsByPage(ctx context.Context, page int64) ([]*domain.Operation, error) {
	if page < 1 {
		page = 1
	}

	query := selectOperations + ` ORDER BY seq DESC LIMIT $1 OFFSET $2`

	return or.query(ctx, query, domain.OperationsPerPage, (page-1)*domain.OperationsPerPage)
}

func (or *operationsRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Operation, error) {
	rows, err := or.psql.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.NewStack(err)
	}
	defer rows.Close()

	operations := []*domain.Operation{}
	for rows.Next() {
		operation := &Operation{}
		if err := rows.Scan(
			&operation.ID,
			&operation.Type,
			&operation.Code,
			&operation.Quantity,
			&operation.Price,
			&operation.TotalAmount,
			&operation.Balance,
			&operation.CreatedAt,
		); err != nil {
			return nil, errs.NewStack(err)
		}

		op, err := operation.CreateDomain()
		if err != nil {
			return nil, errs.NewStack(err)
		}

		operations = append(operations, op)
	}

	if err := rows.Err(); err != nil {
		return nil, errs.NewStack(err)
	}

	return operations, nil
}
