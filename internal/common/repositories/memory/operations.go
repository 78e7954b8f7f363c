// Package memory keeps the operation journal and chat settings in process memory. It backs
// the service when no database is configured.
package memory

import (
	"context"
	"sync"

	"github.com/leonid6372/upbit-paper/internal/common/domain"
)

type operationsRepository struct {
	mu         sync.RWMutex
	operations []*domain.Operation
}

func NewOperationsRepository() domain.OperationsRepository {
	return &operationsRepository{}
}

func (or *operationsRepository) SaveOperation(_ context.Context, operation *domain.Operation) error {
	op := *operation

	or.mu.Lock()
	defer or.mu.Unlock()

	or.operations = append(or.operations, &op)

	return nil
}

func (or *operationsRepository) GetOperations(_ context.Context) ([]*domain.Operation, error) {
	or.mu.RLock()
	defer or.mu.RUnlock()

	operations := make([]*domain.Operation, 0, len(or.operations))
	for _, op := range or.operations {
		cp := *op
		operations = append(operations, &cp)
	}

	return operations, nil
}

func (or *operationsRepository) GetOperationsPagesCount(_ context.Context) (int64, error) {
	or.mu.RLock()
	defer or.mu.RUnlock()

	return domain.PagesCount(int64(len(or.operations)), domain.OperationsPerPage), nil
}

func (or *operationsRepository) GetOperationsByPage(_ context.Context, page int64) ([]*domain.Operation, error) {
	if page < 1 {
		page = 1
	}

	or.mu.RLock()
	defer or.mu.RUnlock()

	operations := []*domain.Operation{}

	// newest first
	start := int64(len(or.operations)) - 1 - (page-1)*domain.OperationsPerPage
	for i := start; i >= 0 && i > start-domain.OperationsPerPage; i-- {
		cp := *or.operations[i]
		operations = append(operations, &cp)
	}

	return operations, nil
}
