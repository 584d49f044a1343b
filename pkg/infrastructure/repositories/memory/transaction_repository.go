package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/shipcheckout/pkg/domain/entities"
	apperrors "github.com/vsinha/shipcheckout/pkg/domain/errors"
	"github.com/vsinha/shipcheckout/pkg/domain/repositories"
)

// TransactionRepository provides in-memory transaction storage. Stored records
// are deep copies, so callers never share state with the repository.
type TransactionRepository struct {
	mu           sync.RWMutex
	transactions map[string]*entities.ShippingTransaction
}

// NewTransactionRepository creates a new in-memory transaction repository
func NewTransactionRepository(expected int) *TransactionRepository {
	return &TransactionRepository{
		transactions: make(map[string]*entities.ShippingTransaction, expected),
	}
}

// Verify interface compliance
var _ repositories.TransactionRepository = (*TransactionRepository)(nil)

// Get returns a copy of the transaction
func (r *TransactionRepository) Get(_ context.Context, id string) (*entities.ShippingTransaction, error) {
	r.mu.RLock()
	stored, exists := r.transactions[id]
	r.mu.RUnlock()
	if !exists {
		return nil, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("transaction not found: %s", id))
	}
	return stored.Clone()
}

// Save inserts or replaces the transaction
func (r *TransactionRepository) Save(_ context.Context, tx *entities.ShippingTransaction) error {
	if tx == nil || tx.ID == "" {
		return apperrors.New(apperrors.CodeInvalidArgument, "transaction id is required")
	}
	stored, err := tx.Clone()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if number := tx.ConfirmationNumber; number != "" {
		for id, existing := range r.transactions {
			if id != tx.ID && existing.ConfirmationNumber == number {
				return apperrors.New(apperrors.CodeAlreadyExists, fmt.Sprintf("confirmation number already issued: %s", number))
			}
		}
	}
	r.transactions[tx.ID] = stored
	return nil
}

// Delete removes the transaction
func (r *TransactionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.transactions[id]; !exists {
		return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("transaction not found: %s", id))
	}
	delete(r.transactions, id)
	return nil
}

// List returns transactions ordered by most recent update first
func (r *TransactionRepository) List(_ context.Context, filter repositories.TransactionFilter) ([]*entities.ShippingTransaction, error) {
	r.mu.RLock()
	matched := make([]*entities.ShippingTransaction, 0, len(r.transactions))
	for _, tx := range r.transactions {
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		matched = append(matched, tx)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	result := make([]*entities.ShippingTransaction, 0, len(matched))
	for _, tx := range matched {
		clone, err := tx.Clone()
		if err != nil {
			return nil, err
		}
		result = append(result, clone)
	}
	return result, nil
}

// CountPickups counts non-cancelled transactions booked into the slot
func (r *TransactionRepository) CountPickups(_ context.Context, date, slotID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, tx := range r.transactions {
		if tx.Status == entities.StatusCancelled || tx.Pickup == nil {
			continue
		}
		if tx.Pickup.Date == date && tx.Pickup.Slot.ID == slotID {
			count++
		}
	}
	return count, nil
}
