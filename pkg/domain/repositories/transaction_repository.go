package repositories

import (
	"context"

	"github.com/vsinha/shipcheckout/pkg/domain/entities"
)

// TransactionFilter narrows List results; zero values match everything
type TransactionFilter struct {
	Status entities.TransactionStatus
	Limit  int
}

// TransactionRepository persists checkout transactions.
// Get and Delete return a NOT_FOUND domain error for unknown ids.
type TransactionRepository interface {
	Get(ctx context.Context, id string) (*entities.ShippingTransaction, error)
	Save(ctx context.Context, tx *entities.ShippingTransaction) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter TransactionFilter) ([]*entities.ShippingTransaction, error)

	// CountPickups returns how many open or confirmed transactions hold the slot on date
	CountPickups(ctx context.Context, date, slotID string) (int, error)
}
