package repositories

import (
	"context"

	"github.com/vsinha/shipcheckout/pkg/domain/entities"
)

// RateRepository provides access to the carrier rate table
type RateRepository interface {
	Rates(ctx context.Context) ([]entities.RateEntry, error)
}
