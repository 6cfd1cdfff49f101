package storage

import (
	"context"

	"rateScope/internal/model"
)

// Storage defines a sink for quote records.
type Storage interface {
	PutQuoteBatch(ctx context.Context, quotes []model.QuoteRecord) error
}
