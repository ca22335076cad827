package ports

import (
	"context"

	"github.com/samirrijal/geoindex/internal/core/domain"
)

// PlaceRepository persists places.
type PlaceRepository interface {
	// ListAll streams every place to fn in id order. Iteration stops at the
	// first error returned by fn.
	ListAll(ctx context.Context, fn func(p domain.Place) error) error
	GetByID(ctx context.Context, id int64) (*domain.Place, error)
	// GetByIDs returns the places found, in the order of ids. Unknown ids are
	// skipped.
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Place, error)
	UpsertBatch(ctx context.Context, places []domain.Place) error
	Count(ctx context.Context) (int, error)
}
