package ports

import (
	"context"

	"github.com/samirrijal/geoindex/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishPlacesChanged(ctx context.Context, ev *domain.PlacesChanged) error
	PublishIndexRebuilt(ctx context.Context, ev *domain.IndexRebuilt) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribePlacesChanged(ctx context.Context, handler func(ctx context.Context, ev *domain.PlacesChanged) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
