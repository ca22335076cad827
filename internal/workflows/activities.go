package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/samirrijal/geoindex/internal/core/domain"
	"github.com/samirrijal/geoindex/internal/core/ports"
)

const backfillBatchSize = 500

var errNoPublisher = errors.New("no event publisher configured")

// ReindexActivities holds the activity implementations for the reindex workflow.
type ReindexActivities struct {
	Places ports.PlaceRepository
	Events ports.EventPublisher
}

// BackfillGeohashes computes the geohash of every place stored without one
// and returns the number of updated places.
func (a *ReindexActivities) BackfillGeohashes(ctx context.Context) (int, error) {
	var pending []domain.Place
	updated := 0

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := a.Places.UpsertBatch(ctx, pending); err != nil {
			return fmt.Errorf("upsert geohashes: %w", err)
		}
		updated += len(pending)
		pending = pending[:0]
		if activity.IsActivity(ctx) {
			activity.RecordHeartbeat(ctx, updated)
		}
		return nil
	}

	err := a.Places.ListAll(ctx, func(p domain.Place) error {
		if p.Geohash != "" {
			return nil
		}
		if err := p.ComputeGeohash(); err != nil {
			// left for the index rebuild to reject and count
			return nil
		}
		pending = append(pending, p)
		if len(pending) >= backfillBatchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return updated, fmt.Errorf("backfill geohashes: %w", err)
	}
	if err := flush(); err != nil {
		return updated, err
	}
	return updated, nil
}

// CountPlaces returns the number of stored places.
func (a *ReindexActivities) CountPlaces(ctx context.Context) (int, error) {
	return a.Places.Count(ctx)
}

// AnnouncePlacesChanged publishes a places.changed event, which makes every
// API instance rebuild its index.
func (a *ReindexActivities) AnnouncePlacesChanged(ctx context.Context, source string, count int) error {
	if a.Events == nil {
		return errNoPublisher
	}
	return a.Events.PublishPlacesChanged(ctx, &domain.PlacesChanged{
		Source:  source,
		Count:   count,
		Changed: time.Now().UTC(),
	})
}
