package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/samirrijal/geoindex/internal/core/domain"
)

// --- Mock PlaceRepository ---

type mockPlaceRepo struct {
	listAllFn  func(ctx context.Context, fn func(p domain.Place) error) error
	getByIDFn  func(ctx context.Context, id int64) (*domain.Place, error)
	getByIDsFn func(ctx context.Context, ids []int64) ([]domain.Place, error)
	upsertFn   func(ctx context.Context, places []domain.Place) error
}

func (m *mockPlaceRepo) ListAll(ctx context.Context, fn func(p domain.Place) error) error {
	if m.listAllFn != nil {
		return m.listAllFn(ctx, fn)
	}
	return nil
}

func (m *mockPlaceRepo) GetByID(ctx context.Context, id int64) (*domain.Place, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockPlaceRepo) GetByIDs(ctx context.Context, ids []int64) ([]domain.Place, error) {
	if m.getByIDsFn != nil {
		return m.getByIDsFn(ctx, ids)
	}
	return nil, nil
}

func (m *mockPlaceRepo) UpsertBatch(ctx context.Context, places []domain.Place) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, places)
	}
	return nil
}

func (m *mockPlaceRepo) Count(ctx context.Context) (int, error) { return 0, nil }

// memRepo backs a mockPlaceRepo with a fixed set of places.
func memRepo(places ...domain.Place) *mockPlaceRepo {
	byID := make(map[int64]domain.Place, len(places))
	for _, p := range places {
		byID[p.ID] = p
	}
	return &mockPlaceRepo{
		listAllFn: func(ctx context.Context, fn func(p domain.Place) error) error {
			for _, p := range places {
				if err := fn(p); err != nil {
					return err
				}
			}
			return nil
		},
		getByIDFn: func(ctx context.Context, id int64) (*domain.Place, error) {
			p, ok := byID[id]
			if !ok {
				return nil, domain.ErrNotFound
			}
			return &p, nil
		},
		getByIDsFn: func(ctx context.Context, ids []int64) ([]domain.Place, error) {
			var out []domain.Place
			// reverse order, callers must not rely on it
			for i := len(ids) - 1; i >= 0; i-- {
				if p, ok := byID[ids[i]]; ok {
					out = append(out, p)
				}
			}
			return out, nil
		},
	}
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.sets++
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	rebuilt []*domain.IndexRebuilt
	changed []*domain.PlacesChanged
}

func (m *mockPublisher) PublishPlacesChanged(ctx context.Context, ev *domain.PlacesChanged) error {
	m.changed = append(m.changed, ev)
	return nil
}

func (m *mockPublisher) PublishIndexRebuilt(ctx context.Context, ev *domain.IndexRebuilt) error {
	m.rebuilt = append(m.rebuilt, ev)
	return nil
}

func place(id int64, name string, lat, lon float64) domain.Place {
	return domain.Place{ID: id, Name: name, Location: domain.GeoPoint{Lat: lat, Lon: lon}}
}

var saxony = []domain.Place{
	place(1, "Dresden", 51.05, 13.74),
	place(2, "Leipzig", 51.34, 12.37),
	place(3, "Berlin", 52.52, 13.405),
	place(4, "Dresden Süd", 50.93, 13.74),
	place(5, "Munich", 48.137, 11.575),
}
