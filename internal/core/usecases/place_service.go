package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/geoindex/internal/core/domain"
	"github.com/samirrijal/geoindex/internal/core/ports"
	"github.com/samirrijal/geoindex/internal/pkg/geospatial"
	"github.com/samirrijal/geoindex/internal/pkg/metrics"
	"github.com/samirrijal/geoindex/internal/pkg/pointindex"
	"github.com/samirrijal/geoindex/internal/pkg/telemetry"
)

// cacheCellLength is the geohash length of nearby cache keys. Every query
// point in one cell, a few centimetres wide, shares the result of the first
// query, so cached distances and radius membership can be off by up to the
// cell size.
const cacheCellLength = 12

// PlaceOptions tunes a PlaceService.
type PlaceOptions struct {
	Precision         pointindex.Precision
	ParallelThreshold int
	MaxRadiusMeters   float64
	MaxResults        int
	CacheTTLSeconds   int
}

// snapshot is one immutable, fully sorted index generation.
type snapshot struct {
	index      pointindex.Searcher
	stats      domain.IndexStats
	generation uint64
}

// PlaceService serves place queries from an in-memory index snapshot that is
// rebuilt from the repository.
type PlaceService struct {
	places ports.PlaceRepository
	cache  ports.CacheService
	events ports.EventPublisher
	opts   PlaceOptions

	current    atomic.Pointer[snapshot]
	generation atomic.Uint64
	rebuildMu  sync.Mutex
}

// NewPlaceService creates a new PlaceService. cache and events may be nil.
func NewPlaceService(places ports.PlaceRepository, cache ports.CacheService, events ports.EventPublisher, opts PlaceOptions) *PlaceService {
	if opts.Precision == "" {
		opts.Precision = pointindex.PrecisionFull
	}
	if opts.MaxRadiusMeters <= 0 {
		opts.MaxRadiusMeters = 100_000
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 500
	}
	if opts.CacheTTLSeconds <= 0 {
		opts.CacheTTLSeconds = 300
	}
	return &PlaceService{places: places, cache: cache, events: events, opts: opts}
}

// Rebuild loads every place into a new index, sorts it and swaps it in.
// Queries keep using the previous snapshot until the swap. Concurrent calls
// are serialized.
func (s *PlaceService) Rebuild(ctx context.Context) (domain.IndexStats, error) {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanIndexRebuild)
	defer span.End()

	start := time.Now()
	var popts []pointindex.Option
	if s.opts.ParallelThreshold != 0 {
		popts = append(popts, pointindex.WithParallelThreshold(s.opts.ParallelThreshold))
	}
	builder := pointindex.NewForPrecision(s.opts.Precision, popts...)

	_, loadSpan := telemetry.StartSpan(ctx, telemetry.SpanIndexLoad)
	rejected := 0
	err := s.places.ListAll(ctx, func(p domain.Place) error {
		if err := geospatial.ValidateCoordinateRange(p.Location.Lat, p.Location.Lon); err != nil {
			rejected++
			slog.Warn("skipping place with invalid location", "id", p.ID, "error", err)
			return nil
		}
		builder.Put(p.Location.Lat, p.Location.Lon, p.ID)
		return nil
	})
	loadSpan.End()
	if err != nil {
		metrics.IndexRebuilds.WithLabelValues("error").Inc()
		span.RecordError(err)
		return domain.IndexStats{}, fmt.Errorf("load places: %w", err)
	}

	_, sortSpan := telemetry.StartSpan(ctx, telemetry.SpanIndexSort)
	builder.Sort()
	sortSpan.End()

	stats := domain.IndexStats{
		Points:    builder.Len(),
		Precision: string(s.opts.Precision),
		BuiltAt:   time.Now().UTC(),
		Duration:  time.Since(start),
		Rejected:  rejected,
	}
	s.current.Store(&snapshot{index: builder, stats: stats, generation: s.generation.Add(1)})

	metrics.IndexRebuilds.WithLabelValues("ok").Inc()
	metrics.IndexRebuildDuration.Observe(stats.Duration.Seconds())
	metrics.IndexPoints.WithLabelValues(stats.Precision).Set(float64(stats.Points))
	metrics.IndexRejectedPlaces.Add(float64(rejected))
	span.SetAttributes(
		attribute.Int(telemetry.AttrPoints, stats.Points),
		attribute.String(telemetry.AttrPrecision, stats.Precision),
	)

	slog.Info("index rebuilt",
		"points", stats.Points,
		"rejected", rejected,
		"precision", stats.Precision,
		"duration", stats.Duration,
	)

	if s.events != nil {
		ev := &domain.IndexRebuilt{
			Points:     stats.Points,
			Precision:  stats.Precision,
			BuiltAt:    stats.BuiltAt,
			DurationMs: stats.Duration.Milliseconds(),
		}
		if err := s.events.PublishIndexRebuilt(ctx, ev); err != nil {
			slog.Warn("publish index rebuilt failed", "error", err)
		}
	}

	return stats, nil
}

// HandlePlacesChanged rebuilds the index after places were written.
func (s *PlaceService) HandlePlacesChanged(ctx context.Context, ev *domain.PlacesChanged) error {
	slog.Info("places changed, rebuilding index", "source", ev.Source, "count", ev.Count)
	_, err := s.Rebuild(ctx)
	return err
}

// RunPeriodicRebuild rebuilds the index every interval until ctx is done.
// A non-positive interval disables periodic rebuilds.
func (s *PlaceService) RunPeriodicRebuild(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Rebuild(ctx); err != nil {
				slog.Error("periodic rebuild failed", "error", err)
			}
		}
	}
}

// Ready reports whether an index snapshot is being served.
func (s *PlaceService) Ready() bool {
	return s.current.Load() != nil
}

// Stats returns statistics of the served snapshot.
func (s *PlaceService) Stats() (domain.IndexStats, error) {
	snap := s.current.Load()
	if snap == nil {
		return domain.IndexStats{}, domain.ErrIndexNotReady
	}
	return snap.stats, nil
}

// Nearby returns places within radiusMeters of (lat, lon), nearest first.
func (s *PlaceService) Nearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Place, error) {
	if err := geospatial.ValidateCoordinateRange(lat, lon); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	if math.IsNaN(radiusMeters) || radiusMeters <= 0 || radiusMeters > s.opts.MaxRadiusMeters {
		return nil, fmt.Errorf("%w: radius must be between 0 and %.0f meters", domain.ErrInvalidQuery, s.opts.MaxRadiusMeters)
	}
	limit = s.clampLimit(limit)

	snap := s.current.Load()
	if snap == nil {
		return nil, domain.ErrIndexNotReady
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanNearby)
	defer span.End()
	span.SetAttributes(attribute.Float64(telemetry.AttrRadius, radiusMeters))

	center := geospatial.MustNew(lat, lon)
	cell, _ := geospatial.Geohash(center, cacheCellLength)
	cacheKey := fmt.Sprintf("places:nearby:%d:%s:%.0f:%d", snap.generation, cell, radiusMeters, limit)
	if places, ok := s.cached(ctx, "nearby", cacheKey); ok {
		span.SetAttributes(attribute.Bool(telemetry.AttrCacheHit, true))
		return places, nil
	}

	start := time.Now()
	hits := snap.index.CoordinatesClosestTo(lat, lon, radiusMeters)
	metrics.ObserveQuery("nearby", start, len(hits))
	span.SetAttributes(attribute.Int(telemetry.AttrHits, len(hits)))

	// the box prefilter admits its corners
	radiusKm := radiusMeters / 1000
	type ranked struct {
		id int64
		d  float64
	}
	var within []ranked
	for _, h := range hits {
		if d := geospatial.HaversineKm(lat, lon, h.Lat, h.Lng); d <= radiusKm {
			within = append(within, ranked{id: h.ID, d: d})
		}
	}
	slices.SortStableFunc(within, func(a, b ranked) int {
		switch {
		case a.d < b.d:
			return -1
		case a.d > b.d:
			return 1
		}
		return 0
	})
	if len(within) > limit {
		within = within[:limit]
	}

	ids := make([]int64, len(within))
	distances := make(map[int64]float64, len(within))
	for i, r := range within {
		ids[i] = r.id
		distances[r.id] = r.d
	}
	places, err := s.lookup(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range places {
		d := distances[places[i].ID]
		places[i].DistanceKm = &d
	}

	s.store(ctx, cacheKey, places)
	return places, nil
}

// InBox returns places inside b ordered by id, paginated by offset and limit,
// together with the total number of matches.
func (s *PlaceService) InBox(ctx context.Context, b domain.Bounds, offset, limit int) ([]domain.Place, int, error) {
	if err := b.Validate(); err != nil {
		return nil, 0, err
	}
	if offset < 0 {
		offset = 0
	}
	limit = s.clampLimit(limit)

	snap := s.current.Load()
	if snap == nil {
		return nil, 0, domain.ErrIndexNotReady
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanInBox)
	defer span.End()

	start := time.Now()
	ids := snap.index.IDsInBox(b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)
	metrics.ObserveQuery("in_box", start, len(ids))
	span.SetAttributes(attribute.Int(telemetry.AttrHits, len(ids)))

	slices.Sort(ids)
	total := len(ids)
	if offset >= total {
		return []domain.Place{}, total, nil
	}
	end := min(offset+limit, total)

	places, err := s.lookup(ctx, ids[offset:end])
	if err != nil {
		return nil, 0, err
	}
	return places, total, nil
}

// GetByID returns a single place. Cached places belong to the index
// generation they were read under, so a rebuild also refreshes them.
func (s *PlaceService) GetByID(ctx context.Context, id int64) (*domain.Place, error) {
	var generation uint64
	if snap := s.current.Load(); snap != nil {
		generation = snap.generation
	}
	cacheKey := fmt.Sprintf("places:id:%d:%d", generation, id)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var p domain.Place
			if err := json.Unmarshal(data, &p); err == nil {
				metrics.CacheHits.WithLabelValues("place").Inc()
				return &p, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("place").Inc()
	}

	p, err := s.places.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(p); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.opts.CacheTTLSeconds)
		}
	}
	return p, nil
}

func (s *PlaceService) clampLimit(limit int) int {
	if limit <= 0 || limit > s.opts.MaxResults {
		return s.opts.MaxResults
	}
	return limit
}

// lookup loads places for ids, keeping the order of ids.
func (s *PlaceService) lookup(ctx context.Context, ids []int64) ([]domain.Place, error) {
	if len(ids) == 0 {
		return []domain.Place{}, nil
	}
	places, err := s.places.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load places: %w", err)
	}

	pos := make(map[int64]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	slices.SortStableFunc(places, func(a, b domain.Place) int {
		return pos[a.ID] - pos[b.ID]
	})
	return places, nil
}

func (s *PlaceService) cached(ctx context.Context, op, key string) ([]domain.Place, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err == nil {
		var places []domain.Place
		if err := json.Unmarshal(data, &places); err == nil {
			metrics.CacheHits.WithLabelValues(op).Inc()
			return places, true
		}
	}
	metrics.CacheMisses.WithLabelValues(op).Inc()
	return nil, false
}

func (s *PlaceService) store(ctx context.Context, key string, places []domain.Place) {
	if s.cache == nil {
		return
	}
	if data, err := json.Marshal(places); err == nil {
		_ = s.cache.Set(ctx, key, data, s.opts.CacheTTLSeconds)
	}
}
