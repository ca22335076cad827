package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/geoindex/internal/core/domain"
	"github.com/samirrijal/geoindex/internal/core/ports"
	"github.com/samirrijal/geoindex/internal/pkg/metrics"
	"github.com/samirrijal/geoindex/internal/pkg/telemetry"
)

// DefaultBatchSize is the number of places written per round trip.
const DefaultBatchSize = 500

// Result counts what happened to the rows of one load.
type Result struct {
	Stored   int `json:"stored"`
	Skipped  int `json:"skipped"`
	Rejected int `json:"rejected"`
}

// Loader writes places read from a dump in batches and announces the change.
type Loader struct {
	Places    ports.PlaceRepository
	Events    ports.EventPublisher // optional
	BatchSize int
	Filter    Filter
	Logger    *slog.Logger
}

// LoadGeoNames reads a GeoNames dump from r. Malformed rows are counted and
// skipped; repository errors abort the load. When at least one place was
// stored a places.changed event is published with source as its origin.
func (l *Loader) LoadGeoNames(ctx context.Context, r io.Reader, source string) (Result, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	size := l.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	var res Result
	batch := make([]domain.Place, 0, size)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		ctx, span := telemetry.StartSpan(ctx, telemetry.SpanIngestBatch)
		span.SetAttributes(attribute.Int(telemetry.AttrPoints, len(batch)))
		err := l.Places.UpsertBatch(ctx, batch)
		span.End()
		if err != nil {
			return fmt.Errorf("upsert batch: %w", err)
		}
		res.Stored += len(batch)
		metrics.PlacesIngested.WithLabelValues("stored").Add(float64(len(batch)))
		batch = batch[:0]
		return nil
	}

	reader := NewGeoNamesReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		p, class, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, ErrMalformedRow) {
			res.Rejected++
			metrics.PlacesIngested.WithLabelValues("rejected").Inc()
			logger.Debug("rejected row", "error", err)
			continue
		}
		if err != nil {
			return res, fmt.Errorf("read dump: %w", err)
		}
		if !l.Filter.match(class, p) {
			res.Skipped++
			metrics.PlacesIngested.WithLabelValues("skipped").Inc()
			continue
		}
		batch = append(batch, p)
		if len(batch) >= size {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	if err := flush(); err != nil {
		return res, err
	}

	logger.Info("places loaded", "source", source, "stored", res.Stored, "skipped", res.Skipped, "rejected", res.Rejected)

	if res.Stored > 0 && l.Events != nil {
		ev := &domain.PlacesChanged{Source: source, Count: res.Stored, Changed: time.Now().UTC()}
		if err := l.Events.PublishPlacesChanged(ctx, ev); err != nil {
			// the places are stored; the periodic rebuild picks them up
			logger.Warn("publish places.changed failed", "error", err)
		}
	}
	return res, nil
}
