package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/geoindex/internal/core/domain"
)

const placeColumns = `id, name, kind, country_code, lat, lon, population, geohash, updated_at`

const upsertPlace = `
	INSERT INTO places (id, name, kind, country_code, lat, lon, population, geohash, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name, kind = EXCLUDED.kind, country_code = EXCLUDED.country_code,
	    lat = EXCLUDED.lat, lon = EXCLUDED.lon, population = EXCLUDED.population,
	    geohash = EXCLUDED.geohash, updated_at = now()
`

// PlaceRepo implements ports.PlaceRepository with pgx.
type PlaceRepo struct {
	db *DB
}

// NewPlaceRepo creates a new PlaceRepo.
func NewPlaceRepo(db *DB) *PlaceRepo {
	return &PlaceRepo{db: db}
}

// ListAll streams every place in id order.
func (r *PlaceRepo) ListAll(ctx context.Context, fn func(p domain.Place) error) error {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+placeColumns+` FROM places ORDER BY id`)
	if err != nil {
		return fmt.Errorf("query places: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	return rows.Err()
}

// GetByID returns a place, or domain.ErrNotFound.
func (r *PlaceRepo) GetByID(ctx context.Context, id int64) (*domain.Place, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+placeColumns+` FROM places WHERE id = $1`, id)
	p, err := scanPlace(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByIDs returns the places found for ids, in arbitrary order.
func (r *PlaceRepo) GetByIDs(ctx context.Context, ids []int64) ([]domain.Place, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.Pool.Query(ctx, `SELECT `+placeColumns+` FROM places WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	places := make([]domain.Place, 0, len(ids))
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		places = append(places, p)
	}
	return places, rows.Err()
}

// UpsertBatch inserts or updates many places using pgx.Batch.
func (r *PlaceRepo) UpsertBatch(ctx context.Context, places []domain.Place) error {
	if len(places) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, p := range places {
		batch.Queue(upsertPlace, p.ID, p.Name, p.Kind, p.CountryCode,
			p.Location.Lat, p.Location.Lon, p.Population, p.Geohash)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range places {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// Count returns the number of stored places.
func (r *PlaceRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM places`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count places: %w", err)
	}
	return n, nil
}

func scanPlace(row pgx.Row) (domain.Place, error) {
	var p domain.Place
	err := row.Scan(
		&p.ID, &p.Name, &p.Kind, &p.CountryCode,
		&p.Location.Lat, &p.Location.Lon,
		&p.Population, &p.Geohash, &p.UpdatedAt,
	)
	return p, err
}
