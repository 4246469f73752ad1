package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sebas/centris-sync/internal/models"
)

// Store is the catalog access layer. All import-time mutations go through a
// Tx so one run commits or rolls back as a unit; the plain Store methods are
// read-only helpers for tooling and tests.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Tx is one reconciliation transaction.
type Tx struct {
	tx pgx.Tx
}

func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

func (t *Tx) Commit(ctx context.Context) error { return t.tx.Commit(ctx) }

// Rollback after a successful Commit is a no-op, so it is safe to defer.
func (t *Tx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err == pgx.ErrTxClosed {
		return nil
	}
	return err
}

// UpsertListing creates the catalog entry for rec.ID or overwrites every
// mutable field of the existing one. Either way the listing comes out
// ACTIVE with sold_at cleared and last_seen_at refreshed: a listing that
// reappears is unconditionally reactivated, however long it was gone.
// first_seen_at is written once, at creation.
func (t *Tx) UpsertListing(ctx context.Context, rec models.ListingRecord, now time.Time) (bool, error) {
	query := `
		INSERT INTO listings (
			centris_id, slug, price, address, rooms, bedrooms, bathrooms,
			year_built, description, proximities_text, proximities,
			characteristics_text, characteristics,
			status, sold_at, first_seen_at, last_seen_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11::jsonb,
			$12, $13::jsonb,
			'ACTIVE', NULL, $14, $14, $14
		)
		ON CONFLICT (centris_id) DO UPDATE SET
			price = EXCLUDED.price,
			address = EXCLUDED.address,
			rooms = EXCLUDED.rooms,
			bedrooms = EXCLUDED.bedrooms,
			bathrooms = EXCLUDED.bathrooms,
			year_built = EXCLUDED.year_built,
			description = EXCLUDED.description,
			proximities_text = EXCLUDED.proximities_text,
			proximities = EXCLUDED.proximities,
			characteristics_text = EXCLUDED.characteristics_text,
			characteristics = EXCLUDED.characteristics,
			status = 'ACTIVE',
			sold_at = NULL,
			last_seen_at = EXCLUDED.last_seen_at,
			updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0) AS created
	`

	var created bool
	err := t.tx.QueryRow(ctx, query,
		rec.ID,
		models.SlugForID(rec.ID),
		rec.Price,
		rec.Address,
		rec.Rooms,
		rec.Bedrooms,
		rec.Bathrooms,
		rec.YearBuilt,
		rec.Description,
		rec.ProximitiesText,
		jsonArray(rec.Proximities),
		rec.CharacteristicsText,
		jsonArray(rec.Characteristics),
		now,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert failed: %w", err)
	}
	return created, nil
}

// ReplacePhotos swaps the stored gallery for urls, renumbered 1..N in slice
// order. Callers skip the call entirely when this run extracted no photos.
func (t *Tx) ReplacePhotos(ctx context.Context, listingID string, urls []string) error {
	if _, err := t.tx.Exec(ctx, "DELETE FROM listing_photos WHERE listing_id = $1", listingID); err != nil {
		return fmt.Errorf("clearing photos: %w", err)
	}

	rows := make([][]interface{}, 0, len(urls))
	for i, u := range urls {
		rows = append(rows, []interface{}{listingID, i + 1, u})
	}

	_, err := t.tx.CopyFrom(ctx,
		pgx.Identifier{"listing_photos"},
		[]string{"listing_id", "sequence", "url"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("inserting photos: %w", err)
	}
	return nil
}

// MarkSoldExcept retires every ACTIVE listing whose id is absent from seen,
// in one bulk update.
func (t *Tx) MarkSoldExcept(ctx context.Context, seen map[string]struct{}, now time.Time) (int64, error) {
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}

	ct, err := t.tx.Exec(ctx, `
		UPDATE listings
		SET status = 'SOLD', sold_at = $1, updated_at = $1
		WHERE status = 'ACTIVE' AND NOT (centris_id = ANY($2))
	`, now, ids)
	if err != nil {
		return 0, fmt.Errorf("bulk retire failed: %w", err)
	}
	return ct.RowsAffected(), nil
}

// InsertFetchRun appends the run's audit row and fills in its generated id.
func (t *Tx) InsertFetchRun(ctx context.Context, run *models.FetchRun) error {
	run.RunID = uuid.New()
	_, err := t.tx.Exec(ctx, `
		INSERT INTO fetch_runs (
			run_id, created_at, file_date, source_url, source_name,
			items_total, items_added, items_updated, items_marked_sold,
			duration_seconds
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		run.RunID, run.CreatedAt, run.FileDate, run.SourceURL, run.SourceName,
		run.ItemsTotal, run.ItemsAdded, run.ItemsUpdated, run.ItemsMarkedSold,
		run.DurationSeconds,
	)
	if err != nil {
		return fmt.Errorf("insert fetch run failed: %w", err)
	}
	return nil
}

// jsonArray marshals v for a JSONB column, with nil slices stored as [].
func jsonArray(v interface{}) []byte {
	raw, err := json.Marshal(v)
	if err != nil || string(raw) == "null" {
		return []byte("[]")
	}
	return raw
}

// GetListing loads one catalog entry, or pgx.ErrNoRows when absent.
func (s *Store) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	var l models.Listing
	var proximitiesRaw, characteristicsRaw []byte

	err := s.pool.QueryRow(ctx, `
		SELECT centris_id, slug, price, address, rooms, bedrooms, bathrooms,
		       year_built, description, proximities_text, proximities,
		       characteristics_text, characteristics,
		       status, sold_at, first_seen_at, last_seen_at, updated_at
		FROM listings WHERE centris_id = $1
	`, id).Scan(
		&l.ID, &l.Slug, &l.Price, &l.Address, &l.Rooms, &l.Bedrooms, &l.Bathrooms,
		&l.YearBuilt, &l.Description, &l.ProximitiesText, &proximitiesRaw,
		&l.CharacteristicsText, &characteristicsRaw,
		&l.Status, &l.SoldAt, &l.FirstSeenAt, &l.LastSeenAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	_ = json.Unmarshal(proximitiesRaw, &l.Proximities)
	_ = json.Unmarshal(characteristicsRaw, &l.Characteristics)
	return &l, nil
}

// ListingPhotos returns a listing's gallery URLs in sequence order.
func (s *Store) ListingPhotos(ctx context.Context, id string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT url FROM listing_photos WHERE listing_id = $1 ORDER BY sequence", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// RecentRuns returns the newest audit rows, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]models.FetchRun, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, created_at, file_date, source_url, source_name,
		       items_total, items_added, items_updated, items_marked_sold,
		       duration_seconds
		FROM fetch_runs ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.FetchRun
	for rows.Next() {
		var r models.FetchRun
		if err := rows.Scan(
			&r.RunID, &r.CreatedAt, &r.FileDate, &r.SourceURL, &r.SourceName,
			&r.ItemsTotal, &r.ItemsAdded, &r.ItemsUpdated, &r.ItemsMarkedSold,
			&r.DurationSeconds,
		); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
