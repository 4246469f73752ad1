package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sebas/centris-sync/internal/models"
)

// Catalog is the persistent listing store the pipeline reconciles against.
// All mutations of one run happen inside a single transaction.
type Catalog interface {
	Begin(ctx context.Context) (CatalogTx, error)
}

// CatalogTx is one atomic reconciliation unit. Rollback after Commit is a
// no-op, so callers defer it unconditionally.
type CatalogTx interface {
	// UpsertListing creates or overwrites the catalog entry for rec.ID,
	// reactivating it and refreshing last_seen_at. It reports whether the
	// entry was created.
	UpsertListing(ctx context.Context, rec models.ListingRecord, now time.Time) (created bool, err error)
	// ReplacePhotos deletes the stored photos for a listing and inserts
	// urls with sequences 1..N.
	ReplacePhotos(ctx context.Context, listingID string, urls []string) error
	// MarkSoldExcept flips every ACTIVE listing whose id is not in seen to
	// SOLD with sold_at = now, returning how many were flipped.
	MarkSoldExcept(ctx context.Context, seen map[string]struct{}, now time.Time) (int64, error)
	// InsertFetchRun appends one audit row, filling run.RunID.
	InsertFetchRun(ctx context.Context, run *models.FetchRun) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Pipeline runs one complete import: discover and download the newest
// bundle, decode it, extract every listing and reconcile the catalog.
//
// A run is strictly sequential and there is no cross-invocation lock; the
// operator's scheduler is assumed to start at most one run at a time.
type Pipeline struct {
	Fetcher *Fetcher
	Catalog Catalog
	// MarkSold enables the retirement step. Disabled it leaves absent
	// listings ACTIVE (useful when replaying a partial bundle).
	MarkSold bool
	// Now is the run clock; overridable in tests.
	Now func() time.Time
}

// Run executes one import end to end and returns the recorded audit row.
// Discovery and download failures abort before any catalog mutation; any
// failure inside reconciliation rolls the whole transaction back.
func (p *Pipeline) Run(ctx context.Context) (*models.FetchRun, error) {
	started := time.Now()

	dl, err := p.Fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	snap, err := OpenSnapshot(dl.Data)
	if err != nil {
		return nil, err
	}

	return p.Reconcile(ctx, snap, dl, started)
}

// Reconcile drives per-row extraction and the catalog transaction for an
// already decoded snapshot.
func (p *Pipeline) Reconcile(ctx context.Context, snap *Snapshot, dl *SnapshotDownload, started time.Time) (*models.FetchRun, error) {
	now := p.now()
	byID := collectAux(snap)

	tx, err := p.Catalog.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening catalog transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var total, added, updated int
	seen := make(map[string]struct{})

	for _, row := range snap.Listings {
		id := field(row, colListingID)
		if id == "" {
			continue
		}
		total++
		seen[id] = struct{}{}

		aux := byID[id]
		if aux == nil {
			aux = &AuxRows{}
		}
		aux.Addenda = snap.Addenda(id)

		rec := ExtractListing(row, aux)

		created, err := tx.UpsertListing(ctx, rec, now)
		if err != nil {
			return nil, fmt.Errorf("upserting listing %s: %w", id, err)
		}
		if created {
			added++
		} else {
			updated++
		}

		// A bundle that carries no photos for a listing is more often a
		// transient export gap than a removed gallery; only a non-empty
		// extraction replaces what is stored.
		if len(rec.Photos) > 0 {
			if err := tx.ReplacePhotos(ctx, id, rec.Photos); err != nil {
				return nil, fmt.Errorf("replacing photos for %s: %w", id, err)
			}
		}
	}

	var markedSold int64
	if p.MarkSold {
		markedSold, err = tx.MarkSoldExcept(ctx, seen, now)
		if err != nil {
			return nil, fmt.Errorf("retiring absent listings: %w", err)
		}
	}

	run := models.FetchRun{
		CreatedAt:       now,
		SourceURL:       dl.URL,
		SourceName:      dl.Filename,
		ItemsTotal:      total,
		ItemsAdded:      added,
		ItemsUpdated:    updated,
		ItemsMarkedSold: int(markedSold),
		DurationSeconds: time.Since(started).Seconds(),
	}
	if !dl.Date.IsZero() {
		d := dl.Date
		run.FileDate = &d
	}

	if err := tx.InsertFetchRun(ctx, &run); err != nil {
		return nil, fmt.Errorf("recording fetch run: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing reconciliation: %w", err)
	}

	log.Printf("import OK: total=%d +%d ~%d sold=%d (%.1fs)",
		total, added, updated, markedSold, run.DurationSeconds)
	return &run, nil
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// ParseBundle decodes raw bundle bytes and extracts every listing, in
// primary-table order, without any catalog interaction.
func ParseBundle(data []byte) ([]models.ListingRecord, error) {
	snap, err := OpenSnapshot(data)
	if err != nil {
		return nil, err
	}

	byID := collectAux(snap)
	records := make([]models.ListingRecord, 0, len(snap.Listings))
	for _, row := range snap.Listings {
		id := field(row, colListingID)
		if id == "" {
			continue
		}
		aux := byID[id]
		if aux == nil {
			aux = &AuxRows{}
		}
		aux.Addenda = snap.Addenda(id)
		records = append(records, ExtractListing(row, aux))
	}
	return records, nil
}
