package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sebas/centris-sync/internal/db"
	"github.com/sebas/centris-sync/internal/ingest"
)

// catalog adapts the concrete store to the pipeline's transaction interface.
type catalog struct {
	store *db.Store
}

func (c catalog) Begin(ctx context.Context) (ingest.CatalogTx, error) {
	return c.store.Begin(ctx)
}

func main() {
	baseURL := flag.String("base-url", "https://lpsep9.n0c.world/centris/", "Feed folder URL (ends with /centris/)")
	retries := flag.Int("retries", 12, "Fetch attempts before giving up")
	retrySeconds := flag.Int("retry-seconds", 300, "Seconds between fetch attempts")
	saveZipDir := flag.String("save-zip-dir", "", "Optional directory to keep a copy of the downloaded bundle")
	noMarkSold := flag.Bool("no-mark-sold", false, "Do not retire listings absent from this bundle")
	databaseURL := flag.String("database-url", "", "Catalog connection string (default: DATABASE_URL env)")
	flag.Parse()

	ctx := context.Background()

	pool, err := db.Connect(ctx, *databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	fetcher := ingest.NewFetcher(*baseURL)
	fetcher.MaxAttempts = *retries
	fetcher.RetryDelay = time.Duration(*retrySeconds) * time.Second
	fetcher.SaveDir = *saveZipDir

	pipeline := &ingest.Pipeline{
		Fetcher:  fetcher,
		Catalog:  catalog{store: db.NewStore(pool)},
		MarkSold: !*noMarkSold,
	}

	run, err := pipeline.Run(ctx)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Bundle", "Total", "Added", "Updated", "Sold", "Duration"})
	t.AppendRow(table.Row{
		run.SourceName,
		run.ItemsTotal,
		run.ItemsAdded,
		run.ItemsUpdated,
		run.ItemsMarkedSold,
		(time.Duration(run.DurationSeconds * float64(time.Second))).Round(time.Second),
	})
	t.Render()
}
