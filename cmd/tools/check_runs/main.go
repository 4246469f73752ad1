package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sebas/centris-sync/internal/db"
)

func main() {
	ctx := context.Background()
	pool, err := db.Connect(ctx, "")
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	runs, err := db.NewStore(pool).RecentRuns(ctx, 10)
	if err != nil {
		log.Fatal(err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Bundle", "File Date", "Total", "Added", "Updated", "Sold", "Duration", "Ran At"})

	for _, r := range runs {
		fileDate := ""
		if r.FileDate != nil {
			fileDate = r.FileDate.Format("2006-01-02")
		}
		t.AppendRow(table.Row{
			r.SourceName, fileDate, r.ItemsTotal, r.ItemsAdded, r.ItemsUpdated,
			r.ItemsMarkedSold,
			formatSeconds(r.DurationSeconds),
			r.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	t.Render()
}

func formatSeconds(s float64) string {
	if s < 0 {
		s = 0
	}
	return time.Duration(s * float64(time.Second)).Round(time.Second).String()
}
