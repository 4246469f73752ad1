// parse_bundle decodes a local bundle and prints the extracted listings as
// JSON, without touching the catalog. Useful for inspecting what a given
// day's export actually carries before (or instead of) importing it.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/sebas/centris-sync/internal/ingest"
)

func main() {
	path := flag.String("zip", "", "Path to a downloaded bundle")
	flag.Parse()

	if *path == "" {
		log.Fatal("Please provide a bundle path using -zip")
	}

	data, err := os.ReadFile(*path)
	if err != nil {
		log.Fatalf("Failed to read bundle: %v", err)
	}

	records, err := ingest.ParseBundle(data)
	if err != nil {
		log.Fatalf("Failed to parse bundle: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}

	log.Printf("Parsed %d listings", len(records))
}
