package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	StatusActive = "ACTIVE"
	StatusSold   = "SOLD"
)

// Characteristic is one labeled category/value pair from the feed's
// characteristics table (e.g. {"Mode de chauffage", "Plinthes électriques"}).
type Characteristic struct {
	Category string `json:"cat"`
	Value    string `json:"val"`
}

// ListingRecord is the normalized form of one listing extracted from a single
// bundle. It has no identity beyond the run that produced it.
type ListingRecord struct {
	ID                  string
	Price               *int
	Address             string
	Rooms               *int
	Bedrooms            *int
	Bathrooms           *int
	YearBuilt           *int
	Description         string
	Proximities         []string
	ProximitiesText     string
	Characteristics     []Characteristic
	CharacteristicsText string
	// Photos is the ordered URL list; storage sequence is the slice position
	// plus one, never the feed's own sequence number.
	Photos []string
}

// Listing is a catalog row. Entries are created on first appearance, mutated
// on every later appearance and status-flipped (never deleted) when absent.
type Listing struct {
	ID                  string
	Slug                string
	Price               *int
	Address             string
	Rooms               *int
	Bedrooms            *int
	Bathrooms           *int
	YearBuilt           *int
	Description         string
	Proximities         []string
	ProximitiesText     string
	Characteristics     []Characteristic
	CharacteristicsText string
	Status              string
	SoldAt              *time.Time
	FirstSeenAt         time.Time
	LastSeenAt          *time.Time
	UpdatedAt           time.Time
}

// EnsureSlug derives the stable slug for a listing id.
func (l *Listing) EnsureSlug() {
	if l.Slug == "" {
		l.Slug = SlugForID(l.ID)
	}
}

// SlugForID builds the deterministic "listing-<id>" slug, lowercased and
// capped at 64 characters to fit the column.
func SlugForID(id string) string {
	s := "listing-" + strings.ToLower(strings.TrimSpace(id))
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '-'
		}
	}, s)
	if len(s) > 64 {
		s = s[:64]
	}
	return s
}

// FetchRun is one append-only audit row recorded per import invocation.
type FetchRun struct {
	RunID           uuid.UUID
	CreatedAt       time.Time
	FileDate        *time.Time
	SourceURL       string
	SourceName      string
	ItemsTotal      int
	ItemsAdded      int
	ItemsUpdated    int
	ItemsMarkedSold int
	DurationSeconds float64
}
