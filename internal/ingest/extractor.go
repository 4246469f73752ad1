package ingest

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sebas/centris-sync/internal/models"
)

// proximityFallbackRe locates the "À proximité:" marker inside addenda prose
// and captures everything after it. Some listings only carry proximity
// information there, never in the structured table.
var proximityFallbackRe = regexp.MustCompile(`(?is)À\s*proximité\s*:?\s*(.+)$`)

var proximitySplitRe = regexp.MustCompile(`[;,]\s*`)

// AuxRows groups one listing's rows from every auxiliary table.
type AuxRows struct {
	Remarks         [][]string
	Characteristics [][]string
	Photos          [][]string
	Units           [][]string
	Rooms           [][]string
	Addenda         string
}

// collectAux indexes the snapshot's auxiliary tables by listing id. Addenda
// stays lazy; it is resolved per id at extraction time.
func collectAux(s *Snapshot) map[string]*AuxRows {
	byID := make(map[string]*AuxRows)
	get := func(id string) *AuxRows {
		a, ok := byID[id]
		if !ok {
			a = &AuxRows{}
			byID[id] = a
		}
		return a
	}

	group := func(rows [][]string, assign func(a *AuxRows, row []string)) {
		for _, row := range rows {
			if len(row) == 0 {
				continue
			}
			id := clean(row[0])
			if id == "" {
				continue
			}
			assign(get(id), row)
		}
	}

	group(s.Remarks, func(a *AuxRows, r []string) { a.Remarks = append(a.Remarks, r) })
	group(s.Characteristics, func(a *AuxRows, r []string) { a.Characteristics = append(a.Characteristics, r) })
	group(s.Photos, func(a *AuxRows, r []string) { a.Photos = append(a.Photos, r) })
	group(s.Units, func(a *AuxRows, r []string) { a.Units = append(a.Units, r) })
	group(s.Rooms, func(a *AuxRows, r []string) { a.Rooms = append(a.Rooms, r) })
	return byID
}

// ExtractListing derives a normalized record from one primary-table row and
// the listing's auxiliary rows. Every field is best-effort: a heuristic that
// does not apply leaves its field nil or empty. Extraction never fails —
// one malformed listing must not abort the run.
func ExtractListing(row []string, aux *AuxRows) models.ListingRecord {
	if aux == nil {
		aux = &AuxRows{}
	}

	rec := models.ListingRecord{
		ID:          field(row, colListingID),
		Price:       extractPrice(row),
		Address:     extractAddress(row),
		YearBuilt:   extractYear(row),
		Description: extractDescription(aux.Remarks),
	}

	rec.Proximities = extractProximities(aux.Characteristics, aux.Addenda)
	rec.ProximitiesText = strings.Join(rec.Proximities, ", ")

	rec.Characteristics, rec.CharacteristicsText = extractCharacteristics(aux.Characteristics)

	rec.Rooms, rec.Bedrooms = extractUnitCounts(aux.Units)
	rec.Bathrooms = countBathrooms(aux.Rooms)

	rec.Photos = extractPhotos(aux.Photos)
	return rec
}

// extractPrice reads the fixed price column, accepting only a purely
// numeric value.
func extractPrice(row []string) *int {
	v := field(row, colPrice)
	if !digitsOnly(v) {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

// extractAddress joins civic number, street and postal code, skipping the
// empty ones.
func extractAddress(row []string) string {
	var parts []string
	for _, col := range []int{colCivicNumber, colStreet, colPostalCode} {
		if v := field(row, col); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

// extractYear scans the whole row for the first 4-digit token that reads as
// a plausible construction year. The export moves this column around, so a
// fixed offset would break on historical bundles.
func extractYear(row []string) *int {
	for _, raw := range row {
		v := clean(raw)
		if len(v) != 4 || !digitsOnly(v) {
			continue
		}
		y, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		if y >= yearMin && y <= yearMax {
			return &y
		}
	}
	return nil
}

// extractDescription assembles the public description from the remarks rows
// flagged "F", in ascending sequence order. If any sequence value fails to
// parse, encounter order is kept rather than failing the listing.
func extractDescription(remarks [][]string) string {
	var chosen [][]string
	for _, r := range remarks {
		if len(r) >= minRemarkCols && field(r, colRemarkFlag) == remarkPublicFlag {
			chosen = append(chosen, r)
		}
	}

	sortable := true
	keys := make([]int, len(chosen))
	for i, r := range chosen {
		seq := field(r, colRemarkSeq)
		if seq == "" {
			keys[i] = 0
			continue
		}
		n, err := strconv.Atoi(seq)
		if err != nil {
			sortable = false
			break
		}
		keys[i] = n
	}
	if sortable {
		sort.SliceStable(chosen, func(i, j int) bool { return keys[i] < keys[j] })
	}

	var parts []string
	for _, r := range chosen {
		if text := clean(r[len(r)-1]); text != "" {
			parts = append(parts, text)
		}
	}
	return normalizeSpace(stripBreaks(strings.Join(parts, " ")))
}

// extractProximities prefers the structured PROX characteristic rows; when a
// listing has none, it falls back to scraping the addenda prose. Either
// source is deduplicated preserving first-seen order.
func extractProximities(carac [][]string, addenda string) []string {
	var out []string
	for _, r := range carac {
		if len(r) < minCaracCols || field(r, colCaracCategory) != categoryProximity {
			continue
		}
		out = appendUnique(out, ValueLabel(field(r, colCaracValue)))
	}
	if len(out) > 0 {
		return out
	}

	m := proximityFallbackRe.FindStringSubmatch(addenda)
	if m == nil {
		return nil
	}
	for _, item := range proximitySplitRe.Split(m[1], -1) {
		out = appendUnique(out, strings.TrimSpace(stripTags(item)))
	}
	return out
}

// extractCharacteristics converts every non-proximity characteristics row
// into a label-mapped pair, plus the rendered "Category: Value (detail)"
// text form. Unmapped codes pass through as-is.
func extractCharacteristics(carac [][]string) ([]models.Characteristic, string) {
	var pairs []models.Characteristic
	var rendered []string
	for _, r := range carac {
		if len(r) < minCaracCols {
			continue
		}
		cat := field(r, colCaracCategory)
		if cat == categoryProximity {
			continue
		}
		catLabel := CategoryLabel(cat)
		valLabel := ValueLabel(field(r, colCaracValue))
		pairs = append(pairs, models.Characteristic{Category: catLabel, Value: valLabel})

		piece := fmt.Sprintf("%s: %s", catLabel, valLabel)
		if detail := field(r, colCaracDetail); detail != "" {
			piece += fmt.Sprintf(" (%s)", detail)
		}
		rendered = append(rendered, piece)
	}
	return dedupeCharacteristics(pairs), strings.Join(dedupeStrings(rendered), ", ")
}

func dedupeCharacteristics(pairs []models.Characteristic) []models.Characteristic {
	seen := make(map[models.Characteristic]struct{}, len(pairs))
	out := pairs[:0]
	for _, p := range pairs {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func dedupeStrings(items []string) []string {
	var out []string
	for _, v := range items {
		out = appendUnique(out, v)
	}
	return out
}

// extractUnitCounts reads total rooms and bedrooms from the principal unit:
// the unit-details row whose sequence is "1", after sorting by sequence.
// When sorting fails or no row qualifies, the first available row stands in.
func extractUnitCounts(units [][]string) (rooms, bedrooms *int) {
	principal := principalUnit(units)
	if principal == nil || len(principal) < minUnitCols {
		return nil, nil
	}
	return numericField(principal, colUnitRooms), numericField(principal, colUnitBedrooms)
}

func principalUnit(units [][]string) []string {
	sorted := make([][]string, len(units))
	copy(sorted, units)

	sortable := true
	key := func(r []string) int {
		seq := field(r, colUnitSeq)
		if seq == "" {
			return 999
		}
		n, err := strconv.Atoi(seq)
		if err != nil {
			sortable = false
			return 999
		}
		return n
	}
	keys := make([]int, len(sorted))
	for i, r := range sorted {
		keys[i] = key(r)
	}

	if sortable {
		sort.SliceStable(sorted, func(i, j int) bool { return keys[i] < keys[j] })
		for _, r := range sorted {
			if field(r, colUnitSeq) == "1" {
				return r
			}
		}
		return nil
	}
	if len(units) > 0 {
		return units[0]
	}
	return nil
}

func numericField(row []string, col int) *int {
	v := field(row, col)
	if !digitsOnly(v) {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

// countBathrooms counts the principal unit's room-detail rows typed as
// bathrooms. A zero count is reported as nil: the export omits the rows as
// often as it records zero, and the two are indistinguishable.
func countBathrooms(rooms [][]string) *int {
	n := 0
	for _, r := range rooms {
		if len(r) >= minRoomCols && field(r, colRoomUnitSeq) == "1" && field(r, colRoomType) == roomTypeBathroom {
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return &n
}

// extractPhotos keeps the rows wide enough to carry a URL column with an
// HTTP scheme, orders them by the feed's raw sequence number (0 when
// missing or non-numeric) and returns the URLs in that order. The stored
// sequence is always the position in this slice plus one; the raw number is
// a sort key only, since real bundles repeat and skip it.
func extractPhotos(photos [][]string) []string {
	type entry struct {
		seq int
		url string
	}
	var entries []entry
	for _, r := range photos {
		if len(r) < minPhotoCols {
			continue
		}
		url := field(r, colPhotoURL)
		if !strings.HasPrefix(url, "http") {
			continue
		}
		seq := 0
		if v := field(r, colPhotoSeq); digitsOnly(v) {
			seq, _ = strconv.Atoi(v)
		}
		entries = append(entries, entry{seq: seq, url: url})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	urls := make([]string, 0, len(entries))
	for _, e := range entries {
		urls = append(urls, e.url)
	}
	return urls
}
