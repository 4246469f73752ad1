package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Entry names inside the bundle. Case-sensitive; any of them may be absent
// from a given day's export.
const (
	tableListings        = "INSCRIPTIONS.TXT"
	tableRemarks         = "REMARQUES.TXT"
	tableCharacteristics = "CARACTERISTIQUES.TXT"
	tablePhotos          = "PHOTOS.TXT"
	tableUnits           = "UNITES_DETAILLEES.TXT"
	tableRooms           = "PIECES_UNITES.TXT"
	tableAddenda         = "ADDENDA.TXT"
)

// Snapshot is one decoded bundle. Tables are plain row slices; a table
// missing from the archive is an empty slice, never an error, because the
// optional tables vary between exports. The addenda table is large and
// rarely needed, so it is decoded on demand per listing id.
type Snapshot struct {
	Listings        [][]string
	Remarks         [][]string
	Characteristics [][]string
	Photos          [][]string
	Units           [][]string
	Rooms           [][]string

	archive *zip.Reader
	addenda map[string]string // lazily built id -> joined text
}

// OpenSnapshot decodes the fixed table set from raw bundle bytes. It fails
// only when the bytes are not a readable zip archive.
func OpenSnapshot(data []byte) (*Snapshot, error) {
	z, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening bundle archive: %w", err)
	}

	s := &Snapshot{archive: z}
	s.Listings = readTable(z, tableListings)
	s.Remarks = readTable(z, tableRemarks)
	s.Characteristics = readTable(z, tableCharacteristics)
	s.Photos = readTable(z, tablePhotos)
	s.Units = readTable(z, tableUnits)
	s.Rooms = readTable(z, tableRooms)
	return s, nil
}

// Addenda returns the joined free-text addenda for one listing id, with
// line-break markup flattened, or "" when the listing has none.
func (s *Snapshot) Addenda(id string) string {
	if s.addenda == nil {
		s.addenda = make(map[string]string)
		for _, row := range readTable(s.archive, tableAddenda) {
			if len(row) == 0 {
				continue
			}
			rowID := clean(row[0])
			text := clean(row[len(row)-1])
			if rowID == "" || text == "" {
				continue
			}
			if existing, ok := s.addenda[rowID]; ok {
				s.addenda[rowID] = existing + " " + text
			} else {
				s.addenda[rowID] = text
			}
		}
		for key, text := range s.addenda {
			s.addenda[key] = strings.TrimSpace(stripBreaks(text))
		}
	}
	return s.addenda[id]
}

// readTable decodes one archive entry as cp1252 quoted-comma text. The
// legacy export is not valid UTF-8 and not strictly valid CSV either: rows
// vary in width and quotes appear mid-field, so the reader is maximally
// lenient and undecodable bytes become replacement runes instead of errors.
func readTable(z *zip.Reader, name string) [][]string {
	f, err := z.Open(name)
	if err != nil {
		return nil
	}
	defer f.Close()

	decoded := charmap.Windows1252.NewDecoder().Reader(f)
	r := csv.NewReader(decoded)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Skip the unparseable line and keep going; one mangled row
			// must not cost the whole table.
			continue
		}
		rows = append(rows, row)
	}
	return rows
}
