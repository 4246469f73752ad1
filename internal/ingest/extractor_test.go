package ingest

import (
	"reflect"
	"testing"

	"github.com/sebas/centris-sync/internal/models"
)

// primaryRow builds an INSCRIPTIONS-width row with the given cells set.
func primaryRow(cells map[int]string) []string {
	row := make([]string, 32)
	for i, v := range cells {
		row[i] = v
	}
	return row
}

func intPtr(n int) *int { return &n }

func TestExtractPrice(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *int
	}{
		{"numeric", "250000", intPtr(250000)},
		{"quoted", `"250000"`, intPtr(250000)},
		{"formatted", "250,000", nil},
		{"currency suffix", "250000$", nil},
		{"empty", "", nil},
		{"negative", "-5", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractPrice(primaryRow(map[int]string{colPrice: tt.raw}))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("extractPrice(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}

	t.Run("short row", func(t *testing.T) {
		if got := extractPrice([]string{"1001"}); got != nil {
			t.Errorf("expected nil price on short row, got %d", *got)
		}
	})
}

func TestExtractAddress(t *testing.T) {
	tests := []struct {
		name  string
		cells map[int]string
		want  string
	}{
		{
			name:  "all parts",
			cells: map[int]string{colCivicNumber: "123", colStreet: "Rue Principale", colPostalCode: "J0X 2W0"},
			want:  "123, Rue Principale, J0X 2W0",
		},
		{
			name:  "missing civic number",
			cells: map[int]string{colStreet: "Rue Principale", colPostalCode: "J0X 2W0"},
			want:  "Rue Principale, J0X 2W0",
		},
		{
			name:  "all empty",
			cells: map[int]string{},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractAddress(primaryRow(tt.cells)); got != tt.want {
				t.Errorf("extractAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractYear(t *testing.T) {
	tests := []struct {
		name string
		row  []string
		want *int
	}{
		{"plain year", []string{"1001", "1987", "x"}, intPtr(1987)},
		{"first plausible wins", []string{"0042", "1765", "1987", "2001"}, intPtr(1987)},
		{"bounds inclusive", []string{"1800"}, intPtr(1800)},
		{"upper bound", []string{"2035"}, intPtr(2035)},
		{"five digits rejected", []string{"20999"}, nil},
		{"out of range rejected", []string{"1799", "2036"}, nil},
		{"non-numeric ignored", []string{"19a7", ""}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractYear(tt.row)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("extractYear(%v) = %v, want %v", tt.row, got, tt.want)
			}
		})
	}
}

func remarkRow(seq, flag, text string) []string {
	return []string{"1001", seq, flag, "", "", "", text}
}

func TestExtractDescription(t *testing.T) {
	t.Run("sorted by sequence and joined", func(t *testing.T) {
		rows := [][]string{
			remarkRow("2", "F", "deuxième phrase."),
			remarkRow("1", "F", "Première phrase,"),
			remarkRow("3", "A", "note interne"),
		}
		want := "Première phrase, deuxième phrase."
		if got := extractDescription(rows); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("non-numeric sequence keeps encounter order", func(t *testing.T) {
		rows := [][]string{
			remarkRow("b", "F", "second chunk"),
			remarkRow("a", "F", "first chunk"),
		}
		want := "second chunk first chunk"
		if got := extractDescription(rows); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("break markup stripped", func(t *testing.T) {
		rows := [][]string{remarkRow("1", "F", "ligne un<br/>ligne deux<BR >fin")}
		want := "ligne un ligne deux fin"
		if got := extractDescription(rows); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("short and unflagged rows skipped", func(t *testing.T) {
		rows := [][]string{
			{"1001", "1", "F"}, // too short to carry text
			remarkRow("2", "", "pas publique"),
		}
		if got := extractDescription(rows); got != "" {
			t.Errorf("expected empty description, got %q", got)
		}
	})
}

func caracRow(cat, val, detail string) []string {
	return []string{"1001", cat, val, detail}
}

func TestExtractProximities(t *testing.T) {
	t.Run("structured rows label mapped and deduplicated", func(t *testing.T) {
		rows := [][]string{
			caracRow("PROX", "AUTO", ""),
			caracRow("PROX", "PRIM", ""),
			caracRow("PROX", "AUTO", ""),
			caracRow("CHAU", "PELC", ""),
		}
		want := []string{"Autoroute", "École primaire"}
		if got := extractProximities(rows, ""); !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("unknown code passes through", func(t *testing.T) {
		rows := [][]string{caracRow("PROX", "XYZZY", "")}
		want := []string{"XYZZY"}
		if got := extractProximities(rows, ""); !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("addenda fallback", func(t *testing.T) {
		addenda := "Belle propriété au bord du lac. À proximité: Autoroute, École primaire"
		want := []string{"Autoroute", "École primaire"}
		if got := extractProximities(nil, addenda); !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("addenda fallback strips markup and splits on semicolons", func(t *testing.T) {
		addenda := "à ProximitÉ : <b>Piste cyclable</b>; Transport en commun,"
		want := []string{"Piste cyclable", "Transport en commun"}
		got := extractProximities(nil, addenda)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("structured rows win over addenda", func(t *testing.T) {
		rows := [][]string{caracRow("PROX", "SEC", "")}
		addenda := "À proximité: Autoroute"
		want := []string{"École secondaire"}
		if got := extractProximities(rows, addenda); !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("no source yields nil", func(t *testing.T) {
		if got := extractProximities(nil, "aucun marqueur ici"); got != nil {
			t.Errorf("expected nil, got %v", got)
		}
	})
}

func TestExtractCharacteristics(t *testing.T) {
	rows := [][]string{
		caracRow("CHAU", "PELC", ""),
		caracRow("FOND", "BETO", "dalle"),
		caracRow("PROX", "AUTO", ""),
		caracRow("MYST", "UNKN", ""),
		caracRow("CHAU", "PELC", ""),
	}

	pairs, text := extractCharacteristics(rows)

	wantPairs := []models.Characteristic{
		{Category: "Mode de chauffage", Value: "Plinthes électriques"},
		{Category: "Fondation", Value: "Béton"},
		{Category: "MYST", Value: "UNKN"},
	}
	if !reflect.DeepEqual(pairs, wantPairs) {
		t.Errorf("pairs = %v, want %v", pairs, wantPairs)
	}

	wantText := "Mode de chauffage: Plinthes électriques, Fondation: Béton (dalle), MYST: UNKN"
	if text != wantText {
		t.Errorf("text = %q, want %q", text, wantText)
	}
}

func unitRow(seq, rooms, bedrooms string) []string {
	return []string{"1001", seq, "", rooms, bedrooms}
}

func TestExtractUnitCounts(t *testing.T) {
	t.Run("principal unit selected by sequence", func(t *testing.T) {
		units := [][]string{
			unitRow("2", "4", "2"),
			unitRow("1", "9", "3"),
		}
		rooms, bedrooms := extractUnitCounts(units)
		if rooms == nil || *rooms != 9 || bedrooms == nil || *bedrooms != 3 {
			t.Errorf("got rooms=%v bedrooms=%v, want 9 and 3", rooms, bedrooms)
		}
	})

	t.Run("unsortable sequences fall back to first row", func(t *testing.T) {
		units := [][]string{
			unitRow("x", "5", "2"),
			unitRow("1", "9", "3"),
		}
		rooms, bedrooms := extractUnitCounts(units)
		if rooms == nil || *rooms != 5 || bedrooms == nil || *bedrooms != 2 {
			t.Errorf("got rooms=%v bedrooms=%v, want 5 and 2", rooms, bedrooms)
		}
	})

	t.Run("no principal unit", func(t *testing.T) {
		units := [][]string{unitRow("2", "4", "2")}
		rooms, bedrooms := extractUnitCounts(units)
		if rooms != nil || bedrooms != nil {
			t.Errorf("expected nils, got rooms=%v bedrooms=%v", rooms, bedrooms)
		}
	})

	t.Run("non-numeric counts rejected", func(t *testing.T) {
		units := [][]string{unitRow("1", "4+", "")}
		rooms, bedrooms := extractUnitCounts(units)
		if rooms != nil || bedrooms != nil {
			t.Errorf("expected nils, got rooms=%v bedrooms=%v", rooms, bedrooms)
		}
	})

	t.Run("empty table", func(t *testing.T) {
		rooms, bedrooms := extractUnitCounts(nil)
		if rooms != nil || bedrooms != nil {
			t.Errorf("expected nils, got rooms=%v bedrooms=%v", rooms, bedrooms)
		}
	})
}

func TestCountBathrooms(t *testing.T) {
	rows := [][]string{
		{"1001", "1", "", "SDB"},
		{"1001", "1", "", "CUI"},
		{"1001", "1", "", "SDB"},
		{"1001", "2", "", "SDB"}, // other unit, not counted
		{"1001", "1"},            // short row
	}
	got := countBathrooms(rows)
	if got == nil || *got != 2 {
		t.Errorf("got %v, want 2", got)
	}

	if got := countBathrooms(nil); got != nil {
		t.Errorf("zero bathrooms should be nil, got %d", *got)
	}
}

func photoRow(seq, url string) []string {
	return []string{"1001", seq, "", "", "", "", url, "media", "ts"}
}

func TestExtractPhotos(t *testing.T) {
	t.Run("sorted by raw sequence then renumbered by position", func(t *testing.T) {
		rows := [][]string{
			photoRow("12", "http://img/c.jpg"),
			photoRow("3", "http://img/b.jpg"),
			photoRow("", "https://img/a.jpg"), // missing seq sorts first as 0
		}
		want := []string{"https://img/a.jpg", "http://img/b.jpg", "http://img/c.jpg"}
		if got := extractPhotos(rows); !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("non-http and short rows dropped", func(t *testing.T) {
		rows := [][]string{
			photoRow("1", "ftp://img/a.jpg"),
			photoRow("2", ""),
			{"1001", "3", "http://short.row"},
		}
		if got := extractPhotos(rows); len(got) != 0 {
			t.Errorf("expected no photos, got %v", got)
		}
	})
}

func TestExtractListing_MinimalRecord(t *testing.T) {
	row := primaryRow(map[int]string{colListingID: "1001", colPrice: "250000"})

	rec := ExtractListing(row, nil)

	if rec.ID != "1001" {
		t.Errorf("ID = %q, want 1001", rec.ID)
	}
	if rec.Price == nil || *rec.Price != 250000 {
		t.Errorf("Price = %v, want 250000", rec.Price)
	}
	if rec.Address != "" || rec.Description != "" {
		t.Errorf("expected empty address/description, got %q / %q", rec.Address, rec.Description)
	}
	if len(rec.Proximities) != 0 || len(rec.Characteristics) != 0 || len(rec.Photos) != 0 {
		t.Errorf("expected empty collections, got %v / %v / %v", rec.Proximities, rec.Characteristics, rec.Photos)
	}
	if rec.Rooms != nil || rec.Bedrooms != nil || rec.Bathrooms != nil || rec.YearBuilt != nil {
		t.Error("expected nil counts on a minimal record")
	}
}

func TestExtractListing_FullRecord(t *testing.T) {
	row := primaryRow(map[int]string{
		colListingID:   "8842",
		colPrice:       "429900",
		colCivicNumber: "45",
		colStreet:      "Ch. du Lac",
		colPostalCode:  "J0T 1L0",
		12:             "1992",
	})
	aux := &AuxRows{
		Remarks: [][]string{remarkRow("1", "F", "Maison au bord du lac.<br/>Quai privé.")},
		Characteristics: [][]string{
			caracRow("PROX", "AUTO", ""),
			caracRow("CHAU", "PELC", ""),
		},
		Photos: [][]string{photoRow("2", "https://img/ext.jpg"), photoRow("1", "https://img/front.jpg")},
		Units:  [][]string{unitRow("1", "8", "3")},
		Rooms:  [][]string{{"8842", "1", "", "SDB"}},
	}

	rec := ExtractListing(row, aux)

	if rec.YearBuilt == nil || *rec.YearBuilt != 1992 {
		t.Errorf("YearBuilt = %v, want 1992", rec.YearBuilt)
	}
	if rec.Address != "45, Ch. du Lac, J0T 1L0" {
		t.Errorf("Address = %q", rec.Address)
	}
	if rec.Description != "Maison au bord du lac. Quai privé." {
		t.Errorf("Description = %q", rec.Description)
	}
	if rec.ProximitiesText != "Autoroute" {
		t.Errorf("ProximitiesText = %q", rec.ProximitiesText)
	}
	if rec.CharacteristicsText != "Mode de chauffage: Plinthes électriques" {
		t.Errorf("CharacteristicsText = %q", rec.CharacteristicsText)
	}
	if rec.Rooms == nil || *rec.Rooms != 8 || rec.Bedrooms == nil || *rec.Bedrooms != 3 || rec.Bathrooms == nil || *rec.Bathrooms != 1 {
		t.Errorf("counts = %v/%v/%v, want 8/3/1", rec.Rooms, rec.Bedrooms, rec.Bathrooms)
	}
	wantPhotos := []string{"https://img/front.jpg", "https://img/ext.jpg"}
	if !reflect.DeepEqual(rec.Photos, wantPhotos) {
		t.Errorf("Photos = %v, want %v", rec.Photos, wantPhotos)
	}
}
