package ingest

// The Centris export is positional and undocumented; every offset below was
// validated against real bundles. Keeping them here means a feed-format
// change is a one-place edit.

// INSCRIPTIONS.TXT (primary table, one row per listing).
const (
	colListingID   = 0
	colPrice       = 6
	colCivicNumber = 25
	colStreet      = 27
	colPostalCode  = 29
)

// REMARQUES.TXT: id, seq, flag, _, _, _, text (text always last).
const (
	colRemarkSeq  = 1
	colRemarkFlag = 2
	minRemarkCols = 7
)

// remarkPublicFlag marks the rows that belong in the public description.
const remarkPublicFlag = "F"

// CARACTERISTIQUES.TXT: id, category, value, detail.
const (
	colCaracCategory = 1
	colCaracValue    = 2
	colCaracDetail   = 3
	minCaracCols     = 3
)

// PHOTOS.TXT: id, seq, _, room_code, _, _, url, media_id, timestamp.
const (
	colPhotoSeq  = 1
	colPhotoURL  = 6
	minPhotoCols = 7
)

// UNITES_DETAILLEES.TXT: id, unit_seq, _, rooms, bedrooms.
const (
	colUnitSeq      = 1
	colUnitRooms    = 3
	colUnitBedrooms = 4
	minUnitCols     = 5
)

// PIECES_UNITES.TXT: id, unit_seq, _, room_type.
const (
	colRoomUnitSeq = 1
	colRoomType    = 3
	minRoomCols    = 4
)

// roomTypeBathroom is the room-type code counted as a bathroom.
const roomTypeBathroom = "SDB"

// Construction-year tokens outside this window are rejected.
const (
	yearMin = 1800
	yearMax = 2035
)
