package domain

// BinStatus is the fill level reported for a bin.
type BinStatus string

const (
	StatusEmpty BinStatus = "empty"
	StatusHalf  BinStatus = "half"
	StatusFull  BinStatus = "full"
)

// ParseBinStatus maps a raw status string onto the enum.
// Anything outside empty/half/full yields ErrInvalidStatus.
func ParseBinStatus(raw string) (BinStatus, error) {
	switch s := BinStatus(raw); s {
	case StatusEmpty, StatusHalf, StatusFull:
		return s, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Bin is a geotagged trash bin. Coordinates are opaque and never validated.
type Bin struct {
	ID        int64     `json:"id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Status    BinStatus `json:"status"`
}

// At reports whether the bin sits exactly on the given coordinates.
func (b Bin) At(latitude, longitude float64) bool {
	return b.Latitude == latitude && b.Longitude == longitude
}

// BinStore is the authoritative state consumed by the hub and the query surface.
type BinStore interface {
	Create(latitude, longitude float64) Bin
	Delete(id int64) bool
	EditLocation(oldLatitude, oldLongitude, newLatitude, newLongitude float64) (Bin, bool)
	UpdateStatus(id int64, status string) (Bin, error)
	Snapshot() []Bin
	Get(id int64) (Bin, bool)
	Len() int
}
