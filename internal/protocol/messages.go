package protocol

// Wire type discriminators.
const (
	TypeTrashBin        = "trashbin"
	TypeDeleteBin       = "deletebin"
	TypeEditBin         = "editbin"
	TypeUpdateBinStatus = "updatebinstatus"
	TypeLocation        = "location"
	TypeBinStatus       = "binstatus"
)

// Message is a decoded client-to-server frame.
type Message interface {
	MessageType() string
}

// CreateBin requests a new bin at the given location.
type CreateBin struct {
	Latitude  float64
	Longitude float64
}

// DeleteBin requests removal of a bin.
type DeleteBin struct {
	ID int64
}

// EditBin moves the bin currently at the old coordinates.
// Matching is exact, so clients echo back the coordinates they received.
type EditBin struct {
	OldLatitude  float64
	OldLongitude float64
	NewLatitude  float64
	NewLongitude float64
}

// UpdateBinStatus carries the raw status string; enum membership is the store's call.
type UpdateBinStatus struct {
	ID     int64
	Status string
}

// ClientLocation is an informational position ping with no effect on bin state.
type ClientLocation struct {
	Latitude  float64
	Longitude float64
}

// Unknown is a well-formed frame whose type is not recognised.
type Unknown struct {
	Type string
}

func (CreateBin) MessageType() string       { return TypeTrashBin }
func (DeleteBin) MessageType() string       { return TypeDeleteBin }
func (EditBin) MessageType() string         { return TypeEditBin }
func (UpdateBinStatus) MessageType() string { return TypeUpdateBinStatus }
func (ClientLocation) MessageType() string  { return TypeLocation }
func (u Unknown) MessageType() string       { return u.Type }
