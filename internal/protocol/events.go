package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/pscheid92/ecotrack/internal/domain"
)

// Event is a server-to-client frame.
type Event interface {
	EventType() string
}

// BinCreated announces a new bin. It is also replayed once per bin to a joining observer.
type BinCreated struct {
	Type      string           `json:"type"`
	ID        int64            `json:"id"`
	Latitude  float64          `json:"latitude"`
	Longitude float64          `json:"longitude"`
	Status    domain.BinStatus `json:"status"`
}

// BinDeleted announces removal of a bin.
type BinDeleted struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
}

// BinEdited announces a location change with the full updated record.
type BinEdited struct {
	Type      string           `json:"type"`
	ID        int64            `json:"id"`
	Latitude  float64          `json:"latitude"`
	Longitude float64          `json:"longitude"`
	Status    domain.BinStatus `json:"status"`
}

// BinStatusChanged announces a status change; location is included for map clients.
type BinStatusChanged struct {
	Type      string           `json:"type"`
	ID        int64            `json:"id"`
	Status    domain.BinStatus `json:"status"`
	Latitude  float64          `json:"latitude"`
	Longitude float64          `json:"longitude"`
}

func (BinCreated) EventType() string       { return TypeTrashBin }
func (BinDeleted) EventType() string       { return TypeDeleteBin }
func (BinEdited) EventType() string        { return TypeEditBin }
func (BinStatusChanged) EventType() string { return TypeBinStatus }

func NewBinCreated(bin domain.Bin) BinCreated {
	return BinCreated{Type: TypeTrashBin, ID: bin.ID, Latitude: bin.Latitude, Longitude: bin.Longitude, Status: bin.Status}
}

func NewBinDeleted(id int64) BinDeleted {
	return BinDeleted{Type: TypeDeleteBin, ID: id}
}

func NewBinEdited(bin domain.Bin) BinEdited {
	return BinEdited{Type: TypeEditBin, ID: bin.ID, Latitude: bin.Latitude, Longitude: bin.Longitude, Status: bin.Status}
}

func NewBinStatusChanged(bin domain.Bin) BinStatusChanged {
	return BinStatusChanged{Type: TypeBinStatus, ID: bin.ID, Status: bin.Status, Latitude: bin.Latitude, Longitude: bin.Longitude}
}

// Encode serializes an event into a single text frame payload.
func Encode(event Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", event.EventType(), err)
	}
	return data, nil
}
