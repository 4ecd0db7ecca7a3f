package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// DecodeError reports a frame that is not valid JSON or does not match its type's schema.
type DecodeError struct {
	Type  string
	Cause error
}

func (e *DecodeError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("decode message: %v", e.Cause)
	}
	return fmt.Sprintf("decode %s message: %v", e.Type, e.Cause)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

var errMissingType = errors.New("missing type field")

type envelope struct {
	Type *string `json:"type"`
}

// Coordinates are pointers so that an absent field fails `required` while 0 stays valid.
type createBinFrame struct {
	Latitude  *float64 `json:"latitude"  validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
}

type deleteBinFrame struct {
	ID *flexibleID `json:"id" validate:"required"`
}

type editBinFrame struct {
	OldLatitude  *float64 `json:"oldLatitude"  validate:"required"`
	OldLongitude *float64 `json:"oldLongitude" validate:"required"`
	NewLatitude  *float64 `json:"newLatitude"  validate:"required"`
	NewLongitude *float64 `json:"newLongitude" validate:"required"`
}

type updateBinStatusFrame struct {
	ID     *flexibleID `json:"id"     validate:"required"`
	Status *string     `json:"status" validate:"required"`
}

type locationFrame struct {
	Latitude  *float64 `json:"latitude"  validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
}

// Decode parses one inbound frame into its Message variant.
func Decode(raw []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &DecodeError{Cause: err}
	}
	if env.Type == nil {
		return nil, &DecodeError{Cause: errMissingType}
	}

	switch msgType := *env.Type; msgType {
	case TypeTrashBin:
		var f createBinFrame
		if err := decodeFrame(raw, &f); err != nil {
			return nil, &DecodeError{Type: msgType, Cause: err}
		}
		return CreateBin{Latitude: *f.Latitude, Longitude: *f.Longitude}, nil

	case TypeDeleteBin:
		var f deleteBinFrame
		if err := decodeFrame(raw, &f); err != nil {
			return nil, &DecodeError{Type: msgType, Cause: err}
		}
		return DeleteBin{ID: int64(*f.ID)}, nil

	case TypeEditBin:
		var f editBinFrame
		if err := decodeFrame(raw, &f); err != nil {
			return nil, &DecodeError{Type: msgType, Cause: err}
		}
		return EditBin{
			OldLatitude:  *f.OldLatitude,
			OldLongitude: *f.OldLongitude,
			NewLatitude:  *f.NewLatitude,
			NewLongitude: *f.NewLongitude,
		}, nil

	case TypeUpdateBinStatus:
		var f updateBinStatusFrame
		if err := decodeFrame(raw, &f); err != nil {
			return nil, &DecodeError{Type: msgType, Cause: err}
		}
		return UpdateBinStatus{ID: int64(*f.ID), Status: *f.Status}, nil

	case TypeLocation:
		var f locationFrame
		if err := decodeFrame(raw, &f); err != nil {
			return nil, &DecodeError{Type: msgType, Cause: err}
		}
		return ClientLocation{Latitude: *f.Latitude, Longitude: *f.Longitude}, nil

	default:
		return Unknown{Type: msgType}, nil
	}
}

func decodeFrame(raw []byte, frame any) error {
	if err := json.Unmarshal(raw, frame); err != nil {
		return err
	}
	if err := validate.Struct(frame); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// flexibleID accepts an integral JSON number or a string holding one.
type flexibleID int64

func (id *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}

	if n, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		*id = flexibleID(n)
		return nil
	}

	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return fmt.Errorf("id %q is not an integer", data)
	}
	*id = flexibleID(f)
	return nil
}
