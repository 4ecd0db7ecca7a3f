package domain

import "errors"

var (
	ErrBinNotFound   = errors.New("bin not found")
	ErrInvalidStatus = errors.New("invalid bin status")
)
