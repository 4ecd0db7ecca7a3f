package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBinStatus(t *testing.T) {
	tests := []struct {
		raw     string
		want    BinStatus
		wantErr bool
	}{
		{"empty", StatusEmpty, false},
		{"half", StatusHalf, false},
		{"full", StatusFull, false},
		{"FULL", "", true},
		{"", "", true},
		{"overflowing", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseBinStatus(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidStatus)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBin_At(t *testing.T) {
	bin := Bin{ID: 1, Latitude: 10.0, Longitude: 20.0, Status: StatusEmpty}

	assert.True(t, bin.At(10.0, 20.0))
	assert.False(t, bin.At(10.0, 20.000001))
	assert.False(t, bin.At(20.0, 10.0))
}
