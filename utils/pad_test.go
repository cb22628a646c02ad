package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -timeout 30s -run ^TestPadSize$ github.com/LdDl/gocms/utils
func TestPadSize(t *testing.T) {
	assert.Equal(t, 16, PadSize(0, 16))
	assert.Equal(t, 1, PadSize(15, 16))
	assert.Equal(t, 16, PadSize(16, 16))
	assert.Equal(t, 15, PadSize(17, 16))
}

// go test -timeout 30s -run ^TestPadAlwaysGrows$ github.com/LdDl/gocms/utils
func TestPadAlwaysGrows(t *testing.T) {
	for n := 0; n < 32; n++ {
		data := bytes.Repeat([]byte{0xAB}, n)
		padded := Pad(data, 16)
		assert.Greater(t, len(padded), len(data), "padding must always add at least one byte, n=%d", n)
		assert.Zero(t, len(padded)%16, "padded length must be a multiple of the block size")
	}
}

// go test -timeout 30s -run ^TestPadUnpadRoundtrip$ github.com/LdDl/gocms/utils
func TestPadUnpadRoundtrip(t *testing.T) {
	for n := 0; n < 48; n++ {
		data := bytes.Repeat([]byte{byte(n)}, n)
		padded := Pad(data, 16)
		unpadded, err := Unpad(padded, 16)
		require.NoError(t, err, "n=%d", n)
		assert.Equal(t, data, unpadded, "n=%d", n)
	}
}

// go test -timeout 30s -run ^TestUnpadRejectsBadLength$ github.com/LdDl/gocms/utils
func TestUnpadRejectsBadLength(t *testing.T) {
	_, err := Unpad([]byte{1, 2, 3}, 16)
	assert.ErrorIs(t, err, ErrInvalidPadding)
}

// go test -timeout 30s -run ^TestUnpadRejectsZeroPadLen$ github.com/LdDl/gocms/utils
func TestUnpadRejectsZeroPadLen(t *testing.T) {
	data := make([]byte, 16)
	_, err := Unpad(data, 16)
	assert.ErrorIs(t, err, ErrInvalidPadding)
}

// go test -timeout 30s -run ^TestUnpadRejectsMismatchedBytes$ github.com/LdDl/gocms/utils
func TestUnpadRejectsMismatchedBytes(t *testing.T) {
	data := bytes.Repeat([]byte{0x04}, 16)
	data[14] = 0x99
	_, err := Unpad(data, 16)
	assert.ErrorIs(t, err, ErrInvalidPadding)
}

// go test -timeout 30s -run ^TestUnpadRejectsPadLenExceedingBlockSize$ github.com/LdDl/gocms/utils
func TestUnpadRejectsPadLenExceedingBlockSize(t *testing.T) {
	data := bytes.Repeat([]byte{0x20}, 16)
	_, err := Unpad(data, 16)
	assert.ErrorIs(t, err, ErrInvalidPadding)
}
