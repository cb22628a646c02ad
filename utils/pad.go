// Package utils holds small byte-level helpers shared across the cms
// package that don't belong to any one content type: PKCS#7 padding for
// block-cipher content encryption.
package utils

import "github.com/pkg/errors"

// ErrInvalidPadding is returned by Unpad when the trailing padding bytes
// are not all equal to the padding length, or the padding length is out
// of range for the block size.
var ErrInvalidPadding = errors.New("utils: invalid PKCS#7 padding")

// PadSize returns the number of padding bytes PKCS#7 adds to a plaintext
// of length n for the given block size: always in [1, blockSize], even
// when n is already a multiple of blockSize (a full block of padding is
// appended).
func PadSize(n, blockSize int) int {
	return blockSize - (n % blockSize)
}

// Pad appends PKCS#7 padding to data for the given block size and returns
// the padded slice.
func Pad(data []byte, blockSize int) []byte {
	padLen := PadSize(len(data), blockSize)
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

// Unpad validates and strips PKCS#7 padding (RFC 5652 §6.3): the last byte
// gives the padding length, every byte in that trailing run must equal it,
// and the length must be in [1, blockSize]. No content-dependent branching
// beyond that.
func Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.Wrap(ErrInvalidPadding, "length not a multiple of block size")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, errors.Wrap(ErrInvalidPadding, "padding length out of range")
	}
	for i := len(data) - padLen; i < len(data); i++ {
		if data[i] != byte(padLen) {
			return nil, errors.Wrap(ErrInvalidPadding, "padding bytes mismatch")
		}
	}
	return data[:len(data)-padLen], nil
}
