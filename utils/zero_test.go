package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// go test -timeout 30s -run ^TestZeroBytes$ github.com/LdDl/gocms/utils
func TestZeroBytes(t *testing.T) {
	b := []byte{1, 2, 3, 4, 5}
	ZeroBytes(b)
	assert.Equal(t, []byte{0, 0, 0, 0, 0}, b)
}

// go test -timeout 30s -run ^TestZeroBytesEmpty$ github.com/LdDl/gocms/utils
func TestZeroBytesEmpty(t *testing.T) {
	var b []byte
	assert.NotPanics(t, func() { ZeroBytes(b) })
}
