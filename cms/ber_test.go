package cms

import (
	"encoding/asn1"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -timeout 30s -run ^TestBer2derPassesThroughDefiniteLengthDER$ github.com/LdDl/gocms/cms
func TestBer2derPassesThroughDefiniteLengthDER(t *testing.T) {
	der, err := EncodeData([]byte("already DER"))
	require.NoError(t, err)

	out, err := ber2der(der)
	require.NoError(t, err)
	assert.Equal(t, der, out)
}

// go test -timeout 30s -run ^TestBer2derConvertsIndefiniteLengthOuterSequence$ github.com/LdDl/gocms/cms
func TestBer2derConvertsIndefiniteLengthOuterSequence(t *testing.T) {
	inner, err := asn1.Marshal(asn1.ObjectIdentifier{1, 2, 3})
	require.NoError(t, err)

	// SEQUENCE, constructed, indefinite length (0x80), one child TLV,
	// terminated by the 0x00 0x00 end-of-contents marker.
	ber := append([]byte{0x30, 0x80}, inner...)
	ber = append(ber, 0x00, 0x00)

	der, err := ber2der(ber)
	require.NoError(t, err)
	assert.NotEqual(t, byte(0x80), der[1], "converted length byte must not still be the indefinite-length marker")

	var out asn1.RawValue
	_, err = asn1.Unmarshal(der, &out)
	require.NoError(t, err)
	assert.Equal(t, asn1.TagSequence, out.Tag)

	var gotOID asn1.ObjectIdentifier
	_, err = asn1.Unmarshal(out.Bytes, &gotOID)
	require.NoError(t, err)
	assert.True(t, gotOID.Equal(asn1.ObjectIdentifier{1, 2, 3}))
}

// go test -timeout 30s -run ^TestBer2derRejectsTrailingData$ github.com/LdDl/gocms/cms
func TestBer2derRejectsTrailingData(t *testing.T) {
	der, err := EncodeData([]byte("x"))
	require.NoError(t, err)

	_, err = ber2der(append(der, 0xDE, 0xAD))
	assert.ErrorIs(t, err, ErrTrailingData)
}

// go test -timeout 30s -run ^TestBer2derRejectsEmptyInput$ github.com/LdDl/gocms/cms
func TestBer2derRejectsEmptyInput(t *testing.T) {
	_, err := ber2der(nil)
	assert.Error(t, err)
}
