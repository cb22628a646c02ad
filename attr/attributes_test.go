package attr

import (
	"encoding/asn1"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	contentTypeOID   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 3}
	messageDigestOID = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 4}
	signingTimeOID   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 5}
)

// go test -timeout 30s -run ^TestAttributesAddAndHas$ github.com/LdDl/gocms/attr
func TestAttributesAddAndHas(t *testing.T) {
	var a Attributes
	assert.True(t, a.Empty())

	require.NoError(t, a.Add(contentTypeOID, asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 1}))
	assert.True(t, a.Has(contentTypeOID))
	assert.False(t, a.Has(messageDigestOID))
	assert.Equal(t, 1, a.Len())
	assert.False(t, a.Empty())
}

// go test -timeout 30s -run ^TestAttributesRejectsDuplicate$ github.com/LdDl/gocms/attr
func TestAttributesRejectsDuplicate(t *testing.T) {
	var a Attributes
	require.NoError(t, a.Add(messageDigestOID, []byte("digest")))
	err := a.Add(messageDigestOID, []byte("other"))
	assert.ErrorIs(t, err, ErrDuplicateAttribute)
}

// go test -timeout 30s -run ^TestAttributesInsertionOrderPreserved$ github.com/LdDl/gocms/attr
func TestAttributesInsertionOrderPreserved(t *testing.T) {
	var a Attributes
	require.NoError(t, a.Add(signingTimeOID, []byte("t")))
	require.NoError(t, a.Add(contentTypeOID, asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 1}))
	require.NoError(t, a.Add(messageDigestOID, []byte("d")))

	list := a.List()
	require.Len(t, list, 3)
	assert.True(t, list[0].Type.Equal(signingTimeOID))
	assert.True(t, list[1].Type.Equal(contentTypeOID))
	assert.True(t, list[2].Type.Equal(messageDigestOID))
}

// go test -timeout 30s -run ^TestMarshalSETProducesUniversalSET$ github.com/LdDl/gocms/attr
func TestMarshalSETProducesUniversalSET(t *testing.T) {
	var a Attributes
	require.NoError(t, a.Add(messageDigestOID, []byte("0123456789abcdef0123456789abcdef")))

	encoded, err := a.MarshalSET()
	require.NoError(t, err)
	require.NotEmpty(t, encoded)
	assert.Equal(t, byte(asn1.TagSet)|0x20, encoded[0], "leading byte must be a universal constructed SET tag")

	var raws []rawAttribute
	_, err = asn1.UnmarshalWithParams(encoded, &raws, "set")
	require.NoError(t, err)
	require.Len(t, raws, 1)
	assert.True(t, raws[0].Type.Equal(messageDigestOID))
}

// go test -timeout 30s -run ^TestMarshalIMPLICITMatchesSETContentOctets$ github.com/LdDl/gocms/attr
func TestMarshalIMPLICITMatchesSETContentOctets(t *testing.T) {
	var a Attributes
	require.NoError(t, a.Add(contentTypeOID, asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 1}))
	require.NoError(t, a.Add(messageDigestOID, []byte("digestvalue")))

	set, err := a.MarshalSET()
	require.NoError(t, err)
	implicit, err := a.MarshalIMPLICIT(0)
	require.NoError(t, err)

	require.Equal(t, len(set), len(implicit), "IMPLICIT retag must not change length")
	assert.Equal(t, set[1:], implicit[1:], "only the leading tag byte may differ")
	assert.NotEqual(t, set[0], implicit[0])
	assert.Equal(t, byte(asn1.ClassContextSpecific<<6)|0x20|0, implicit[0])
}

// go test -timeout 30s -run ^TestAddRawPreservesValues$ github.com/LdDl/gocms/attr
func TestAddRawPreservesValues(t *testing.T) {
	var a Attributes
	values := []asn1.RawValue{{FullBytes: []byte{0x04, 0x01, 0xAB}}}
	require.NoError(t, a.AddRaw(messageDigestOID, values))
	assert.True(t, a.Has(messageDigestOID))

	err := a.AddRaw(messageDigestOID, values)
	assert.ErrorIs(t, err, ErrDuplicateAttribute)
}
