package attr

import (
	"encoding/asn1"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -timeout 30s -run ^TestAttributeListPrependOrder$ github.com/LdDl/gocms/attr
func TestAttributeListPrependOrder(t *testing.T) {
	var l AttributeList
	l.Prepend(Attribute{Type: signingTimeOID})
	l.Prepend(Attribute{Type: contentTypeOID})
	l.Prepend(Attribute{Type: messageDigestOID})

	assert.Equal(t, 3, l.Len())
	all := l.All()
	require.Len(t, all, 3)
	assert.True(t, all[0].Type.Equal(messageDigestOID), "most recently prepended attribute comes first")
	assert.True(t, all[1].Type.Equal(contentTypeOID))
	assert.True(t, all[2].Type.Equal(signingTimeOID))
}

// go test -timeout 30s -run ^TestAttributeListFind$ github.com/LdDl/gocms/attr
func TestAttributeListFind(t *testing.T) {
	var l AttributeList
	l.Prepend(Attribute{Type: messageDigestOID, Values: []asn1.RawValue{{FullBytes: []byte{0x04, 0x01, 0x42}}}})

	found, ok := l.Find(messageDigestOID)
	require.True(t, ok)
	assert.True(t, found.Type.Equal(messageDigestOID))

	_, ok = l.Find(contentTypeOID)
	assert.False(t, ok)
}

// go test -timeout 30s -run ^TestAttributeListFindValue$ github.com/LdDl/gocms/attr
func TestAttributeListFindValue(t *testing.T) {
	var l AttributeList
	raw := []byte{0x04, 0x03, 0x01, 0x02, 0x03}
	l.Prepend(Attribute{Type: messageDigestOID, Values: []asn1.RawValue{{FullBytes: raw}}})

	value, ok := l.FindValue(messageDigestOID)
	require.True(t, ok)
	assert.Equal(t, raw, value)

	_, ok = l.FindValue(signingTimeOID)
	assert.False(t, ok)
}

// go test -timeout 30s -run ^TestParseAttributesIntoRoundtrip$ github.com/LdDl/gocms/attr
func TestParseAttributesIntoRoundtrip(t *testing.T) {
	var out Attributes
	require.NoError(t, out.Add(contentTypeOID, asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 1}))
	require.NoError(t, out.Add(messageDigestOID, []byte("digest-bytes-0123456789")))

	encoded, err := out.MarshalSET()
	require.NoError(t, err)

	var inner asn1.RawValue
	_, err = asn1.Unmarshal(encoded, &inner)
	require.NoError(t, err)

	var dst AttributeList
	require.NoError(t, ParseAttributesInto(&dst, encoded))
	assert.Equal(t, 2, dst.Len())

	_, ok := dst.Find(contentTypeOID)
	assert.True(t, ok)
	_, ok = dst.Find(messageDigestOID)
	assert.True(t, ok)
}
