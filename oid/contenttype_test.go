package oid

import (
	"encoding/asn1"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -timeout 30s -run ^TestContentTypeRoundtrip$ github.com/LdDl/gocms/oid
func TestContentTypeRoundtrip(t *testing.T) {
	cases := []ContentType{
		ContentTypeData,
		ContentTypeSignedData,
		ContentTypeEnvelopedData,
		ContentTypeEncryptedData,
		ContentTypeCompressedData,
	}
	for _, ct := range cases {
		o, err := OIDForContentType(ct)
		require.NoError(t, err)

		got, err := ContentTypeForOID(o)
		require.NoError(t, err)
		assert.Equal(t, ct, got)
	}
}

// go test -timeout 30s -run ^TestContentTypeForUnknownOID$ github.com/LdDl/gocms/oid
func TestContentTypeForUnknownOID(t *testing.T) {
	_, err := ContentTypeForOID(asn1.ObjectIdentifier{1, 2, 3, 4, 5})
	assert.ErrorIs(t, err, ErrUnknownContentType)
}

// go test -timeout 30s -run ^TestOIDForUnknownContentType$ github.com/LdDl/gocms/oid
func TestOIDForUnknownContentType(t *testing.T) {
	_, err := OIDForContentType(ContentType(999))
	assert.ErrorIs(t, err, ErrUnknownContentType)
}
