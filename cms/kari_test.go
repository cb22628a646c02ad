package cms

import (
	"crypto/ecdh"
	"crypto/elliptic"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LdDl/gocms/session"
)

func newKARISession(t *testing.T) (encSess *session.Session, decSess *session.Session, content []byte) {
	t.Helper()
	key, cert := selfSignedECDSA(t, "ecdsa-recipient", elliptic.P256())
	recipientECDH, err := key.ECDH()
	require.NoError(t, err)
	content = []byte("key agreement secret content")

	encSess = session.New()
	require.NoError(t, encSess.SetRecipientCertificate(cert.Raw))
	// Placeholder ephemeral key: EncodeEnvelopedData only tests this field
	// for non-nilness to route to the KARI path; buildKARIRecipientInfo
	// always generates its own fresh ephemeral key pair.
	placeholder, err := ecdh.P256().GenerateKey(encSess.RNG)
	require.NoError(t, err)
	encSess.ECDHKey = placeholder
	encSess.Content = content

	decSess = session.New()
	decSess.RecipientCert = cert
	decSess.ECDHKey = recipientECDH
	return encSess, decSess, content
}

// go test -timeout 30s -run ^TestEnvelopedDataKARIRoundtrip$ github.com/LdDl/gocms/cms
func TestEnvelopedDataKARIRoundtrip(t *testing.T) {
	encSess, decSess, content := newKARISession(t)

	enveloped, err := EncodeEnvelopedData(encSess)
	require.NoError(t, err)
	require.NotEmpty(t, enveloped)

	got, err := DecodeEnvelopedData(enveloped, decSess)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

// go test -timeout 30s -run ^TestEnvelopedDataKARIRejectsWrongKey$ github.com/LdDl/gocms/cms
func TestEnvelopedDataKARIRejectsWrongKey(t *testing.T) {
	encSess, _, _ := newKARISession(t)
	enveloped, err := EncodeEnvelopedData(encSess)
	require.NoError(t, err)

	_, otherCert := selfSignedECDSA(t, "not-the-recipient", elliptic.P256())
	otherKey, err := ecdh.P256().GenerateKey(encSess.RNG)
	require.NoError(t, err)

	wrongSess := session.New()
	wrongSess.RecipientCert = otherCert
	wrongSess.ECDHKey = otherKey

	_, err = DecodeEnvelopedData(enveloped, wrongSess)
	assert.ErrorIs(t, err, ErrNoMatchingRecipient)
}

// go test -timeout 30s -run ^TestAnsiX963KDFDeterministic$ github.com/LdDl/gocms/cms
func TestAnsiX963KDFDeterministic(t *testing.T) {
	z := []byte("shared-secret-z-value")
	sharedInfo := []byte("shared-info")
	a := ansiX963KDF(sha256.New, z, sharedInfo, 32)
	b := ansiX963KDF(sha256.New, z, sharedInfo, 32)
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)

	c := ansiX963KDF(sha256.New, z, []byte("different-info"), 32)
	assert.NotEqual(t, a, c)
}
