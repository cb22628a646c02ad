package cms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LdDl/gocms/session"
)

func newRecipientSession(t *testing.T) (encSess *session.Session, decSess *session.Session, content []byte) {
	t.Helper()
	key, cert := selfSignedRSA(t, "rsa-recipient")
	content = []byte("secret envelope content")

	encSess = session.New()
	require.NoError(t, encSess.SetRecipientCertificate(cert.Raw))
	encSess.Content = content

	decSess = session.New()
	decSess.RecipientCert = cert
	decSess.Decrypter = key
	return encSess, decSess, content
}

// go test -timeout 30s -run ^TestEnvelopedDataKTRIRoundtrip$ github.com/LdDl/gocms/cms
func TestEnvelopedDataKTRIRoundtrip(t *testing.T) {
	encSess, decSess, content := newRecipientSession(t)

	enveloped, err := EncodeEnvelopedData(encSess)
	require.NoError(t, err)
	require.NotEmpty(t, enveloped)

	got, err := DecodeEnvelopedData(enveloped, decSess)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

// go test -timeout 30s -run ^TestEnvelopedDataRejectsWrongRecipient$ github.com/LdDl/gocms/cms
func TestEnvelopedDataRejectsWrongRecipient(t *testing.T) {
	encSess, _, _ := newRecipientSession(t)
	enveloped, err := EncodeEnvelopedData(encSess)
	require.NoError(t, err)

	otherKey, otherCert := selfSignedRSA(t, "not-the-recipient")
	wrongSess := session.New()
	wrongSess.RecipientCert = otherCert
	wrongSess.Decrypter = otherKey

	_, err = DecodeEnvelopedData(enveloped, wrongSess)
	assert.ErrorIs(t, err, ErrNoMatchingRecipient)
}

// go test -timeout 30s -run ^TestEnvelopedDataRejectsTamperedCiphertext$ github.com/LdDl/gocms/cms
func TestEnvelopedDataRejectsTamperedCiphertext(t *testing.T) {
	encSess, decSess, _ := newRecipientSession(t)
	enveloped, err := EncodeEnvelopedData(encSess)
	require.NoError(t, err)

	tampered := make([]byte, len(enveloped))
	copy(tampered, enveloped)
	tampered[len(tampered)-1] ^= 0xFF

	_, err = DecodeEnvelopedData(tampered, decSess)
	assert.Error(t, err)
}

// go test -timeout 30s -run ^TestEncodeEnvelopedDataRequiresRecipient$ github.com/LdDl/gocms/cms
func TestEncodeEnvelopedDataRequiresRecipient(t *testing.T) {
	sess := session.New()
	sess.Content = []byte("no recipient configured")
	_, err := EncodeEnvelopedData(sess)
	assert.ErrorIs(t, err, session.ErrNoCertificate)
}
