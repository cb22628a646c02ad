package cms

import (
	"bytes"
	"crypto/elliptic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LdDl/gocms/session"
)

func newSignerSession(t *testing.T) (*session.Session, []byte) {
	t.Helper()
	key, cert := selfSignedRSA(t, "rsa-signer")
	sess := session.New()
	sess.Signer = key
	require.NoError(t, sess.SetSignerCertificate(cert.Raw))
	sess.Content = []byte("the message to be signed")
	return sess, sess.Content
}

// go test -timeout 30s -run ^TestSignedDataRSARoundtrip$ github.com/LdDl/gocms/cms
func TestSignedDataRSARoundtrip(t *testing.T) {
	sess, content := newSignerSession(t)

	signed, err := EncodeSignedData(sess)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	verifySess := session.New()
	got, err := DecodeSignedData(signed, verifySess)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	require.NotNil(t, verifySess.SignerCert)
	assert.Equal(t, "rsa-signer", verifySess.SignerCert.Subject.CommonName)
}

// go test -timeout 30s -run ^TestSignedDataECDSARoundtrip$ github.com/LdDl/gocms/cms
func TestSignedDataECDSARoundtrip(t *testing.T) {
	key, cert := selfSignedECDSA(t, "ec-signer", elliptic.P256())
	sess := session.New()
	sess.Signer = key
	require.NoError(t, sess.SetSignerCertificate(cert.Raw))
	sess.Content = []byte("ecdsa signed content")

	signed, err := EncodeSignedData(sess)
	require.NoError(t, err)

	verifySess := session.New()
	got, err := DecodeSignedData(signed, verifySess)
	require.NoError(t, err)
	assert.Equal(t, sess.Content, got)
}

// go test -timeout 30s -run ^TestSignedDataDetachedRoundtrip$ github.com/LdDl/gocms/cms
func TestSignedDataDetachedRoundtrip(t *testing.T) {
	sess, content := newSignerSession(t)

	var head, foot bytes.Buffer
	_, err := EncodeSignedDataDetached(sess, &head, &foot)
	require.NoError(t, err)
	assert.NotEmpty(t, head.Bytes())
	assert.NotEmpty(t, foot.Bytes())

	full := append(append(append([]byte{}, head.Bytes()...), content...), foot.Bytes()...)

	verifySess := session.New()
	got, err := DecodeSignedDataDetached(full, content, verifySess)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

// go test -timeout 30s -run ^TestDecodeSignedDataRejectsTamperedContent$ github.com/LdDl/gocms/cms
func TestDecodeSignedDataRejectsTamperedContent(t *testing.T) {
	sess, _ := newSignerSession(t)
	signed, err := EncodeSignedData(sess)
	require.NoError(t, err)

	idx := indexOfSubslice(signed, sess.Content)
	require.GreaterOrEqual(t, idx, 0)
	tampered := make([]byte, len(signed))
	copy(tampered, signed)
	tampered[idx] ^= 0xFF

	_, err = DecodeSignedData(tampered, session.New())
	assert.Error(t, err)
}

// go test -timeout 30s -run ^TestEncodeSignedDataRequiresSignerAndCertificate$ github.com/LdDl/gocms/cms
func TestEncodeSignedDataRequiresSignerAndCertificate(t *testing.T) {
	sess := session.New()
	sess.Content = []byte("no signer set")
	_, err := EncodeSignedData(sess)
	assert.ErrorIs(t, err, session.ErrNoPrivateKey)

	key, _ := selfSignedRSA(t, "rsa-signer")
	sess2 := session.New()
	sess2.Signer = key
	sess2.Content = []byte("no certificate bound")
	_, err = EncodeSignedData(sess2)
	assert.ErrorIs(t, err, ErrMissingCertficate)
}

// go test -timeout 30s -run ^TestDecodeSignedDataRejectsEmptySignerInfosWithoutAllowDegenerate$ github.com/LdDl/gocms/cms
func TestDecodeSignedDataRejectsEmptySignerInfosWithoutAllowDegenerate(t *testing.T) {
	_, cert := selfSignedRSA(t, "degenerate-holder")
	sess := session.New()
	require.NoError(t, sess.SetSignerCertificate(cert.Raw))
	sess.AllowDegenerateSignedData(true)

	degen, err := EncodeDegenerateSignedData(sess)
	require.NoError(t, err)

	verifySess := session.New()
	_, err = DecodeSignedData(degen, verifySess)
	assert.ErrorIs(t, err, ErrDegenerateNotAllowed)

	verifySess2 := session.New()
	verifySess2.AllowDegenerateSignedData(true)
	_, err = DecodeSignedData(degen, verifySess2)
	assert.NoError(t, err)
}
