package session

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selfSignedDER(t *testing.T) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "session-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	return der
}

// go test -timeout 30s -run ^TestNewDefaults$ github.com/LdDl/gocms/session
func TestNewDefaults(t *testing.T) {
	s := New()
	assert.NotNil(t, s.RNG)
	assert.Equal(t, IssuerAndSerialNumber, s.SignerIDType)
	assert.NotNil(t, s.DecodedAttrs)
	assert.True(t, s.Owned())
}

// go test -timeout 30s -run ^TestSetSignerCertificate$ github.com/LdDl/gocms/session
func TestSetSignerCertificate(t *testing.T) {
	s := New()
	der := selfSignedDER(t)
	require.NoError(t, s.SetSignerCertificate(der))
	assert.Equal(t, "session-test", s.SignerCert.Subject.CommonName)
	assert.Equal(t, der, s.SignerCertRaw)
}

// go test -timeout 30s -run ^TestSetSignerCertificateRejectsGarbage$ github.com/LdDl/gocms/session
func TestSetSignerCertificateRejectsGarbage(t *testing.T) {
	s := New()
	err := s.SetSignerCertificate([]byte("not a certificate"))
	assert.ErrorIs(t, err, ErrCertificateParse)
}

// go test -timeout 30s -run ^TestAddCertificateMostRecentFirst$ github.com/LdDl/gocms/session
func TestAddCertificateMostRecentFirst(t *testing.T) {
	s := New()
	first, err := x509.ParseCertificate(selfSignedDER(t))
	require.NoError(t, err)
	second, err := x509.ParseCertificate(selfSignedDER(t))
	require.NoError(t, err)

	s.AddCertificate(first)
	s.AddCertificate(second)
	require.Len(t, s.Chain, 2)
	assert.Same(t, second, s.Chain[0])
	assert.Same(t, first, s.Chain[1])
}

// go test -timeout 30s -run ^TestZeroClearsSymmetricKeyAndUKM$ github.com/LdDl/gocms/session
func TestZeroClearsSymmetricKeyAndUKM(t *testing.T) {
	s := New()
	s.SymmetricKey = []byte{1, 2, 3, 4}
	s.UKM = []byte{5, 6, 7, 8}
	s.Zero()
	assert.Nil(t, s.SymmetricKey)
	assert.Nil(t, s.UKM)
}

// go test -timeout 30s -run ^TestRebindFromDecode$ github.com/LdDl/gocms/session
func TestRebindFromDecode(t *testing.T) {
	s := New()
	der := selfSignedDER(t)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	s.RebindFromDecode(cert, der, []int{1, 2, 3}, false)
	assert.Same(t, cert, s.SignerCert)
	assert.Nil(t, s.RecipientCert)

	s.RebindFromDecode(cert, der, []int{1, 2, 3}, true)
	assert.Same(t, cert, s.RecipientCert)
}

// go test -timeout 30s -run ^TestGetAttributeValueMissing$ github.com/LdDl/gocms/session
func TestGetAttributeValueMissing(t *testing.T) {
	s := New()
	_, ok := s.GetAttributeValue([]int{1, 2, 3})
	assert.False(t, ok)
}
