package cms

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// selfSignedRSA generates a throwaway RSA key and a matching self-signed
// certificate, the way a test fixture needs but a real keystore never
// would (real certificates are issued by a CA, not self-signed on the fly).
func selfSignedRSA(t *testing.T, cn string) (*rsa.PrivateKey, *x509.Certificate) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	cert := signSelf(t, key, &key.PublicKey, cn)
	return key, cert
}

// selfSignedECDSA is the ECDSA counterpart of selfSignedRSA, on the
// caller-supplied curve.
func selfSignedECDSA(t *testing.T, cn string, curve elliptic.Curve) (*ecdsa.PrivateKey, *x509.Certificate) {
	t.Helper()
	key, err := ecdsa.GenerateKey(curve, rand.Reader)
	require.NoError(t, err)
	cert := signSelf(t, key, &key.PublicKey, cn)
	return key, cert
}

// subjectKeyIDFor computes the RFC 5280 §4.2.1.2 method 1 SubjectKeyId
// (SHA-1 of the subjectPublicKey BIT STRING). x509.CreateCertificate only
// derives this automatically for CA certificates, but KARI recipient
// matching (RFC 5753) needs it on leaf fixtures too.
func subjectKeyIDFor(t *testing.T, pub interface{}) []byte {
	t.Helper()
	pkixDER, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)
	var spki struct {
		Algorithm pkix.AlgorithmIdentifier
		PublicKey asn1.BitString
	}
	_, err = asn1.Unmarshal(pkixDER, &spki)
	require.NoError(t, err)
	sum := sha1.Sum(spki.PublicKey.Bytes)
	return sum[:]
}

func signSelf(t *testing.T, signer crypto.Signer, pub interface{}, cn string) *x509.Certificate {
	t.Helper()
	template := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment | x509.KeyUsageKeyAgreement,
		SubjectKeyId: subjectKeyIDFor(t, pub),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, pub, signer)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert
}
