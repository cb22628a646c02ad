package httpapi

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selfSignedRSAPEMs(t *testing.T) (keyPEM, certPEM []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "httpapi-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	return keyPEM, certPEM
}

// go test -timeout 30s -run ^TestHandleHealth$ github.com/LdDl/gocms/httpapi
func TestHandleHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	HandleHealth(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

// go test -timeout 30s -run ^TestHandleSignAndVerify$ github.com/LdDl/gocms/httpapi
func TestHandleSignAndVerify(t *testing.T) {
	keyPEM, certPEM := selfSignedRSAPEMs(t)
	content := []byte("content signed through the HTTP API")

	signReq := SignRequest{
		PrivateKeyPEM:  string(keyPEM),
		CertificatePEM: string(certPEM),
		ContentBase64:  base64.StdEncoding.EncodeToString(content),
	}
	body, err := json.Marshal(signReq)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sign", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	HandleSign(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var signResp SignResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signResp))
	require.NotEmpty(t, signResp.SignedDataBase64)

	verifyReq := VerifyRequest{SignedDataBase64: signResp.SignedDataBase64}
	vBody, err := json.Marshal(verifyReq)
	require.NoError(t, err)

	vReq := httptest.NewRequest(http.MethodPost, "/api/v1/verify", bytes.NewReader(vBody))
	vRec := httptest.NewRecorder()
	HandleVerify(vRec, vReq)
	require.Equal(t, http.StatusOK, vRec.Code, vRec.Body.String())

	var verifyResp VerifyResponse
	require.NoError(t, json.Unmarshal(vRec.Body.Bytes(), &verifyResp))
	gotContent, err := base64.StdEncoding.DecodeString(verifyResp.ContentBase64)
	require.NoError(t, err)
	assert.Equal(t, content, gotContent)
	assert.Equal(t, "httpapi-test", verifyResp.SignerSubject)
}

// go test -timeout 30s -run ^TestHandleSignRejectsNonPOST$ github.com/LdDl/gocms/httpapi
func TestHandleSignRejectsNonPOST(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sign", nil)
	rec := httptest.NewRecorder()
	HandleSign(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
