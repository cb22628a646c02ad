package httpapi

import (
	"crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/LdDl/gocms/cms"
	"github.com/LdDl/gocms/keystore"
	"github.com/LdDl/gocms/session"
)

// HandleEnvelope encrypts content into an EnvelopedData envelope, using
// key transport (KTRI) by default or key agreement (KARI) when the
// recipient certificate carries an ECDSA public key and the caller asks
// for it.
// @Summary Envelope content for a recipient
// @Description Builds a CMS EnvelopedData envelope, using KARI when use_key_agreement is set (ECDSA recipient required) and KTRI otherwise
// @Tags Enveloping
// @Accept json
// @Produce json
// @Param request body httpapi.EnvelopeRequest true "Envelope request"
// @Success 200 {object} httpapi.EnvelopeResponse
// @Failure 400 {object} httpapi.ErrorResponse
// @Failure 405 {object} httpapi.ErrorResponse
// @Failure 500 {object} httpapi.ErrorResponse
// @Router /api/v1/envelope [POST]
func HandleEnvelope(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req EnvelopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse JSON: "+err.Error())
		return
	}
	cert, err := keystore.ParseCertificate([]byte(req.RecipientCertificatePEM))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recipient certificate: "+err.Error())
		return
	}
	content, err := base64.StdEncoding.DecodeString(req.ContentBase64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid content_base64: "+err.Error())
		return
	}

	sess := session.New()
	if err := sess.SetRecipientCertificate(cert.Raw); err != nil {
		writeError(w, http.StatusBadRequest, "failed to bind recipient certificate: "+err.Error())
		return
	}
	sess.Content = content

	if req.UseKeyAgreement {
		ecPub, ok := cert.PublicKey.(*ecdsa.PublicKey)
		if !ok {
			writeError(w, http.StatusBadRequest, "recipient certificate is not ECDSA, cannot use key agreement")
			return
		}
		curve, err := ecdhCurveFor(ecPub)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		ephemeral, err := curve.GenerateKey(sess.RNG)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to generate ephemeral key: "+err.Error())
			return
		}
		sess.ECDHKey = ephemeral
	}

	out, err := cms.EncodeEnvelopedData(sess)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to envelope: "+err.Error())
		return
	}

	slog.Info("op=envelope", "content_bytes", len(content), "enveloped_data_bytes", len(out), "key_agreement", req.UseKeyAgreement)
	writeJSON(w, http.StatusOK, EnvelopeResponse{EnvelopedDataBase64: base64.StdEncoding.EncodeToString(out)})
}

// HandleOpen decrypts an EnvelopedData envelope using the recipient's
// private key and certificate.
// @Summary Open an EnvelopedData envelope
// @Description Decrypts a CMS EnvelopedData envelope, matching KTRI or KARI recipients against the supplied key
// @Tags Enveloping
// @Accept json
// @Produce json
// @Param request body httpapi.OpenRequest true "Open request"
// @Success 200 {object} httpapi.OpenResponse
// @Failure 400 {object} httpapi.ErrorResponse
// @Failure 405 {object} httpapi.ErrorResponse
// @Failure 500 {object} httpapi.ErrorResponse
// @Router /api/v1/open [POST]
func HandleOpen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req OpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse JSON: "+err.Error())
		return
	}
	signer, err := keystore.ParsePrivateKey([]byte(req.PrivateKeyPEM), "")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid private key: "+err.Error())
		return
	}
	cert, err := keystore.ParseCertificate([]byte(req.CertificatePEM))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid certificate: "+err.Error())
		return
	}
	envelopedData, err := base64.StdEncoding.DecodeString(req.EnvelopedDataBase64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid enveloped_data_base64: "+err.Error())
		return
	}

	sess := session.New()
	if err := sess.SetRecipientCertificate(cert.Raw); err != nil {
		writeError(w, http.StatusBadRequest, "failed to bind certificate: "+err.Error())
		return
	}

	if rsaDecrypter, ok := signer.(crypto.Decrypter); ok {
		sess.Decrypter = rsaDecrypter
	}
	if ecPriv, ok := signer.(*ecdsa.PrivateKey); ok {
		ecdhPriv, err := ecPriv.ECDH()
		if err != nil {
			writeError(w, http.StatusBadRequest, "recipient EC key is not usable for ECDH: "+err.Error())
			return
		}
		sess.ECDHKey = ecdhPriv
	}

	content, err := cms.DecodeEnvelopedData(envelopedData, sess)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to open: "+err.Error())
		return
	}

	slog.Info("op=open", "content_bytes", len(content))
	writeJSON(w, http.StatusOK, OpenResponse{ContentBase64: base64.StdEncoding.EncodeToString(content)})
}

func ecdhCurveFor(pub *ecdsa.PublicKey) (ecdh.Curve, error) {
	switch pub.Curve.Params().Name {
	case "P-256":
		return ecdh.P256(), nil
	case "P-384":
		return ecdh.P384(), nil
	case "P-521":
		return ecdh.P521(), nil
	}
	return nil, fmt.Errorf("unsupported EC curve %s", pub.Curve.Params().Name)
}
