// Package httpapi provides HTTP handlers exposing CMS sign, verify,
// envelope, open, encrypt/decrypt, and compress operations over JSON.
package httpapi

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/LdDl/gocms/cms"
	"github.com/LdDl/gocms/keystore"
	"github.com/LdDl/gocms/session"
)

// HandleSign signs content into a SignedData envelope.
// @Summary Sign content
// @Description Builds a CMS SignedData envelope over the supplied content using the supplied PEM key/certificate
// @Tags Signing
// @Accept json
// @Produce json
// @Param request body httpapi.SignRequest true "Sign request"
// @Success 200 {object} httpapi.SignResponse
// @Failure 400 {object} httpapi.ErrorResponse
// @Failure 405 {object} httpapi.ErrorResponse
// @Failure 500 {object} httpapi.ErrorResponse
// @Router /api/v1/sign [POST]
func HandleSign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req SignRequest
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
	content, err := base64.StdEncoding.DecodeString(req.ContentBase64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid content base64: "+err.Error())
		return
	}

	sess := session.New()
	sess.Signer = signer
	if err := sess.SetSignerCertificate(cert.Raw); err != nil {
		writeError(w, http.StatusBadRequest, "failed to bind certificate: "+err.Error())
		return
	}
	sess.Content = content

	if req.Detached {
		var head, foot bytes.Buffer
		if _, err := cms.EncodeSignedDataDetached(sess, &head, &foot); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to sign: "+err.Error())
			return
		}
		slog.Info("op=sign", "content_bytes", len(content), "head_bytes", head.Len(), "foot_bytes", foot.Len(), "detached", true)
		writeJSON(w, http.StatusOK, SignResponse{
			HeadBase64: base64.StdEncoding.EncodeToString(head.Bytes()),
			FootBase64: base64.StdEncoding.EncodeToString(foot.Bytes()),
		})
		return
	}

	out, err := cms.EncodeSignedData(sess)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to sign: "+err.Error())
		return
	}
	slog.Info("op=sign", "content_bytes", len(content), "signed_data_bytes", len(out), "detached", false)
	writeJSON(w, http.StatusOK, SignResponse{SignedDataBase64: base64.StdEncoding.EncodeToString(out)})
}
