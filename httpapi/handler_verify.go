package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/LdDl/gocms/cms"
	"github.com/LdDl/gocms/session"
)

// HandleVerify verifies a SignedData envelope and returns its content.
// @Summary Verify a SignedData envelope
// @Description Verifies the embedded or detached signature and returns the content on success
// @Tags Signing
// @Accept json
// @Produce json
// @Param request body httpapi.VerifyRequest true "Verify request"
// @Success 200 {object} httpapi.VerifyResponse
// @Failure 400 {object} httpapi.ErrorResponse
// @Failure 405 {object} httpapi.ErrorResponse
// @Failure 500 {object} httpapi.ErrorResponse
// @Router /api/v1/verify [POST]
func HandleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse JSON: "+err.Error())
		return
	}
	signedData, err := base64.StdEncoding.DecodeString(req.SignedDataBase64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid signed_data_base64: "+err.Error())
		return
	}

	sess := session.New()
	sess.AllowDegenerateSignedData(false)

	var content []byte
	if req.ContentBase64 != "" {
		detachedContent, err := base64.StdEncoding.DecodeString(req.ContentBase64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid content_base64: "+err.Error())
			return
		}
		content, err = cms.DecodeSignedDataDetached(signedData, detachedContent, sess)
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to verify: "+err.Error())
			return
		}
	} else {
		content, err = cms.DecodeSignedData(signedData, sess)
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to verify: "+err.Error())
			return
		}
	}

	subject := ""
	if sess.SignerCert != nil {
		subject = sess.SignerCert.Subject.String()
	}
	slog.Info("op=verify", "content_bytes", len(content), "signer_subject", subject)
	writeJSON(w, http.StatusOK, VerifyResponse{
		ContentBase64: base64.StdEncoding.EncodeToString(content),
		SignerSubject: subject,
	})
}
