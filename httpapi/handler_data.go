package httpapi

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/LdDl/gocms/cms"
	"github.com/LdDl/gocms/session"
)

// HandleEncryptData builds an EncryptedData envelope around content under
// a caller-supplied symmetric key — no recipient layer.
// @Summary Symmetric-encrypt content
// @Description Builds a CMS EncryptedData envelope using the supplied symmetric key directly as the CEK
// @Tags Symmetric
// @Accept json
// @Produce json
// @Param request body httpapi.EncryptDataRequest true "Encrypt request"
// @Success 200 {object} httpapi.EncryptDataResponse
// @Failure 400 {object} httpapi.ErrorResponse
// @Failure 405 {object} httpapi.ErrorResponse
// @Failure 500 {object} httpapi.ErrorResponse
// @Router /api/v1/encrypt-data [POST]
func HandleEncryptData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req EncryptDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse JSON: "+err.Error())
		return
	}
	key, err := hex.DecodeString(req.KeyHex)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid key_hex: "+err.Error())
		return
	}
	content, err := base64.StdEncoding.DecodeString(req.ContentBase64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid content_base64: "+err.Error())
		return
	}

	sess := session.New()
	sess.SymmetricKey = key
	sess.Content = content
	defer sess.Zero()

	out, err := cms.EncodeEncryptedData(sess)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encrypt: "+err.Error())
		return
	}

	slog.Info("op=encrypt-data", "content_bytes", len(content), "encrypted_data_bytes", len(out))
	writeJSON(w, http.StatusOK, EncryptDataResponse{EncryptedDataBase64: base64.StdEncoding.EncodeToString(out)})
}

// HandleDecryptData opens an EncryptedData envelope under a
// caller-supplied symmetric key.
// @Summary Symmetric-decrypt content
// @Description Decrypts a CMS EncryptedData envelope using the supplied symmetric key as the CEK
// @Tags Symmetric
// @Accept json
// @Produce json
// @Param request body httpapi.DecryptDataRequest true "Decrypt request"
// @Success 200 {object} httpapi.DecryptDataResponse
// @Failure 400 {object} httpapi.ErrorResponse
// @Failure 405 {object} httpapi.ErrorResponse
// @Failure 500 {object} httpapi.ErrorResponse
// @Router /api/v1/decrypt-data [POST]
func HandleDecryptData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req DecryptDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse JSON: "+err.Error())
		return
	}
	key, err := hex.DecodeString(req.KeyHex)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid key_hex: "+err.Error())
		return
	}
	encryptedData, err := base64.StdEncoding.DecodeString(req.EncryptedDataBase64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid encrypted_data_base64: "+err.Error())
		return
	}

	sess := session.New()
	sess.SymmetricKey = key
	defer sess.Zero()

	content, err := cms.DecodeEncryptedData(encryptedData, sess)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to decrypt: "+err.Error())
		return
	}

	slog.Info("op=decrypt-data", "content_bytes", len(content))
	writeJSON(w, http.StatusOK, DecryptDataResponse{ContentBase64: base64.StdEncoding.EncodeToString(content)})
}
