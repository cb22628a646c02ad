package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/LdDl/gocms/cms"
	"github.com/LdDl/gocms/session"
)

// HandleCompress builds a CompressedData envelope over content.
// @Summary Compress content
// @Description Builds a CMS CompressedData envelope using deflate under the id-alg-zlibCompress OID
// @Tags Compression
// @Accept json
// @Produce json
// @Param request body httpapi.CompressRequest true "Compress request"
// @Success 200 {object} httpapi.CompressResponse
// @Failure 400 {object} httpapi.ErrorResponse
// @Failure 405 {object} httpapi.ErrorResponse
// @Failure 500 {object} httpapi.ErrorResponse
// @Router /api/v1/compress [POST]
func HandleCompress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req CompressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse JSON: "+err.Error())
		return
	}
	content, err := base64.StdEncoding.DecodeString(req.ContentBase64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid content_base64: "+err.Error())
		return
	}

	sess := session.New()
	sess.Content = content

	out, err := cms.EncodeCompressedData(sess)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compress: "+err.Error())
		return
	}

	slog.Info("op=compress", "content_bytes", len(content), "compressed_data_bytes", len(out))
	writeJSON(w, http.StatusOK, CompressResponse{CompressedDataBase64: base64.StdEncoding.EncodeToString(out)})
}

// HandleDecompress opens a CompressedData envelope.
// @Summary Decompress content
// @Description Inflates a CMS CompressedData envelope, requiring the id-alg-zlibCompress OID and version 0
// @Tags Compression
// @Accept json
// @Produce json
// @Param request body httpapi.DecompressRequest true "Decompress request"
// @Success 200 {object} httpapi.DecompressResponse
// @Failure 400 {object} httpapi.ErrorResponse
// @Failure 405 {object} httpapi.ErrorResponse
// @Failure 500 {object} httpapi.ErrorResponse
// @Router /api/v1/decompress [POST]
func HandleDecompress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req DecompressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse JSON: "+err.Error())
		return
	}
	compressedData, err := base64.StdEncoding.DecodeString(req.CompressedDataBase64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid compressed_data_base64: "+err.Error())
		return
	}

	sess := session.New()
	content, err := cms.DecodeCompressedData(compressedData, sess)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to decompress: "+err.Error())
		return
	}

	slog.Info("op=decompress", "content_bytes", len(content))
	writeJSON(w, http.StatusOK, DecompressResponse{ContentBase64: base64.StdEncoding.EncodeToString(content)})
}
