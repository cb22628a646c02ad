package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// SignRequest is the JSON request for /api/v1/sign.
// swagger:model
type SignRequest struct {
	// PEM-encoded signer private key
	PrivateKeyPEM string `json:"private_key_pem"`
	// PEM-encoded signer certificate
	CertificatePEM string `json:"certificate_pem"`
	// Content to sign, base64-encoded
	ContentBase64 string `json:"content_base64"`
	// Detach the content from the SignedData envelope
	Detached bool `json:"detached,omitempty"`
}

// SignResponse is the JSON response for /api/v1/sign. For a non-detached
// signature, SignedDataBase64 carries the complete self-contained
// envelope and HeadBase64/FootBase64 are empty. For a detached signature,
// SignedDataBase64 is empty and the caller reassembles
// head‖content‖foot itself.
// swagger:model
type SignResponse struct {
	// SignedData ContentInfo, base64-encoded (non-detached only)
	SignedDataBase64 string `json:"signed_data_base64,omitempty"`
	// Bytes preceding the content octets (detached only)
	HeadBase64 string `json:"head_base64,omitempty"`
	// Bytes following the content octets (detached only)
	FootBase64 string `json:"foot_base64,omitempty"`
}

// VerifyRequest is the JSON request for /api/v1/verify.
// swagger:model
type VerifyRequest struct {
	// SignedData ContentInfo, base64-encoded
	SignedDataBase64 string `json:"signed_data_base64"`
	// Detached content, base64-encoded, required when the envelope carries no eContent
	ContentBase64 string `json:"content_base64,omitempty"`
}

// VerifyResponse is the JSON response for /api/v1/verify.
// swagger:model
type VerifyResponse struct {
	// Verified content, base64-encoded
	ContentBase64 string `json:"content_base64"`
	// Subject of the certificate that verified the signature
	SignerSubject string `json:"signer_subject"`
}

// EnvelopeRequest is the JSON request for /api/v1/envelope.
// swagger:model
type EnvelopeRequest struct {
	// PEM-encoded recipient certificate
	RecipientCertificatePEM string `json:"recipient_certificate_pem"`
	// Content to encrypt, base64-encoded
	ContentBase64 string `json:"content_base64"`
	// Use ECDH key agreement (KARI) instead of RSA key transport (KTRI)
	UseKeyAgreement bool `json:"use_key_agreement,omitempty"`
}

// EnvelopeResponse is the JSON response for /api/v1/envelope.
// swagger:model
type EnvelopeResponse struct {
	// EnvelopedData ContentInfo, base64-encoded
	EnvelopedDataBase64 string `json:"enveloped_data_base64"`
}

// OpenRequest is the JSON request for /api/v1/open.
// swagger:model
type OpenRequest struct {
	// PEM-encoded recipient private key
	PrivateKeyPEM string `json:"private_key_pem"`
	// PEM-encoded recipient certificate
	CertificatePEM string `json:"certificate_pem"`
	// EnvelopedData ContentInfo, base64-encoded
	EnvelopedDataBase64 string `json:"enveloped_data_base64"`
}

// OpenResponse is the JSON response for /api/v1/open.
// swagger:model
type OpenResponse struct {
	// Decrypted content, base64-encoded
	ContentBase64 string `json:"content_base64"`
}

// EncryptDataRequest is the JSON request for /api/v1/encrypt-data.
// swagger:model
type EncryptDataRequest struct {
	// Symmetric content-encryption key, hex-encoded
	KeyHex string `json:"key_hex"`
	// Content to encrypt, base64-encoded
	ContentBase64 string `json:"content_base64"`
}

// EncryptDataResponse is the JSON response for /api/v1/encrypt-data.
// swagger:model
type EncryptDataResponse struct {
	// EncryptedData ContentInfo, base64-encoded
	EncryptedDataBase64 string `json:"encrypted_data_base64"`
}

// DecryptDataRequest is the JSON request for /api/v1/decrypt-data.
// swagger:model
type DecryptDataRequest struct {
	// Symmetric content-encryption key, hex-encoded
	KeyHex string `json:"key_hex"`
	// EncryptedData ContentInfo, base64-encoded
	EncryptedDataBase64 string `json:"encrypted_data_base64"`
}

// DecryptDataResponse is the JSON response for /api/v1/decrypt-data.
// swagger:model
type DecryptDataResponse struct {
	// Decrypted content, base64-encoded
	ContentBase64 string `json:"content_base64"`
}

// CompressRequest is the JSON request for /api/v1/compress.
// swagger:model
type CompressRequest struct {
	// Content to compress, base64-encoded
	ContentBase64 string `json:"content_base64"`
}

// CompressResponse is the JSON response for /api/v1/compress.
// swagger:model
type CompressResponse struct {
	// CompressedData ContentInfo, base64-encoded
	CompressedDataBase64 string `json:"compressed_data_base64"`
}

// DecompressRequest is the JSON request for /api/v1/decompress.
// swagger:model
type DecompressRequest struct {
	// CompressedData ContentInfo, base64-encoded
	CompressedDataBase64 string `json:"compressed_data_base64"`
}

// DecompressResponse is the JSON response for /api/v1/decompress.
// swagger:model
type DecompressResponse struct {
	// Decompressed content, base64-encoded
	ContentBase64 string `json:"content_base64"`
}

// ErrorResponse is the JSON error response.
// swagger:model
type ErrorResponse struct {
	// Error message
	Error string `json:"error" example:"failed to verify signature: no matching signer"`
}

// HealthResponse is the JSON response for /health.
// swagger:model
type HealthResponse struct {
	// Service status
	Status string `json:"status" example:"ok"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	slog.Error("request error", "status", status, "message", message)
	writeJSON(w, status, ErrorResponse{Error: message})
}
