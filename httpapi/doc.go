// Package httpapi provides HTTP handlers for CMS/PKCS#7 message processing.
//
// @title CMS Message Processing API
// @version 1.0
// @description HTTP API for building and parsing CMS (RFC 5652) / PKCS#7 messages.
// @description
// @description Supports:
// @description - SignedData generation and verification (attached and detached)
// @description - EnvelopedData encryption and decryption (key transport and key agreement)
// @description - EncryptedData symmetric encryption and decryption
// @description - CompressedData (RFC 3274) compression and decompression
//
// @contact.name API Support
// @contact.url https://github.com/LdDl/gocms
//
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
//
// @host localhost:8080
// @BasePath /
// @schemes http https
//
// @externalDocs.description GitHub Repository
// @externalDocs.url https://github.com/LdDl/gocms
//
// @tag.name Health
// @tag.description Health check endpoints
//
// @tag.name Signing
// @tag.description Build and verify SignedData envelopes
//
// @tag.name Enveloping
// @tag.description Build and open EnvelopedData envelopes (key transport and key agreement)
//
// @tag.name Symmetric
// @tag.description Build and open EncryptedData envelopes under a caller-supplied key
//
// @tag.name Compression
// @tag.description Build and open CompressedData envelopes
package httpapi
