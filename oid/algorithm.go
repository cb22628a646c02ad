package oid

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"

	"github.com/pkg/errors"

	_ "crypto/sha1" // register crypto.SHA1
)

// AlgorithmCategory classifies an algorithm OID for registry lookups
// (BlockSize and KeySize use it to reject OIDs of the wrong kind). The
// session setters do not consult it.
type AlgorithmCategory int

// Algorithm categories.
const (
	CategoryUnknown AlgorithmCategory = iota
	CategoryHash
	CategorySignature
	CategoryKeyTransport
	CategoryKeyAgreement
	CategoryKeyWrap
	CategoryBlockCipher
	CategoryKDF
	CategoryCompression
)

// ErrUnsupportedAlgorithm is returned by registry lookups for an OID the
// registry doesn't recognize. Kept distinct from parse errors so callers
// can tell "well-formed but unsupported" from "malformed".
var ErrUnsupportedAlgorithm = errors.New("oid: unsupported algorithm")

// Hash algorithm OIDs.
var (
	OIDDigestAlgorithmSHA1   = asn1.ObjectIdentifier{1, 3, 14, 3, 2, 26}
	OIDDigestAlgorithmSHA256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
	OIDDigestAlgorithmSHA384 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 2}
	OIDDigestAlgorithmSHA512 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 3}
	OIDDigestAlgorithmSHA224 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 4}
)

// Public-key / signature algorithm OIDs.
var (
	OIDPublicKeyRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}
	OIDPublicKeyECDSA = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}

	OIDSignatureRSASHA1   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 5}
	OIDSignatureRSASHA256 = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 11}
	OIDSignatureRSASHA384 = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 12}
	OIDSignatureRSASHA512 = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 13}

	OIDSignatureECDSASHA1   = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 1}
	OIDSignatureECDSASHA256 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2}
	OIDSignatureECDSASHA384 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 3}
	OIDSignatureECDSASHA512 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 4}
)

// Key-transport / key-agreement OIDs.
var (
	OIDKeyTransportRSA = OIDPublicKeyRSA // rsaEncryption reused as the KTRI key-encryption algorithm

	OIDKeyAgreeStdDHSHA1KDF   = asn1.ObjectIdentifier{1, 3, 133, 16, 840, 63, 0, 2}
	OIDKeyAgreeStdDHSHA224KDF = asn1.ObjectIdentifier{1, 3, 132, 1, 11, 0}
	OIDKeyAgreeStdDHSHA256KDF = asn1.ObjectIdentifier{1, 3, 132, 1, 11, 1}
	OIDKeyAgreeStdDHSHA384KDF = asn1.ObjectIdentifier{1, 3, 132, 1, 11, 2}
	OIDKeyAgreeStdDHSHA512KDF = asn1.ObjectIdentifier{1, 3, 132, 1, 11, 3}
)

// Key-wrap OIDs (RFC 3394 / RFC 5649 AES key wrap).
var (
	OIDAESKeyWrap128 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 5}
	OIDAESKeyWrap192 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 25}
	OIDAESKeyWrap256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 45}
)

// Content-encryption (block cipher) OIDs.
var (
	OIDAES128CBC    = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 2}
	OIDAES192CBC    = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 22}
	OIDAES256CBC    = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 42}
	OIDDESEDE3CBC   = asn1.ObjectIdentifier{1, 2, 840, 113549, 3, 7}
)

// Compression OID (RFC 3274).
var OIDZlibCompress = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 3, 8}

type algoInfo struct {
	category  AlgorithmCategory
	blockSize int
	keySize   int
	hash      crypto.Hash
}

var registry = map[string]algoInfo{
	OIDDigestAlgorithmSHA1.String():   {category: CategoryHash, hash: crypto.SHA1},
	OIDDigestAlgorithmSHA224.String(): {category: CategoryHash, hash: crypto.SHA224},
	OIDDigestAlgorithmSHA256.String(): {category: CategoryHash, hash: crypto.SHA256},
	OIDDigestAlgorithmSHA384.String(): {category: CategoryHash, hash: crypto.SHA384},
	OIDDigestAlgorithmSHA512.String(): {category: CategoryHash, hash: crypto.SHA512},

	OIDAES128CBC.String():  {category: CategoryBlockCipher, blockSize: 16, keySize: 16},
	OIDAES192CBC.String():  {category: CategoryBlockCipher, blockSize: 16, keySize: 24},
	OIDAES256CBC.String():  {category: CategoryBlockCipher, blockSize: 16, keySize: 32},
	OIDDESEDE3CBC.String(): {category: CategoryBlockCipher, blockSize: 8, keySize: 24},

	OIDAESKeyWrap128.String(): {category: CategoryKeyWrap, keySize: 16},
	OIDAESKeyWrap192.String(): {category: CategoryKeyWrap, keySize: 24},
	OIDAESKeyWrap256.String(): {category: CategoryKeyWrap, keySize: 32},

	OIDKeyTransportRSA.String(): {category: CategoryKeyTransport},

	OIDKeyAgreeStdDHSHA1KDF.String():   {category: CategoryKeyAgreement, hash: crypto.SHA1},
	OIDKeyAgreeStdDHSHA224KDF.String(): {category: CategoryKeyAgreement, hash: crypto.SHA224},
	OIDKeyAgreeStdDHSHA256KDF.String(): {category: CategoryKeyAgreement, hash: crypto.SHA256},
	OIDKeyAgreeStdDHSHA384KDF.String(): {category: CategoryKeyAgreement, hash: crypto.SHA384},
	OIDKeyAgreeStdDHSHA512KDF.String(): {category: CategoryKeyAgreement, hash: crypto.SHA512},

	OIDZlibCompress.String(): {category: CategoryCompression},
}

// Category returns the registered category of an algorithm OID.
func Category(o asn1.ObjectIdentifier) (AlgorithmCategory, error) {
	info, ok := registry[o.String()]
	if !ok {
		return CategoryUnknown, errors.Wrapf(ErrUnsupportedAlgorithm, "oid %s", o.String())
	}
	return info.category, nil
}

// BlockSize returns the cipher block size, in bytes, for a content
// encryption algorithm OID.
func BlockSize(o asn1.ObjectIdentifier) (int, error) {
	info, ok := registry[o.String()]
	if !ok || info.category != CategoryBlockCipher {
		return 0, errors.Wrapf(ErrUnsupportedAlgorithm, "block size for oid %s", o.String())
	}
	return info.blockSize, nil
}

// KeySize returns the key size, in bytes, for a content-encryption or
// key-wrap algorithm OID.
func KeySize(o asn1.ObjectIdentifier) (int, error) {
	info, ok := registry[o.String()]
	if !ok || (info.category != CategoryBlockCipher && info.category != CategoryKeyWrap) {
		return 0, errors.Wrapf(ErrUnsupportedAlgorithm, "key size for oid %s", o.String())
	}
	return info.keySize, nil
}

// HashForOID returns the crypto.Hash a hash or key-agreement-KDF OID
// implies.
func HashForOID(o asn1.ObjectIdentifier) (crypto.Hash, error) {
	info, ok := registry[o.String()]
	if !ok || info.hash == 0 {
		return 0, errors.Wrapf(ErrUnsupportedAlgorithm, "hash for oid %s", o.String())
	}
	return info.hash, nil
}

// OIDForHash is the inverse of HashForOID, restricted to the hash category.
func OIDForHash(h crypto.Hash) (asn1.ObjectIdentifier, error) {
	switch h {
	case crypto.SHA1:
		return OIDDigestAlgorithmSHA1, nil
	case crypto.SHA224:
		return OIDDigestAlgorithmSHA224, nil
	case crypto.SHA256:
		return OIDDigestAlgorithmSHA256, nil
	case crypto.SHA384:
		return OIDDigestAlgorithmSHA384, nil
	case crypto.SHA512:
		return OIDDigestAlgorithmSHA512, nil
	}
	return nil, errors.Wrapf(ErrUnsupportedAlgorithm, "hash %v", h)
}

// SignatureAlgorithmFor synthesizes the signature-algorithm OID for a
// (public-key algorithm, hash algorithm) pair via deterministic table
// lookup, performed once before SignedData encoding begins.
func SignatureAlgorithmFor(pubKeyOID asn1.ObjectIdentifier, hash crypto.Hash) (asn1.ObjectIdentifier, error) {
	switch {
	case pubKeyOID.Equal(OIDPublicKeyRSA):
		switch hash {
		case crypto.SHA1:
			return OIDSignatureRSASHA1, nil
		case crypto.SHA256:
			return OIDSignatureRSASHA256, nil
		case crypto.SHA384:
			return OIDSignatureRSASHA384, nil
		case crypto.SHA512:
			return OIDSignatureRSASHA512, nil
		}
	case pubKeyOID.Equal(OIDPublicKeyECDSA):
		switch hash {
		case crypto.SHA1:
			return OIDSignatureECDSASHA1, nil
		case crypto.SHA256:
			return OIDSignatureECDSASHA256, nil
		case crypto.SHA384:
			return OIDSignatureECDSASHA384, nil
		case crypto.SHA512:
			return OIDSignatureECDSASHA512, nil
		}
	}
	return nil, errors.Wrapf(ErrUnsupportedAlgorithm, "pubkey %s / hash %v", pubKeyOID.String(), hash)
}

// PublicKeyOIDForSignatureAlgorithm derives the public-key algorithm OID
// from a signature-algorithm OID.
func PublicKeyOIDForSignatureAlgorithm(sigOID asn1.ObjectIdentifier) (asn1.ObjectIdentifier, error) {
	switch {
	case sigOID.Equal(OIDSignatureRSASHA1), sigOID.Equal(OIDSignatureRSASHA256),
		sigOID.Equal(OIDSignatureRSASHA384), sigOID.Equal(OIDSignatureRSASHA512):
		return OIDPublicKeyRSA, nil
	case sigOID.Equal(OIDSignatureECDSASHA1), sigOID.Equal(OIDSignatureECDSASHA256),
		sigOID.Equal(OIDSignatureECDSASHA384), sigOID.Equal(OIDSignatureECDSASHA512):
		return OIDPublicKeyECDSA, nil
	}
	return nil, errors.Wrapf(ErrUnsupportedAlgorithm, "signature oid %s", sigOID.String())
}

// HashForSignatureAlgorithm returns the hash paired with a signature OID.
func HashForSignatureAlgorithm(sigOID asn1.ObjectIdentifier) (crypto.Hash, error) {
	switch {
	case sigOID.Equal(OIDSignatureRSASHA1), sigOID.Equal(OIDSignatureECDSASHA1):
		return crypto.SHA1, nil
	case sigOID.Equal(OIDSignatureRSASHA256), sigOID.Equal(OIDSignatureECDSASHA256):
		return crypto.SHA256, nil
	case sigOID.Equal(OIDSignatureRSASHA384), sigOID.Equal(OIDSignatureECDSASHA384):
		return crypto.SHA384, nil
	case sigOID.Equal(OIDSignatureRSASHA512), sigOID.Equal(OIDSignatureECDSASHA512):
		return crypto.SHA512, nil
	}
	return 0, errors.Wrapf(ErrUnsupportedAlgorithm, "signature oid %s", sigOID.String())
}

// PublicKeyOIDForKey returns the public-key algorithm OID for a concrete
// key type, used when building SignerInfo / RecipientInfo from a
// crypto.Signer or certificate.
func PublicKeyOIDForKey(pub interface{}) (asn1.ObjectIdentifier, error) {
	switch pub.(type) {
	case *rsa.PublicKey:
		return OIDPublicKeyRSA, nil
	case *ecdsa.PublicKey:
		return OIDPublicKeyECDSA, nil
	}
	return nil, errors.Wrapf(ErrUnsupportedAlgorithm, "key type %T", pub)
}

// X509SignatureAlgorithm maps a SignerInfo's declared signatureAlgorithm
// OID to the crypto/x509 enum, so decodeSignedData can cross-check it
// against the winning certificate's actual public-key algorithm.
func X509SignatureAlgorithm(sigOID asn1.ObjectIdentifier) x509.SignatureAlgorithm {
	switch {
	case sigOID.Equal(OIDSignatureRSASHA1):
		return x509.SHA1WithRSA
	case sigOID.Equal(OIDSignatureRSASHA256):
		return x509.SHA256WithRSA
	case sigOID.Equal(OIDSignatureRSASHA384):
		return x509.SHA384WithRSA
	case sigOID.Equal(OIDSignatureRSASHA512):
		return x509.SHA512WithRSA
	case sigOID.Equal(OIDSignatureECDSASHA1):
		return x509.ECDSAWithSHA1
	case sigOID.Equal(OIDSignatureECDSASHA256):
		return x509.ECDSAWithSHA256
	case sigOID.Equal(OIDSignatureECDSASHA384):
		return x509.ECDSAWithSHA384
	case sigOID.Equal(OIDSignatureECDSASHA512):
		return x509.ECDSAWithSHA512
	}
	return x509.UnknownSignatureAlgorithm
}
