package cms

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"math/big"

	"github.com/pkg/errors"
)

// verifySignerInfo reconstructs both candidate verification digests, tries
// RSA against the DigestInfo-wrapped candidate first then falls back to
// the bare-digest candidate (some producers omit the DigestInfo wrapper
// despite RFC 5652 §5.4 requiring it), verifies ECDSA against the bare
// digest only, and loops candidate certificates in the order given until
// one verifies.
func verifySignerInfo(candidates []*x509.Certificate, h crypto.Hash, digest []byte, signature []byte) (*x509.Certificate, error) {
	pkcs7Digest, err := buildDigestInfo(h, digest)
	if err != nil {
		return nil, err
	}
	plainDigest := digest

	var lastErr error
	for _, cert := range candidates {
		switch pub := cert.PublicKey.(type) {
		case *rsa.PublicKey:
			ok, err := rsaVerifyEither(pub, signature, pkcs7Digest, plainDigest)
			if err != nil {
				lastErr = err
				continue
			}
			if ok {
				return cert, nil
			}
		case *ecdsa.PublicKey:
			if ecdsa.VerifyASN1(pub, plainDigest, signature) {
				return cert, nil
			}
		default:
			lastErr = errors.Wrapf(ErrUnknownAlgorithm, "unsupported signer public key type %T", pub)
		}
	}
	if lastErr != nil {
		return nil, errors.Wrap(ErrSignatureVerificationFailed, lastErr.Error())
	}
	return nil, errors.Wrap(ErrSignatureVerificationFailed, ErrNoMatchingSigner.Error())
}

// rsaVerifyEither performs the raw RSA public-key operation on signature
// and compares the PKCS#1 v1.5 decrypted block against pkcs7Digest first,
// then plainDigest — a single compatibility fallback, not a retry loop:
// both candidates derive from the same signature value.
func rsaVerifyEither(pub *rsa.PublicKey, signature, pkcs7Digest, plainDigest []byte) (bool, error) {
	decoded, err := rsaPublicDecrypt(pub, signature)
	if err != nil {
		return false, err
	}
	if bytes.Equal(decoded, pkcs7Digest) {
		return true, nil
	}
	if bytes.Equal(decoded, plainDigest) {
		return true, nil
	}
	return false, nil
}

// rsaPublicDecrypt performs sig^e mod n and strips the EMSA-PKCS1-v1_5
// padding (0x00 0x01 FF...FF 0x00), returning the trailing content octets
// so the caller can compare them against either candidate digest
// encoding.
func rsaPublicDecrypt(pub *rsa.PublicKey, signature []byte) ([]byte, error) {
	c := new(big.Int).SetBytes(signature)
	n := pub.N
	if c.Cmp(n) >= 0 {
		return nil, errors.Wrap(ErrCrypto, "signature representative out of range")
	}
	e := big.NewInt(int64(pub.E))
	m := new(big.Int).Exp(c, e, n)

	k := (n.BitLen() + 7) / 8
	block := m.FillBytes(make([]byte, k))

	if len(block) < 11 || block[0] != 0x00 || block[1] != 0x01 {
		return nil, errors.Wrap(ErrCrypto, "invalid PKCS#1 v1.5 signature padding")
	}
	i := 2
	for i < len(block) && block[i] == 0xff {
		i++
	}
	if i >= len(block) || block[i] != 0x00 {
		return nil, errors.Wrap(ErrCrypto, "invalid PKCS#1 v1.5 signature padding")
	}
	return block[i+1:], nil
}
