package cms

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/LdDl/gocms/oid"
	"github.com/LdDl/gocms/session"
)

// signerInfo is SignerInfo ::= SEQUENCE { version, sid, digestAlgorithm,
// signedAttrs [0] IMPLICIT OPTIONAL, signatureAlgorithm, signature,
// unsignedAttrs [1] IMPLICIT OPTIONAL }. SignedAttrs/UnsignedAttrs are
// carried as raw bytes rather than a typed Attributes slice so the
// decoder can retain the exact wire octets for re-canonicalization
// (RFC 5652 §5.4's signed-attribute retagging rule).
type signerInfo struct {
	Version            int
	SID                asn1.RawValue
	DigestAlgorithm    pkix.AlgorithmIdentifier
	SignedAttrs        asn1.RawValue `asn1:"optional,tag:0"`
	SignatureAlgorithm pkix.AlgorithmIdentifier
	Signature          []byte
	UnsignedAttrs      asn1.RawValue `asn1:"optional,tag:1"`
}

type signedData struct {
	Version          int
	DigestAlgorithms []pkix.AlgorithmIdentifier `asn1:"set"`
	EncapContentInfo EncapsulatedContentInfo
	Certificates     []asn1.RawValue `asn1:"optional,set,tag:0"`
	CRLs             []asn1.RawValue `asn1:"optional,set,tag:1"`
	SignerInfos      []signerInfo    `asn1:"set"`
}

// HeadFoot reports the byte counts of a detached SignedData encode, so the
// caller can reassemble head‖content‖foot (RFC 5652 §5.2's detached-content
// convention: eContent omitted, carried externally).
type HeadFoot struct {
	HeadLen int
	FootLen int
}

func hashAlgorithmIdentifier(h crypto.Hash) (pkix.AlgorithmIdentifier, error) {
	o, err := oid.OIDForHash(h)
	if err != nil {
		return pkix.AlgorithmIdentifier{}, errors.Wrap(ErrUnknownAlgorithm, err.Error())
	}
	return pkix.AlgorithmIdentifier{Algorithm: o, Parameters: asn1.NullRawValue}, nil
}

// EncodeSignedData implements RFC 5652 §5.1-5.4: exactly one SignerInfo,
// exactly one digest algorithm, eContent never segmented.
func EncodeSignedData(sess *session.Session) ([]byte, error) {
	return encodeSignedData(sess, false, nil, nil)
}

// EncodeSignedDataDetached is the detached variant: content bytes are not
// placed into the returned buffer. head is everything before the content
// octets, foot is everything after; the caller concatenates
// head‖content‖foot. Returned HeadFoot carries the byte counts of each.
func EncodeSignedDataDetached(sess *session.Session, headOut, footOut io.Writer) (HeadFoot, error) {
	var hf HeadFoot
	full, err := encodeSignedData(sess, true, headOut, footOut)
	if err != nil {
		return hf, err
	}
	idx := indexOfSubslice(full, sess.Content)
	hf.HeadLen = idx
	hf.FootLen = len(full) - idx - len(sess.Content)
	return hf, nil
}

func encodeSignedData(sess *session.Session, detached bool, headOut, footOut io.Writer) ([]byte, error) {
	if sess.Signer == nil {
		return nil, errors.Wrap(session.ErrNoPrivateKey, "EncodeSignedData")
	}
	if sess.SignerCert == nil {
		return nil, errors.Wrap(ErrMissingCertficate, "EncodeSignedData")
	}

	contentType := sess.ContentType
	if len(contentType) == 0 {
		contentType = oid.OIDData
	}

	h := sess.HashAlg
	if h == 0 {
		h = crypto.SHA256
	}
	hasher := h.New()
	hasher.Write(sess.Content)
	contentDigest := hasher.Sum(nil)

	contentDigestOctetString, err := asn1.Marshal(asn1.RawValue{
		Class: asn1.ClassUniversal, Tag: asn1.TagOctetString, Bytes: contentDigest,
	})
	if err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}

	signedAttrs, err := synthesizeSignedAttrs(contentType, contentDigestOctetString, time.Now(), sess.OutboundAttrs)
	if err != nil {
		return nil, err
	}

	digestToSign := contentDigest
	var signedAttrsIMPLICIT []byte
	if !signedAttrs.Empty() {
		canonical, err := signedAttrs.MarshalSET()
		if err != nil {
			return nil, errors.Wrap(ErrParse, err.Error())
		}
		attrHasher := h.New()
		attrHasher.Write(canonical)
		digestToSign = attrHasher.Sum(nil)
		signedAttrsIMPLICIT, err = signedAttrs.MarshalIMPLICIT(0)
		if err != nil {
			return nil, errors.Wrap(ErrParse, err.Error())
		}
	}

	signature, sigAlgOID, err := signDigest(sess.Signer, sess.RNG, h, digestToSign)
	if err != nil {
		return nil, err
	}

	digestAlgID, err := hashAlgorithmIdentifier(h)
	if err != nil {
		return nil, err
	}

	sid, version, err := encodeSignerIdentifier(sess)
	if err != nil {
		return nil, err
	}

	si := signerInfo{
		Version:            version,
		SID:                sid,
		DigestAlgorithm:    digestAlgID,
		SignatureAlgorithm: pkix.AlgorithmIdentifier{Algorithm: sigAlgOID, Parameters: asn1.NullRawValue},
		Signature:          signature,
	}
	if len(signedAttrsIMPLICIT) > 0 {
		si.SignedAttrs = asn1.RawValue{FullBytes: signedAttrsIMPLICIT}
	}

	// The content octets are always embedded to begin with, even in
	// detached mode: this is what keeps the ASN.1 length prefixes
	// structurally correct. Detached mode then splices the content back
	// out of the finished encoding (see below) so the caller reassembles
	// head‖content‖foot instead of receiving one buffer.
	contentOctetString, err := asn1.Marshal(asn1.RawValue{
		Class: asn1.ClassUniversal, Tag: asn1.TagOctetString, Bytes: sess.Content,
	})
	if err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}
	eContent := asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, IsCompound: true, Bytes: contentOctetString}

	certs := make([]asn1.RawValue, 0, len(sess.Chain)+1)
	certs = append(certs, asn1.RawValue{FullBytes: sess.SignerCertRaw})
	for _, c := range sess.Chain {
		certs = append(certs, asn1.RawValue{FullBytes: c.Raw})
	}

	sd := signedData{
		Version:          1,
		DigestAlgorithms: []pkix.AlgorithmIdentifier{digestAlgID},
		EncapContentInfo: EncapsulatedContentInfo{EContentType: contentType, EContent: eContent},
		Certificates:     certs,
		SignerInfos:      []signerInfo{si},
	}

	inner, err := asn1.Marshal(sd)
	if err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}
	full, err := wrapContentInfo(oid.OIDSignedData, inner)
	if err != nil {
		return nil, err
	}

	if detached {
		idx := indexOfSubslice(full, sess.Content)
		if idx < 0 {
			return nil, errors.Wrap(ErrUnexpectedStructure, "detached content not found in encoded SignedData")
		}
		if headOut != nil {
			if _, err := headOut.Write(full[:idx]); err != nil {
				return nil, errors.Wrap(ErrArgument, err.Error())
			}
		}
		if footOut != nil {
			if _, err := footOut.Write(full[idx+len(sess.Content):]); err != nil {
				return nil, errors.Wrap(ErrArgument, err.Error())
			}
		}
		return full, nil
	}
	return full, nil
}

// EncodeDegenerateSignedData builds a certificate-only SignedData: empty
// digestAlgorithms and signerInfos SETs, carrying sess.SignerCert (and any
// chain certificates) purely as a transport envelope (RFC 5652 §5.1's
// "certificates-only" degenerate case, the counterpart to decodeSignedData's
// zero-signer acceptance path).
func EncodeDegenerateSignedData(sess *session.Session) ([]byte, error) {
	if sess.SignerCert == nil {
		return nil, errors.Wrap(ErrMissingCertficate, "EncodeDegenerateSignedData")
	}

	contentType := sess.ContentType
	if len(contentType) == 0 {
		contentType = oid.OIDData
	}

	var eContent asn1.RawValue
	if len(sess.Content) > 0 {
		contentOctetString, err := asn1.Marshal(asn1.RawValue{
			Class: asn1.ClassUniversal, Tag: asn1.TagOctetString, Bytes: sess.Content,
		})
		if err != nil {
			return nil, errors.Wrap(ErrParse, err.Error())
		}
		eContent = asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, IsCompound: true, Bytes: contentOctetString}
	}

	certs := make([]asn1.RawValue, 0, len(sess.Chain)+1)
	certs = append(certs, asn1.RawValue{FullBytes: sess.SignerCertRaw})
	for _, c := range sess.Chain {
		certs = append(certs, asn1.RawValue{FullBytes: c.Raw})
	}

	sd := signedData{
		Version:          1,
		DigestAlgorithms: nil,
		EncapContentInfo: EncapsulatedContentInfo{EContentType: contentType, EContent: eContent},
		Certificates:     certs,
		SignerInfos:      nil,
	}

	inner, err := asn1.Marshal(sd)
	if err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}
	return wrapContentInfo(oid.OIDSignedData, inner)
}

func indexOfSubslice(haystack, needle []byte) int {
	if len(needle) == 0 {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// encodeSignerIdentifier builds the SID field and the matching SignerInfo
// version (RFC 5652 §5.3: version 1 for IssuerAndSerialNumber,
// version 3 for SubjectKeyIdentifier).
func encodeSignerIdentifier(sess *session.Session) (asn1.RawValue, int, error) {
	switch sess.SignerIDType {
	case session.SubjectKeyIdentifier:
		ski, err := subjectKeyIdentifier(sess.SignerCert)
		if err != nil {
			return asn1.RawValue{}, 0, err
		}
		raw, err := asn1.Marshal(asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, Bytes: ski})
		if err != nil {
			return asn1.RawValue{}, 0, errors.Wrap(ErrParse, err.Error())
		}
		return asn1.RawValue{FullBytes: raw}, 3, nil
	default:
		serialBytes, err := asn1.Marshal(sess.SignerCert.SerialNumber)
		if err != nil {
			return asn1.RawValue{}, 0, errors.Wrap(ErrParse, err.Error())
		}
		ias := IssuerAndSerialNumber{
			Issuer:       asn1.RawValue{FullBytes: sess.SignerCert.RawIssuer},
			SerialNumber: asn1.RawValue{FullBytes: serialBytes},
		}
		raw, err := asn1.Marshal(ias)
		if err != nil {
			return asn1.RawValue{}, 0, errors.Wrap(ErrParse, err.Error())
		}
		return asn1.RawValue{FullBytes: raw}, 1, nil
	}
}

// subjectKeyIdentifier extracts the certificate's SKI extension value (the
// stdlib already computes and stores this on parse).
func subjectKeyIdentifier(cert *x509.Certificate) ([]byte, error) {
	if len(cert.SubjectKeyId) == 0 {
		return nil, errors.Wrap(ErrArgument, "certificate has no SubjectKeyId")
	}
	return cert.SubjectKeyId, nil
}

// signDigest dispatches the signature operation on the concrete key type,
// following smallstep/pkcs7's getOIDForEncryptionAlgorithm dispatch
// pattern. Both RSA and ECDSA go through crypto.Signer.Sign with h as the
// SignerOpts: for an *rsa.PrivateKey this already performs the
// DigestInfo-wrapped PKCS#1v1.5 signature RFC 5652 §5.4 requires for RSA
// (built internally by rsa.SignPKCS1v15); for an *ecdsa.PrivateKey it signs
// the raw digest with no DigestInfo wrapping, per RFC 5753's ECDSA rule.
func signDigest(signer crypto.Signer, rng io.Reader, h crypto.Hash, digest []byte) (signature []byte, sigAlgOID asn1.ObjectIdentifier, err error) {
	pubOID, err := oid.PublicKeyOIDForKey(signer.Public())
	if err != nil {
		return nil, nil, errors.Wrap(ErrUnknownAlgorithm, err.Error())
	}
	sigAlgOID, err = oid.SignatureAlgorithmFor(pubOID, h)
	if err != nil {
		return nil, nil, errors.Wrap(ErrUnknownAlgorithm, err.Error())
	}
	switch signer.Public().(type) {
	case *rsa.PublicKey, *ecdsa.PublicKey:
		sig, err := signer.Sign(rng, digest, h)
		if err != nil {
			return nil, nil, errors.Wrap(ErrCrypto, err.Error())
		}
		return sig, sigAlgOID, nil
	default:
		return nil, nil, errors.Wrapf(ErrUnknownAlgorithm, "unsupported signer key type %T", signer.Public())
	}
}
