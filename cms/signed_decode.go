package cms

import (
	"crypto/x509"
	"encoding/asn1"

	"github.com/pkg/errors"

	"github.com/LdDl/gocms/attr"
	"github.com/LdDl/gocms/oid"
	"github.com/LdDl/gocms/session"
)

// maxRetainedCertificates bounds how many certificates from an inbound
// certificate SET are retained, mirroring RFC 5652 §5.1's "SHOULD" cap
// on the number of certificates a recipient need process.
const maxRetainedCertificates = 16

// DecodeSignedData decodes a SignedData (RFC 5652 §5.1) from a single
// contiguous DER buffer carrying content inline. Returns the verified content.
func DecodeSignedData(der []byte, sess *session.Session) ([]byte, error) {
	return decodeSignedData(der, nil, sess)
}

// DecodeSignedDataDetached decodes a detached SignedData, supplying the
// content separately. contentInfoDER is either a SignedData with no
// eContent, or the reassembled head‖content‖foot buffer, whose eContent
// length must equal len(content); in both cases content is what is
// verified and returned. There is no form taking a precomputed digest.
func DecodeSignedDataDetached(contentInfoDER []byte, content []byte, sess *session.Session) ([]byte, error) {
	return decodeSignedData(contentInfoDER, content, sess)
}

func decodeSignedData(der []byte, detachedContent []byte, sess *session.Session) ([]byte, error) {
	ci, err := ParseContentInfo(der)
	if err != nil {
		return nil, err
	}
	ct, err := oid.ContentTypeForOID(ci.ContentType)
	if err != nil || ct != oid.ContentTypeSignedData {
		return nil, errors.Wrap(ErrUnexpectedStructure, "ContentInfo is not signedData")
	}

	var sd signedData
	if _, err := asn1.Unmarshal(ci.Content.Bytes, &sd); err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}
	if sd.Version != 1 {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "SignedData version %d", sd.Version)
	}

	degenerate := len(sd.DigestAlgorithms) == 0
	if degenerate && !sess.AllowDegenerate {
		return nil, errors.Wrap(ErrDegenerateNotAllowed, "digestAlgorithms SET is empty")
	}

	content, hasContent, err := eContentValue(sd.EncapContentInfo.EContent)
	if err != nil {
		return nil, err
	}
	if !hasContent {
		content = detachedContent
	} else if detachedContent != nil && len(content) != len(detachedContent) {
		return nil, errors.Wrap(ErrUnexpectedStructure, "aggregated multi-part content length does not match caller-supplied content")
	} else if detachedContent != nil {
		content = detachedContent
	}

	certs := make([]*x509.Certificate, 0, len(sd.Certificates))
	for _, raw := range sd.Certificates {
		if len(certs) >= maxRetainedCertificates {
			break
		}
		if raw.Class != asn1.ClassUniversal || raw.Tag != asn1.TagSequence {
			continue
		}
		cert, err := x509.ParseCertificate(raw.FullBytes)
		if err != nil {
			continue
		}
		certs = append(certs, cert)
	}

	if len(sd.SignerInfos) == 0 {
		if !sess.AllowDegenerate {
			return nil, errors.Wrap(ErrDegenerateNotAllowed, "no SignerInfos present")
		}
		if len(certs) > 0 {
			sess.RebindFromDecode(certs[0], certs[0].Raw, sd.EncapContentInfo.EContentType, false)
		}
		return content, nil
	}

	si := sd.SignerInfos[0]
	if si.Version != 1 && si.Version != 3 {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "SignerInfo version %d", si.Version)
	}

	h, err := oid.HashForOID(si.DigestAlgorithm.Algorithm)
	if err != nil {
		return nil, errors.Wrap(ErrUnknownAlgorithm, err.Error())
	}

	var digestToVerify []byte
	if len(si.SignedAttrs.FullBytes) > 0 {
		if err := attr.ParseAttributesInto(sess.DecodedAttrs, reTagToSET(si.SignedAttrs.FullBytes)); err != nil {
			return nil, errors.Wrap(ErrParse, err.Error())
		}
		mdBytes, ok := sess.DecodedAttrs.FindValue(oidAttrMessageDigest)
		if !ok {
			return nil, errors.Wrap(ErrUnexpectedStructure, "signedAttrs missing messageDigest")
		}
		var md []byte
		if _, err := asn1.Unmarshal(mdBytes, &md); err != nil {
			return nil, errors.Wrap(ErrParse, err.Error())
		}
		hasher := h.New()
		hasher.Write(content)
		if !bytesEqual(md, hasher.Sum(nil)) {
			return nil, errors.Wrap(ErrSignatureVerificationFailed, "messageDigest attribute does not match content")
		}

		canonical := reTagToSET(si.SignedAttrs.FullBytes)
		attrHasher := h.New()
		attrHasher.Write(canonical)
		digestToVerify = attrHasher.Sum(nil)
	} else {
		hasher := h.New()
		hasher.Write(content)
		digestToVerify = hasher.Sum(nil)
	}

	candidates := orderCandidateCertificates(certs, si, sess)
	winner, err := verifySignerInfo(candidates, h, digestToVerify, si.Signature)
	if err != nil {
		return nil, err
	}

	declaredAlg := oid.X509SignatureAlgorithm(si.SignatureAlgorithm.Algorithm)
	if declaredAlg == x509.UnknownSignatureAlgorithm {
		return nil, errors.Wrapf(ErrUnknownAlgorithm, "signatureAlgorithm %s", si.SignatureAlgorithm.Algorithm.String())
	}
	if publicKeyAlgorithmFor(declaredAlg) != winner.PublicKeyAlgorithm {
		return nil, errors.Wrap(ErrAlgorithmMismatch, "signerInfo signatureAlgorithm does not match the signer certificate's key algorithm")
	}

	if len(si.UnsignedAttrs.FullBytes) > 0 {
		// Unsigned attributes are not covered by the signature; retained
		// for callers that inspect them (e.g. countersignatures) without
		// being folded into verification.
		_ = attr.ParseAttributesInto(sess.DecodedAttrs, reTagToSET(si.UnsignedAttrs.FullBytes))
	}

	sess.RebindFromDecode(winner, winner.Raw, sd.EncapContentInfo.EContentType, false)
	sess.Chain = removeCert(certs, winner)
	return content, nil
}

// publicKeyAlgorithmFor maps a declared certificate signature algorithm to
// the public-key algorithm family it requires, so a SignerInfo's declared
// signatureAlgorithm can be cross-checked against the winning certificate's
// actual key type. crypto/x509 has no exported accessor for this mapping.
func publicKeyAlgorithmFor(alg x509.SignatureAlgorithm) x509.PublicKeyAlgorithm {
	switch alg {
	case x509.SHA1WithRSA, x509.SHA256WithRSA, x509.SHA384WithRSA, x509.SHA512WithRSA:
		return x509.RSA
	case x509.ECDSAWithSHA1, x509.ECDSAWithSHA256, x509.ECDSAWithSHA384, x509.ECDSAWithSHA512:
		return x509.ECDSA
	default:
		return x509.UnknownPublicKeyAlgorithm
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// reTagToSET retags an IMPLICIT [n] attribute-set encoding back to a
// universal SET, the inverse of attr.Attributes.MarshalIMPLICIT, needed
// both to re-derive the signing digest and to parse the attributes
// generically with encoding/asn1 (which expects a SET OF, not a bare
// context-specific tag).
func reTagToSET(implicit []byte) []byte {
	out := make([]byte, len(implicit))
	copy(out, implicit)
	out[0] = asn1.TagSet | 0x20
	return out
}

// orderCandidateCertificates places the SignerInfo's identified
// certificate first (if found among the retained certificates or already
// configured on the session), then the rest, so verifySignerInfo's
// first-match loop prefers the identified signer without discarding the
// other retained certificates RFC 5652 §5.1 allows a SignedData to carry.
func orderCandidateCertificates(certs []*x509.Certificate, si signerInfo, sess *session.Session) []*x509.Certificate {
	identified := findSignerCertificate(certs, si)
	if identified == nil {
		if sess.SignerCert != nil {
			return append([]*x509.Certificate{sess.SignerCert}, certs...)
		}
		return certs
	}
	ordered := make([]*x509.Certificate, 0, len(certs))
	ordered = append(ordered, identified)
	for _, c := range certs {
		if c != identified {
			ordered = append(ordered, c)
		}
	}
	return ordered
}

// findSignerCertificate resolves SignerInfo.SID against the retained
// certificates: version 1 means IssuerAndSerialNumber, version 3 means
// SubjectKeyIdentifier (RFC 5652 §5.3's SignerIdentifier choice).
func findSignerCertificate(certs []*x509.Certificate, si signerInfo) *x509.Certificate {
	switch si.Version {
	case 1:
		var ias IssuerAndSerialNumber
		if _, err := asn1.Unmarshal(si.SID.FullBytes, &ias); err != nil {
			return nil
		}
		for _, c := range certs {
			if bytesEqual(c.RawIssuer, ias.Issuer.FullBytes) && certSerialEqual(c, ias.SerialNumber.Bytes) {
				return c
			}
		}
	case 3:
		var ski []byte
		var raw asn1.RawValue
		if _, err := asn1.Unmarshal(si.SID.FullBytes, &raw); err == nil {
			ski = raw.Bytes
		}
		for _, c := range certs {
			if bytesEqual(c.SubjectKeyId, ski) {
				return c
			}
		}
	}
	return nil
}

func certSerialEqual(c *x509.Certificate, serialBytes []byte) bool {
	want := c.SerialNumber.Bytes()
	// big.Int.Bytes() strips leading zeros; INTEGER encodings may carry a
	// leading 0x00 sign-guard byte the serial number itself never has.
	got := serialBytes
	for len(got) > 0 && got[0] == 0x00 {
		got = got[1:]
	}
	return bytesEqual(want, got)
}

func removeCert(certs []*x509.Certificate, remove *x509.Certificate) []*x509.Certificate {
	out := make([]*x509.Certificate, 0, len(certs))
	for _, c := range certs {
		if c != remove {
			out = append(out, c)
		}
	}
	return out
}
