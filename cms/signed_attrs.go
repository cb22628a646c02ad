package cms

import (
	"crypto"
	"encoding/asn1"
	"time"

	"github.com/pkg/errors"

	"github.com/LdDl/gocms/attr"
	"github.com/LdDl/gocms/oid"
)

// Signed-attribute OIDs (PKCS#9).
var (
	oidAttrContentType   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 3}
	oidAttrMessageDigest = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 4}
	oidAttrSigningTime   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 5}
)

// synthesizeSignedAttrs builds the final signed-attribute set: ContentType,
// MessageDigest, SigningTime are unconditionally prepended in that order,
// the set RFC 5652 §11 requires when signedAttrs is present, followed by
// the caller's own attributes. A caller attribute whose OID collides with
// one of the three library-owned ones is rejected rather than silently
// shadowed.
func synthesizeSignedAttrs(contentType asn1.ObjectIdentifier, contentDigest []byte, now time.Time, caller attr.Attributes) (attr.Attributes, error) {
	var out attr.Attributes
	if err := out.Add(oidAttrContentType, contentType); err != nil {
		return out, errors.Wrap(ErrArgument, err.Error())
	}
	if err := out.Add(oidAttrMessageDigest, contentDigest); err != nil {
		return out, errors.Wrap(ErrArgument, err.Error())
	}
	signingTime, err := asn1.Marshal(now.UTC())
	if err != nil {
		return out, errors.Wrap(ErrArgument, err.Error())
	}
	if err := out.AddRaw(oidAttrSigningTime, []asn1.RawValue{{FullBytes: signingTime}}); err != nil {
		return out, errors.Wrap(ErrArgument, err.Error())
	}
	for _, a := range caller.List() {
		if out.Has(a.Type) {
			return out, errors.Wrapf(ErrArgument, "caller attribute %s collides with a library-owned attribute", a.Type.String())
		}
		if err := out.AddRaw(a.Type, a.Values); err != nil {
			return out, errors.Wrap(ErrArgument, err.Error())
		}
	}
	return out, nil
}

// digestInfo wraps a hash value as SEQUENCE { AlgorithmIdentifier, OCTET STRING }.
type digestInfo struct {
	Algorithm AlgorithmIdentifier
	Digest    []byte
}

// buildDigestInfo constructs the DER DigestInfo RFC 5652 §5.4 / PKCS#1 v1.5
// requires for RSA signatures: a NULL-parameters AlgorithmIdentifier plus
// the digest.
func buildDigestInfo(hash crypto.Hash, digest []byte) ([]byte, error) {
	hashOID, err := oid.OIDForHash(hash)
	if err != nil {
		return nil, errors.Wrap(ErrUnknownAlgorithm, err.Error())
	}
	di := digestInfo{
		Algorithm: AlgorithmIdentifier{Algorithm: hashOID, Parameters: asn1.NullRawValue},
		Digest:    digest,
	}
	return asn1.Marshal(di)
}
