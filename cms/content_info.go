// Package cms implements the ASN.1 DER encoder/decoder and cryptographic
// composition rules for the six CMS content types this repo supports:
// Data, SignedData (incl. degenerate), EnvelopedData, EncryptedData, and
// CompressedData. Struct shapes are grounded on
// ietf-cms/protocol.go's ContentInfo/SignedData/SignerInfo family, the
// canonical idiomatic-Go rendering of RFC 5652's ASN.1 module.
package cms

import (
	"encoding/asn1"

	"github.com/pkg/errors"

	"github.com/LdDl/gocms/oid"
)

// ContentInfo is the outermost CMS wrapper every content type is carried
// inside: SEQUENCE { contentType OID, content [0] EXPLICIT ANY }.
type ContentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue `asn1:"explicit,optional,tag:0"`
}

// EncapsulatedContentInfo is SignedData/CompressedData's inner content
// wrapper: SEQUENCE { eContentType OID, eContent [0] EXPLICIT OCTET STRING OPTIONAL }.
type EncapsulatedContentInfo struct {
	EContentType asn1.ObjectIdentifier
	EContent     asn1.RawValue `asn1:"explicit,optional,tag:0"`
}

// AlgorithmIdentifier is SEQUENCE { algorithm OID, parameters ANY OPTIONAL }.
type AlgorithmIdentifier struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.RawValue `asn1:"optional"`
}

// IssuerAndSerialNumber identifies a certificate by its issuer Name and
// serial number.
type IssuerAndSerialNumber struct {
	Issuer       asn1.RawValue
	SerialNumber asn1.RawValue
}

// ParseContentInfo runs ber2der and unmarshals the result, rejecting any
// trailing bytes after the outer SEQUENCE (RFC 5652 §5.1's ContentInfo).
func ParseContentInfo(in []byte) (ContentInfo, error) {
	der, err := ber2der(in)
	if err != nil {
		return ContentInfo{}, err
	}
	var ci ContentInfo
	rest, err := asn1.Unmarshal(der, &ci)
	if err != nil {
		return ContentInfo{}, errors.Wrap(ErrParse, err.Error())
	}
	if len(rest) > 0 {
		return ContentInfo{}, errors.Wrap(ErrTrailingData, "after ContentInfo")
	}
	return ci, nil
}

// wrapContentInfo wraps contentType/content as a ContentInfo and DER-encodes it.
func wrapContentInfo(contentType asn1.ObjectIdentifier, content []byte) ([]byte, error) {
	ci := ContentInfo{
		ContentType: contentType,
		Content:     asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, IsCompound: true, Bytes: content},
	}
	return asn1.Marshal(ci)
}

// eContentValue extracts an EncapsulatedContentInfo's content octets,
// handling both the ordinary single OCTET STRING form and the
// constructed, multi-segment OCTET STRING some encoders emit for large
// content (grounded on ietf-cms/protocol.go's EContentValue).
func eContentValue(raw asn1.RawValue) ([]byte, bool, error) {
	if len(raw.FullBytes) == 0 {
		return nil, false, nil
	}
	var os asn1.RawValue
	if _, err := asn1.Unmarshal(raw.Bytes, &os); err != nil {
		return nil, false, errors.Wrap(ErrParse, err.Error())
	}
	if !os.IsCompound {
		return os.Bytes, true, nil
	}
	var parts [][]byte
	rest := os.Bytes
	for len(rest) > 0 {
		var part asn1.RawValue
		var err error
		rest, err = asn1.Unmarshal(rest, &part)
		if err != nil {
			return nil, false, errors.Wrap(ErrParse, err.Error())
		}
		parts = append(parts, part.Bytes)
	}
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]byte, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, true, nil
}

// EncodeData implements the Data content type (RFC 5652 §4): the
// content octets wrapped, unmodified, in an id-data ContentInfo.
func EncodeData(content []byte) ([]byte, error) {
	inner, err := asn1.Marshal(asn1.RawValue{
		Class: asn1.ClassUniversal, Tag: asn1.TagOctetString, Bytes: content,
	})
	if err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}
	return wrapContentInfo(oid.OIDData, inner)
}

// DecodeData extracts the content octets from an id-data ContentInfo.
func DecodeData(der []byte) ([]byte, error) {
	ci, err := ParseContentInfo(der)
	if err != nil {
		return nil, err
	}
	ct, err := oid.ContentTypeForOID(ci.ContentType)
	if err != nil || ct != oid.ContentTypeData {
		return nil, errors.Wrap(ErrUnexpectedStructure, "content type is not id-data")
	}
	var os asn1.RawValue
	if _, err := asn1.Unmarshal(ci.Content.Bytes, &os); err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}
	return os.Bytes, nil
}
