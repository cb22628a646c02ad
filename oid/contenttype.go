// Package oid implements the closed OID registries the CMS message
// processor dispatches on: content types and algorithm metadata.
package oid

import (
	"encoding/asn1"

	"github.com/pkg/errors"
)

// ContentType is the internal variant tag a content-type OID resolves to.
type ContentType int

// Supported and reserved CMS content types.
const (
	ContentTypeUnknown ContentType = iota
	ContentTypePKCS7
	ContentTypeData
	ContentTypeSignedData
	ContentTypeEnvelopedData
	ContentTypeSignedAndEnvelopedData
	ContentTypeDigestedData
	ContentTypeEncryptedData
	ContentTypeFirmwarePkgData
	ContentTypeCompressedData
)

// ErrUnknownContentType is returned when an inbound content-type OID has
// no registered variant. Unknown inbound content types are always fatal.
var ErrUnknownContentType = errors.New("oid: unknown content type")

// Content-type OIDs (RFC 5652 §1 plus RFC 3274's CompressedData).
var (
	OIDPKCS7                  = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7}
	OIDData                   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 1}
	OIDSignedData             = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 2}
	OIDEnvelopedData          = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 3}
	OIDSignedAndEnvelopedData = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 4}
	OIDDigestedData           = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 5}
	OIDEncryptedData          = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 6}
	OIDFirmwarePkgData        = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 1, 16}
	OIDCompressedData         = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 1, 9}
)

var contentTypeToOID = map[ContentType]asn1.ObjectIdentifier{
	ContentTypePKCS7:                  OIDPKCS7,
	ContentTypeData:                   OIDData,
	ContentTypeSignedData:             OIDSignedData,
	ContentTypeEnvelopedData:          OIDEnvelopedData,
	ContentTypeSignedAndEnvelopedData: OIDSignedAndEnvelopedData,
	ContentTypeDigestedData:           OIDDigestedData,
	ContentTypeEncryptedData:          OIDEncryptedData,
	ContentTypeFirmwarePkgData:        OIDFirmwarePkgData,
	ContentTypeCompressedData:         OIDCompressedData,
}

// OIDForContentType returns the OID for an outbound variant tag.
func OIDForContentType(ct ContentType) (asn1.ObjectIdentifier, error) {
	o, ok := contentTypeToOID[ct]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownContentType, "variant tag %d", ct)
	}
	return o, nil
}

// ContentTypeForOID resolves an inbound OID to its internal variant tag.
// ContentTypeUnknown is returned, with ErrUnknownContentType, for anything
// not in the closed set this registry names.
func ContentTypeForOID(o asn1.ObjectIdentifier) (ContentType, error) {
	for ct, known := range contentTypeToOID {
		if o.Equal(known) {
			return ct, nil
		}
	}
	return ContentTypeUnknown, errors.Wrapf(ErrUnknownContentType, "oid %s", o.String())
}
