package cms

import (
	"crypto/cipher"
	"encoding/asn1"

	"github.com/pkg/errors"

	"github.com/LdDl/gocms/attr"
	"github.com/LdDl/gocms/oid"
	"github.com/LdDl/gocms/session"
	"github.com/LdDl/gocms/utils"
)

// encryptedData is EncryptedData ::= SEQUENCE { version,
// EncryptedContentInfo, unprotectedAttrs [1] IMPLICIT SET OF Attribute
// OPTIONAL } (RFC 5652 §6.1). UnprotectedAttrs is carried as a raw IMPLICIT
// [1] value, mirroring signerInfo's SignedAttrs/UnsignedAttrs handling, so
// the decoder can retag it to a SET before handing it to the shared
// attribute parser.
type encryptedData struct {
	Version              int
	EncryptedContentInfo encryptedContentInfo
	UnprotectedAttrs     asn1.RawValue `asn1:"optional,tag:1"`
}

// EncodeEncryptedData implements RFC 5652 §6.1: a recipient-less symmetric
// envelope keyed by sess.SymmetricKey, version 0 with no unprotected
// attributes or 2 with them.
func EncodeEncryptedData(sess *session.Session) ([]byte, error) {
	if len(sess.SymmetricKey) == 0 {
		return nil, errors.Wrap(ErrArgument, "EncodeEncryptedData: session has no symmetric key")
	}

	encOID := sess.ContentEncOID
	if len(encOID) == 0 {
		encOID = oid.OIDAES256CBC
	}
	keySize, err := oid.KeySize(encOID)
	if err != nil {
		return nil, errors.Wrap(ErrUnknownAlgorithm, err.Error())
	}
	if len(sess.SymmetricKey) != keySize {
		return nil, errors.Wrapf(ErrArgument, "symmetric key is %d bytes, algorithm wants %d", len(sess.SymmetricKey), keySize)
	}

	iv, blockSize, err := contentCipherIV(sess.RNG, encOID)
	if err != nil {
		return nil, err
	}
	block, err := newBlockCipher(encOID, sess.SymmetricKey)
	if err != nil {
		return nil, err
	}
	padded := utils.Pad(sess.Content, blockSize)
	encrypted := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(encrypted, padded)

	ivOctetString, err := asn1.Marshal(iv)
	if err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}

	contentType := sess.ContentType
	if len(contentType) == 0 {
		contentType = oid.OIDData
	}

	eci := encryptedContentInfo{
		ContentType:                contentType,
		ContentEncryptionAlgorithm: AlgorithmIdentifier{Algorithm: encOID, Parameters: asn1.RawValue{FullBytes: ivOctetString}},
		EncryptedContent:           asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, Bytes: encrypted},
	}

	ed := encryptedData{
		Version:              0,
		EncryptedContentInfo: eci,
	}
	if !sess.OutboundAttrs.Empty() {
		implicit, err := sess.OutboundAttrs.MarshalIMPLICIT(1)
		if err != nil {
			return nil, errors.Wrap(ErrParse, err.Error())
		}
		ed.Version = 2
		ed.UnprotectedAttrs = asn1.RawValue{FullBytes: implicit}
	}

	inner, err := asn1.Marshal(ed)
	if err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}
	return wrapContentInfo(oid.OIDEncryptedData, inner)
}

// DecodeEncryptedData implements RFC 5652 §6.1's decode side, including the
// version/attribute-count cross-check: (attribs==0 ∧ version==0) ∨
// (attribs>0 ∧ version==2).
func DecodeEncryptedData(der []byte, sess *session.Session) ([]byte, error) {
	ci, err := ParseContentInfo(der)
	if err != nil {
		return nil, err
	}
	ct, err := oid.ContentTypeForOID(ci.ContentType)
	if err != nil || ct != oid.ContentTypeEncryptedData {
		return nil, errors.Wrap(ErrUnexpectedStructure, "ContentInfo is not encryptedData")
	}

	var ed encryptedData
	if _, err := asn1.Unmarshal(ci.Content.Bytes, &ed); err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}
	if ed.Version != 0 && ed.Version != 2 {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "EncryptedData version %d", ed.Version)
	}

	attribs := 0
	if len(ed.UnprotectedAttrs.FullBytes) > 0 {
		if err := attr.ParseAttributesInto(sess.DecodedAttrs, reTagToSET(ed.UnprotectedAttrs.FullBytes)); err != nil {
			return nil, errors.Wrap(ErrParse, err.Error())
		}
		attribs = sess.DecodedAttrs.Len()
	}
	wantVersion := 0
	if attribs > 0 {
		wantVersion = 2
	}
	if ed.Version != wantVersion {
		return nil, errors.Wrapf(ErrUnexpectedStructure, "EncryptedData version %d inconsistent with %d unprotected attributes", ed.Version, attribs)
	}

	eci := ed.EncryptedContentInfo
	blockSize, err := oid.BlockSize(eci.ContentEncryptionAlgorithm.Algorithm)
	if err != nil {
		return nil, errors.Wrap(ErrUnknownAlgorithm, err.Error())
	}
	if len(sess.SymmetricKey) == 0 {
		return nil, errors.Wrap(ErrArgument, "DecodeEncryptedData: session has no symmetric key")
	}

	var iv []byte
	if _, err := asn1.Unmarshal(eci.ContentEncryptionAlgorithm.Parameters.FullBytes, &iv); err != nil {
		return nil, errors.Wrap(ErrParse, "EncryptedContentInfo IV: "+err.Error())
	}
	if len(iv) != blockSize {
		return nil, errors.Wrap(ErrUnexpectedStructure, "IV length does not match algorithm block size")
	}

	encryptedContent, err := extractEncryptedContent(eci.EncryptedContent)
	if err != nil {
		return nil, err
	}
	if len(encryptedContent)%blockSize != 0 {
		return nil, errors.Wrap(ErrUnexpectedStructure, "encrypted content not a multiple of block size")
	}

	block, err := newBlockCipher(eci.ContentEncryptionAlgorithm.Algorithm, sess.SymmetricKey)
	if err != nil {
		return nil, err
	}
	plainPadded := make([]byte, len(encryptedContent))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plainPadded, encryptedContent)

	plain, err := utils.Unpad(plainPadded, blockSize)
	if err != nil {
		return nil, errors.Wrap(ErrDecryptionFailed, err.Error())
	}
	sess.ContentType = eci.ContentType
	return plain, nil
}
