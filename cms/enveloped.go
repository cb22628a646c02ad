package cms

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/rsa"
	"encoding/asn1"
	"io"

	"github.com/pkg/errors"

	"github.com/LdDl/gocms/oid"
	"github.com/LdDl/gocms/session"
	"github.com/LdDl/gocms/utils"
)

// keyTransRecipientInfo is KTRI ::= SEQUENCE { version=0,
// IssuerAndSerialNumber, keyEncryptionAlgorithm, encryptedKey }
// (RFC 5652 §6.2.1).
type keyTransRecipientInfo struct {
	Version                int
	IssuerAndSerial        IssuerAndSerialNumber
	KeyEncryptionAlgorithm AlgorithmIdentifier
	EncryptedKey           []byte
}

// encryptedContentInfo is EncryptedContentInfo ::= SEQUENCE {
// contentType, contentEncryptionAlgorithm, encryptedContent [0] IMPLICIT
// OCTET STRING OPTIONAL }.
type encryptedContentInfo struct {
	ContentType                asn1.ObjectIdentifier
	ContentEncryptionAlgorithm AlgorithmIdentifier
	EncryptedContent           asn1.RawValue `asn1:"optional,tag:0"`
}

// envelopedDataEnvelope is EnvelopedData ::= SEQUENCE { version,
// originatorInfo [0] IMPLICIT OPTIONAL, RecipientInfos SET,
// EncryptedContentInfo, unprotectedAttrs [1] IMPLICIT OPTIONAL }. This
// core emits/consumes exactly one recipient, so RecipientInfos is a
// RawValue the encoder writes directly and the decoder walks by hand to
// tell KTRI from KARI apart (they differ by outer tag, not by a
// discriminated union encoding/asn1 can express directly).
type envelopedDataEnvelope struct {
	Version              int
	RecipientInfos       asn1.RawValue
	EncryptedContentInfo encryptedContentInfo
}

// contentCipherIV returns a fresh IV of the algorithm's block size, and
// the block size itself.
func contentCipherIV(rng io.Reader, encOID asn1.ObjectIdentifier) (iv []byte, blockSize int, err error) {
	blockSize, err = oid.BlockSize(encOID)
	if err != nil {
		return nil, 0, errors.Wrap(ErrUnknownAlgorithm, err.Error())
	}
	iv = make([]byte, blockSize)
	if _, err := io.ReadFull(rng, iv); err != nil {
		return nil, 0, errors.Wrap(ErrCrypto, err.Error())
	}
	return iv, blockSize, nil
}

func newBlockCipher(encOID asn1.ObjectIdentifier, key []byte) (cipher.Block, error) {
	switch {
	case encOID.Equal(oid.OIDAES128CBC), encOID.Equal(oid.OIDAES192CBC), encOID.Equal(oid.OIDAES256CBC):
		return aes.NewCipher(key)
	case encOID.Equal(oid.OIDDESEDE3CBC):
		return des.NewTripleDESCipher(key)
	}
	return nil, errors.Wrapf(ErrUnknownAlgorithm, "content encryption oid %s", encOID.String())
}

// EncodeEnvelopedData implements RFC 5652 §6.1: content-encryption
// algorithm and CEK size chosen from the session, one recipient (KTRI if
// a recipient certificate is configured, KARI (RFC 5753) if an ECDH
// key-agreement recipient is configured instead).
func EncodeEnvelopedData(sess *session.Session) ([]byte, error) {
	encOID := sess.ContentEncOID
	if len(encOID) == 0 {
		encOID = oid.OIDAES256CBC
	}
	keySize, err := oid.KeySize(encOID)
	if err != nil {
		return nil, errors.Wrap(ErrUnknownAlgorithm, err.Error())
	}
	cek := make([]byte, keySize)
	if _, err := io.ReadFull(sess.RNG, cek); err != nil {
		return nil, errors.Wrap(ErrCrypto, err.Error())
	}
	defer utils.ZeroBytes(cek)

	iv, blockSize, err := contentCipherIV(sess.RNG, encOID)
	if err != nil {
		return nil, err
	}
	block, err := newBlockCipher(encOID, cek)
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

	var recipientRaw []byte
	var version int
	switch {
	case sess.ECDHKey != nil && sess.RecipientCert != nil:
		riDER, err := buildKARIRecipientInfo(sess, cek)
		if err != nil {
			return nil, err
		}
		recipientRaw = riDER
		version = 2
	case sess.RecipientCert != nil:
		riDER, err := buildKTRIRecipientInfo(sess, cek)
		if err != nil {
			return nil, err
		}
		recipientRaw = riDER
		version = 0
	default:
		return nil, errors.Wrap(session.ErrNoCertificate, "EncodeEnvelopedData: no recipient configured")
	}

	// This core always emits exactly one RecipientInfo; wrap its already-
	// tagged DER in a SET OF tag+length by hand rather than modeling
	// RecipientInfos as a Go slice, since KTRI and KARI use different
	// outer tags (plain SEQUENCE vs IMPLICIT [1]) that encoding/asn1
	// cannot express as elements of one slice type.
	setWrapped, err := asn1.Marshal(asn1.RawValue{Class: asn1.ClassUniversal, Tag: asn1.TagSet, IsCompound: true, Bytes: recipientRaw})
	if err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}
	env := envelopedDataEnvelope{
		Version:              version,
		RecipientInfos:       asn1.RawValue{FullBytes: setWrapped},
		EncryptedContentInfo: eci,
	}

	inner, err := asn1.Marshal(env)
	if err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}
	return wrapContentInfo(oid.OIDEnvelopedData, inner)
}

// buildKTRIRecipientInfo implements RFC 5652 §6.2.1 KTRI: the recipient
// certificate's RSA public key encrypts the CEK directly.
func buildKTRIRecipientInfo(sess *session.Session, cek []byte) ([]byte, error) {
	pub, ok := sess.RecipientCert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownAlgorithm, "recipient certificate key type %T is not RSA", sess.RecipientCert.PublicKey)
	}
	if len(sess.RecipientCert.RawIssuer) == 0 {
		return nil, errors.Wrap(ErrArgument, "recipient certificate has no issuer DN")
	}
	serialBytes, err := asn1.Marshal(sess.RecipientCert.SerialNumber)
	if err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}
	encryptedKey, err := rsa.EncryptPKCS1v15(sess.RNG, pub, cek)
	if err != nil {
		return nil, errors.Wrap(ErrCrypto, err.Error())
	}
	ktri := keyTransRecipientInfo{
		Version: 0,
		IssuerAndSerial: IssuerAndSerialNumber{
			Issuer:       asn1.RawValue{FullBytes: sess.RecipientCert.RawIssuer},
			SerialNumber: asn1.RawValue{FullBytes: serialBytes},
		},
		KeyEncryptionAlgorithm: AlgorithmIdentifier{Algorithm: oid.OIDKeyTransportRSA, Parameters: asn1.NullRawValue},
		EncryptedKey:           encryptedKey,
	}
	return asn1.Marshal(ktri)
}

// DecodeEnvelopedData implements RFC 5652 §6.1's decode side: walk
// RecipientInfos, attempting KTRI then KARI shape per entry, stopping at
// the first recipient that matches the session's configured cert/key.
func DecodeEnvelopedData(der []byte, sess *session.Session) ([]byte, error) {
	ci, err := ParseContentInfo(der)
	if err != nil {
		return nil, err
	}
	ct, err := oid.ContentTypeForOID(ci.ContentType)
	if err != nil || ct != oid.ContentTypeEnvelopedData {
		return nil, errors.Wrap(ErrUnexpectedStructure, "ContentInfo is not envelopedData")
	}

	var env envelopedDataEnvelope
	if _, err := asn1.Unmarshal(ci.Content.Bytes, &env); err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}
	if env.Version != 0 && env.Version != 2 {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "EnvelopedData version %d", env.Version)
	}

	cek, err := findAndUnwrapCEK(env.RecipientInfos.Bytes, sess)
	if err != nil {
		return nil, err
	}
	defer utils.ZeroBytes(cek)

	eci := env.EncryptedContentInfo
	blockSize, err := oid.BlockSize(eci.ContentEncryptionAlgorithm.Algorithm)
	if err != nil {
		return nil, errors.Wrap(ErrUnknownAlgorithm, err.Error())
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

	block, err := newBlockCipher(eci.ContentEncryptionAlgorithm.Algorithm, cek)
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

// extractEncryptedContent accepts both wire forms RFC 5652 §6.1 allows for
// encryptedContent: [0] PRIMITIVE (the form this library emits) and [0]
// CONSTRUCTED wrapping an inner universal OCTET STRING.
func extractEncryptedContent(raw asn1.RawValue) ([]byte, error) {
	if len(raw.FullBytes) == 0 {
		return nil, errors.Wrap(ErrUnexpectedStructure, "EncryptedContentInfo has no encryptedContent")
	}
	if !raw.IsCompound {
		return raw.Bytes, nil
	}
	var inner asn1.RawValue
	if _, err := asn1.Unmarshal(raw.Bytes, &inner); err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}
	return inner.Bytes, nil
}

// findAndUnwrapCEK walks the DER bytes of a RecipientInfos SET, trying
// each element as KTRI then KARI, and returns the unwrapped CEK from the
// first element that matches the session's configured recipient
// certificate/key.
func findAndUnwrapCEK(set []byte, sess *session.Session) ([]byte, error) {
	rest := set
	for len(rest) > 0 {
		var item asn1.RawValue
		var err error
		rest, err = asn1.Unmarshal(rest, &item)
		if err != nil {
			return nil, errors.Wrap(ErrParse, err.Error())
		}
		if item.Class == asn1.ClassUniversal && item.Tag == asn1.TagSequence {
			cek, ok, err := tryKTRI(item.FullBytes, sess)
			if err != nil {
				continue
			}
			if ok {
				return cek, nil
			}
			continue
		}
		if item.Class == asn1.ClassContextSpecific && item.Tag == 1 {
			cek, ok, err := tryKARI(item.Bytes, sess)
			if err != nil {
				continue
			}
			if ok {
				return cek, nil
			}
		}
	}
	return nil, errors.Wrap(ErrNoMatchingRecipient, "no RecipientInfo matched the configured certificate or key")
}

// tryKTRI attempts to match and decrypt a KeyTransRecipientInfo against
// the session's recipient certificate (or, when none is set, its signer
// certificate acting as recipient on decode) and RSA decrypter, per RFC 5652 §6.2.1's IssuerAndSerialNumber match rule.
func tryKTRI(der []byte, sess *session.Session) (cek []byte, matched bool, err error) {
	var ktri keyTransRecipientInfo
	if _, err := asn1.Unmarshal(der, &ktri); err != nil {
		return nil, false, err
	}
	if sess.SignerCert == nil && sess.RecipientCert == nil {
		return nil, false, nil
	}
	myCert := sess.RecipientCert
	if myCert == nil {
		myCert = sess.SignerCert
	}
	ias := ktri.IssuerAndSerial
	if !bytesEqual(myCert.RawIssuer, ias.Issuer.FullBytes) || !certSerialEqual(myCert, ias.SerialNumber.Bytes) {
		return nil, false, nil
	}
	if sess.Decrypter == nil {
		return nil, false, errors.Wrap(session.ErrNoPrivateKey, "tryKTRI: no decrypter configured")
	}
	cek, err = sess.Decrypter.Decrypt(sess.RNG, ktri.EncryptedKey, &rsa.PKCS1v15DecryptOptions{})
	if err != nil {
		return nil, false, errors.Wrap(ErrDecryptionFailed, err.Error())
	}
	return cek, true, nil
}
