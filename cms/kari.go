package cms

import (
	"crypto/aes"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"encoding/asn1"
	"encoding/binary"
	"hash"

	josecipher "gopkg.in/square/go-jose.v2/cipher"

	"github.com/pkg/errors"

	"github.com/LdDl/gocms/oid"
	"github.com/LdDl/gocms/session"
	"github.com/LdDl/gocms/utils"
)

// keyAgreeRecipientInfo is KeyAgreeRecipientInfo ::= SEQUENCE { version=3,
// originator [0] IMPLICIT OriginatorIdentifierOrKey, ukm [1] EXPLICIT
// UserKeyingMaterial OPTIONAL, keyEncryptionAlgorithm,
// RecipientEncryptedKeys } (RFC 5753 §3).
type keyAgreeRecipientInfo struct {
	Version                int
	Originator             asn1.RawValue `asn1:"tag:0"`
	UKM                    []byte        `asn1:"optional,explicit,tag:1"`
	KeyEncryptionAlgorithm AlgorithmIdentifier
	RecipientEncryptedKeys []recipientEncryptedKey `asn1:"set"`
}

type recipientEncryptedKey struct {
	RID          asn1.RawValue
	EncryptedKey []byte
}

// eccCMSSharedInfo is ECC-CMS-SharedInfo ::= SEQUENCE { keyInfo
// AlgorithmIdentifier, entityUInfo [0] EXPLICIT OCTET STRING OPTIONAL,
// suppPubInfo [2] IMPLICIT OCTET STRING } (RFC 5753 §7.2).
type eccCMSSharedInfo struct {
	KeyInfo     AlgorithmIdentifier
	EntityUInfo []byte `asn1:"optional,explicit,tag:0"`
	SuppPubInfo []byte `asn1:"tag:2"`
}

func curveForPublicKey(pub *ecdsa.PublicKey) (ecdh.Curve, error) {
	switch pub.Curve.Params().Name {
	case "P-256":
		return ecdh.P256(), nil
	case "P-384":
		return ecdh.P384(), nil
	case "P-521":
		return ecdh.P521(), nil
	}
	return nil, errors.Wrapf(ErrUnknownAlgorithm, "unsupported EC curve %s", pub.Curve.Params().Name)
}

func hashForKeyAgreementOID(o asn1.ObjectIdentifier) (func() hash.Hash, error) {
	switch {
	case o.Equal(oid.OIDKeyAgreeStdDHSHA1KDF):
		return sha1.New, nil
	case o.Equal(oid.OIDKeyAgreeStdDHSHA224KDF):
		return sha256.New224, nil
	case o.Equal(oid.OIDKeyAgreeStdDHSHA256KDF):
		return sha256.New, nil
	case o.Equal(oid.OIDKeyAgreeStdDHSHA384KDF):
		return sha512.New384, nil
	case o.Equal(oid.OIDKeyAgreeStdDHSHA512KDF):
		return sha512.New, nil
	}
	return nil, errors.Wrapf(ErrUnknownAlgorithm, "key agreement oid %s", o.String())
}

// ansiX963KDF implements RFC 5753 §7.2's ANSI X9.63 KDF: repeatedly hash
// Z‖counter(4-byte BE, starting at 1)‖sharedInfo and truncate to
// kekLen bytes. Grounded on the counter-based construction go-jose's
// concat KDF (DeriveECDHES) uses for JWE ECDH-ES, adapted here to the
// CMS-exact Z‖counter‖SharedInfo layout — go-jose's own concat KDF
// places AlgorithmID/PartyUInfo/PartyVInfo/SuppPubInfo directly into the
// hashed material per NIST SP 800-56A, which is not byte-compatible with
// RFC 5753's ECC-CMS-SharedInfo-wrapped ANSI X9.63 KDF, so this repeats
// the counter-and-hash loop directly rather than calling into go-jose's
// KDF (see DESIGN.md).
func ansiX963KDF(newHash func() hash.Hash, z, sharedInfo []byte, kekLen int) []byte {
	h := newHash()
	out := make([]byte, 0, kekLen+h.Size())
	var counter uint32 = 1
	for len(out) < kekLen {
		h.Reset()
		h.Write(z)
		var counterBytes [4]byte
		binary.BigEndian.PutUint32(counterBytes[:], counter)
		h.Write(counterBytes[:])
		h.Write(sharedInfo)
		out = h.Sum(out)
		counter++
	}
	return out[:kekLen]
}

// buildKARIRecipientInfo implements RFC 5753's KARI construction: generate
// an ephemeral key pair, derive the KEK via ECDH + ANSI X9.63 KDF, wrap the
// CEK under it, and identify the recipient by SubjectKeyIdentifier.
func buildKARIRecipientInfo(sess *session.Session, cek []byte) ([]byte, error) {
	recipientPub, ok := sess.RecipientCert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownAlgorithm, "recipient certificate key type %T is not ECDSA", sess.RecipientCert.PublicKey)
	}
	curve, err := curveForPublicKey(recipientPub)
	if err != nil {
		return nil, err
	}
	theirs, err := recipientPub.ECDH()
	if err != nil {
		return nil, errors.Wrap(ErrCrypto, err.Error())
	}

	// Step 1: ephemeral EC key pair, X9.63 uncompressed-point BIT STRING.
	ephemeral, err := curve.GenerateKey(sess.RNG)
	if err != nil {
		return nil, errors.Wrap(ErrCrypto, err.Error())
	}
	originatorBIT := x963BitString(ephemeral.PublicKey().Bytes())
	// originator ::= [0] IMPLICIT OriginatorPublicKey, OriginatorPublicKey
	// ::= SEQUENCE { algorithm AlgorithmIdentifier, publicKey BIT STRING },
	// the originatorKey alternative of RFC 5753's OriginatorIdentifierOrKey
	// CHOICE. Re-tag its SEQUENCE encoding as IMPLICIT [0].
	algID := AlgorithmIdentifier{Algorithm: ecPublicKeyOID(curve), Parameters: asn1.NullRawValue}
	origPub := struct {
		Algorithm AlgorithmIdentifier
		PublicKey asn1.BitString
	}{Algorithm: algID, PublicKey: originatorBIT}
	origPubDER, err := asn1.Marshal(origPub)
	if err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}
	originatorField := asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, IsCompound: true, Bytes: stripOuterTag(origPubDER)}
	originatorFieldDER, err := asn1.Marshal(originatorField)
	if err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}

	keyWrapOID := sess.KeyWrapOID
	if len(keyWrapOID) == 0 {
		keyWrapOID = oid.OIDAESKeyWrap256
	}
	kekLen, err := oid.KeySize(keyWrapOID)
	if err != nil {
		return nil, errors.Wrap(ErrUnknownAlgorithm, err.Error())
	}

	// Step 3: ECC-CMS-SharedInfo.
	suppPubInfo := make([]byte, 4)
	binary.BigEndian.PutUint32(suppPubInfo, uint32(kekLen*8))
	sharedInfoStruct := eccCMSSharedInfo{
		KeyInfo:     AlgorithmIdentifier{Algorithm: keyWrapOID, Parameters: asn1.NullRawValue},
		EntityUInfo: sess.UKM,
		SuppPubInfo: suppPubInfo,
	}
	sharedInfo, err := asn1.Marshal(sharedInfoStruct)
	if err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}

	// Step 4: ECDH shared secret.
	z, err := ephemeral.ECDH(theirs)
	if err != nil {
		return nil, errors.Wrap(ErrCrypto, err.Error())
	}
	defer utils.ZeroBytes(z)

	// Step 5: ANSI X9.63 KDF.
	keyAgreeOID := sess.KeyAgreementOID
	if len(keyAgreeOID) == 0 {
		keyAgreeOID = oid.OIDKeyAgreeStdDHSHA256KDF
	}
	newHash, err := hashForKeyAgreementOID(keyAgreeOID)
	if err != nil {
		return nil, err
	}
	kek := ansiX963KDF(newHash, z, sharedInfo, kekLen)
	defer utils.ZeroBytes(kek)

	// Step 6: AES Key Wrap.
	kekBlock, err := aes.NewCipher(kek)
	if err != nil {
		return nil, errors.Wrap(ErrCrypto, err.Error())
	}
	wrapped, err := josecipher.KeyWrap(kekBlock, cek)
	if err != nil {
		return nil, errors.Wrap(ErrCrypto, err.Error())
	}

	// Step 7: recipient identified by SubjectKeyIdentifier.
	ski, err := subjectKeyIdentifier(sess.RecipientCert)
	if err != nil {
		return nil, err
	}
	rid, err := asn1.Marshal(asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, Bytes: ski})
	if err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}

	kari := keyAgreeRecipientInfo{
		Version:                3,
		Originator:             asn1.RawValue{FullBytes: originatorFieldDER},
		UKM:                    sess.UKM,
		KeyEncryptionAlgorithm: AlgorithmIdentifier{Algorithm: keyWrapOID, Parameters: asn1.NullRawValue},
		RecipientEncryptedKeys: []recipientEncryptedKey{{RID: asn1.RawValue{FullBytes: rid}, EncryptedKey: wrapped}},
	}
	kariDER, err := asn1.Marshal(kari)
	if err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}
	// Wire form is [1] IMPLICIT KeyAgreeRecipientInfo, not a plain
	// SEQUENCE: retag the outer SEQUENCE byte to context-specific [1].
	retagged := make([]byte, len(kariDER))
	copy(retagged, kariDER)
	retagged[0] = byte(asn1.ClassContextSpecific<<6) | 0x20 | 1
	return retagged, nil
}

// tryKARI attempts to match and decrypt a [1] IMPLICIT
// KeyAgreeRecipientInfo against the session's ECDH key and recipient
// certificate, per RFC 5753's KARI recipient-matching rule.
func tryKARI(body []byte, sess *session.Session) (cek []byte, matched bool, err error) {
	if sess.ECDHKey == nil {
		return nil, false, nil
	}
	var kari keyAgreeRecipientInfo
	if _, err := asn1.Unmarshal(restoreOuterSequence(body), &kari); err != nil {
		return nil, false, err
	}
	if kari.Version != 3 {
		return nil, false, errors.Wrapf(ErrUnsupportedVersion, "KeyAgreeRecipientInfo version %d", kari.Version)
	}
	if len(kari.RecipientEncryptedKeys) == 0 {
		return nil, false, errors.Wrap(ErrUnexpectedStructure, "KeyAgreeRecipientInfo has no RecipientEncryptedKeys")
	}

	myCert := sess.RecipientCert
	if myCert == nil {
		myCert = sess.SignerCert
	}
	if myCert == nil {
		return nil, false, nil
	}
	rek := kari.RecipientEncryptedKeys[0]
	if !recipientMatches(rek.RID, myCert) {
		return nil, false, nil
	}

	originatorPub, err := parseOriginatorPublicKey(kari.Originator, sess.ECDHKey.Curve())
	if err != nil {
		return nil, false, err
	}

	z, err := sess.ECDHKey.ECDH(originatorPub)
	if err != nil {
		return nil, false, errors.Wrap(ErrCrypto, err.Error())
	}
	defer utils.ZeroBytes(z)

	keyWrapOID := kari.KeyEncryptionAlgorithm.Algorithm
	kekLen, err := oid.KeySize(keyWrapOID)
	if err != nil {
		return nil, false, errors.Wrap(ErrUnknownAlgorithm, err.Error())
	}
	suppPubInfo := make([]byte, 4)
	binary.BigEndian.PutUint32(suppPubInfo, uint32(kekLen*8))
	sharedInfoStruct := eccCMSSharedInfo{
		KeyInfo:     AlgorithmIdentifier{Algorithm: keyWrapOID, Parameters: asn1.NullRawValue},
		EntityUInfo: kari.UKM,
		SuppPubInfo: suppPubInfo,
	}
	sharedInfo, err := asn1.Marshal(sharedInfoStruct)
	if err != nil {
		return nil, false, errors.Wrap(ErrParse, err.Error())
	}

	keyAgreeOID := sess.KeyAgreementOID
	if len(keyAgreeOID) == 0 {
		keyAgreeOID = oid.OIDKeyAgreeStdDHSHA256KDF
	}
	newHash, err := hashForKeyAgreementOID(keyAgreeOID)
	if err != nil {
		return nil, false, err
	}
	kek := ansiX963KDF(newHash, z, sharedInfo, kekLen)
	defer utils.ZeroBytes(kek)

	kekBlock, err := aes.NewCipher(kek)
	if err != nil {
		return nil, false, errors.Wrap(ErrCrypto, err.Error())
	}
	cek, err = josecipher.KeyUnwrap(kekBlock, rek.EncryptedKey)
	if err != nil {
		return nil, false, errors.Wrap(ErrDecryptionFailed, err.Error())
	}
	return cek, true, nil
}

// recipientMatches implements RFC 5753's KARI RecipientIdentifier match:
// either SubjectKeyIdentifier equals our cert's SKI, or
// IssuerAndSerialNumber matches ours.
func recipientMatches(rid asn1.RawValue, cert *x509.Certificate) bool {
	if rid.Class == asn1.ClassContextSpecific && rid.Tag == 0 {
		return bytesEqual(rid.Bytes, cert.SubjectKeyId)
	}
	var ias IssuerAndSerialNumber
	if _, err := asn1.Unmarshal(rid.FullBytes, &ias); err != nil {
		return false
	}
	return bytesEqual(cert.RawIssuer, ias.Issuer.FullBytes) && certSerialEqual(cert, ias.SerialNumber.Bytes)
}

// parseOriginatorPublicKey extracts the X9.63-encoded ephemeral public
// key point from the OriginatorIdentifierOrKey field.
func parseOriginatorPublicKey(originator asn1.RawValue, curve ecdh.Curve) (*ecdh.PublicKey, error) {
	if originator.Class != asn1.ClassContextSpecific || originator.Tag != 0 {
		return nil, errors.Wrap(ErrUnexpectedStructure, "unsupported OriginatorIdentifierOrKey form")
	}
	var origPub struct {
		Algorithm AlgorithmIdentifier
		PublicKey asn1.BitString
	}
	if _, err := asn1.Unmarshal(restoreOuterSequence(originator.Bytes), &origPub); err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}
	return curve.NewPublicKey(origPub.PublicKey.Bytes)
}

// x963BitString wraps a point's uncompressed X9.63 octets (already
// beginning with the 0x04 prefix from ecdh's PublicKey.Bytes) as a BIT
// STRING with zero unused bits.
func x963BitString(point []byte) asn1.BitString {
	return asn1.BitString{Bytes: point, BitLength: len(point) * 8}
}

// ecPublicKeyOID is the id-ecPublicKey OID, reused as the originator
// public key's AlgorithmIdentifier.
func ecPublicKeyOID(_ ecdh.Curve) asn1.ObjectIdentifier {
	return asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}
}

// stripOuterTag removes a DER value's outer tag and length octets,
// returning only its content octets — used when re-tagging a
// SEQUENCE-shaped encoding as an IMPLICIT value of a different tag.
func stripOuterTag(der []byte) []byte {
	var raw asn1.RawValue
	if _, err := asn1.Unmarshal(der, &raw); err != nil {
		return der
	}
	return raw.Bytes
}

// restoreOuterSequence re-wraps content octets (as produced by
// stripOuterTag) in a universal SEQUENCE tag, the inverse operation
// needed to unmarshal an IMPLICIT-tagged struct with the stdlib's
// ordinary (EXPLICIT-shaped) struct support.
func restoreOuterSequence(content []byte) []byte {
	out := asn1.RawValue{Class: asn1.ClassUniversal, Tag: asn1.TagSequence, IsCompound: true, Bytes: content}
	der, err := asn1.Marshal(out)
	if err != nil {
		return content
	}
	return der
}
