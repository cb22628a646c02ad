// Package session implements the Session data model every cms encode and
// decode operation is configured through: certificates, keys, algorithm
// selections, and the attribute sets being built up or parsed out.
package session

import (
	"crypto"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/x509"
	"encoding/asn1"
	"io"

	"github.com/pkg/errors"

	"github.com/LdDl/gocms/attr"
)

// SignerIdentifierType selects how a SignerInfo identifies its certificate
// on the wire. RecipientInfo identification does not depend on it.
type SignerIdentifierType int

// Supported signer/recipient identification forms.
const (
	IssuerAndSerialNumber SignerIdentifierType = iota
	SubjectKeyIdentifier
)

// Errors a Session's own bookkeeping can return, independent of any
// particular encode/decode operation.
var (
	ErrNoPrivateKey     = errors.New("session: no private key configured")
	ErrNoCertificate    = errors.New("session: no certificate configured")
	ErrCertificateParse = errors.New("session: certificate did not parse")
)

// Session is the single long-lived context object passed to exactly one
// cms encode or decode call. It is not safe for concurrent use — callers
// needing concurrency create one Session per goroutine.
type Session struct {
	// Certificates and chain are never stored unparsed.
	RecipientCert    *x509.Certificate
	RecipientCertRaw []byte
	SignerCert       *x509.Certificate
	SignerCertRaw    []byte
	Chain            []*x509.Certificate

	// Key material.
	Signer    crypto.Signer
	Decrypter crypto.Decrypter
	ECDHKey   *ecdh.PrivateKey

	// Randomness source; overridable for deterministic test fixtures.
	RNG io.Reader

	// Content under processing.
	Content     []byte
	ContentType asn1.ObjectIdentifier

	// Algorithm selections.
	HashAlg         crypto.Hash
	ContentEncOID   asn1.ObjectIdentifier
	KeyWrapOID      asn1.ObjectIdentifier
	KeyAgreementOID asn1.ObjectIdentifier
	SignerIDType    SignerIdentifierType
	AllowDegenerate bool

	// Attribute state.
	OutboundAttrs attr.Attributes
	DecodedAttrs  *attr.AttributeList

	// Key-agreement and symmetric-encryption working material.
	UKM          []byte
	SymmetricKey []byte

	owned bool
}

// New returns a Session with this library's defaults: the system CSPRNG,
// SHA-256, and IssuerAndSerialNumber identification. ContentEncOID and
// KeyWrapOID are left unset; the encoders then use AES-256-CBC and
// AES-256 key wrap.
func New() *Session {
	return &Session{
		RNG:          rand.Reader,
		HashAlg:      crypto.SHA256,
		SignerIDType: IssuerAndSerialNumber,
		DecodedAttrs: &attr.AttributeList{},
		owned:        true,
	}
}

// SetSignerCertificate parses der eagerly and stores both the parsed
// certificate and its raw bytes.
func (s *Session) SetSignerCertificate(der []byte) error {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return errors.Wrap(ErrCertificateParse, err.Error())
	}
	s.SignerCert = cert
	s.SignerCertRaw = der
	return nil
}

// SetRecipientCertificate parses der eagerly and stores it as the
// recipient certificate used for EnvelopedData encoding.
func (s *Session) SetRecipientCertificate(der []byte) error {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return errors.Wrap(ErrCertificateParse, err.Error())
	}
	s.RecipientCert = cert
	s.RecipientCertRaw = der
	return nil
}

// AddCertificate prepends cert to Chain, matching the teacher's
// "most-recently added appears first" contract — see SPEC_FULL.md §10 for
// the Open Question this preserves rather than silently fixes.
func (s *Session) AddCertificate(cert *x509.Certificate) {
	s.Chain = append([]*x509.Certificate{cert}, s.Chain...)
}

// SetSignerIdentifierType chooses how an outbound SignerInfo identifies
// its certificate.
func (s *Session) SetSignerIdentifierType(t SignerIdentifierType) {
	s.SignerIDType = t
}

// SetContentType overrides the outbound encapsulated content type. Unset,
// encoders default to id-data.
func (s *Session) SetContentType(oid asn1.ObjectIdentifier) {
	s.ContentType = oid
}

// AllowDegenerateSignedData permits DecodeSignedData to accept a
// SignerInfos-empty, certificates-only SignedData (RFC 5652 §5.1's
// degenerate case, used to carry a certificate chain with no signature).
// EncodeDegenerateSignedData does not consult this flag.
func (s *Session) AllowDegenerateSignedData(allow bool) {
	s.AllowDegenerate = allow
}

// GetAttributeValue returns the DER bytes of the first decoded attribute
// value matching oid, populated after a successful decode call.
func (s *Session) GetAttributeValue(oid asn1.ObjectIdentifier) ([]byte, bool) {
	if s.DecodedAttrs == nil {
		return nil, false
	}
	return s.DecodedAttrs.FindValue(oid)
}

// Zero wipes the Session's SymmetricKey and UKM buffers and drops them.
// The CEK, KEK and shared secret of an encode/decode call are wiped by the
// cms package itself. Private key material reachable only through
// crypto.Signer/crypto.Decrypter is the stdlib's responsibility, not this
// package's.
func (s *Session) Zero() {
	zero(s.SymmetricKey)
	zero(s.UKM)
	s.SymmetricKey = nil
	s.UKM = nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// RebindFromDecode replaces SignerCert/RecipientCert/ContentType with
// what was actually found on the wire after a successful decode, leaving
// RNG, owned-ness, and caller-set decode options untouched.
func (s *Session) RebindFromDecode(cert *x509.Certificate, certRaw []byte, contentType asn1.ObjectIdentifier, isRecipient bool) {
	if isRecipient {
		s.RecipientCert = cert
		s.RecipientCertRaw = certRaw
	} else {
		s.SignerCert = cert
		s.SignerCertRaw = certRaw
	}
	s.ContentType = contentType
}

// Owned reports whether this Session was allocated by New (as opposed to
// constructed by a caller embedding it directly) — kept for interface
// fidelity with the teacher's allocator-aware constructor, though Go's GC
// makes the distinction a no-op beyond documentation.
func (s *Session) Owned() bool {
	return s.owned
}
