// Package attr implements the CMS signed/unsigned attribute engine
// (RFC 5652 §5.3's Attribute type): an outbound, insertion-ordered builder
// and an inbound, singly-linked decode-side list. It is split out from
// package cms so that session.Session — which carries both an outbound
// Attributes value and a decoded *AttributeList — does not need to import
// cms, and cms does not need to import session just to pass a *Session
// parameter around.
package attr

import (
	"encoding/asn1"

	"github.com/pkg/errors"
)

// Attribute is a single CMS Attribute: an OID plus a SET OF values, each
// already DER-encoded (the raw bytes of one value, not wrapped a second
// time).
type Attribute struct {
	Type   asn1.ObjectIdentifier
	Values []asn1.RawValue
}

// rawAttribute mirrors the ASN.1 CMS Attribute SEQUENCE { type, values }.
type rawAttribute struct {
	Type   asn1.ObjectIdentifier
	Values []asn1.RawValue `asn1:"set"`
}

// Attributes is the outbound attribute set: insertion-ordered rather than
// sorted into DER-SET canonical order (smallstep/pkcs7's attributeSet
// sort.Interface is deliberately not adopted here — see SPEC_FULL.md §4.10).
type Attributes struct {
	list []Attribute
}

// ErrDuplicateAttribute is returned by Add when an OID already present
// would be added a second time; the attribute engine rejects silent
// shadowing rather than allowing two values to coexist under a type that
// is conventionally single-valued in CMS.
var ErrDuplicateAttribute = errors.New("attr: duplicate attribute type")

// Add appends an attribute, encoding value with asn1.Marshal and wrapping
// it as a single-element SET OF. Returns ErrDuplicateAttribute if oid is
// already present.
func (a *Attributes) Add(oid asn1.ObjectIdentifier, value interface{}) error {
	if a.Has(oid) {
		return errors.Wrapf(ErrDuplicateAttribute, "oid %s", oid.String())
	}
	encoded, err := asn1.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "attr: marshal value")
	}
	a.list = append(a.list, Attribute{
		Type:   oid,
		Values: []asn1.RawValue{{FullBytes: encoded}},
	})
	return nil
}

// AddRaw appends an attribute whose values are already-encoded RawValues,
// used when re-emitting attributes decoded from an inbound message
// unchanged (e.g. counter-signatures carrying nested attribute sets).
func (a *Attributes) AddRaw(oid asn1.ObjectIdentifier, values []asn1.RawValue) error {
	if a.Has(oid) {
		return errors.Wrapf(ErrDuplicateAttribute, "oid %s", oid.String())
	}
	a.list = append(a.list, Attribute{Type: oid, Values: values})
	return nil
}

// Has reports whether oid is already present.
func (a *Attributes) Has(oid asn1.ObjectIdentifier) bool {
	for _, existing := range a.list {
		if existing.Type.Equal(oid) {
			return true
		}
	}
	return false
}

// Len reports the number of attributes currently held.
func (a *Attributes) Len() int {
	return len(a.list)
}

// Empty reports whether no attributes have been added.
func (a *Attributes) Empty() bool {
	return len(a.list) == 0
}

// MarshalSET encodes the attribute set with a universal SET tag, the form
// used for signature-digest computation (RFC 5652 §5.4) and for the
// unprotected-attribute field of EncryptedData (RFC 5652 §6.1).
// Each attribute is encoded on its own and the encodings are concatenated
// in insertion order, so the set is not re-sorted the way encoding/asn1
// sorts a slice marshalled with asn1:"set".
func (a *Attributes) MarshalSET() ([]byte, error) {
	var content []byte
	for _, at := range a.list {
		enc, err := asn1.Marshal(rawAttribute{Type: at.Type, Values: at.Values})
		if err != nil {
			return nil, errors.Wrap(err, "attr: marshal attribute")
		}
		content = append(content, enc...)
	}
	// content is the concatenation of each rawAttribute's encoding; tag it
	// as a SET to get the form used for hashing.
	out := asn1.RawValue{
		Class:      asn1.ClassUniversal,
		Tag:        asn1.TagSet,
		IsCompound: true,
		Bytes:      content,
	}
	return asn1.Marshal(out)
}

// MarshalIMPLICIT encodes the attribute set under IMPLICIT [0], the wire
// form CMS uses for SignerInfo.signedAttrs and unsignedAttrs. RFC 5652
// §5.4 requires the signature to cover the SET-tagged form while the wire
// carries the IMPLICIT-tagged form of the identical content octets, so
// MarshalSET and MarshalIMPLICIT must agree on everything but the outer
// tag byte; this replaces only the leading tag byte of the SET encoding.
func (a *Attributes) MarshalIMPLICIT(tag int) ([]byte, error) {
	set, err := a.MarshalSET()
	if err != nil {
		return nil, err
	}
	// set[0] is the universal SET tag (0x31); asn1.Marshal always uses
	// the short/long length form matching the content, so only the tag
	// byte itself needs replacing to go from UNIVERSAL SET to
	// context-specific constructed [tag].
	out := make([]byte, len(set))
	copy(out, set)
	out[0] = byte(asn1.ClassContextSpecific<<6) | 0x20 | byte(tag)
	return out, nil
}

// List returns the attributes in insertion order. The returned slice must
// not be mutated by callers.
func (a *Attributes) List() []Attribute {
	return a.list
}
