package attr

import "encoding/asn1"

// attrNode is one link of the inbound attribute list.
type attrNode struct {
	attr Attribute
	next *attrNode
}

// AttributeList is the decode-side attribute container: a singly-linked
// list built by prepending each attribute as it is parsed off the wire, so
// the last attribute on the wire ends up at the head. Lookup walks the
// list comparing raw OID value octets directly rather than using a map
// keyed by a stringified OID.
type AttributeList struct {
	head *attrNode
	n    int
}

// Prepend adds attr to the front of the list.
func (l *AttributeList) Prepend(a Attribute) {
	l.head = &attrNode{attr: a, next: l.head}
	l.n++
}

// Len reports the number of attributes in the list.
func (l *AttributeList) Len() int {
	return l.n
}

// Find returns the first attribute (in head-to-tail, i.e. last-parsed-first,
// order) whose type equals oid, and whether one was found.
func (l *AttributeList) Find(oid asn1.ObjectIdentifier) (Attribute, bool) {
	for n := l.head; n != nil; n = n.next {
		if n.attr.Type.Equal(oid) {
			return n.attr, true
		}
	}
	return Attribute{}, false
}

// FindValue returns the DER bytes of the first value of the first
// attribute matching oid.
func (l *AttributeList) FindValue(oid asn1.ObjectIdentifier) ([]byte, bool) {
	a, ok := l.Find(oid)
	if !ok || len(a.Values) == 0 {
		return nil, false
	}
	return a.Values[0].FullBytes, true
}

// All returns every attribute currently linked, head to tail.
func (l *AttributeList) All() []Attribute {
	out := make([]Attribute, 0, l.n)
	for n := l.head; n != nil; n = n.next {
		out = append(out, n.attr)
	}
	return out
}

// ParseAttributesInto decodes a DER SET OF Attribute (the bytes following
// an IMPLICIT [n] retag back to universal SET) into dst, prepending each
// in wire order.
func ParseAttributesInto(dst *AttributeList, der []byte) error {
	var raws []rawAttribute
	if _, err := asn1.UnmarshalWithParams(der, &raws, "set"); err != nil {
		return err
	}
	for _, r := range raws {
		dst.Prepend(Attribute{Type: r.Type, Values: r.Values})
	}
	return nil
}
