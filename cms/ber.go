package cms

import (
	"bytes"

	"github.com/pkg/errors"
)

// ber2der tolerates the one BER idiom X.690 permits that DER forbids: an
// outer SEQUENCE (or any constructed value) encoded with indefinite
// length, terminated by a two-byte 0x00 0x00 end-of-contents marker,
// instead of DER's mandatory definite length. Every ContentInfo parse
// runs its input through this first, following the
// ParseContentInfo/ber2der idiom in ietf-cms/protocol.go. Inputs that are
// already definite-length DER pass through with their bytes unchanged.
func ber2der(ber []byte) ([]byte, error) {
	if len(ber) == 0 {
		return nil, errors.Wrap(ErrParse, "empty input")
	}
	out, rest, err := berConvert(ber)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, errors.Wrap(ErrTrailingData, "after outer BER value")
	}
	return out, nil
}

// berConvert parses one BER TLV from buf and returns its DER re-encoding
// plus whatever of buf followed it.
func berConvert(buf []byte) (der []byte, rest []byte, err error) {
	if len(buf) < 2 {
		return nil, nil, errors.Wrap(ErrParse, "truncated BER tag/length")
	}
	tagByte := buf[0]
	constructed := tagByte&0x20 != 0

	identOctets, lenStart := berIdentifierOctets(buf)
	if lenStart >= len(buf) {
		return nil, nil, errors.Wrap(ErrParse, "truncated BER length")
	}

	lenByte := buf[lenStart]
	if lenByte != 0x80 {
		// Definite length: the stdlib already understands this TLV, so
		// re-emit it byte-for-byte once its full extent is known.
		length, lenOctets, err := berDefiniteLength(buf[lenStart:])
		if err != nil {
			return nil, nil, err
		}
		contentStart := lenStart + lenOctets
		contentEnd := contentStart + length
		if contentEnd > len(buf) {
			return nil, nil, errors.Wrap(ErrParse, "BER length exceeds buffer")
		}
		if !constructed {
			full := buf[:contentEnd]
			return full, buf[contentEnd:], nil
		}
		// Constructed + definite-length: recursively normalize children
		// in case an indefinite-length value is nested inside.
		content, err := berConvertChildren(buf[contentStart:contentEnd])
		if err != nil {
			return nil, nil, err
		}
		return berAssemble(identOctets, content), buf[contentEnd:], nil
	}

	if !constructed {
		return nil, nil, errors.Wrap(ErrParse, "indefinite length on primitive value")
	}

	// Indefinite length: consume children until the 0x00 0x00 terminator.
	cursor := lenStart + 1
	var content bytes.Buffer
	for {
		if cursor+1 < len(buf) && buf[cursor] == 0x00 && buf[cursor+1] == 0x00 {
			cursor += 2
			break
		}
		if cursor >= len(buf) {
			return nil, nil, errors.Wrap(ErrParse, "unterminated indefinite-length BER value")
		}
		child, childRest, err := berConvert(buf[cursor:])
		if err != nil {
			return nil, nil, err
		}
		content.Write(child)
		cursor = len(buf) - len(childRest)
	}
	return berAssemble(identOctets, content.Bytes()), buf[cursor:], nil
}

func berConvertChildren(buf []byte) ([]byte, error) {
	var out bytes.Buffer
	for len(buf) > 0 {
		child, rest, err := berConvert(buf)
		if err != nil {
			return nil, err
		}
		out.Write(child)
		buf = rest
	}
	return out.Bytes(), nil
}

// berIdentifierOctets returns the tag's identifier octets (handling
// multi-byte high-tag-number form) and the index of the first length
// octet.
func berIdentifierOctets(buf []byte) ([]byte, int) {
	i := 1
	if buf[0]&0x1f == 0x1f {
		for i < len(buf) && buf[i]&0x80 != 0 {
			i++
		}
		i++
	}
	return buf[:i], i
}

func berDefiniteLength(buf []byte) (length int, octets int, err error) {
	if len(buf) == 0 {
		return 0, 0, errors.Wrap(ErrParse, "missing length octet")
	}
	b := buf[0]
	if b&0x80 == 0 {
		return int(b), 1, nil
	}
	n := int(b & 0x7f)
	if n == 0 || n > 4 || len(buf) < 1+n {
		return 0, 0, errors.Wrap(ErrParse, "unsupported BER length form")
	}
	length = 0
	for i := 0; i < n; i++ {
		length = length<<8 | int(buf[1+i])
	}
	return length, 1 + n, nil
}

// berAssemble re-encodes ident||content with a DER definite length, since
// asn1.Marshal-compatible output always wants the minimal length form.
func berAssemble(ident []byte, content []byte) []byte {
	var out bytes.Buffer
	out.Write(ident)
	out.Write(derLength(len(content)))
	out.Write(content)
	return out.Bytes()
}

func derLength(n int) []byte {
	if n < 0x80 {
		return []byte{byte(n)}
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte(n & 0xff)}, b...)
		n >>= 8
	}
	return append([]byte{byte(0x80 | len(b))}, b...)
}
