package cms

import (
	"bytes"
	"compress/zlib"
	"encoding/asn1"
	"io"

	"github.com/pkg/errors"

	"github.com/LdDl/gocms/oid"
	"github.com/LdDl/gocms/session"
)

// compressedData is CompressedData ::= SEQUENCE { version=0,
// CompressionAlgorithmIdentifier, EncapsulatedContentInfo } (RFC 3274).
// CompressionAlgorithmIdentifier always carries id-alg-zlibCompress with
// absent parameters.
type compressedData struct {
	Version              int
	CompressionAlgorithm AlgorithmIdentifier
	EncapContentInfo     EncapsulatedContentInfo
}

// EncodeCompressedData implements RFC 3274: zlib-compress the content
// under the fixed id-alg-zlibCompress OID, version 0. id-alg-zlibCompress
// names the ZLIB format (RFC 1950), not raw DEFLATE, so compress/zlib is
// used rather than compress/flate directly. The compressed-buffer
// allocation sizing (srcSz + srcSz/1000 + 12) matches zlib's documented
// worst-case-expansion bound.
func EncodeCompressedData(sess *session.Session) ([]byte, error) {
	srcSz := len(sess.Content)
	buf := bytes.NewBuffer(make([]byte, 0, srcSz+srcSz/1000+12))
	w, err := zlib.NewWriterLevel(buf, zlib.DefaultCompression)
	if err != nil {
		return nil, errors.Wrap(ErrCrypto, err.Error())
	}
	if _, err := w.Write(sess.Content); err != nil {
		return nil, errors.Wrap(ErrCrypto, err.Error())
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(ErrCrypto, err.Error())
	}

	contentType := sess.ContentType
	if len(contentType) == 0 {
		contentType = oid.OIDData
	}

	compressedOctetString, err := asn1.Marshal(asn1.RawValue{
		Class: asn1.ClassUniversal, Tag: asn1.TagOctetString, Bytes: buf.Bytes(),
	})
	if err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}
	eContent := asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, IsCompound: true, Bytes: compressedOctetString}

	cd := compressedData{
		Version:              0,
		CompressionAlgorithm: AlgorithmIdentifier{Algorithm: oid.OIDZlibCompress},
		EncapContentInfo:     EncapsulatedContentInfo{EContentType: contentType, EContent: eContent},
	}
	inner, err := asn1.Marshal(cd)
	if err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}
	return wrapContentInfo(oid.OIDCompressedData, inner)
}

// DecodeCompressedData implements RFC 3274's decode side: requires
// version 0 and the exact id-alg-zlibCompress OID, inflating the declared
// inner content using its own length as both the output capacity and the
// inflate hint.
func DecodeCompressedData(der []byte, sess *session.Session) ([]byte, error) {
	ci, err := ParseContentInfo(der)
	if err != nil {
		return nil, err
	}
	ct, err := oid.ContentTypeForOID(ci.ContentType)
	if err != nil || ct != oid.ContentTypeCompressedData {
		return nil, errors.Wrap(ErrUnexpectedStructure, "ContentInfo is not compressedData")
	}

	var cd compressedData
	if _, err := asn1.Unmarshal(ci.Content.Bytes, &cd); err != nil {
		return nil, errors.Wrap(ErrParse, err.Error())
	}
	if cd.Version != 0 {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "CompressedData version %d", cd.Version)
	}
	if !cd.CompressionAlgorithm.Algorithm.Equal(oid.OIDZlibCompress) {
		return nil, errors.Wrapf(ErrUnknownAlgorithm, "compression algorithm %s", cd.CompressionAlgorithm.Algorithm.String())
	}

	compressed, hasContent, err := eContentValue(cd.EncapContentInfo.EContent)
	if err != nil {
		return nil, err
	}
	if !hasContent {
		return nil, errors.Wrap(ErrMissingContent, "compressedData has no compressed content")
	}

	out := bytes.NewBuffer(make([]byte, 0, len(compressed)))
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, errors.Wrap(ErrDecryptionFailed, err.Error())
	}
	defer r.Close()
	if _, err := io.Copy(out, r); err != nil {
		return nil, errors.Wrap(ErrDecryptionFailed, err.Error())
	}
	sess.ContentType = cd.EncapContentInfo.EContentType
	return out.Bytes(), nil
}
