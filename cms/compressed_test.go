package cms

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LdDl/gocms/session"
)

// go test -timeout 30s -run ^TestCompressedDataRoundtrip$ github.com/LdDl/gocms/cms
func TestCompressedDataRoundtrip(t *testing.T) {
	content := bytes.Repeat([]byte("repeat me so deflate has something to do "), 50)
	sess := session.New()
	sess.Content = content

	der, err := EncodeCompressedData(sess)
	require.NoError(t, err)
	require.Less(t, len(der), len(content), "compressed output should be smaller than the repetitive input")

	decodeSess := session.New()
	got, err := DecodeCompressedData(der, decodeSess)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

// go test -timeout 30s -run ^TestCompressedDataRoundtripEmptyContent$ github.com/LdDl/gocms/cms
func TestCompressedDataRoundtripEmptyContent(t *testing.T) {
	sess := session.New()
	sess.Content = []byte{}

	der, err := EncodeCompressedData(sess)
	require.NoError(t, err)

	got, err := DecodeCompressedData(der, session.New())
	require.NoError(t, err)
	assert.Empty(t, got)
}

// go test -timeout 30s -run ^TestDecodeCompressedDataRejectsWrongContentType$ github.com/LdDl/gocms/cms
func TestDecodeCompressedDataRejectsWrongContentType(t *testing.T) {
	der, err := EncodeData([]byte("plain data, not compressed"))
	require.NoError(t, err)

	_, err = DecodeCompressedData(der, session.New())
	assert.Error(t, err)
}
