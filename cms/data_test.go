package cms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LdDl/gocms/session"
)

// go test -timeout 30s -run ^TestDataRoundtrip$ github.com/LdDl/gocms/cms
func TestDataRoundtrip(t *testing.T) {
	content := []byte("hello, cms")
	der, err := EncodeData(content)
	require.NoError(t, err)
	require.NotEmpty(t, der)
	assert.Equal(t, byte(0x30), der[0], "ContentInfo must start with a SEQUENCE tag")

	got, err := DecodeData(der)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

// go test -timeout 30s -run ^TestDataRoundtripEmptyContent$ github.com/LdDl/gocms/cms
func TestDataRoundtripEmptyContent(t *testing.T) {
	der, err := EncodeData([]byte{})
	require.NoError(t, err)

	got, err := DecodeData(der)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// go test -timeout 30s -run ^TestDecodeDataRejectsWrongContentType$ github.com/LdDl/gocms/cms
func TestDecodeDataRejectsWrongContentType(t *testing.T) {
	sess := session.New()
	sess.Content = []byte("not data")
	der, err := EncodeCompressedData(sess)
	require.NoError(t, err)

	_, err = DecodeData(der)
	assert.Error(t, err)
}
