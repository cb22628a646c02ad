package cms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LdDl/gocms/session"
)

func newSymmetricKeySession(t *testing.T, content []byte) (*session.Session, *session.Session) {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}

	encSess := session.New()
	encSess.SymmetricKey = key
	encSess.Content = content

	decSess := session.New()
	decSess.SymmetricKey = key
	return encSess, decSess
}

// go test -timeout 30s -run ^TestEncryptedDataRoundtrip$ github.com/LdDl/gocms/cms
func TestEncryptedDataRoundtrip(t *testing.T) {
	content := []byte("symmetric content, no recipient structure")
	encSess, decSess := newSymmetricKeySession(t, content)

	der, err := EncodeEncryptedData(encSess)
	require.NoError(t, err)

	got, err := DecodeEncryptedData(der, decSess)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

// go test -timeout 30s -run ^TestEncryptedDataWithUnprotectedAttrsRoundtrip$ github.com/LdDl/gocms/cms
func TestEncryptedDataWithUnprotectedAttrsRoundtrip(t *testing.T) {
	content := []byte("content with an unprotected attribute")
	encSess, decSess := newSymmetricKeySession(t, content)
	require.NoError(t, encSess.OutboundAttrs.Add(oidAttrSigningTime, "250101000000Z"))

	der, err := EncodeEncryptedData(encSess)
	require.NoError(t, err)

	got, err := DecodeEncryptedData(der, decSess)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.Equal(t, 1, decSess.DecodedAttrs.Len())
}

// go test -timeout 30s -run ^TestDecodeEncryptedDataRejectsWrongKey$ github.com/LdDl/gocms/cms
func TestDecodeEncryptedDataRejectsWrongKey(t *testing.T) {
	content := []byte("will not decrypt with the wrong key")
	encSess, decSess := newSymmetricKeySession(t, content)
	der, err := EncodeEncryptedData(encSess)
	require.NoError(t, err)

	decSess.SymmetricKey = make([]byte, 32)
	_, err = DecodeEncryptedData(der, decSess)
	assert.Error(t, err)
}

// go test -timeout 30s -run ^TestEncodeEncryptedDataRequiresSymmetricKey$ github.com/LdDl/gocms/cms
func TestEncodeEncryptedDataRequiresSymmetricKey(t *testing.T) {
	sess := session.New()
	sess.Content = []byte("no key")
	_, err := EncodeEncryptedData(sess)
	assert.ErrorIs(t, err, ErrArgument)
}
