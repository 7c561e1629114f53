package encrypt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptLeavesOriginalInPlace(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "b.png")
	content := []byte("not really a png")
	require.NoError(t, os.WriteFile(path, content, 0644))

	out, err := EncryptFile(path, key)
	require.NoError(t, err)
	assert.Equal(t, path+Suffix, out)

	original, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, original)

	token, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotEqual(t, content, token)
}

func TestEncryptIsIdempotentOnOutputPath(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "b.png")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0644))

	first, err := EncryptFile(path, key)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("v2 longer content"), 0644))
	second, err := EncryptFile(path, key)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	out, err := DecryptFile(second, key)
	require.NoError(t, err)
	plain, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2 longer content"), plain)
}

func TestDecryptRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "c.mp4")
	content := []byte{0x00, 0x01, 0x02, 0xff, 0xfe}
	require.NoError(t, os.WriteFile(path, content, 0644))

	enc, err := EncryptFile(path, key)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	dec, err := DecryptFile(enc, key)
	require.NoError(t, err)
	assert.Equal(t, path, dec)

	plain, err := os.ReadFile(dec)
	require.NoError(t, err)
	assert.Equal(t, content, plain)
}

func TestEncryptNoKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b.png")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, err := EncryptFile(path, "")
	assert.ErrorIs(t, err, ErrNoKey)
}

func TestEncryptBadKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b.png")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, err := EncryptFile(path, "not-a-fernet-key")
	assert.Error(t, err)
	assert.NoFileExists(t, path+Suffix)
}

func TestDecryptWrongKeyFails(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	other, err := GenerateKey()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "b.png")
	require.NoError(t, os.WriteFile(path, []byte("secret"), 0644))

	enc, err := EncryptFile(path, key)
	require.NoError(t, err)

	_, err = DecryptFile(enc, other)
	assert.Error(t, err)
}
