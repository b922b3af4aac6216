package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	store := NewSecretStore("test-passphrase", salt)

	ciphertext, err := store.Encrypt("plex-token-abc123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ciphertext, EncryptedPrefix))
	assert.NotContains(t, ciphertext, "plex-token-abc123")

	plaintext, err := store.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "plex-token-abc123", plaintext)
}

func TestEncryptEmptyString(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	store := NewSecretStore("test-passphrase", salt)

	ciphertext, err := store.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, ciphertext)
}

func TestDecryptPassesThroughUnprefixedValues(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	store := NewSecretStore("test-passphrase", salt)

	plaintext, err := store.Decrypt("legacy-plaintext-token")
	require.NoError(t, err)
	assert.Equal(t, "legacy-plaintext-token", plaintext)
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	store := NewSecretStore("correct-passphrase", salt)
	ciphertext, err := store.Encrypt("secret")
	require.NoError(t, err)

	wrongStore := NewSecretStore("wrong-passphrase", salt)
	_, err = wrongStore.Decrypt(ciphertext)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecryptRejectsCorruptCiphertext(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	store := NewSecretStore("test-passphrase", salt)

	_, err = store.Decrypt(EncryptedPrefix + "not-base64!!!")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	_, err = store.Decrypt(EncryptedPrefix + "AAAA")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestGenerateSaltIsRandom(t *testing.T) {
	a, err := GenerateSalt()
	require.NoError(t, err)
	b, err := GenerateSalt()
	require.NoError(t, err)

	assert.Len(t, a, saltLength)
	assert.NotEqual(t, a, b)
}
