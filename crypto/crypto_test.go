package crypto_test

import (
	"testing"

	"github.com/ajrojasfuentes/qrfs/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	engine, err := crypto.NewWithRandomSalt("correct horse battery staple")
	require.NoError(t, err)

	plaintext := []byte("the superblock's secret contents")
	ciphertext, err := engine.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)
	assert.Greater(t, len(ciphertext), len(plaintext))

	mounted, err := crypto.New("correct horse battery staple", engine.Salt())
	require.NoError(t, err)

	decrypted, err := mounted.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptNeverRepeatsCiphertext(t *testing.T) {
	engine, err := crypto.NewWithRandomSalt("pw")
	require.NoError(t, err)

	plaintext := []byte("same bytes every time")
	first, err := engine.Encrypt(plaintext)
	require.NoError(t, err)
	second, err := engine.Encrypt(plaintext)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestWrongPassphraseFails(t *testing.T) {
	engine, err := crypto.NewWithRandomSalt("password123")
	require.NoError(t, err)

	ciphertext, err := engine.Encrypt([]byte("secret data"))
	require.NoError(t, err)

	attacker, err := crypto.New("wrong-password", engine.Salt())
	require.NoError(t, err)

	_, err = attacker.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestTamperedCiphertextFails(t *testing.T) {
	engine, err := crypto.NewWithRandomSalt("pw")
	require.NoError(t, err)

	ciphertext, err := engine.Encrypt([]byte("tamper with me"))
	require.NoError(t, err)

	tampered := append([]byte(nil), ciphertext...)
	tampered[len(tampered)-1] ^= 0xFF

	_, err = engine.Decrypt(tampered)
	assert.Error(t, err)
}
