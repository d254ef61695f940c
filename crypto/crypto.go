// Package crypto implements QRFS's passphrase-derived authenticated
// encryption layer (spec.md §4.2): PBKDF2-HMAC-SHA-256 key derivation into
// AES-256-GCM, with a fresh random nonce per encrypted block.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"io"

	"github.com/ajrojasfuentes/qrfs/errors"
	"golang.org/x/crypto/pbkdf2"
)

const (
	keyLength  = 32
	nonceSize  = 12
	iterations = 100_000
)

// Engine is a passphrase- and salt-bound AEAD session. It never exposes the
// derived key; the only recoverable secret material is the Salt, which is
// meant to be persisted in the clear alongside the encrypted superblock.
type Engine struct {
	aead cipher.AEAD
	salt [16]byte
}

// NewWithRandomSalt derives a new engine from passphrase and a freshly
// sampled random salt. Used by qrfs/volume.Format.
func NewWithRandomSalt(passphrase string) (*Engine, error) {
	var salt [16]byte
	if _, err := io.ReadFull(rand.Reader, salt[:]); err != nil {
		return nil, errors.ErrIOFailed.WrapError(err)
	}
	return New(passphrase, salt)
}

// New reconstructs an engine from a passphrase and an existing salt. Used
// on mount, check, and resize, where the salt is read back from block 0.
func New(passphrase string, salt [16]byte) (*Engine, error) {
	key := pbkdf2.Key([]byte(passphrase), salt[:], iterations, keyLength, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.ErrIOFailed.WrapError(err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.ErrIOFailed.WrapError(err)
	}

	return &Engine{aead: aead, salt: salt}, nil
}

// Salt returns the 16-byte salt this engine was derived with, for
// persisting in the clear at the start of block 0.
func (e *Engine) Salt() [16]byte {
	return e.salt
}

// Encrypt returns nonce‖ciphertext‖tag for plaintext, sampling a fresh
// random 96-bit nonce for this call. The same plaintext never produces the
// same ciphertext twice.
func (e *Engine) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.ErrIOFailed.WrapError(err)
	}
	return e.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt authenticates and decrypts an envelope produced by Encrypt. Any
// tag mismatch, tamper, or wrong passphrase yields the same opaque
// errors.ErrAuthenticationFailed: callers must not be able to distinguish
// integrity failure from a wrong key (spec.md §4.2).
func (e *Engine) Decrypt(envelope []byte) ([]byte, error) {
	if len(envelope) < nonceSize {
		return nil, errors.ErrAuthenticationFailed
	}
	nonce, ciphertext := envelope[:nonceSize], envelope[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.ErrAuthenticationFailed
	}
	return plaintext, nil
}
