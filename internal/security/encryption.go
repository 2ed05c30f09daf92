package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"strings"
)

const (
	// EncryptionPrefix marks values sealed by a Cipher.
	EncryptionPrefix = "ENC:"
)

var (
	ErrNoKey         = errors.New("encryption key not initialized")
	ErrDecryptFailed = errors.New("decryption failed")
)

// Cipher seals short secrets (TOTP seeds) at rest with AES-256-GCM.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives a 32-byte key from passphrase using SHA-256.
func NewCipher(passphrase string) (*Cipher, error) {
	if passphrase == "" {
		return nil, ErrNoKey
	}
	hash := sha256.Sum256([]byte(passphrase))

	block, err := aes.NewCipher(hash[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: gcm}, nil
}

// Encrypt encrypts plaintext using AES-256-GCM
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return EncryptionPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt decrypts ciphertext using AES-256-GCM. Values without the
// prefix are returned unchanged.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, EncryptionPrefix) {
		return ciphertext, nil
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ciphertext, EncryptionPrefix))
	if err != nil {
		return "", ErrDecryptFailed
	}
	if len(data) < c.aead.NonceSize() {
		return "", ErrDecryptFailed
	}

	nonce, sealed := data[:c.aead.NonceSize()], data[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}
