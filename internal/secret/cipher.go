// Package secret encrypts provider credentials at rest.
//
// Ciphertexts are stored as "<ivHex>:<authTagHex>:<ciphertextHex>" using
// AES-256-GCM with a 16-byte IV, the format existing rows were written in.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	ivSize  = 16
	tagSize = 16
)

var ErrMalformed = errors.New("secret: malformed ciphertext")

// Cipher encrypts and decrypts settings values. A Cipher without a key is a
// passthrough, which is only allowed outside production.
type Cipher struct {
	aead cipher.AEAD
}

// New builds a Cipher from a 64-character hex key. An empty key yields a passthrough cipher.
func New(hexKey string) (*Cipher, error) {
	if hexKey == "" {
		return &Cipher{}, nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("secret: key is not hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("secret: key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// GenerateKey returns a fresh hex key suitable for ENCRYPTION_KEY.
func GenerateKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (c *Cipher) Enabled() bool { return c != nil && c.aead != nil }

func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if !c.Enabled() {
		return plaintext, nil
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nil, iv, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(tag) + ":" + hex.EncodeToString(ct), nil
}

func (c *Cipher) Decrypt(encoded string) (string, error) {
	if !c.Enabled() {
		return encoded, nil
	}
	parts := strings.Split(encoded, ":")
	if len(parts) != 3 {
		return "", ErrMalformed
	}
	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != ivSize {
		return "", ErrMalformed
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != tagSize {
		return "", ErrMalformed
	}
	ct, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", ErrMalformed
	}
	plain, err := c.aead.Open(nil, iv, append(ct, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("secret: decrypt: %w", err)
	}
	return string(plain), nil
}

// Reveal decrypts values that look like ciphertexts and returns everything
// else unchanged. Legacy plaintext rows and values that fail to decrypt are
// returned as stored.
func (c *Cipher) Reveal(stored string) string {
	if !strings.Contains(stored, ":") {
		return stored
	}
	plain, err := c.Decrypt(stored)
	if err != nil {
		return stored
	}
	return plain
}
