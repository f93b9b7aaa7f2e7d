// Package security seals short strings into opaque, tamper-proof tokens.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
)

var ErrMalformedToken = errors.New("malformed token")

// Sealer encrypts with AES-GCM under a key derived from a passphrase.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives a 256-bit key from passphrase. An empty passphrase
// gets a random key, so tokens do not survive a restart.
func NewSealer(passphrase string) (*Sealer, error) {
	var key [32]byte
	if passphrase == "" {
		if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
			return nil, err
		}
	} else {
		key = sha256.Sum256([]byte(passphrase))
	}

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: gcm}, nil
}

// Seal returns a URL-safe token, usable as a cookie value.
func (s *Sealer) Seal(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(ciphertext), nil
}

// Open reverses Seal. Any tampering yields ErrMalformedToken.
func (s *Sealer) Open(token string) (string, error) {
	ciphertext, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", ErrMalformedToken
	}

	if len(ciphertext) < s.aead.NonceSize() {
		return "", ErrMalformedToken
	}

	nonce := ciphertext[:s.aead.NonceSize()]
	ciphertext = ciphertext[s.aead.NonceSize():]

	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrMalformedToken
	}

	return string(plaintext), nil
}
