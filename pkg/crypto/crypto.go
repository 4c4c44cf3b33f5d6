// Package crypto seals shop credentials before they reach the database.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"sync"
)

// sealedPrefix marks values written by Seal so legacy plaintext rows keep working.
const sealedPrefix = "enc:v1:"

var (
	mu  sync.RWMutex
	gcm cipher.AEAD
)

// SetSecret derives an AES-256 key from secret. An empty secret disables sealing.
func SetSecret(secret string) error {
	mu.Lock()
	defer mu.Unlock()

	if secret == "" {
		gcm = nil
		return nil
	}

	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return err
	}
	gcm = aead
	return nil
}

// Enabled reports whether a secret is configured.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return gcm != nil
}

// Seal encrypts plain with AES-GCM. Without a secret, or for empty input, it returns plain unchanged.
func Seal(plain string) (string, error) {
	mu.RLock()
	aead := gcm
	mu.RUnlock()

	if aead == nil || plain == "" {
		return plain, nil
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, []byte(plain), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. Values without the sealed prefix are returned as-is.
func Open(value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}

	mu.RLock()
	aead := gcm
	mu.RUnlock()
	if aead == nil {
		return "", errors.New("crypto: sealed value found but no secret configured")
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", err
	}
	if len(data) < aead.NonceSize() {
		return "", errors.New("crypto: sealed value too short")
	}

	nonce, ciphertext := data[:aead.NonceSize()], data[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
