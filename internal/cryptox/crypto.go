// Package cryptox implements the encryption primitives for the store files:
// AES-256-GCM sealing and opening, key derivation from the key-file secret,
// and key fingerprints for log output.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// keySalt is the fixed application salt for deriving the AEAD key from the
// key-file secret. Changing it would orphan every existing store file.
var keySalt = []byte("chatkeeper.store.v1")

// KeySize is the AES-256 key length produced by DeriveKey.
const KeySize = 32

var ErrBlobTooShort = errors.New("encrypted blob too short")

// DeriveKey derives a 32-byte AES key from the key-file secret using
// argon2id. The same secret always yields the same key, so a store sealed
// on one launch opens on the next.
func DeriveKey(secret []byte) []byte {
	return argon2.IDKey(secret, keySalt, 1, 64*1024, 4, KeySize)
}

// Fingerprint returns a short hex digest of the key, safe to log. It never
// reveals key material beyond sha256 truncation.
func Fingerprint(key []byte) string {
	hash := sha256.Sum256(key)
	return hex.EncodeToString(hash[:])[:8]
}

// Seal encrypts plaintext with AES-256-GCM under key and returns a single
// blob laid out as nonce || ciphertext. A fresh random 12-byte nonce is
// generated for every call.
//
// The key must be a valid AES key length (16, 24, or 32 bytes). Store files
// always use the 32-byte key produced by DeriveKey.
//
// Example:
//
//	key := cryptox.DeriveKey(secret)
//	blob, err := cryptox.Seal(data, key)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile(path, blob, 0o600)
func Seal(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	// nonce
	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	// encrypting; appending to the nonce keeps everything in one blob
	blob := aesgcm.Seal(nonce, nonce, plaintext, nil)

	return blob, nil
}

// Open decrypts a blob produced by Seal. It fails if the blob is truncated,
// tampered with, or sealed under a different key. Callers should treat any
// failure as "corrupt or wrong key" without distinguishing further.
func Open(blob, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(blob) < aesgcm.NonceSize() {
		return nil, ErrBlobTooShort
	}
	nonce, ciphertext := blob[:aesgcm.NonceSize()], blob[aesgcm.NonceSize():]

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	return plaintext, nil
}
