// Package keyring resolves the encryption key for the store files.
//
// The key file holds a random hex secret, not the AES key itself; the key is
// always derived from the secret with cryptox.DeriveKey. Installs that
// predate the key file keep working through a compiled-in legacy secret.
package keyring

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/awnumar/memguard"
	"github.com/dmitrijs2005/chatkeeper/internal/common"
	"github.com/dmitrijs2005/chatkeeper/internal/cryptox"
	"github.com/dmitrijs2005/chatkeeper/internal/logging"
)

// legacySecret derives the key used by versions that shipped before the key
// file existed. It also backs the degraded mode after a failed key file
// write, because unlike a random in-memory secret it survives a relaunch.
var legacySecret = []byte("chatkeeper-static-key-v0")

// secretSize is the number of random bytes behind a generated secret; the
// key file stores them hex-encoded, so the file holds twice as many chars.
const secretSize = 32

var ErrKeyDestroyed = errors.New("key destroyed")

// Key is a resolved encryption key. The derived AES key lives in a memguard
// enclave and is only decrypted for the duration of a Bytes call.
type Key struct {
	enclave *memguard.Enclave
	fp      string
}

// newKey derives the AES key and takes ownership of secret, wiping it.
func newKey(secret []byte) *Key {
	derived := cryptox.DeriveKey(secret)
	common.WipeByteArray(secret)
	fp := cryptox.Fingerprint(derived)
	// NewEnclave wipes the source slice
	return &Key{enclave: memguard.NewEnclave(derived), fp: fp}
}

// Bytes returns a copy of the AES key. The caller must wipe it with
// common.WipeByteArray as soon as the operation is done.
func (k *Key) Bytes() ([]byte, error) {
	if k.enclave == nil {
		return nil, ErrKeyDestroyed
	}
	lb, err := k.enclave.Open()
	if err != nil {
		return nil, fmt.Errorf("open key enclave: %w", err)
	}
	defer lb.Destroy()

	out := make([]byte, len(lb.Bytes()))
	copy(out, lb.Bytes())
	return out, nil
}

// Fingerprint returns a short digest identifying the key in logs and the
// status output. It never exposes key material.
func (k *Key) Fingerprint() string { return k.fp }

// Destroy drops the enclave reference. Subsequent Bytes calls fail.
func (k *Key) Destroy() { k.enclave = nil }

// Manager resolves the key for one base directory.
type Manager struct {
	baseDir string
	legacy  []byte
	log     logging.Logger
}

func NewManager(baseDir string, log logging.Logger) *Manager {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Manager{baseDir: baseDir, legacy: legacySecret, log: log}
}

// KeyPath returns the location of the key file.
func (m *Manager) KeyPath() string {
	return filepath.Join(m.baseDir, common.KeyFileName)
}

// Resolve determines the encryption key for the base directory.
//
// Order:
//  1. A readable, non-empty key file wins. Its content is the secret,
//     taken verbatim after trimming surrounding whitespace. The file is
//     never rewritten.
//  2. No key file but existing store files: a pre-key-file install. The
//     legacy secret is used and nothing is written, so old data stays
//     readable without a migration step.
//  3. Otherwise a fresh install: generate a new secret, write it 0600.
//  4. If that write fails, the session falls back to the legacy secret so
//     the app still works; the next launch retries the write. The failure
//     is logged with ErrKeyWriteFailed.
//
// The returned bool reports whether the key file is present on disk after
// resolution.
func (m *Manager) Resolve(ctx context.Context) (*Key, bool, error) {
	keyPath := m.KeyPath()

	data, err := os.ReadFile(keyPath)
	if err == nil {
		secret := bytes.TrimSpace(data)
		if len(secret) > 0 {
			k := newKey(secret)
			common.WipeByteArray(data)
			m.log.Debug(ctx, "key file loaded", "fingerprint", k.Fingerprint())
			return k, true, nil
		}
		m.log.Warn(ctx, "key file is empty, regenerating", "path", keyPath)
	} else if !os.IsNotExist(err) {
		m.log.Warn(ctx, "key file unreadable, treating as absent", "path", keyPath, "error", err)
	}

	if m.storesExist() {
		k := newKey(append([]byte(nil), m.legacy...))
		m.log.Warn(ctx, "no key file but stores exist, using legacy key",
			"fingerprint", k.Fingerprint())
		return k, false, nil
	}

	secret, err := common.MakeRandHexString(secretSize)
	if err != nil {
		return nil, false, fmt.Errorf("generate key secret: %w", err)
	}

	if err := os.WriteFile(keyPath, []byte(secret), 0o600); err != nil {
		m.log.Error(ctx, "key file write failed, continuing with legacy key for this session",
			"path", keyPath, "error", fmt.Errorf("%w: %w", common.ErrKeyWriteFailed, err))
		k := newKey(append([]byte(nil), m.legacy...))
		return k, false, nil
	}

	k := newKey([]byte(secret))
	m.log.Info(ctx, "generated new key file", "path", keyPath, "fingerprint", k.Fingerprint())
	return k, true, nil
}

func (m *Manager) storesExist() bool {
	for _, name := range common.StoreFileNames {
		if _, err := os.Stat(filepath.Join(m.baseDir, name)); err == nil {
			return true
		}
	}
	return false
}
