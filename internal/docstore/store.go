// Package docstore implements the encrypted JSON document store backing
// every ChatKeeper data file. One Store owns one file; the whole document
// is decrypted into memory on open and re-encrypted and atomically
// rewritten on every mutation, so the bytes on disk are never plaintext
// and never partially written.
//
// A Store is not safe for concurrent use. The application serializes all
// access to a store behind a single writer.
package docstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/chatkeeper/internal/common"
	"github.com/dmitrijs2005/chatkeeper/internal/cryptox"
	"github.com/dmitrijs2005/chatkeeper/internal/filex"
	"github.com/dmitrijs2005/chatkeeper/internal/keyring"
	"github.com/dmitrijs2005/chatkeeper/internal/logging"
)

// VersionKey is the document path holding the schema version stamp.
const VersionKey = "schemaVersion"

type Store struct {
	path  string
	key   *keyring.Key
	log   logging.Logger
	doc   Document
	fresh bool
}

// Open loads the encrypted document at path. A missing file yields an empty
// fresh document; nothing is written until the first mutation. A file that
// cannot be decrypted or parsed yields an error wrapping ErrStoreCorrupt
// that names the file but never its contents.
func Open(path string, key *keyring.Key, log logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	s := &Store{path: path, key: key, log: log}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	blob, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.doc = Document{}
		s.fresh = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("read store %s: %w", s.name(), err)
	}

	keyBytes, err := s.key.Bytes()
	if err != nil {
		return fmt.Errorf("store %s: %w", s.name(), err)
	}
	defer common.WipeByteArray(keyBytes)

	plaintext, err := cryptox.Open(blob, keyBytes)
	if err != nil {
		return fmt.Errorf("store %s: %w: %v", s.name(), common.ErrStoreCorrupt, err)
	}

	var doc Document
	if err := json.Unmarshal(plaintext, &doc); err != nil {
		return fmt.Errorf("store %s: %w: invalid document", s.name(), common.ErrStoreCorrupt)
	}
	if doc == nil {
		doc = Document{}
	}

	s.doc = doc
	s.fresh = false
	return nil
}

func (s *Store) name() string { return filepath.Base(s.path) }

// Path returns the store's file path.
func (s *Store) Path() string { return s.path }

// Fresh reports whether the store was opened without an existing file and
// has not persisted yet.
func (s *Store) Fresh() bool { return s.fresh }

// Doc exposes the live document for bulk transformations such as schema
// migrations. Mutations through it are not persisted until SaveNow.
func (s *Store) Doc() Document { return s.doc }

// Get resolves a dotted path in the document.
func (s *Store) Get(path string) (any, bool) { return s.doc.Get(path) }

// Has reports whether a dotted path resolves.
func (s *Store) Has(path string) bool { return s.doc.Has(path) }

// GetString returns the string at path, or false if absent or not a string.
func (s *Store) GetString(path string) (string, bool) {
	v, ok := s.doc.Get(path)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// GetBool returns the bool at path, or false if absent or not a bool.
func (s *Store) GetBool(path string) (bool, bool) {
	v, ok := s.doc.Get(path)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// GetInt returns the integer at path. JSON numbers decode as float64, so
// both in-memory ints and reloaded values are handled.
func (s *Store) GetInt(path string) (int, bool) {
	v, ok := s.doc.Get(path)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// Decode unmarshals the value at path into v through a JSON round-trip.
// Missing paths return an error wrapping common.ErrNotFound.
func (s *Store) Decode(path string, v any) error {
	raw, ok := s.doc.Get(path)
	if !ok {
		return fmt.Errorf("path %q: %w", path, common.ErrNotFound)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode %q: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %q: %w", path, err)
	}
	return nil
}

// Set stores v at the dotted path and persists the whole document.
func (s *Store) Set(path string, v any) error {
	if err := s.doc.Set(path, v); err != nil {
		return err
	}
	return s.SaveNow()
}

// Delete removes the value at the dotted path. Removing an absent path is a
// no-op and does not touch the file.
func (s *Store) Delete(path string) error {
	if !s.doc.Delete(path) {
		return nil
	}
	return s.SaveNow()
}

// SchemaVersion returns the document's schema version stamp, 0 when absent.
func (s *Store) SchemaVersion() int {
	v, ok := s.GetInt(VersionKey)
	if !ok {
		return 0
	}
	return v
}

// SaveNow serializes, seals and atomically rewrites the whole file.
func (s *Store) SaveNow() error {
	data, err := json.Marshal(s.doc)
	if err != nil {
		return fmt.Errorf("marshal store %s: %w", s.name(), err)
	}

	keyBytes, err := s.key.Bytes()
	if err != nil {
		return fmt.Errorf("store %s: %w", s.name(), err)
	}
	defer common.WipeByteArray(keyBytes)

	blob, err := cryptox.Seal(data, keyBytes)
	common.WipeByteArray(data)
	if err != nil {
		return fmt.Errorf("seal store %s: %w", s.name(), err)
	}

	if err := filex.WriteFileAtomic(s.path, blob, 0o600); err != nil {
		return fmt.Errorf("persist store %s: %w", s.name(), err)
	}

	s.fresh = false
	return nil
}

// Reload discards the in-memory document and re-reads the file. Used after
// a backup restore replaces the bytes underneath the store.
func (s *Store) Reload() error {
	return s.load()
}
