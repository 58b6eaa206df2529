// Package settings is the typed facade over the encrypted settings store
// (config.json): provider and model selection, the local endpoint, per
// provider API keys, the first-run flag and UI preferences.
package settings

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/chatkeeper/internal/common"
	"github.com/dmitrijs2005/chatkeeper/internal/docstore"
	"github.com/dmitrijs2005/chatkeeper/internal/logging"
)

const (
	DefaultProvider      = "local"
	DefaultLocalEndpoint = "http://localhost:11434"
	DefaultTheme         = "dark"
)

type Store struct {
	doc *docstore.Store
	log logging.Logger
}

func New(doc *docstore.Store, log logging.Logger) *Store {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Store{doc: doc, log: log}
}

// Provider returns the selected backend provider, defaulting to "local".
func (s *Store) Provider() string {
	if v, ok := s.doc.GetString("provider"); ok && v != "" {
		return v
	}
	return DefaultProvider
}

func (s *Store) SetProvider(ctx context.Context, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return fmt.Errorf("provider: %w", common.ErrInvalidName)
	}
	return s.doc.Set("provider", v)
}

// Model returns the selected model name, empty when unset.
func (s *Store) Model() string {
	v, _ := s.doc.GetString("model")
	return v
}

func (s *Store) SetModel(ctx context.Context, v string) error {
	return s.doc.Set("model", strings.TrimSpace(v))
}

// LocalEndpoint returns the local inference endpoint.
func (s *Store) LocalEndpoint() string {
	if v, ok := s.doc.GetString("localEndpoint"); ok && v != "" {
		return v
	}
	return DefaultLocalEndpoint
}

func (s *Store) SetLocalEndpoint(ctx context.Context, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return fmt.Errorf("endpoint: %w", common.ErrInvalidName)
	}
	return s.doc.Set("localEndpoint", v)
}

// APIKey returns the stored key for a provider. The bool is false when no
// key is stored or the stored key is empty.
func (s *Store) APIKey(provider string) (string, bool) {
	keys := s.apiKeys()
	k, ok := keys[provider]
	return k, ok && k != ""
}

// Providers with dots in their names are valid map keys, so API keys are
// read and written through the whole map rather than a dotted path.
func (s *Store) apiKeys() map[string]string {
	var keys map[string]string
	if err := s.doc.Decode("apiKeys", &keys); err != nil || keys == nil {
		return map[string]string{}
	}
	return keys
}

func (s *Store) SetAPIKey(ctx context.Context, provider, key string) error {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return fmt.Errorf("provider: %w", common.ErrInvalidName)
	}
	keys := s.apiKeys()
	keys[provider] = key
	return s.doc.Set("apiKeys", keys)
}

func (s *Store) DeleteAPIKey(ctx context.Context, provider string) error {
	keys := s.apiKeys()
	if _, ok := keys[provider]; !ok {
		return nil
	}
	delete(keys, provider)
	return s.doc.Set("apiKeys", keys)
}

// APIKeyProviders returns the providers that have a non-empty key stored,
// sorted, without exposing the keys themselves.
func (s *Store) APIKeyProviders() []string {
	keys := s.apiKeys()
	providers := make([]string, 0, len(keys))
	for p, k := range keys {
		if k != "" {
			providers = append(providers, p)
		}
	}
	sort.Strings(providers)
	return providers
}

// FirstRun reports whether the setup wizard has not completed yet. Fresh
// stores default to true; stores migrated from pre-versioning installs are
// marked set up by migration v1.
func (s *Store) FirstRun() bool {
	if v, ok := s.doc.GetBool("firstRun"); ok {
		return v
	}
	return true
}

func (s *Store) CompleteSetup(ctx context.Context) error {
	s.log.Info(ctx, "setup completed")
	return s.doc.Set("firstRun", false)
}

// Theme returns the UI theme, defaulting to "dark".
func (s *Store) Theme() string {
	if v, ok := s.doc.GetString("ui.theme"); ok && v != "" {
		return v
	}
	return DefaultTheme
}

func (s *Store) SetTheme(ctx context.Context, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return fmt.Errorf("theme: %w", common.ErrInvalidName)
	}
	return s.doc.Set("ui.theme", v)
}

// Get passes a raw dotted path through to the document, for settings the
// typed accessors do not cover.
func (s *Store) Get(path string) (any, bool) { return s.doc.Get(path) }

// Set stores a raw value at a dotted path.
func (s *Store) Set(ctx context.Context, path string, v any) error {
	return s.doc.Set(path, v)
}

// SchemaVersion exposes the store's current schema stamp.
func (s *Store) SchemaVersion() int { return s.doc.SchemaVersion() }
