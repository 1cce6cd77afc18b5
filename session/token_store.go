// Package session manages the client-side auth session: the bearer token
// slot, the session state, and the inactivity watcher. The token store is
// the side channel the HTTP layer reads on every authenticated call.
package session

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// TokenStore holds the current bearer token. Set with an empty value or the
// literal string "undefined" behaves as Remove: a known upstream bug class
// leaks stringified undefined into storage, and it must never round-trip.
type TokenStore interface {
	Get() (string, bool)
	Set(token string) error
	Remove() error
}

// scrub reports whether the value counts as "no token".
func scrub(token string) bool {
	return token == "" || token == "undefined" || token == "null"
}

// =============================================================================
// Memory Store
// =============================================================================

// MemoryTokenStore keeps the token in process memory. Suitable for tests and
// short-lived tools.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	token string
	set   bool
}

// NewMemoryTokenStore creates an empty in-memory store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.set
}

func (s *MemoryTokenStore) Set(token string) error {
	if scrub(token) {
		return s.Remove()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.set = true
	return nil
}

func (s *MemoryTokenStore) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.set = false
	return nil
}

// =============================================================================
// File Store
// =============================================================================

// FileTokenStore persists the token to disk, sealed with ChaCha20-Poly1305
// under a key derived from the configured secret. The on-disk file is the
// durable analog of browser storage; it survives process restarts.
type FileTokenStore struct {
	mu   sync.Mutex
	path string
	key  []byte
}

// NewFileTokenStore creates a file-backed store at path. The secret protects
// the token at rest and must be stable across runs.
func NewFileTokenStore(path string, secret []byte) (*FileTokenStore, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("secret is required")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, secret, nil, []byte("credosafe-token-store"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	return &FileTokenStore{path: path, key: key}, nil
}

func (s *FileTokenStore) Get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sealed, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}

	token, err := s.open(sealed)
	if err != nil || scrub(token) {
		return "", false
	}
	return token, true
}

func (s *FileTokenStore) Set(token string) error {
	if scrub(token) {
		return s.Remove()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sealed, err := s.seal(token)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, sealed, 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func (s *FileTokenStore) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

func (s *FileTokenStore) seal(token string) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, []byte(token), nil), nil
}

func (s *FileTokenStore) open(sealed []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	if len(sealed) < aead.NonceSize() {
		return "", fmt.Errorf("sealed token too short")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("open token: %w", err)
	}
	return string(plain), nil
}
