package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Holder guards the current credential and writes renewals to disk.
// The generation is bumped on every swap so callers can tell whether the
// credential they failed with has already been replaced.
type Holder struct {
	mu    sync.RWMutex
	cred  Credential
	gen   uint64
	path  string
	perms os.FileMode
}

// NewHolder creates a holder persisting to path. An empty path disables
// persistence. The credential must be valid, so a Holder never holds a kind
// RefreshToken and IsExpired cannot handle.
func NewHolder(cred Credential, path string) (*Holder, error) {
	if err := cred.Validate(); err != nil {
		return nil, fmt.Errorf("invalid credential: %w", err)
	}
	return &Holder{cred: cred, path: path, perms: 0o600}, nil
}

// Current returns the credential and its generation
func (h *Holder) Current() (Credential, uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cred, h.gen
}

// Generation returns the current generation
func (h *Holder) Generation() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.gen
}

// Renew writes cred to disk and then makes it current. A failed write still
// swaps the credential in memory, since the old refresh token has been
// consumed by the broker; the write error is returned for reporting.
func (h *Holder) Renew(cred Credential) error {
	if err := cred.Validate(); err != nil {
		return fmt.Errorf("refusing to store credential: %w", err)
	}

	var saveErr error
	if h.path != "" {
		saveErr = SaveFile(h.path, cred, h.perms)
	}

	h.mu.Lock()
	h.cred = cred
	h.gen++
	h.mu.Unlock()

	return saveErr
}

// LoadFile reads a credential saved by SaveFile
func LoadFile(path string) (Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to read credential file: %w", err)
	}
	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return Credential{}, fmt.Errorf("failed to parse credential file %s: %w", path, err)
	}
	return cred, nil
}

// Load returns a refresh-only credential when override is set, otherwise the
// credential saved at path
func Load(path, override string) (Credential, error) {
	if override != "" {
		return FromRefreshToken(override), nil
	}
	return LoadFile(path)
}

// SaveFile atomically replaces the credential file at path
func SaveFile(path string, cred Credential, perms os.FileMode) error {
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}
	return WriteFileAtomic(path, data, perms)
}

// WriteFileAtomic writes data to a temp file beside path and renames it over
// path, so readers see either the old or the new contents
func WriteFileAtomic(path string, data []byte, perms os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perms); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
