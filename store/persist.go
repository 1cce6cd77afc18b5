package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/credosafe/credosafe-go/client"
)

// snapshot is the persisted subset of the state. The allow-list is explicit:
// transient flags (IsLoading, Error) and notifications are never written, so
// a restart restores the session without restoring stale loading state.
type snapshot struct {
	Auth struct {
		User             *client.UserProfile `json:"user"`
		Token            string              `json:"token"`
		SecuritySettings SecuritySettings    `json:"security_settings"`
		LoginHistory     []LoginRecord       `json:"login_history"`
	} `json:"auth"`
	Vouchers struct {
		Items []client.Voucher `json:"items"`
	} `json:"vouchers"`
}

// Persist writes the allow-listed snapshot to the configured path.
func (s *Store) Persist() error {
	if s.persistPath == "" {
		return fmt.Errorf("no persist path configured")
	}

	s.mu.Lock()
	var snap snapshot
	snap.Auth.User = s.state.Auth.User
	snap.Auth.Token = s.state.Auth.Token
	snap.Auth.SecuritySettings = s.state.Auth.SecuritySettings
	snap.Auth.LoginHistory = s.state.Auth.LoginHistory
	snap.Vouchers.Items = s.state.Vouchers.Items
	s.mu.Unlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.persistPath), 0o700); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	if err := os.WriteFile(s.persistPath, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Restore rehydrates the persisted slices. A missing snapshot is not an
// error; the store simply starts empty. IsAuthenticated is re-derived from
// the restored token, never read from disk.
func (s *Store) Restore() error {
	if s.persistPath == "" {
		return fmt.Errorf("no persist path configured")
	}

	data, err := os.ReadFile(s.persistPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}

	s.mu.Lock()
	s.state.Auth.User = snap.Auth.User
	s.state.Auth.Token = snap.Auth.Token
	s.state.Auth.IsAuthenticated = snap.Auth.Token != ""
	s.state.Auth.SecuritySettings = snap.Auth.SecuritySettings
	s.state.Auth.LoginHistory = snap.Auth.LoginHistory
	s.state.Vouchers.Items = snap.Vouchers.Items
	s.state.Auth.IsLoading = false
	s.state.Auth.Error = ""
	s.mu.Unlock()

	return nil
}
