package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kalambet/kieview/internal/model"
)

// ErrNotFound is returned when a requested key does not exist.
var ErrNotFound = errors.New("not found")

// ErrCorrupt is returned when a stored payload fails to deserialize. The
// application store treats it as "absent" and falls back to defaults; it is
// never surfaced to views.
var ErrCorrupt = errors.New("corrupt payload")

// Setting keys mirror the original demo's local-storage layout.
const (
	keyUserEmail = "userEmail"
	keyBatches   = "batches"
)

// Get returns the raw value stored under key.
func (s *Store) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// Set upserts the value stored under key.
func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	_, err := s.db.Exec("DELETE FROM settings WHERE key = ?", key)
	return err
}

// LoadUser returns the logged-in user marker, or ErrNotFound when logged out.
func (s *Store) LoadUser() (model.User, error) {
	email, err := s.Get(keyUserEmail)
	if err != nil {
		return model.User{}, err
	}
	return model.User{Email: email}, nil
}

// SaveUser writes the logged-in user marker.
func (s *Store) SaveUser(u model.User) error {
	return s.Set(keyUserEmail, u.Email)
}

// ClearUser removes the logged-in user marker.
func (s *Store) ClearUser() error {
	return s.Delete(keyUserEmail)
}

// LoadBatches deserializes the stored batch collection. Returns ErrNotFound
// when nothing has been persisted yet and ErrCorrupt when the payload does
// not parse; dates come back with at least millisecond fidelity (RFC 3339
// nanosecond encoding on the wire).
func (s *Store) LoadBatches() ([]model.Batch, error) {
	raw, err := s.Get(keyBatches)
	if err != nil {
		return nil, err
	}
	var batches []model.Batch
	if err := json.Unmarshal([]byte(raw), &batches); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return batches, nil
}

// SaveBatches serializes the full batch collection. The application store
// calls this synchronously after every mutation (write-through).
func (s *Store) SaveBatches(batches []model.Batch) error {
	if batches == nil {
		batches = []model.Batch{}
	}
	raw, err := json.Marshal(batches)
	if err != nil {
		return fmt.Errorf("serializing batches: %w", err)
	}
	return s.Set(keyBatches, string(raw))
}
