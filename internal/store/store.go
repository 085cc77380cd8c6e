// Package store is the in-memory source of truth for the current user and
// the batch collection. Views never touch durable storage directly; every
// read goes through this package's accessors and every mutation through its
// command methods, each of which synchronously re-serializes the collection
// to the persistence layer before returning (write-through).
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/kieview/internal/model"
	"github.com/kalambet/kieview/internal/storage"
)

// ErrNotFound is returned when a batch id does not resolve.
var ErrNotFound = errors.New("batch not found")

// Persister is the durable mirror the store writes through to.
type Persister interface {
	LoadUser() (model.User, error)
	SaveUser(model.User) error
	ClearUser() error
	LoadBatches() ([]model.Batch, error)
	SaveBatches([]model.Batch) error
}

// Store owns the batch collection. Construct exactly one per process via
// Open and share it; it is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	db      Persister
	now     func() time.Time
	newID   func() string
	user    *model.User
	batches []model.Batch
}

// Open loads persisted state from db and merges in the demo dataset: any
// demo batch whose id is absent from the loaded set is appended. The merge
// is idempotent and never overwrites a user-modified batch that shares a
// demo id. Absent or corrupt payloads fall back to the demo set entirely;
// corruption is logged, never surfaced.
func Open(db Persister, demo []model.Batch) (*Store, error) {
	s := &Store{
		db:    db,
		now:   time.Now,
		newID: func() string { return "batch-" + uuid.New().String() },
	}

	batches, err := db.LoadBatches()
	switch {
	case errors.Is(err, storage.ErrNotFound):
		batches = cloneAll(demo)
	case errors.Is(err, storage.ErrCorrupt):
		slog.Warn("discarding unreadable batch payload", "error", err)
		batches = cloneAll(demo)
	case err != nil:
		return nil, fmt.Errorf("loading batches: %w", err)
	default:
		batches = mergeDemo(batches, demo)
	}
	s.batches = batches

	// Flush the merged snapshot so a restart before the first mutation
	// still sees the demo set.
	if err := db.SaveBatches(s.batches); err != nil {
		return nil, fmt.Errorf("persisting merged batches: %w", err)
	}

	user, err := db.LoadUser()
	switch {
	case errors.Is(err, storage.ErrNotFound):
		// Logged out.
	case err != nil:
		return nil, fmt.Errorf("loading user: %w", err)
	default:
		s.user = &user
	}

	return s, nil
}

func mergeDemo(loaded, demo []model.Batch) []model.Batch {
	seen := make(map[string]bool, len(loaded))
	for _, b := range loaded {
		seen[b.ID] = true
	}
	out := loaded
	for _, d := range demo {
		if !seen[d.ID] {
			out = append(out, d.Clone())
		}
	}
	return out
}

func cloneAll(batches []model.Batch) []model.Batch {
	out := make([]model.Batch, len(batches))
	for i, b := range batches {
		out[i] = b.Clone()
	}
	return out
}

// User returns the logged-in user, or nil.
func (s *Store) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Login records email as the current user and persists the marker. Any
// non-empty email is accepted; format checking belongs to the form layer.
func (s *Store) Login(email string) error {
	if strings.TrimSpace(email) == "" {
		return errors.New("email is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := model.User{Email: email}
	if err := s.db.SaveUser(u); err != nil {
		return fmt.Errorf("persisting user: %w", err)
	}
	s.user = &u
	return nil
}

// Logout clears the current user and removes the durable marker.
func (s *Store) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.ClearUser(); err != nil {
		return fmt.Errorf("clearing user: %w", err)
	}
	s.user = nil
	return nil
}

// Batches returns the collection in canonical order (insertion order with
// newest additions first).
func (s *Store) Batches() []model.Batch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.batches)
}

// Batch returns the batch with the given id, or ErrNotFound. It never
// mutates state.
func (s *Store) Batch(id string) (model.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.batches {
		if b.ID == id {
			return b.Clone(), nil
		}
	}
	return model.Batch{}, ErrNotFound
}

// AddBatch assigns a fresh id and timestamps to draft, prepends it to the
// collection, persists, and returns the stored batch. The draft's own id
// and dates are ignored.
func (s *Store) AddBatch(draft model.Batch) (model.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := draft.Clone()
	b.ID = s.newID()
	now := s.now()
	b.CreatedDate = now
	b.ModifiedDate = now

	s.batches = append([]model.Batch{b}, s.batches...)
	if err := s.persistLocked(); err != nil {
		return model.Batch{}, err
	}
	return b.Clone(), nil
}

// BatchPatch is a shallow-merge update: nil fields leave the stored value
// untouched, non-nil fields overwrite it (a pointer to an empty value
// clears explicitly). Absent key and explicit null both decode to nil and
// are therefore both "untouched".
type BatchPatch struct {
	Name             *string                 `json:"name"`
	Type             *model.BatchType        `json:"type"`
	DocumentType     *string                 `json:"documentType"`
	Model            *model.ExtractionModel  `json:"model"`
	ProcessingMethod *model.ProcessingMethod `json:"processingMethod"`
	CustomFields     *[]model.CustomField    `json:"customFields"`
	CustomPrompt     *string                 `json:"customPrompt"`
	Documents        *[]model.Document       `json:"documents"`
}

// UpdateBatch merges patch into the batch with the given id and bumps its
// modifiedDate. An unknown id is a no-op, not an error.
func (s *Store) UpdateBatch(id string, patch BatchPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.batches {
		if s.batches[i].ID != id {
			continue
		}
		applyPatch(&s.batches[i], patch)
		s.batches[i].ModifiedDate = s.now()
		return s.persistLocked()
	}
	return nil
}

func applyPatch(b *model.Batch, p BatchPatch) {
	if p.Name != nil {
		b.Name = *p.Name
	}
	if p.Type != nil {
		b.Type = *p.Type
	}
	if p.DocumentType != nil {
		b.DocumentType = *p.DocumentType
	}
	if p.Model != nil {
		b.Model = *p.Model
	}
	if p.ProcessingMethod != nil {
		b.ProcessingMethod = *p.ProcessingMethod
	}
	if p.CustomFields != nil {
		b.CustomFields = *p.CustomFields
	}
	if p.CustomPrompt != nil {
		b.CustomPrompt = *p.CustomPrompt
	}
	if p.Documents != nil {
		b.Documents = *p.Documents
	}
}

// DeleteBatch removes the batch with the given id and, with it, all its
// documents. An unknown id is a no-op.
func (s *Store) DeleteBatch(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.batches {
		if s.batches[i].ID == id {
			s.batches = append(s.batches[:i], s.batches[i+1:]...)
			return s.persistLocked()
		}
	}
	return nil
}

// persistLocked re-serializes the whole collection. Small scale (tens of
// batches, each with at most 50 documents) makes the full rewrite cheap
// enough to buy crash safety on every mutation.
func (s *Store) persistLocked() error {
	if err := s.db.SaveBatches(s.batches); err != nil {
		return fmt.Errorf("persisting batches: %w", err)
	}
	return nil
}
