package storage

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/kieview/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenRunsMigrations(t *testing.T) {
	s := newTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("applied migrations: %v", err)
	}
	if len(versions) == 0 {
		t.Fatal("expected at least one applied migration")
	}
	if versions[0] != 1 {
		t.Errorf("first version = %d, want 1", versions[0])
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := s1.Set("userEmail", "john.doe@company.com"); err != nil {
		t.Fatalf("set: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s2.Close()

	got, err := s2.Get("userEmail")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got != "john.doe@company.com" {
		t.Errorf("value = %q, want %q", got, "john.doe@company.com")
	}

	versions, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("applied migrations: %v", err)
	}
	seen := map[int]bool{}
	for _, v := range versions {
		if seen[v] {
			t.Errorf("migration %d applied twice", v)
		}
		seen[v] = true
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get missing key: error = %v, want ErrNotFound", err)
	}

	if err := s.Set("k", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set("k", "v2"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := s.Get("k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "v2" {
		t.Errorf("value = %q, want %q", got, "v2")
	}

	if err := s.Delete("k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete: error = %v, want ErrNotFound", err)
	}

	// Deleting an absent key is fine.
	if err := s.Delete("k"); err != nil {
		t.Errorf("deleting absent key: %v", err)
	}
}

func TestUserRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.LoadUser(); !errors.Is(err, ErrNotFound) {
		t.Errorf("load before save: error = %v, want ErrNotFound", err)
	}

	if err := s.SaveUser(model.User{Email: "jane.smith@company.com"}); err != nil {
		t.Fatalf("save user: %v", err)
	}
	u, err := s.LoadUser()
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if u.Email != "jane.smith@company.com" {
		t.Errorf("email = %q", u.Email)
	}

	if err := s.ClearUser(); err != nil {
		t.Fatalf("clear user: %v", err)
	}
	if _, err := s.LoadUser(); !errors.Is(err, ErrNotFound) {
		t.Errorf("load after clear: error = %v, want ErrNotFound", err)
	}
}

func TestBatchesRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.LoadBatches(); !errors.Is(err, ErrNotFound) {
		t.Errorf("load before save: error = %v, want ErrNotFound", err)
	}

	created := time.Date(2024, 1, 15, 10, 30, 0, 123_000_000, time.UTC)
	processed := created.Add(2 * time.Hour)
	result := model.NewStructuredResult([]model.FieldValue{
		{Name: "totalAmount", Value: model.StringValue("$120.00")},
	})
	batches := []model.Batch{
		{
			ID:           "batch-1",
			Name:         "Expense Receipts",
			Type:         model.BatchPretrained,
			DocumentType: "Receipt",
			Model:        model.ModelFlagship,
			CreatedDate:  created,
			ModifiedDate: created,
			Documents: []model.Document{
				{
					ID:            "batch-1-doc-001",
					Filename:      "receipt_target_20240115.jpg",
					FileType:      "jpg",
					FileSize:      1_200_000,
					Status:        model.StatusCompleted,
					UploadDate:    created,
					ProcessedDate: &processed,
					ExtractedData: &result,
					DocumentType:  "Receipt",
				},
			},
		},
	}

	if err := s.SaveBatches(batches); err != nil {
		t.Fatalf("save batches: %v", err)
	}
	loaded, err := s.LoadBatches()
	if err != nil {
		t.Fatalf("load batches: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(loaded))
	}

	b := loaded[0]
	if b.ID != "batch-1" || b.Name != "Expense Receipts" {
		t.Errorf("identity lost: %+v", b)
	}
	if !b.CreatedDate.Equal(created) {
		t.Errorf("created date = %v, want %v (sub-second fidelity)", b.CreatedDate, created)
	}
	doc := b.Documents[0]
	if doc.ProcessedDate == nil || !doc.ProcessedDate.Equal(processed) {
		t.Errorf("processed date = %v, want %v", doc.ProcessedDate, processed)
	}
	if doc.ExtractedData == nil {
		t.Fatal("extracted data lost")
	}
	val, ok := doc.ExtractedData.Field("totalAmount")
	if !ok || val.Display() != "$120.00" {
		t.Errorf("extracted field = %v, %v", val, ok)
	}
}

func TestSaveBatchesNilBecomesEmpty(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveBatches(nil); err != nil {
		t.Fatalf("save nil: %v", err)
	}
	loaded, err := s.LoadBatches()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected empty collection, got %d", len(loaded))
	}

	raw, err := s.Get("batches")
	if err != nil {
		t.Fatalf("raw get: %v", err)
	}
	if strings.TrimSpace(raw) != "[]" {
		t.Errorf("raw payload = %q, want []", raw)
	}
}

func TestLoadBatchesCorrupt(t *testing.T) {
	s := newTestStore(t)

	if err := s.Set("batches", "{definitely not json"); err != nil {
		t.Fatalf("set: %v", err)
	}
	_, err := s.LoadBatches()
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("error = %v, want ErrCorrupt", err)
	}
}
