package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/kieview/internal/mock"
	"github.com/kalambet/kieview/internal/model"
	"github.com/kalambet/kieview/internal/storage"
	"github.com/kalambet/kieview/internal/store"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T, demo []model.Batch) (http.Handler, *store.Store) {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	st, err := store.Open(db, demo)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	return NewHandler(Deps{Store: st}), st
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshalling body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, h http.Handler) {
	t.Helper()
	w := doJSON(t, h, "POST", "/api/session", map[string]string{"email": "john.doe@company.com"})
	if w.Code != 200 {
		t.Fatalf("login failed: %d %s", w.Code, w.Body.String())
	}
}

// --- redirects ---

func TestPageRedirects(t *testing.T) {
	h, st := newTestHandler(t, mock.DemoBatches(testNow))

	tests := []struct {
		name     string
		loggedIn bool
		path     string
		wantLoc  string
	}{
		{"unauthenticated dashboard", false, "/dashboard", "/login"},
		{"unauthenticated batch", false, "/batch/batch-1", "/login"},
		{"unauthenticated root", false, "/", "/dashboard"},
		{"authenticated login page", true, "/login", "/dashboard"},
		{"authenticated unknown path", true, "/nowhere", "/dashboard"},
		{"authenticated root", true, "/", "/dashboard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.loggedIn {
				login(t, h)
			} else if err := st.Logout(); err != nil {
				t.Fatalf("logout: %v", err)
			}

			w := doJSON(t, h, "GET", tt.path, nil)
			if w.Code != http.StatusFound {
				t.Fatalf("status = %d, want 302", w.Code)
			}
			if got := w.Header().Get("Location"); got != tt.wantLoc {
				t.Errorf("redirect = %q, want %q", got, tt.wantLoc)
			}
		})
	}
}

func TestLoginPageRenders(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	w := doJSON(t, h, "GET", "/login", nil)
	if w.Code != 200 {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "john.doe@company.com") {
		t.Error("login page should offer the demo emails")
	}
}

func TestDashboardRenders(t *testing.T) {
	h, _ := newTestHandler(t, mock.DemoBatches(testNow))
	login(t, h)

	w := doJSON(t, h, "GET", "/dashboard", nil)
	if w.Code != 200 {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, name := range []string{"International Travel Documents", "Q1 2024 Invoices", "Long Receipts"} {
		if !strings.Contains(body, name) {
			t.Errorf("dashboard missing batch %q", name)
		}
	}
}

func TestDashboardSortsByName(t *testing.T) {
	h, _ := newTestHandler(t, mock.DemoBatches(testNow))
	login(t, h)

	w := doJSON(t, h, "GET", "/dashboard?sort=name-asc", nil)
	body := w.Body.String()
	first := strings.Index(body, "2023 Tax Returns")
	last := strings.Index(body, "Q1 2024 Invoices")
	if first < 0 || last < 0 || first > last {
		t.Errorf("name-asc sort order wrong: %d vs %d", first, last)
	}
}

func TestBatchPageNotFound(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	login(t, h)

	w := doJSON(t, h, "GET", "/batch/ghost", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Return to Dashboard") {
		t.Error("not-found page should offer the dashboard recovery link")
	}
}

func TestBatchPageRendersTransform(t *testing.T) {
	h, _ := newTestHandler(t, mock.DemoBatches(testNow))
	login(t, h)

	viewerPost(t, h, "batch-1", "zoom-in", nil)

	w := doJSON(t, h, "GET", "/batch/batch-1/batch-1-doc-001", nil)
	if w.Code != 200 {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "scale(1.25)") {
		t.Error("page missing the zoomed transform")
	}
	if strings.Contains(body, "ZgotmplZ") {
		t.Error("transform was rejected by the template sanitizer")
	}
}

func TestBatchPagePagerIsOneBased(t *testing.T) {
	h, _ := newTestHandler(t, mock.DemoBatches(testNow))
	login(t, h)

	w := doJSON(t, h, "GET", "/batch/batch-1/batch-1-doc-001", nil)
	if w.Code != 200 {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Document 1 of 10") {
		t.Error("pager should count documents from one")
	}
}

func TestBatchPageWiresGestures(t *testing.T) {
	h, _ := newTestHandler(t, mock.DemoBatches(testNow))
	login(t, h)

	w := doJSON(t, h, "GET", "/batch/batch-1/batch-1-doc-001", nil)
	if w.Code != 200 {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, hook := range []string{"pointerdown", "pointermove", "pointerup", "'/bounds'", "'/pointer'"} {
		if !strings.Contains(body, hook) {
			t.Errorf("page script missing %s wiring", hook)
		}
	}
}

// --- session ---

func TestSessionLifecycle(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	w := doJSON(t, h, "GET", "/api/session", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status before login = %d, want 401", w.Code)
	}

	w = doJSON(t, h, "POST", "/api/session", map[string]string{"email": "jane.smith@company.com"})
	if w.Code != 200 {
		t.Fatalf("login status = %d", w.Code)
	}

	w = doJSON(t, h, "GET", "/api/session", nil)
	if w.Code != 200 {
		t.Fatalf("status after login = %d", w.Code)
	}
	var user model.User
	if err := json.Unmarshal(w.Body.Bytes(), &user); err != nil {
		t.Fatalf("decoding user: %v", err)
	}
	if user.Email != "jane.smith@company.com" {
		t.Errorf("email = %q", user.Email)
	}

	w = doJSON(t, h, "DELETE", "/api/session", nil)
	if w.Code != 200 {
		t.Fatalf("logout status = %d", w.Code)
	}
	w = doJSON(t, h, "GET", "/api/session", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status after logout = %d, want 401", w.Code)
	}
}

func TestLoginRejectsBlankEmail(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	w := doJSON(t, h, "POST", "/api/session", map[string]string{"email": "   "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// --- batches ---

func TestCreateAndGetBatch(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	w := doJSON(t, h, "POST", "/api/batches", CreateBatchRequest{
		Name:          "Q2 Invoices",
		Type:          model.BatchPretrained,
		DocumentType:  "Invoice",
		Model:         model.ModelFlagship,
		DocumentCount: 4,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}

	var created model.Batch
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding batch: %v", err)
	}
	if created.ID == "" {
		t.Fatal("created batch has no id")
	}
	if len(created.Documents) != 4 {
		t.Errorf("documents = %d, want 4", len(created.Documents))
	}
	if !created.CreatedDate.Equal(created.ModifiedDate) {
		t.Error("fresh batch should have createdDate == modifiedDate")
	}

	w = doJSON(t, h, "GET", "/api/batches/"+created.ID, nil)
	if w.Code != 200 {
		t.Fatalf("get status = %d", w.Code)
	}

	w = doJSON(t, h, "GET", "/api/batches", nil)
	var list []model.Batch
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(list) != 1 || list[0].ID != created.ID {
		t.Errorf("list = %d batches", len(list))
	}
}

func TestCreateBatchValidation(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	w := doJSON(t, h, "POST", "/api/batches", CreateBatchRequest{
		Name:         "",
		Type:         model.BatchPretrained,
		DocumentType: "Invoice",
		Model:        model.ModelFlagship,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if errResp.Error.Type != "invalid_request_error" {
		t.Errorf("error type = %q", errResp.Error.Type)
	}
	if !strings.Contains(errResp.Error.Message, "name is required") {
		t.Errorf("error message = %q", errResp.Error.Message)
	}
}

func TestPatchBatchRename(t *testing.T) {
	h, _ := newTestHandler(t, mock.DemoBatches(testNow))

	w := doJSON(t, h, "PATCH", "/api/batches/batch-1", map[string]any{"name": "Renamed"})
	if w.Code != 200 {
		t.Fatalf("patch status = %d: %s", w.Code, w.Body.String())
	}
	var updated model.Batch
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if updated.Name != "Renamed" {
		t.Errorf("name = %q", updated.Name)
	}
	if updated.DocumentType != "Passport" {
		t.Errorf("untouched field changed: %q", updated.DocumentType)
	}
}

func TestPatchUnknownBatch(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	w := doJSON(t, h, "PATCH", "/api/batches/ghost", map[string]any{"name": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDeleteBatch(t *testing.T) {
	h, _ := newTestHandler(t, mock.DemoBatches(testNow))

	w := doJSON(t, h, "DELETE", "/api/batches/batch-3", nil)
	if w.Code != 200 {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = doJSON(t, h, "GET", "/api/batches/batch-3", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}

	// Unknown-id deletes stay silent.
	w = doJSON(t, h, "DELETE", "/api/batches/batch-3", nil)
	if w.Code != 200 {
		t.Errorf("second delete = %d, want 200", w.Code)
	}
}

func TestRerunBatch(t *testing.T) {
	h, _ := newTestHandler(t, mock.DemoBatches(testNow))

	w := doJSON(t, h, "GET", "/api/batches/batch-2", nil)
	var before model.Batch
	if err := json.Unmarshal(w.Body.Bytes(), &before); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if before.Stats().Processing == 0 {
		t.Fatal("fixture expectation: batch-2 starts with processing documents")
	}

	w = doJSON(t, h, "POST", "/api/batches/batch-2/rerun", nil)
	if w.Code != 200 {
		t.Fatalf("rerun status = %d: %s", w.Code, w.Body.String())
	}
	var after model.Batch
	if err := json.Unmarshal(w.Body.Bytes(), &after); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(after.Documents) != len(before.Documents) {
		t.Errorf("document count changed: %d -> %d", len(before.Documents), len(after.Documents))
	}
	if after.Stats().Processing != 0 {
		t.Errorf("rerun left %d documents processing", after.Stats().Processing)
	}
}

func TestRerunWithConfigPatch(t *testing.T) {
	h, _ := newTestHandler(t, mock.DemoBatches(testNow))

	w := doJSON(t, h, "POST", "/api/batches/batch-1/rerun", map[string]any{"documentType": "Receipt"})
	if w.Code != 200 {
		t.Fatalf("rerun status = %d: %s", w.Code, w.Body.String())
	}
	var after model.Batch
	if err := json.Unmarshal(w.Body.Bytes(), &after); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if after.DocumentType != "Receipt" {
		t.Errorf("documentType = %q", after.DocumentType)
	}
	for _, d := range after.Documents {
		if d.DocumentType != "Receipt" {
			t.Errorf("document still typed %q", d.DocumentType)
			break
		}
	}
}

// --- export ---

func TestExportCSV(t *testing.T) {
	h, _ := newTestHandler(t, mock.DemoBatches(testNow))

	req := httptest.NewRequest("GET", "/api/batches/batch-1/export?format=csv", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "International_Travel_Documents.csv") {
		t.Errorf("content disposition = %q", cd)
	}
	if !strings.Contains(w.Body.String(), "documentNumber") {
		t.Error("csv missing passport columns")
	}
}

func TestExportXLSX(t *testing.T) {
	h, _ := newTestHandler(t, mock.DemoBatches(testNow))

	req := httptest.NewRequest("GET", "/api/batches/batch-1/export?format=xlsx", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("content type = %q", ct)
	}
	// xlsx files are zip archives.
	if body := w.Body.Bytes(); len(body) < 4 || body[0] != 'P' || body[1] != 'K' {
		t.Error("body does not look like a zip archive")
	}
}

func TestExportNoCompletedDocuments(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	w := doJSON(t, h, "POST", "/api/batches", CreateBatchRequest{
		Name:            "All Processing",
		Type:            model.BatchPretrained,
		DocumentType:    "Passport",
		Model:           model.ModelFlagship,
		DocumentCount:   3,
		ProcessingCount: 3,
	})
	var created model.Batch
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding: %v", err)
	}

	// Strip the always-completed first document so nothing is exportable.
	rest := created.Documents[1:]
	w = doJSON(t, h, "PATCH", "/api/batches/"+created.ID, map[string]any{"documents": rest})
	if w.Code != 200 {
		t.Fatalf("patch status = %d", w.Code)
	}

	w = doJSON(t, h, "GET", fmt.Sprintf("/api/batches/%s/export?format=csv", created.ID), nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	if !strings.Contains(w.Body.String(), "no completed documents") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestExportUnknownFormat(t *testing.T) {
	h, _ := newTestHandler(t, mock.DemoBatches(testNow))
	w := doJSON(t, h, "GET", "/api/batches/batch-1/export?format=pdf", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestExportSingleDocument(t *testing.T) {
	h, st := newTestHandler(t, mock.DemoBatches(testNow))

	batch, err := st.Batch("batch-1")
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	docID := batch.Documents[0].ID

	w := doJSON(t, h, "GET", "/api/batches/batch-1/export/"+docID, nil)
	if w.Code != 200 {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), batch.Documents[0].Filename) {
		t.Error("csv missing the document's filename")
	}
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	w := doJSON(t, h, "GET", "/health", nil)
	if w.Code != 200 {
		t.Errorf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ok") {
		t.Errorf("body = %s", w.Body.String())
	}
}
