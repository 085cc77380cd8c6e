// Package api serves the demo's HTTP surface: server-rendered pages with
// the original route/redirect semantics, and a JSON API for the CLI and
// the in-page scripts.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/kieview/internal/export"
	"github.com/kalambet/kieview/internal/mock"
	"github.com/kalambet/kieview/internal/model"
	"github.com/kalambet/kieview/internal/store"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps holds handler dependencies.
type Deps struct {
	Store   *store.Store
	Viewers *ViewerRegistry
}

// NewHandler builds the full router: pages at the original paths, JSON
// endpoints under /api.
func NewHandler(deps Deps) http.Handler {
	if deps.Viewers == nil {
		deps.Viewers = NewViewerRegistry(deps.Store)
	}

	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	// Pages. Unauthenticated access to any non-login page redirects to
	// /login; authenticated access to /login redirects to /dashboard.
	r.Get("/login", handleLoginPage(deps))
	r.Get("/dashboard", requireUser(deps, handleDashboardPage(deps)))
	r.Get("/batch/{batchID}", requireUser(deps, handleBatchPage(deps)))
	r.Get("/batch/{batchID}/{docID}", requireUser(deps, handleBatchPage(deps)))
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})

	// JSON API.
	r.Route("/api", func(r chi.Router) {
		r.Get("/session", handleGetSession(deps))
		r.Post("/session", handleLogin(deps))
		r.Delete("/session", handleLogout(deps))

		r.Get("/batches", handleListBatches(deps))
		r.Post("/batches", handleCreateBatch(deps))
		r.Get("/batches/{batchID}", handleGetBatch(deps))
		r.Patch("/batches/{batchID}", handlePatchBatch(deps))
		r.Delete("/batches/{batchID}", handleDeleteBatch(deps))
		r.Post("/batches/{batchID}/rerun", handleRerunBatch(deps))
		r.Get("/batches/{batchID}/export", handleExportBatch(deps))
		r.Get("/batches/{batchID}/export/{docID}", handleExportDocument(deps))

		mountViewerRoutes(r, deps)
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// --- session ---

func handleGetSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := deps.Store.User()
		if user == nil {
			httpError(w, http.StatusUnauthorized, "not_logged_in", "no user is logged in")
			return
		}
		writeJSON(w, user)
	}
}

func handleLogin(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req model.User
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if err := deps.Store.Login(req.Email); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		writeJSON(w, model.User{Email: req.Email})
	}
}

func handleLogout(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Store.Logout(); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to log out: %v", err)
			return
		}
		writeJSON(w, map[string]string{"status": "logged_out"})
	}
}

// --- batches ---

func handleListBatches(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batches := deps.Store.Batches()
		if batches == nil {
			batches = []model.Batch{}
		}
		writeJSON(w, batches)
	}
}

// CreateBatchRequest is the wizard-completion payload. Documents are
// generated server-side from the configuration, mirroring the original
// wizards' mock upload step.
type CreateBatchRequest struct {
	Name             string                  `json:"name"`
	Type             model.BatchType         `json:"type"`
	DocumentType     string                  `json:"documentType"`
	Model            model.ExtractionModel   `json:"model"`
	ProcessingMethod model.ProcessingMethod  `json:"processingMethod,omitempty"`
	CustomFields     []model.CustomField     `json:"customFields,omitempty"`
	CustomPrompt     string                  `json:"customPrompt,omitempty"`
	DocumentCount    int                     `json:"documentCount,omitempty"`
	ProcessingCount  int                     `json:"processingCount,omitempty"`
}

func handleCreateBatch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req CreateBatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		draft := model.Batch{
			Name:             req.Name,
			Type:             req.Type,
			DocumentType:     req.DocumentType,
			Model:            req.Model,
			ProcessingMethod: req.ProcessingMethod,
			CustomFields:     req.CustomFields,
			CustomPrompt:     req.CustomPrompt,
		}
		if draft.Type == model.BatchCustom && draft.DocumentType == "" {
			draft.DocumentType = "Custom Document"
		}
		if err := model.Validate(draft); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		count := req.DocumentCount
		if count <= 0 {
			count = 10
		}
		processing := req.ProcessingCount
		if processing < 0 {
			processing = 0
		}
		draft.Documents = mock.Documents(mock.ConfigFor(draft), count, processing, timeNow(), "")

		batch, err := deps.Store.AddBatch(draft)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to create batch: %v", err)
			return
		}
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, batch)
	}
}

func handleGetBatch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batch, err := deps.Store.Batch(chi.URLParam(r, "batchID"))
		if errors.Is(err, store.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "batch not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get batch: %v", err)
			return
		}
		writeJSON(w, batch)
	}
}

func handlePatchBatch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		id := chi.URLParam(r, "batchID")

		var patch store.BatchPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		if _, err := deps.Store.Batch(id); errors.Is(err, store.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "batch not found")
			return
		}
		if err := deps.Store.UpdateBatch(id, patch); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to update batch: %v", err)
			return
		}
		deps.Viewers.Drop(id)

		batch, err := deps.Store.Batch(id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to reload batch: %v", err)
			return
		}
		writeJSON(w, batch)
	}
}

func handleDeleteBatch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "batchID")
		if err := deps.Store.DeleteBatch(id); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete batch: %v", err)
			return
		}
		deps.Viewers.Drop(id)
		writeJSON(w, map[string]string{"status": "deleted"})
	}
}

// handleRerunBatch applies an optional configuration patch, then
// regenerates every document deterministically from the batch's (possibly
// updated) configuration — the configure-wizard completion path.
func handleRerunBatch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		id := chi.URLParam(r, "batchID")

		var patch store.BatchPatch
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
				return
			}
		}
		// Documents are always regenerated; a caller-supplied documents
		// field would be overwritten anyway.
		patch.Documents = nil

		batch, err := deps.Store.Batch(id)
		if errors.Is(err, store.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "batch not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get batch: %v", err)
			return
		}

		preview := batch
		applyPreview(&preview, patch)
		if err := model.Validate(preview); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		count := len(batch.Documents)
		if count == 0 {
			count = 10
		}
		docs := mock.Documents(mock.ConfigFor(preview), count, 0, timeNow(), "")
		patch.Documents = &docs

		if err := deps.Store.UpdateBatch(id, patch); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to update batch: %v", err)
			return
		}
		deps.Viewers.Drop(id)

		updated, err := deps.Store.Batch(id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to reload batch: %v", err)
			return
		}
		writeJSON(w, updated)
	}
}

// applyPreview merges the config portion of a patch into a copy so it can
// be validated before the store mutates anything.
func applyPreview(b *model.Batch, p store.BatchPatch) {
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
}

// --- export ---

func handleExportBatch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batch, err := deps.Store.Batch(chi.URLParam(r, "batchID"))
		if errors.Is(err, store.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "batch not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get batch: %v", err)
			return
		}

		format := r.URL.Query().Get("format")
		if format == "" {
			format = "csv"
		}

		switch format {
		case "csv":
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(batch, "csv")))
			err = export.CSV(w, batch)
		case "xlsx":
			w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(batch, "xlsx")))
			err = export.Excel(w, batch)
		default:
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown format %q", format)
			return
		}

		if errors.Is(err, export.ErrNoData) {
			// Headers for the download were set but nothing was written;
			// surface the warning instead of an empty file.
			w.Header().Del("Content-Disposition")
			httpError(w, http.StatusConflict, "no_data", "no completed documents to export")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "export failed: %v", err)
		}
	}
}

func handleExportDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batch, err := deps.Store.Batch(chi.URLParam(r, "batchID"))
		if errors.Is(err, store.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "batch not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get batch: %v", err)
			return
		}

		i := batch.DocumentByID(chi.URLParam(r, "docID"))
		if i < 0 {
			httpError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}
		doc := batch.Documents[i]

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.DocumentFilename(batch, doc)))
		err = export.Document(w, doc)
		if errors.Is(err, export.ErrNoData) {
			w.Header().Del("Content-Disposition")
			httpError(w, http.StatusConflict, "no_data", "no data to export")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "export failed: %v", err)
		}
	}
}
