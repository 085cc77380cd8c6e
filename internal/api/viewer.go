package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/kieview/internal/model"
	"github.com/kalambet/kieview/internal/store"
	"github.com/kalambet/kieview/internal/viewer"
)

// timeNow is swapped in tests.
var timeNow = time.Now

// ViewerRegistry keeps one viewer controller per open batch so view state
// (document index, zoom, pan, split) survives across requests. Controllers
// are dropped whenever their batch changes underneath them.
type ViewerRegistry struct {
	mu    sync.Mutex
	store *store.Store
	open  map[string]*viewer.Controller
}

// NewViewerRegistry builds an empty registry backed by the store.
func NewViewerRegistry(s *store.Store) *ViewerRegistry {
	return &ViewerRegistry{store: s, open: make(map[string]*viewer.Controller)}
}

// Get returns the live controller for batchID, opening one positioned at
// docID if none exists. A batch id that does not resolve yields the
// terminal not-found controller, which is not cached so a later re-created
// batch opens fresh.
func (reg *ViewerRegistry) Get(batchID, docID string) *viewer.Controller {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if c, ok := reg.open[batchID]; ok {
		return c
	}
	batch, err := reg.store.Batch(batchID)
	if errors.Is(err, store.ErrNotFound) {
		return viewer.NewNotFound(batchID)
	}
	if err != nil {
		return viewer.NewNotFound(batchID)
	}
	c := viewer.New(batch, docID)
	reg.open[batchID] = c
	return c
}

// Drop discards the controller for batchID. Called after any mutation of
// the batch so the next view opens over current documents.
func (reg *ViewerRegistry) Drop(batchID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.open, batchID)
}

// ViewerState is the JSON snapshot returned by every viewer endpoint.
type ViewerState struct {
	BatchID   string          `json:"batchId"`
	NotFound  bool            `json:"notFound"`
	Recovery  string          `json:"recovery,omitempty"`
	Index     int             `json:"index"`
	Count     int             `json:"count"`
	Document  *model.Document `json:"document,omitempty"`
	Zoom      float64         `json:"zoom"`
	Pan       viewer.Point    `json:"pan"`
	Split     float64         `json:"split"`
	Transform string          `json:"transform"`
	Location  string          `json:"location"`
	// UpdateLocation is true when the caller should rewrite its location
	// to Location (controller-side navigation happened).
	UpdateLocation bool `json:"updateLocation"`
}

func viewerState(batchID string, c *viewer.Controller, external string) ViewerState {
	if c.NotFound() {
		return ViewerState{
			BatchID:  batchID,
			NotFound: true,
			Recovery: c.RecoveryPath(),
		}
	}
	_, update := c.Reconcile(external)
	st := ViewerState{
		BatchID:        batchID,
		Index:          c.Index(),
		Count:          c.Count(),
		Zoom:           c.Zoom(),
		Pan:            c.Pan(),
		Split:          c.Split(),
		Transform:      c.Transform().CSS(),
		Location:       c.Location(),
		UpdateLocation: update,
	}
	if doc, ok := c.Document(); ok {
		st.Document = &doc
	}
	return st
}

func mountViewerRoutes(r chi.Router, deps Deps) {
	r.Route("/batches/{batchID}/viewer", func(r chi.Router) {
		r.Get("/", handleViewerState(deps))
		r.Post("/next", viewerCommand(deps, func(c *viewer.Controller, _ *http.Request) { c.Next() }))
		r.Post("/previous", viewerCommand(deps, func(c *viewer.Controller, _ *http.Request) { c.Previous() }))
		r.Post("/select", handleViewerSelect(deps))
		r.Post("/zoom-in", viewerCommand(deps, func(c *viewer.Controller, _ *http.Request) { c.ZoomIn() }))
		r.Post("/zoom-out", viewerCommand(deps, func(c *viewer.Controller, _ *http.Request) { c.ZoomOut() }))
		r.Post("/reset", viewerCommand(deps, func(c *viewer.Controller, _ *http.Request) { c.ResetView() }))
		r.Post("/bounds", handleViewerBounds(deps))
		r.Post("/pointer", handleViewerPointer(deps))
	})
}

func handleViewerState(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchID := chi.URLParam(r, "batchID")
		external := r.URL.Query().Get("doc")
		c := deps.Viewers.Get(batchID, external)
		writeJSON(w, viewerState(batchID, c, external))
	}
}

// viewerCommand wraps a state transition: run it, then reconcile and
// return the full snapshot.
func viewerCommand(deps Deps, fn func(*viewer.Controller, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchID := chi.URLParam(r, "batchID")
		external := r.URL.Query().Get("doc")
		c := deps.Viewers.Get(batchID, external)
		if !c.NotFound() {
			fn(c, r)
		}
		writeJSON(w, viewerState(batchID, c, external))
	}
}

func handleViewerSelect(deps Deps) http.HandlerFunc {
	type selectRequest struct {
		Index int `json:"index"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req selectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		batchID := chi.URLParam(r, "batchID")
		external := r.URL.Query().Get("doc")
		c := deps.Viewers.Get(batchID, external)
		if !c.NotFound() {
			c.Select(req.Index)
		}
		writeJSON(w, viewerState(batchID, c, external))
	}
}

func handleViewerBounds(deps Deps) http.HandlerFunc {
	type boundsRequest struct {
		Left  float64 `json:"left"`
		Width float64 `json:"width"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req boundsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		batchID := chi.URLParam(r, "batchID")
		external := r.URL.Query().Get("doc")
		c := deps.Viewers.Get(batchID, external)
		if !c.NotFound() {
			c.SetBounds(req.Left, req.Width)
		}
		writeJSON(w, viewerState(batchID, c, external))
	}
}

func handleViewerPointer(deps Deps) http.HandlerFunc {
	type pointerRequest struct {
		// Phase is down, move, or up.
		Phase string `json:"phase"`
		// Target matters on down only: preview, zoom-controls, or divider.
		Target string       `json:"target"`
		Point  viewer.Point `json:"point"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req pointerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		batchID := chi.URLParam(r, "batchID")
		external := r.URL.Query().Get("doc")
		c := deps.Viewers.Get(batchID, external)
		if c.NotFound() {
			writeJSON(w, viewerState(batchID, c, external))
			return
		}

		switch req.Phase {
		case "down":
			target, ok := parseTarget(req.Target)
			if !ok {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown target %q", req.Target)
				return
			}
			c.PointerDown(target, req.Point)
		case "move":
			c.PointerMove(req.Point)
		case "up":
			c.PointerUp()
		default:
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown phase %q", req.Phase)
			return
		}
		writeJSON(w, viewerState(batchID, c, external))
	}
}

func parseTarget(s string) (viewer.Target, bool) {
	switch s {
	case "preview", "":
		return viewer.TargetPreview, true
	case "zoom-controls":
		return viewer.TargetZoomControls, true
	case "divider":
		return viewer.TargetDivider, true
	default:
		return 0, false
	}
}
