// Package viewer holds the batch detail view state machine: current
// document index, zoom/pan transform, split-panel sizing, and the
// reconciliation between the current document and its shareable location.
package viewer

import (
	"fmt"
	"sync"

	"github.com/kalambet/kieview/internal/model"
)

// Zoom and layout limits.
const (
	MinZoom  = 0.5
	MaxZoom  = 3.0
	ZoomStep = 0.25

	// MinPanelWidth is the narrowest either split panel may get, in the
	// same units as the container width.
	MinPanelWidth = 400.0

	// DefaultSplit is the initial preview-panel share in percent.
	DefaultSplit = 60.0
)

// Point is a 2D position or offset in container units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Target identifies where a pointer-down landed.
type Target int

const (
	// TargetPreview starts a pan gesture.
	TargetPreview Target = iota
	// TargetZoomControls is the control strip overlaying the preview;
	// drags starting there are ignored.
	TargetZoomControls
	// TargetDivider starts a split-resize gesture.
	TargetDivider
)

type dragMode int

const (
	dragNone dragMode = iota
	dragPan
	dragSplit
)

// Transform is the rendered preview transform: scale first, then translate
// by the pan offset divided by the zoom factor, anchored top-center, so
// panning tracks the pointer at any zoom level.
type Transform struct {
	Scale      float64 `json:"scale"`
	TranslateX float64 `json:"translateX"`
	TranslateY float64 `json:"translateY"`
}

// CSS renders the transform the way the preview panel applies it.
func (t Transform) CSS() string {
	return fmt.Sprintf("scale(%g) translate(%gpx, %gpx)", t.Scale, t.TranslateX, t.TranslateY)
}

// Controller drives one open batch detail view. Safe for concurrent use.
type Controller struct {
	mu sync.Mutex

	batchID  string
	docs     []model.Document
	notFound bool

	index int
	zoom  float64
	pan   Point
	split float64

	containerLeft  float64
	containerWidth float64

	mode     dragMode
	panStart Point

	// lastLoc is the document id last observed in (or written to) the
	// external location; Reconcile uses it to tell which side moved.
	lastLoc string
}

// New opens a controller over the batch's documents. When docID names a
// document, the view starts there; unknown or empty ids fall back to the
// first document.
func New(batch model.Batch, docID string) *Controller {
	c := &Controller{
		batchID: batch.ID,
		docs:    batch.Documents,
		zoom:    1.0,
		split:   DefaultSplit,
		lastLoc: docID,
	}
	if i := batch.DocumentByID(docID); i >= 0 {
		c.index = i
	}
	return c
}

// NewNotFound returns the terminal state for a batch id that did not
// resolve. The only transition out is the recovery action.
func NewNotFound(batchID string) *Controller {
	return &Controller{batchID: batchID, notFound: true}
}

// NotFound reports whether the controller is in the terminal missing-batch
// state.
func (c *Controller) NotFound() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notFound
}

// RecoveryPath is the single recovery action out of the not-found state.
func (c *Controller) RecoveryPath() string { return "/dashboard" }

// Index returns the current document index.
func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Count returns the number of documents in view.
func (c *Controller) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}

// Document returns the current document, if any.
func (c *Controller) Document() (model.Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.documentLocked()
}

func (c *Controller) documentLocked() (model.Document, bool) {
	if c.notFound || c.index < 0 || c.index >= len(c.docs) {
		return model.Document{}, false
	}
	return c.docs[c.index], true
}

// Zoom returns the current zoom factor.
func (c *Controller) Zoom() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.zoom
}

// Pan returns the accumulated pan offset.
func (c *Controller) Pan() Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pan
}

// Split returns the preview panel's width share in percent.
func (c *Controller) Split() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.split
}

// Transform returns the preview transform for the current zoom and pan.
func (c *Controller) Transform() Transform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Transform{
		Scale:      c.zoom,
		TranslateX: c.pan.X / c.zoom,
		TranslateY: c.pan.Y / c.zoom,
	}
}

// Previous moves to the preceding document, clamped at the start. Moving
// discards the transient view transform.
func (c *Controller) Previous() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notFound || c.index == 0 {
		return false
	}
	c.index--
	c.resetViewLocked()
	return true
}

// Next moves to the following document, clamped at the end. Moving
// discards the transient view transform.
func (c *Controller) Next() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notFound || c.index >= len(c.docs)-1 {
		return false
	}
	c.index++
	c.resetViewLocked()
	return true
}

// Select jumps straight to index, as the grid picker does. Unlike
// Previous/Next it keeps the current zoom and pan.
func (c *Controller) Select(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notFound || index < 0 || index >= len(c.docs) {
		return false
	}
	c.index = index
	return true
}

// ZoomIn bumps the zoom factor one step, clamped at MaxZoom.
func (c *Controller) ZoomIn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zoom = clamp(c.zoom+ZoomStep, MinZoom, MaxZoom)
}

// ZoomOut lowers the zoom factor one step, clamped at MinZoom.
func (c *Controller) ZoomOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zoom = clamp(c.zoom-ZoomStep, MinZoom, MaxZoom)
}

// ResetView restores the default zoom and pan.
func (c *Controller) ResetView() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetViewLocked()
}

func (c *Controller) resetViewLocked() {
	c.zoom = 1.0
	c.pan = Point{}
}

// SetBounds records the container's measured left edge and width, and
// re-clamps the split so neither panel falls under MinPanelWidth.
func (c *Controller) SetBounds(left, width float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.containerLeft = left
	c.containerWidth = width
	c.split = c.clampSplitLocked(c.split)
}

func (c *Controller) clampSplitLocked(pct float64) float64 {
	if c.containerWidth <= 0 {
		return clamp(pct, 0, 100)
	}
	minPct := MinPanelWidth / c.containerWidth * 100
	if minPct > 50 {
		return 50
	}
	return clamp(pct, minPct, 100-minPct)
}

// PointerDown begins a drag gesture. Drags on the preview pan; drags on
// the divider resize; drags starting on the zoom controls do nothing.
func (c *Controller) PointerDown(target Target, p Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notFound {
		return
	}
	switch target {
	case TargetPreview:
		c.mode = dragPan
		c.panStart = p
	case TargetDivider:
		c.mode = dragSplit
	case TargetZoomControls:
		// Control strip swallows the gesture.
	}
}

// PointerMove feeds pointer positions while a gesture is active. Movement
// is tracked globally: positions outside the panel still count, so a fast
// drag leaving the preview doesn't stick.
func (c *Controller) PointerMove(p Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.mode {
	case dragPan:
		c.pan.X += p.X - c.panStart.X
		c.pan.Y += p.Y - c.panStart.Y
		c.panStart = p
	case dragSplit:
		if c.containerWidth > 0 {
			pct := (p.X - c.containerLeft) / c.containerWidth * 100
			c.split = c.clampSplitLocked(pct)
		}
	}
}

// PointerUp ends the active gesture, wherever the pointer is released.
func (c *Controller) PointerUp() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = dragNone
}

// Location returns the canonical shareable path for the current document.
func (c *Controller) Location() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locationLocked()
}

func (c *Controller) locationLocked() string {
	if doc, ok := c.documentLocked(); ok {
		return fmt.Sprintf("/batch/%s/%s", c.batchID, doc.ID)
	}
	return fmt.Sprintf("/batch/%s", c.batchID)
}

// Reconcile aligns the controller and the externally observable location.
// external is the document id currently in the location (empty when the
// location carries none). When the location moved (back/forward
// navigation), a resolvable id is adopted as the current index, keeping
// zoom and pan. When the controller moved, or the external id does not
// resolve, the canonical id is returned with update=true so the caller
// rewrites the location. Both directions only write on an actual mismatch,
// which is what keeps the two observers from feeding back into each other.
func (c *Controller) Reconcile(external string) (canonical string, update bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.notFound {
		return "", false
	}

	if external != c.lastLoc && external != "" {
		if i := c.indexOfLocked(external); i >= 0 && i != c.index {
			c.index = i
		}
	}

	doc, ok := c.documentLocked()
	if !ok {
		c.lastLoc = external
		return "", false
	}

	canonical = doc.ID
	if canonical != external {
		c.lastLoc = canonical
		return canonical, true
	}
	c.lastLoc = external
	return canonical, false
}

func (c *Controller) indexOfLocked(docID string) int {
	for i, d := range c.docs {
		if d.ID == docID {
			return i
		}
	}
	return -1
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
