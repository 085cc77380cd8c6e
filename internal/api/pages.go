package api

import (
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/kieview/internal/mock"
	"github.com/kalambet/kieview/internal/model"
	"github.com/kalambet/kieview/internal/viewer"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.New("").Funcs(template.FuncMap{
	"formatDate": func(t time.Time) string { return t.Format("Jan 2, 2006") },
	"formatSize": formatSize,
	"resultJSON": func(r *model.ExtractionResult) string {
		out, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return ""
		}
		return string(out)
	},
}).ParseFS(templateFS, "templates/*.html"))

func renderPage(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("rendering page", "template", name, "error", err)
	}
}

func formatSize(bytes int64) string {
	const mb = 1024 * 1024
	return strconv.FormatFloat(float64(bytes)/mb, 'f', 2, 64) + " MB"
}

// requireUser redirects unauthenticated page requests to /login.
func requireUser(deps Deps, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store.User() == nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next(w, r)
	}
}

type loginPageData struct {
	Emails []string
}

func handleLoginPage(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// A logged-in user never sees the login page.
		if deps.Store.User() != nil {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}
		renderPage(w, "login.html", loginPageData{Emails: mock.LoginEmails()})
	}
}

type batchRow struct {
	model.Batch
	Stats model.BatchStats
}

type dashboardPageData struct {
	User    model.User
	Batches []batchRow
	Sort    string
}

// Dashboard sort orders, matching the batch list's dropdown.
const (
	sortLatest   = "latest"
	sortOldest   = "oldest"
	sortNameAsc  = "name-asc"
	sortNameDesc = "name-desc"
)

func handleDashboardPage(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sortKey := r.URL.Query().Get("sort")
		switch sortKey {
		case sortLatest, sortOldest, sortNameAsc, sortNameDesc:
		default:
			sortKey = sortLatest
		}

		batches := deps.Store.Batches()
		sortBatches(batches, sortKey)

		rows := make([]batchRow, len(batches))
		for i, b := range batches {
			rows[i] = batchRow{Batch: b, Stats: b.Stats()}
		}

		user := deps.Store.User()
		renderPage(w, "dashboard.html", dashboardPageData{
			User:    *user,
			Batches: rows,
			Sort:    sortKey,
		})
	}
}

func sortBatches(batches []model.Batch, key string) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		switch key {
		case sortOldest:
			return a.ModifiedDate.Before(b.ModifiedDate)
		case sortNameAsc:
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		case sortNameDesc:
			return strings.ToLower(a.Name) > strings.ToLower(b.Name)
		default: // latest
			return a.ModifiedDate.After(b.ModifiedDate)
		}
	})
}

type batchPageData struct {
	Batch    model.Batch
	State    ViewerState
	Document *model.Document

	// Transform carries the controller's CSS verbatim; the template engine
	// would otherwise reject the scale()/translate() functions inside a
	// style attribute.
	Transform template.CSS
	// Position is the one-based document number shown in the pager.
	Position int
}

type notFoundPageData struct {
	BatchID  string
	Recovery string
}

func handleBatchPage(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchID := chi.URLParam(r, "batchID")
		docID := chi.URLParam(r, "docID")

		batch, err := deps.Store.Batch(batchID)
		if err != nil {
			c := viewer.NewNotFound(batchID)
			w.WriteHeader(http.StatusNotFound)
			renderPage(w, "notfound.html", notFoundPageData{
				BatchID:  batchID,
				Recovery: c.RecoveryPath(),
			})
			return
		}

		c := deps.Viewers.Get(batchID, docID)
		st := viewerState(batchID, c, docID)
		if st.UpdateLocation {
			// The controller's document differs from the path; send the
			// browser to the canonical location.
			http.Redirect(w, r, st.Location, http.StatusFound)
			return
		}

		renderPage(w, "batch.html", batchPageData{
			Batch:     batch,
			State:     st,
			Document:  st.Document,
			Transform: template.CSS(st.Transform),
			Position:  st.Index + 1,
		})
	}
}
