// A shared fake of the scraper backend, used by the gateway, poller and API
// tests so none of them need a real scraper service.

package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/bookdl/bookdl-go/internal/models"
)

// FakeBackend serves the scraper backend's REST surface from in-memory state.
// All exported state is guarded by Mu; tests mutate it directly between
// requests.
type FakeBackend struct {
	Server *httptest.Server

	Mu      sync.Mutex
	Authors map[string]string
	Books   []models.Book
	Queue   []models.QueueItem

	// DownloadResults, when set, is returned verbatim from POST /download.
	// When nil every requested book succeeds.
	DownloadResults []models.DownloadResult

	// DownloadGate, when set, makes POST /download block until the channel is
	// closed. Tests use it to hold a batch in flight.
	DownloadGate chan struct{}

	// FailWith, when non-zero, makes every endpoint answer with this status
	// and a {"detail": FailDetail} body. FailLinksWith does the same for
	// GET /links only.
	FailWith      int
	FailDetail    string
	FailLinksWith int

	// Request counters for cache assertions.
	AuthorsCalls  int
	LinksCalls    int
	QueueCalls    int
	DownloadCalls int
}

// NewFakeBackend starts a fake backend and registers its shutdown with t.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()

	fb := &FakeBackend{
		Authors: make(map[string]string),
	}

	r := chi.NewRouter()
	r.Get("/authors", fb.handleAuthors)
	r.Get("/links", fb.handleLinks)
	r.Post("/download", fb.handleDownload)
	r.Post("/scrape-authors", fb.handleScrapeAuthors)
	r.Delete("/authors/cleanup", fb.handleCleanupAuthors)
	r.Delete("/authors/all", fb.handleDeleteAllAuthors)
	r.Delete("/authors/{slug}", fb.handleDeleteAuthor)
	r.Get("/queue", fb.handleQueue)
	r.Delete("/queue/completed/all", fb.handleDeleteQueueByStatus(models.StatusCompleted))
	r.Delete("/queue/pending/all", fb.handleDeleteQueueByStatus(models.StatusPending))
	r.Delete("/queue/all", fb.handleDeleteQueueByStatus(""))
	r.Delete("/queue/{id}", fb.handleCancelQueueItem)

	fb.Server = httptest.NewServer(r)
	t.Cleanup(fb.Server.Close)
	return fb
}

// URL returns the base URL tests should hand to the gateway.
func (fb *FakeBackend) URL() string { return fb.Server.URL }

func (fb *FakeBackend) failing(w http.ResponseWriter) bool {
	if fb.FailWith == 0 {
		return false
	}
	writeJSON(w, fb.FailWith, map[string]string{"detail": fb.FailDetail})
	return true
}

func (fb *FakeBackend) handleAuthors(w http.ResponseWriter, r *http.Request) {
	fb.Mu.Lock()
	defer fb.Mu.Unlock()
	fb.AuthorsCalls++
	if fb.failing(w) {
		return
	}
	writeJSON(w, http.StatusOK, fb.Authors)
}

func (fb *FakeBackend) handleLinks(w http.ResponseWriter, r *http.Request) {
	fb.Mu.Lock()
	defer fb.Mu.Unlock()
	fb.LinksCalls++
	if fb.failing(w) {
		return
	}
	if fb.FailLinksWith != 0 {
		writeJSON(w, fb.FailLinksWith, map[string]string{"detail": fb.FailDetail})
		return
	}
	author := r.URL.Query().Get("author")
	books := []models.Book{}
	for _, b := range fb.Books {
		if author == "" || b.Author == author {
			books = append(books, b)
		}
	}
	writeJSON(w, http.StatusOK, books)
}

func (fb *FakeBackend) handleDownload(w http.ResponseWriter, r *http.Request) {
	if fb.DownloadGate != nil {
		<-fb.DownloadGate
	}
	fb.Mu.Lock()
	defer fb.Mu.Unlock()
	fb.DownloadCalls++
	if fb.failing(w) {
		return
	}

	var payload struct {
		Books       []models.DownloadRequest `json:"books"`
		Destination string                   `json:"destination"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid payload"})
		return
	}

	results := fb.DownloadResults
	if results == nil {
		for _, b := range payload.Books {
			results = append(results, models.DownloadResult{
				BookURL:   b.BookURL,
				BookTitle: b.BookTitle,
				Success:   true,
			})
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func (fb *FakeBackend) handleScrapeAuthors(w http.ResponseWriter, r *http.Request) {
	fb.Mu.Lock()
	defer fb.Mu.Unlock()
	if fb.failing(w) {
		return
	}

	var payload struct {
		Authors string `json:"authors"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || strings.TrimSpace(payload.Authors) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "authors is required"})
		return
	}

	outcome := models.ScrapeOutcome{Success: true}
	for _, name := range strings.Split(payload.Authors, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		outcome.AuthorsProcessed++
		outcome.TotalBooksAdded += 2
		outcome.Results = append(outcome.Results, models.ScrapeResult{
			Author:     name,
			BooksAdded: 2,
			Success:    true,
		})
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (fb *FakeBackend) handleDeleteAuthor(w http.ResponseWriter, r *http.Request) {
	fb.Mu.Lock()
	defer fb.Mu.Unlock()
	if fb.failing(w) {
		return
	}
	slug := chi.URLParam(r, "slug")

	deleted := 0
	var remaining []models.Book
	for _, b := range fb.Books {
		if b.Author == slug {
			deleted++
			continue
		}
		remaining = append(remaining, b)
	}
	fb.Books = remaining
	delete(fb.Authors, slug)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "deleted_count": deleted})
}

func (fb *FakeBackend) handleCleanupAuthors(w http.ResponseWriter, r *http.Request) {
	fb.Mu.Lock()
	defer fb.Mu.Unlock()
	if fb.failing(w) {
		return
	}

	undone := make(map[string]bool)
	for _, b := range fb.Books {
		if !b.Downloaded {
			undone[b.Author] = true
		}
	}

	authorsDeleted, booksDeleted := 0, 0
	var remaining []models.Book
	for _, b := range fb.Books {
		if undone[b.Author] {
			remaining = append(remaining, b)
		} else {
			booksDeleted++
		}
	}
	for slug := range fb.Authors {
		if !undone[slug] {
			delete(fb.Authors, slug)
			authorsDeleted++
		}
	}
	fb.Books = remaining
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"authors_deleted": authorsDeleted,
		"books_deleted":   booksDeleted,
	})
}

func (fb *FakeBackend) handleDeleteAllAuthors(w http.ResponseWriter, r *http.Request) {
	fb.Mu.Lock()
	defer fb.Mu.Unlock()
	if fb.failing(w) {
		return
	}
	authorsDeleted := len(fb.Authors)
	booksDeleted := len(fb.Books)
	fb.Authors = make(map[string]string)
	fb.Books = nil
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"authors_deleted": authorsDeleted,
		"books_deleted":   booksDeleted,
	})
}

func (fb *FakeBackend) handleQueue(w http.ResponseWriter, r *http.Request) {
	fb.Mu.Lock()
	defer fb.Mu.Unlock()
	fb.QueueCalls++
	if fb.failing(w) {
		return
	}
	items := fb.Queue
	if items == nil {
		items = []models.QueueItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (fb *FakeBackend) handleCancelQueueItem(w http.ResponseWriter, r *http.Request) {
	fb.Mu.Lock()
	defer fb.Mu.Unlock()
	if fb.failing(w) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid queue id"})
		return
	}

	for i, item := range fb.Queue {
		if item.ID != id {
			continue
		}
		if item.Status != models.StatusPending {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"detail": "only pending items can be cancelled",
			})
			return
		}
		fb.Queue = append(fb.Queue[:i], fb.Queue[i+1:]...)
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "queue item not found"})
}

func (fb *FakeBackend) handleDeleteQueueByStatus(status string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fb.Mu.Lock()
		defer fb.Mu.Unlock()
		if fb.failing(w) {
			return
		}
		deleted := 0
		var remaining []models.QueueItem
		for _, item := range fb.Queue {
			if status == "" || item.Status == status {
				deleted++
				continue
			}
			remaining = append(remaining, item)
		}
		fb.Queue = remaining
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "deleted_count": deleted})
	}
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
