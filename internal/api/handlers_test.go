package api

// Integration tests for the management UI API, backed by the shared fake
// scraper backend.

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bookdl/bookdl-go/internal/books"
	"github.com/bookdl/bookdl-go/internal/config"
	"github.com/bookdl/bookdl-go/internal/core"
	"github.com/bookdl/bookdl-go/internal/models"
	"github.com/bookdl/bookdl-go/internal/testutil"
)

func setupTestServer(t *testing.T) (*Server, *testutil.FakeBackend) {
	t.Helper()
	fb := testutil.NewFakeBackend(t)

	cfg := &config.Config{}
	cfg.Backend.URL = fb.URL()
	cfg.Queue.PollInterval = 5

	app := core.NewWithConfig(cfg)
	app.Version = "test"
	go app.WsHub.Run()
	// The periodic poll stays off in tests; handlers refresh on demand.

	return NewServer(app), fb
}

func doRequest(t *testing.T, server *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	return rr
}

func TestGetAuthorsUsesCache(t *testing.T) {
	server, fb := setupTestServer(t)
	fb.Authors = map[string]string{"stephen-king": "Stephen King"}

	rr := doRequest(t, server, "GET", "/api/authors", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}
	doRequest(t, server, "GET", "/api/authors", "")
	if fb.AuthorsCalls != 1 {
		t.Errorf("Expected cached second read, backend saw %d calls", fb.AuthorsCalls)
	}

	doRequest(t, server, "GET", "/api/authors?refresh=true", "")
	if fb.AuthorsCalls != 2 {
		t.Errorf("Expected refresh to hit the backend, saw %d calls", fb.AuthorsCalls)
	}
}

func TestGetBooksAppliesFilters(t *testing.T) {
	server, fb := setupTestServer(t)
	fb.Books = []models.Book{
		{URL: "A", BookURL: "bA", Title: "The Stand", Author: "stephen-king", Language: "English", Downloaded: false},
		{URL: "B", BookURL: "bB", Title: "Le Comte", Author: "alexandre-dumas", Language: "French", Downloaded: true},
	}

	rr := doRequest(t, server, "GET", "/api/books?hide_downloaded=true&language=All", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v", rr.Code)
	}
	var payload struct {
		Books     []models.Book `json:"books"`
		Languages []string      `json:"languages"`
		Total     int           `json:"total"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(payload.Books) != 1 || payload.Books[0].URL != "A" {
		t.Errorf("Expected only the undownloaded book, got %+v", payload.Books)
	}
	// Languages always describe the unfiltered corpus.
	if len(payload.Languages) != 2 {
		t.Errorf("Expected both languages despite the filter, got %v", payload.Languages)
	}
	if payload.Total != 2 {
		t.Errorf("Expected total 2, got %d", payload.Total)
	}
}

func TestSubmitDownloads(t *testing.T) {
	server, fb := setupTestServer(t)
	fb.Books = []models.Book{
		{BookURL: "bA", Title: "The Stand", Author: "stephen-king"},
		{BookURL: "bB", Title: "It", Author: "stephen-king"},
	}
	fb.DownloadResults = []models.DownloadResult{
		{BookURL: "bA", Success: true},
		{BookURL: "bB", Success: false, Error: "timeout"},
	}

	rr := doRequest(t, server, "POST", "/api/downloads", `{"bookUrls":["bA","bB"],"author":"stephen-king"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v body %s", rr.Code, rr.Body.String())
	}

	var outcome struct {
		Progress models.Progress          `json:"progress"`
		Failures []models.DownloadFailure `json:"failures"`
		Error    *string                  `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if outcome.Progress.Completed != 1 || outcome.Progress.Failed != 1 || outcome.Progress.Total != 2 {
		t.Errorf("Expected progress {1,1,2}, got %+v", outcome.Progress)
	}
	if len(outcome.Failures) != 1 || outcome.Failures[0].BookURL != "bB" {
		t.Fatalf("Expected one failure for bB, got %+v", outcome.Failures)
	}
	if outcome.Failures[0].BookTitle != "It" {
		t.Errorf("Expected failure labelled with looked-up title, got %q", outcome.Failures[0].BookTitle)
	}
	if outcome.Error == nil {
		t.Error("Expected error message when failures are present")
	}

	t.Run("empty selection is rejected", func(t *testing.T) {
		rr := doRequest(t, server, "POST", "/api/downloads", `{"bookUrls":[]}`)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for empty selection, got %d", rr.Code)
		}
	})
}

func TestSubmitDownloadsConcurrentBatchRejected(t *testing.T) {
	server, fb := setupTestServer(t)
	fb.Books = []models.Book{{BookURL: "bA", Title: "The Stand", Author: "stephen-king"}}
	gate := make(chan struct{})
	fb.DownloadGate = gate

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- doRequest(t, server, "POST", "/api/downloads", `{"bookUrls":["bA"]}`)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !server.app.Orchestrator.Downloading() {
		if time.Now().After(deadline) {
			t.Fatal("First batch never reached the backend")
		}
		time.Sleep(time.Millisecond)
	}

	// A second submission while the first is in flight is the client's race,
	// not a backend failure.
	rr := doRequest(t, server, "POST", "/api/downloads", `{"bookUrls":["bA"]}`)
	if rr.Code != http.StatusConflict {
		t.Errorf("Expected 409 for concurrent submission, got %d", rr.Code)
	}
	var body map[string]string
	json.Unmarshal(rr.Body.Bytes(), &body)
	if body["error"] == "" {
		t.Error("Expected a distinct error message for the rejected submission")
	}

	close(gate)
	if first := <-done; first.Code != http.StatusOK {
		t.Errorf("First batch should have completed normally, got %d", first.Code)
	}
}

func TestSubmitDownloadsWithFailedTitleLookup(t *testing.T) {
	server, fb := setupTestServer(t)
	fb.FailLinksWith = 500
	fb.FailDetail = "database locked"
	fb.DownloadResults = []models.DownloadResult{
		{BookURL: "bA", Success: false, Error: "timeout"},
	}

	// The lookup failure only degrades the labels; the submit still goes out.
	rr := doRequest(t, server, "POST", "/api/downloads", `{"bookUrls":["bA"]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected submit to proceed despite lookup failure, got %d body %s", rr.Code, rr.Body.String())
	}
	var outcome struct {
		Failures []models.DownloadFailure `json:"failures"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(outcome.Failures) != 1 || outcome.Failures[0].BookTitle != books.UnknownTitle {
		t.Errorf("Expected fallback title on the failure, got %+v", outcome.Failures)
	}
}

func TestAddAuthorsValidatesAndInvalidatesCache(t *testing.T) {
	server, fb := setupTestServer(t)
	fb.Authors = map[string]string{}

	// Prime the cache.
	doRequest(t, server, "GET", "/api/authors", "")
	callsAfterPrime := fb.AuthorsCalls

	rr := doRequest(t, server, "POST", "/api/authors", `{"authors":"  "}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for blank author input, got %d", rr.Code)
	}

	rr = doRequest(t, server, "POST", "/api/authors", `{"authors":"stephen king","reverseNames":true}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 for scrape, got %d body %s", rr.Code, rr.Body.String())
	}
	var outcome models.ScrapeOutcome
	json.Unmarshal(rr.Body.Bytes(), &outcome)
	// Reversed variant rides along: "stephen king, king stephen".
	if outcome.AuthorsProcessed != 2 {
		t.Errorf("Expected reversed variant to be scraped too, got %d authors", outcome.AuthorsProcessed)
	}

	// The scrape invalidated the cache, so the next read refetches.
	doRequest(t, server, "GET", "/api/authors", "")
	if fb.AuthorsCalls != callsAfterPrime+1 {
		t.Errorf("Expected scrape to invalidate the author cache, calls: %d", fb.AuthorsCalls)
	}
}

func TestDeleteAuthorEndpoints(t *testing.T) {
	server, fb := setupTestServer(t)
	fb.Authors = map[string]string{"stephen-king": "Stephen King", "anon": "Anon"}
	fb.Books = []models.Book{
		{URL: "A", BookURL: "bA", Author: "stephen-king", Downloaded: true},
		{URL: "B", BookURL: "bB", Author: "anon", Downloaded: false},
	}

	rr := doRequest(t, server, "DELETE", "/api/authors/stephen-king", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Delete author failed: %d %s", rr.Code, rr.Body.String())
	}
	var deleted map[string]int
	json.Unmarshal(rr.Body.Bytes(), &deleted)
	if deleted["deleted_count"] != 1 {
		t.Errorf("Expected 1 deleted book, got %d", deleted["deleted_count"])
	}

	rr = doRequest(t, server, "DELETE", "/api/authors/cleanup", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Cleanup failed: %d", rr.Code)
	}

	rr = doRequest(t, server, "DELETE", "/api/authors/all", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Delete all failed: %d", rr.Code)
	}
	var outcome models.CleanupOutcome
	json.Unmarshal(rr.Body.Bytes(), &outcome)
	if outcome.AuthorsDeleted != 1 || outcome.BooksDeleted != 1 {
		t.Errorf("Expected remaining author and book deleted, got %+v", outcome)
	}
}

func TestQueueEndpoints(t *testing.T) {
	server, fb := setupTestServer(t)
	fb.Queue = []models.QueueItem{
		{ID: 1, BookTitle: "It", Status: models.StatusPending},
		{ID: 2, BookTitle: "HP", Status: models.StatusInProgress},
	}

	rr := doRequest(t, server, "GET", "/api/queue", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Get queue failed: %d", rr.Code)
	}
	var items []models.QueueItem
	json.Unmarshal(rr.Body.Bytes(), &items)
	if len(items) != 2 {
		t.Fatalf("Expected 2 queue items, got %d", len(items))
	}

	t.Run("cancel pending item", func(t *testing.T) {
		rr := doRequest(t, server, "DELETE", "/api/queue/1", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("Cancel failed: %d %s", rr.Code, rr.Body.String())
		}
		rr = doRequest(t, server, "GET", "/api/queue", "")
		var items []models.QueueItem
		json.Unmarshal(rr.Body.Bytes(), &items)
		if len(items) != 1 || items[0].ID != 2 {
			t.Errorf("Cancelled item still in snapshot: %+v", items)
		}
	})

	t.Run("cancel non-pending item surfaces backend error", func(t *testing.T) {
		rr := doRequest(t, server, "DELETE", "/api/queue/2", "")
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("Expected 400 from backend rejection, got %d", rr.Code)
		}
		var body map[string]string
		json.Unmarshal(rr.Body.Bytes(), &body)
		if body["error"] != "only pending items can be cancelled" {
			t.Errorf("Expected backend detail verbatim, got %q", body["error"])
		}
	})

	t.Run("bulk clears", func(t *testing.T) {
		for _, path := range []string{"/api/queue/completed", "/api/queue/pending", "/api/queue"} {
			rr := doRequest(t, server, "DELETE", path, "")
			if rr.Code != http.StatusOK {
				t.Errorf("DELETE %s failed: %d", path, rr.Code)
			}
		}
		rr := doRequest(t, server, "GET", "/api/queue", "")
		var items []models.QueueItem
		json.Unmarshal(rr.Body.Bytes(), &items)
		if len(items) != 0 {
			t.Errorf("Expected empty queue after clear all, got %+v", items)
		}
	})
}

func TestBackendDownSurfacesAsError(t *testing.T) {
	server, fb := setupTestServer(t)
	fb.FailWith = 500
	fb.FailDetail = "database locked"

	rr := doRequest(t, server, "GET", "/api/books", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected backend status passed through, got %d", rr.Code)
	}
	var body map[string]string
	json.Unmarshal(rr.Body.Bytes(), &body)
	if body["error"] != "database locked" {
		t.Errorf("Expected backend detail verbatim, got %q", body["error"])
	}

	rr = doRequest(t, server, "GET", "/api/health", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected health to report unavailable, got %d", rr.Code)
	}
}
