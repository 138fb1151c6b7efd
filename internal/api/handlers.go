// Handler functions for the management UI's JSON API. Every handler talks to
// the scraper backend through the gateway and converts normalized errors
// into plain message strings for the browser.

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bookdl/bookdl-go/internal/books"
	"github.com/bookdl/bookdl-go/internal/downloader"
	"github.com/bookdl/bookdl-go/internal/models"
	"github.com/bookdl/bookdl-go/internal/util"
)

func (s *Server) handleGetAuthors(w http.ResponseWriter, r *http.Request) {
	refresh := r.URL.Query().Get("refresh") == "true"
	authors, err := s.app.Client.Authors(r.Context(), refresh)
	if err != nil {
		respondWithGatewayError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, authors)
}

// handleGetBooks returns the filtered book projection plus the corpus-level
// aggregates: available languages and the total before filtering. The
// language list always comes from the unfiltered fetch, not the filtered
// view.
func (s *Server) handleGetBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	raw, err := s.app.Client.FetchLinks(r.Context(), q.Get("author"))
	if err != nil {
		respondWithGatewayError(w, err)
		return
	}

	opts := books.Options{
		HideDownloaded: q.Get("hide_downloaded") == "true",
		Language:       q.Get("language"),
		Search:         q.Get("q"),
	}
	filtered := books.Filter(raw, opts)
	if filtered == nil {
		filtered = []models.Book{}
	}

	RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"books":     filtered,
		"languages": books.Languages(raw),
		"total":     len(raw),
	})
}

// handleSubmitDownloads queues one batch of selected books for download. The
// browser clears its selection the moment it submits; failed books have to be
// re-selected.
func (s *Server) handleSubmitDownloads(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		BookURLs    []string `json:"bookUrls"`
		Author      string   `json:"author"`
		Destination string   `json:"destination"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if len(payload.BookURLs) == 0 {
		RespondWithError(w, http.StatusBadRequest, "No books selected to download")
		return
	}

	// Titles label the batch entries; the raw list scoped to the same author
	// filter the browser was viewing is enough to resolve them. A lookup
	// failure only degrades the labels, it does not block the submit.
	titles := map[string]string{}
	if raw, err := s.app.Client.FetchLinks(r.Context(), payload.Author); err != nil {
		log.Printf("Could not resolve book titles for download batch: %v", err)
	} else {
		titles = books.TitleIndex(raw)
	}

	destination := payload.Destination
	if destination == "" {
		destination = s.app.Config.Download.Destination
	}

	progress, failures, err := s.app.Orchestrator.Submit(r.Context(), payload.BookURLs, titles, destination)
	if errors.Is(err, downloader.ErrSubmissionInFlight) {
		RespondWithError(w, http.StatusConflict, "A download batch is already in progress")
		return
	}
	if failures == nil {
		failures = []models.DownloadFailure{}
	}
	response := map[string]interface{}{
		"progress": progress,
		"failures": failures,
		"error":    nil,
	}
	if msg := s.app.Orchestrator.Err(); msg != "" {
		response["error"] = msg
	}
	if err != nil {
		// Transport failure: the outcome still carries one failure per book.
		RespondWithJSON(w, http.StatusBadGateway, response)
		return
	}
	RespondWithJSON(w, http.StatusOK, response)
}

func (s *Server) handleAddAuthors(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Authors      string `json:"authors"`
		ReverseNames bool   `json:"reverseNames"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	expanded := util.ExpandAuthorInput(payload.Authors, payload.ReverseNames)
	outcome, err := s.app.Client.ScrapeAuthors(r.Context(), expanded)
	if err != nil {
		respondWithGatewayError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleDeleteAuthor(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	deleted, err := s.app.Client.DeleteAuthor(r.Context(), slug)
	if err != nil {
		respondWithGatewayError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]int{"deleted_count": deleted})
}

func (s *Server) handleCleanupAuthors(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.app.Client.CleanupAuthors(r.Context())
	if err != nil {
		respondWithGatewayError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleDeleteAllAuthors(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.app.Client.DeleteAllAuthors(r.Context())
	if err != nil {
		respondWithGatewayError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, outcome)
}

// handleGetQueue serves the poller's snapshot. Before the first poll has
// landed it refreshes synchronously so the page never renders from nothing.
func (s *Server) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	items, polled := s.app.Poller.Snapshot()
	if !polled {
		if err := s.app.Poller.Refresh(r.Context()); err != nil {
			respondWithGatewayError(w, err)
			return
		}
		items, _ = s.app.Poller.Snapshot()
	}
	if items == nil {
		items = []models.QueueItem{}
	}
	RespondWithJSON(w, http.StatusOK, items)
}

func (s *Server) handleRefreshQueue(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Poller.Refresh(r.Context()); err != nil {
		respondWithGatewayError(w, err)
		return
	}
	items, _ := s.app.Poller.Snapshot()
	RespondWithJSON(w, http.StatusOK, items)
}

func (s *Server) handleCancelQueueItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid queue item id")
		return
	}
	if err := s.app.Poller.Cancel(r.Context(), id); err != nil {
		respondWithGatewayError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleClearCompletedQueue(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Poller.ClearCompleted(r.Context()); err != nil {
		respondWithGatewayError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleClearPendingQueue(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Poller.ClearPending(r.Context()); err != nil {
		respondWithGatewayError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleClearAllQueue(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Poller.ClearAll(r.Context()); err != nil {
		respondWithGatewayError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// handleHealth reports whether the scraper backend is reachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.app.Client.FetchQueue(r.Context()); err != nil {
		RespondWithError(w, http.StatusServiceUnavailable, "Scraper backend unreachable")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"version": s.app.Version})
}
