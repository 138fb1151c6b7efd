// Shared data structures exchanged with the scraper backend and the web UI.
// Field tags follow the backend's JSON casing, so these marshal to exactly
// what the browser and the backend expect.
package models

import "strings"

// Author is one entry of the backend's slug->name directory. The slug is the
// stable identifier; the name is for display only.
type Author struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Book is a single scraped link. It is owned entirely by the backend: the UI
// only reads and filters these, it never writes the fields.
type Book struct {
	URL         string `json:"url"`
	Author      string `json:"author"` // scrape slug, e.g. "j-k-rowling"
	Article     string `json:"article"`
	Downloaded  bool   `json:"downloaded"`
	Title       string `json:"title"`
	BookAuthor  string `json:"bookAuthor"`
	Date        string `json:"date"`
	Language    string `json:"language"`
	Genre       string `json:"genre"`
	ImageURL    string `json:"imageUrl"`
	BookURL     string `json:"bookUrl"` // canonical download URL, selection key
	Description string `json:"description"`
	HasEpub     bool   `json:"hasEpub"`
	HasPdf      bool   `json:"hasPdf"`
}

// DownloadRequest is one entry of a batch download submission.
type DownloadRequest struct {
	BookURL   string `json:"bookUrl"`
	BookTitle string `json:"bookTitle"`
}

// DownloadResult is the backend's per-book answer to a batch submission.
// Results are matched to requests by BookURL, never by position.
type DownloadResult struct {
	BookURL   string `json:"bookUrl"`
	BookTitle string `json:"bookTitle"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// DownloadFailure records one book that did not complete in a batch. It lives
// only for the current notification cycle, nothing persists it.
type DownloadFailure struct {
	BookURL   string `json:"bookUrl"`
	BookTitle string `json:"bookTitle"`
	Error     string `json:"error"`
}

// Progress is the aggregate outcome of a batch submission.
type Progress struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

// Queue item statuses as reported by the backend worker. Compared
// case-insensitively; anything unrecognized is displayed as pending.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// QueueItem is a server-tracked unit of work for one book's download. The
// client never computes status transitions itself.
type QueueItem struct {
	ID           int64  `json:"id"`
	BookTitle    string `json:"bookTitle"`
	BookURL      string `json:"bookUrl"`
	BookAuthor   string `json:"bookAuthor,omitempty"`
	Status       string `json:"status"`
	RetryCount   int    `json:"retryCount"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	CreatedAt    string `json:"createdAt"`
	StartedAt    string `json:"startedAt,omitempty"`
	CompletedAt  string `json:"completedAt,omitempty"`
}

// DisplayStatus normalizes a backend status token for the UI.
func (q *QueueItem) DisplayStatus() string {
	switch NormalizeStatus(q.Status) {
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusInProgress:
		return "Downloading"
	default:
		return "Pending"
	}
}

// NormalizeStatus lowercases a status token and maps unknown values to
// pending, which is how the backend's unset statuses are rendered.
func NormalizeStatus(status string) string {
	switch s := strings.ToLower(status); s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		return s
	default:
		return StatusPending
	}
}

// ScrapeResult is the backend's per-author outcome of a scrape request.
type ScrapeResult struct {
	Author     string `json:"author"`
	BooksAdded int    `json:"books_added"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// ScrapeOutcome is the full response to POST /scrape-authors.
type ScrapeOutcome struct {
	Success          bool           `json:"success"`
	TotalBooksAdded  int            `json:"total_books_added"`
	AuthorsProcessed int            `json:"authors_processed"`
	Results          []ScrapeResult `json:"results"`
}

// CleanupOutcome reports how many rows a bulk author deletion removed.
type CleanupOutcome struct {
	AuthorsDeleted int `json:"authors_deleted"`
	BooksDeleted   int `json:"books_deleted"`
}
