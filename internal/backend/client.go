// Package backend is the typed HTTP gateway to the scraper backend. It owns
// request construction, response decoding and error normalization; nothing
// else in the application talks to the backend directly.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bookdl/bookdl-go/internal/models"
)

// Client wraps the scraper backend's REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cache      *AuthorCache
}

// New creates a gateway for the backend at baseURL with its own author cache.
func New(baseURL string) *Client {
	return NewWithCache(baseURL, NewAuthorCache())
}

// NewWithCache creates a gateway sharing an externally owned author cache.
func NewWithCache(baseURL string, cache *AuthorCache) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		cache:      cache,
	}
}

// Cache exposes the author cache, mainly so tests and the API layer can
// assert on and reset it.
func (c *Client) Cache() *AuthorCache { return c.cache }

// do issues one request and decodes the JSON response into out (when out is
// non-nil). Non-2xx responses become *HTTPError, transport failures
// *NetworkError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = new(bytes.Buffer)
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
	}

	var req *http.Request
	var err error
	if reqBody != nil {
		req, err = http.NewRequestWithContext(ctx, method, u, reqBody)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, u, nil)
	}
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: fmt.Sprintf("%s %s", method, path), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response from %s: %w", path, err)
		}
	}
	return nil
}

// FetchAuthors always hits the backend and returns the slug->name directory.
func (c *Client) FetchAuthors(ctx context.Context) (map[string]string, error) {
	var authors map[string]string
	if err := c.do(ctx, http.MethodGet, "/authors", nil, nil, &authors); err != nil {
		return nil, err
	}
	return authors, nil
}

// Authors returns the author directory, serving from the cache unless refresh
// is set or the cache is empty. A successful fetch overwrites the cache slot.
func (c *Client) Authors(ctx context.Context, refresh bool) (map[string]string, error) {
	if !refresh {
		if cached, ok := c.cache.Get(); ok {
			return cached, nil
		}
	}
	authors, err := c.FetchAuthors(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set(authors)
	return authors, nil
}

// FetchLinks lists scraped books, optionally restricted to one author slug.
func (c *Client) FetchLinks(ctx context.Context, authorSlug string) ([]models.Book, error) {
	var query url.Values
	if authorSlug != "" {
		query = url.Values{"author": {authorSlug}}
	}
	var books []models.Book
	if err := c.do(ctx, http.MethodGet, "/links", query, nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// SubmitDownloadBatch submits every selected book in a single request. The
// backend answers with one result per book; result order is not guaranteed to
// match request order.
func (c *Client) SubmitDownloadBatch(ctx context.Context, books []models.DownloadRequest, destination string) ([]models.DownloadResult, error) {
	if len(books) == 0 {
		return nil, &ValidationError{Message: "no books selected for download"}
	}

	payload := struct {
		Books       []models.DownloadRequest `json:"books"`
		Destination string                   `json:"destination,omitempty"`
	}{Books: books, Destination: destination}

	var response struct {
		Results []models.DownloadResult `json:"results"`
	}
	if err := c.do(ctx, http.MethodPost, "/download", nil, payload, &response); err != nil {
		return nil, err
	}
	return response.Results, nil
}

// ScrapeAuthors asks the backend to scrape one or more comma-separated author
// names. Any successful scrape changes the author directory, so the cache is
// invalidated.
func (c *Client) ScrapeAuthors(ctx context.Context, authors string) (*models.ScrapeOutcome, error) {
	if strings.TrimSpace(authors) == "" {
		return nil, &ValidationError{Message: "author name is required"}
	}

	payload := struct {
		Authors string `json:"authors"`
	}{Authors: authors}

	var outcome models.ScrapeOutcome
	if err := c.do(ctx, http.MethodPost, "/scrape-authors", nil, payload, &outcome); err != nil {
		return nil, err
	}
	c.cache.Invalidate()
	return &outcome, nil
}

// DeleteAuthor removes one author and all their books, returning the number
// of deleted rows.
func (c *Client) DeleteAuthor(ctx context.Context, slug string) (int, error) {
	if strings.TrimSpace(slug) == "" {
		return 0, &ValidationError{Message: "author slug is required"}
	}

	var response struct {
		DeletedCount int `json:"deleted_count"`
	}
	if err := c.do(ctx, http.MethodDelete, "/authors/"+url.PathEscape(slug), nil, nil, &response); err != nil {
		return 0, err
	}
	c.cache.Invalidate()
	return response.DeletedCount, nil
}

// CleanupAuthors deletes every author whose books are all downloaded.
func (c *Client) CleanupAuthors(ctx context.Context) (*models.CleanupOutcome, error) {
	var outcome models.CleanupOutcome
	if err := c.do(ctx, http.MethodDelete, "/authors/cleanup", nil, nil, &outcome); err != nil {
		return nil, err
	}
	c.cache.Invalidate()
	return &outcome, nil
}

// DeleteAllAuthors wipes the whole directory regardless of download status.
func (c *Client) DeleteAllAuthors(ctx context.Context) (*models.CleanupOutcome, error) {
	var outcome models.CleanupOutcome
	if err := c.do(ctx, http.MethodDelete, "/authors/all", nil, nil, &outcome); err != nil {
		return nil, err
	}
	c.cache.Invalidate()
	return &outcome, nil
}

// FetchQueue returns the backend's current download queue.
func (c *Client) FetchQueue(ctx context.Context) ([]models.QueueItem, error) {
	var items []models.QueueItem
	if err := c.do(ctx, http.MethodGet, "/queue", nil, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CancelQueueItem cancels one queued download. The backend only accepts this
// for items still in pending status; anything else comes back as an HTTPError.
func (c *Client) CancelQueueItem(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/queue/%d", id), nil, nil, nil)
}

// DeleteCompletedQueue removes all completed items from the queue.
func (c *Client) DeleteCompletedQueue(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/queue/completed/all", nil, nil, nil)
}

// DeletePendingQueue removes all pending items from the queue.
func (c *Client) DeletePendingQueue(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/queue/pending/all", nil, nil, nil)
}

// DeleteAllQueue removes every queue item regardless of status.
func (c *Client) DeleteAllQueue(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/queue/all", nil, nil, nil)
}
