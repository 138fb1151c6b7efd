package backend_test

// Tests for the scraper backend gateway, run against the shared fake backend.

import (
	"context"
	"errors"
	"testing"

	"github.com/bookdl/bookdl-go/internal/backend"
	"github.com/bookdl/bookdl-go/internal/models"
	"github.com/bookdl/bookdl-go/internal/testutil"
)

func TestFetchAuthors(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.Authors = map[string]string{"stephen-king": "Stephen King", "j-k-rowling": "J. K. Rowling"}

	client := backend.New(fb.URL())
	authors, err := client.FetchAuthors(context.Background())
	if err != nil {
		t.Fatalf("FetchAuthors() failed: %v", err)
	}
	if len(authors) != 2 {
		t.Fatalf("Expected 2 authors, got %d", len(authors))
	}
	if authors["stephen-king"] != "Stephen King" {
		t.Errorf("Expected name 'Stephen King', got '%s'", authors["stephen-king"])
	}
}

func TestAuthorsCaching(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.Authors = map[string]string{"stephen-king": "Stephen King"}
	client := backend.New(fb.URL())
	ctx := context.Background()

	// Two consecutive non-refresh reads issue exactly one network call.
	if _, err := client.Authors(ctx, false); err != nil {
		t.Fatalf("first Authors() failed: %v", err)
	}
	if _, err := client.Authors(ctx, false); err != nil {
		t.Fatalf("second Authors() failed: %v", err)
	}
	if fb.AuthorsCalls != 1 {
		t.Fatalf("Expected 1 backend call after cached reads, got %d", fb.AuthorsCalls)
	}

	// refresh=true forces a fetch.
	if _, err := client.Authors(ctx, true); err != nil {
		t.Fatalf("refresh Authors() failed: %v", err)
	}
	if fb.AuthorsCalls != 2 {
		t.Fatalf("Expected 2 backend calls after refresh, got %d", fb.AuthorsCalls)
	}

	// Any author mutation invalidates the cache, forcing the next read to
	// refetch. Stale names after a deletion are the bug class this prevents.
	if _, err := client.DeleteAuthor(ctx, "stephen-king"); err != nil {
		t.Fatalf("DeleteAuthor() failed: %v", err)
	}
	authors, err := client.Authors(ctx, false)
	if err != nil {
		t.Fatalf("Authors() after mutation failed: %v", err)
	}
	if fb.AuthorsCalls != 3 {
		t.Fatalf("Expected mutation to force a refetch, got %d calls", fb.AuthorsCalls)
	}
	if _, ok := authors["stephen-king"]; ok {
		t.Error("Deleted author still present in refetched directory")
	}
}

func TestFetchLinksFiltersByAuthor(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.Books = []models.Book{
		{URL: "u1", BookURL: "b1", Author: "stephen-king", Title: "It"},
		{URL: "u2", BookURL: "b2", Author: "j-k-rowling", Title: "HP"},
	}
	client := backend.New(fb.URL())

	all, err := client.FetchLinks(context.Background(), "")
	if err != nil {
		t.Fatalf("FetchLinks() failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 books, got %d", len(all))
	}

	filtered, err := client.FetchLinks(context.Background(), "stephen-king")
	if err != nil {
		t.Fatalf("FetchLinks(author) failed: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Title != "It" {
		t.Fatalf("Expected only Stephen King's book, got %+v", filtered)
	}
}

func TestSubmitDownloadBatch(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	client := backend.New(fb.URL())

	t.Run("empty batch is rejected client-side", func(t *testing.T) {
		_, err := client.SubmitDownloadBatch(context.Background(), nil, "")
		var vErr *backend.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("Expected ValidationError, got %v", err)
		}
		if fb.DownloadCalls != 0 {
			t.Error("Validation failure must not issue a request")
		}
	})

	t.Run("single batch request, one result per book", func(t *testing.T) {
		books := []models.DownloadRequest{
			{BookURL: "b1", BookTitle: "It"},
			{BookURL: "b2", BookTitle: "HP"},
		}
		results, err := client.SubmitDownloadBatch(context.Background(), books, "/tmp/books")
		if err != nil {
			t.Fatalf("SubmitDownloadBatch() failed: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("Expected 2 results, got %d", len(results))
		}
		if fb.DownloadCalls != 1 {
			t.Errorf("Expected a single batch call, got %d", fb.DownloadCalls)
		}
	})
}

func TestErrorNormalization(t *testing.T) {
	t.Run("non-2xx becomes HTTPError with server detail", func(t *testing.T) {
		fb := testutil.NewFakeBackend(t)
		fb.FailWith = 500
		fb.FailDetail = "scrape backend on fire"
		client := backend.New(fb.URL())

		_, err := client.FetchAuthors(context.Background())
		var httpErr *backend.HTTPError
		if !errors.As(err, &httpErr) {
			t.Fatalf("Expected HTTPError, got %v", err)
		}
		if httpErr.StatusCode != 500 {
			t.Errorf("Expected status 500, got %d", httpErr.StatusCode)
		}
		// The server-supplied message is surfaced verbatim.
		if httpErr.Error() != "scrape backend on fire" {
			t.Errorf("Expected server detail verbatim, got %q", httpErr.Error())
		}
	})

	t.Run("transport failure becomes NetworkError", func(t *testing.T) {
		fb := testutil.NewFakeBackend(t)
		url := fb.URL()
		fb.Server.Close()
		client := backend.New(url)

		_, err := client.FetchQueue(context.Background())
		var netErr *backend.NetworkError
		if !errors.As(err, &netErr) {
			t.Fatalf("Expected NetworkError, got %v", err)
		}
	})

	t.Run("cancelled context is visible through the NetworkError", func(t *testing.T) {
		fb := testutil.NewFakeBackend(t)
		client := backend.New(fb.URL())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := client.FetchAuthors(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Expected context.Canceled in chain, got %v", err)
		}
	})
}

func TestCancelQueueItem(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.Queue = []models.QueueItem{
		{ID: 1, BookTitle: "It", Status: models.StatusPending},
		{ID: 2, BookTitle: "HP", Status: models.StatusInProgress},
	}
	client := backend.New(fb.URL())

	// Pending items cancel cleanly and disappear from the next snapshot.
	if err := client.CancelQueueItem(context.Background(), 1); err != nil {
		t.Fatalf("CancelQueueItem(pending) failed: %v", err)
	}
	items, err := client.FetchQueue(context.Background())
	if err != nil {
		t.Fatalf("FetchQueue() failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != 2 {
		t.Fatalf("Expected only item 2 to remain, got %+v", items)
	}

	// Anything else is rejected by the backend and surfaces as an error.
	err = client.CancelQueueItem(context.Background(), 2)
	var httpErr *backend.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Expected HTTPError cancelling non-pending item, got %v", err)
	}
	items, _ = client.FetchQueue(context.Background())
	if len(items) != 1 {
		t.Errorf("Failed cancel must leave the queue unchanged, got %+v", items)
	}
}

func TestScrapeAuthorsValidation(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	client := backend.New(fb.URL())

	_, err := client.ScrapeAuthors(context.Background(), "   ")
	var vErr *backend.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected ValidationError for blank input, got %v", err)
	}

	outcome, err := client.ScrapeAuthors(context.Background(), "stephen king, j k rowling")
	if err != nil {
		t.Fatalf("ScrapeAuthors() failed: %v", err)
	}
	if outcome.AuthorsProcessed != 2 {
		t.Errorf("Expected 2 authors processed, got %d", outcome.AuthorsProcessed)
	}
}
