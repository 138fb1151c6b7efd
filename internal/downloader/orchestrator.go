// Package downloader submits batched download requests to the scraper
// backend and reconciles per-book outcomes. It is the only place the UI's
// selection set meets the network.
package downloader

import (
	"context"
	"sync"

	"github.com/bookdl/bookdl-go/internal/books"
	"github.com/bookdl/bookdl-go/internal/models"
)

// Gateway is the slice of the backend client the orchestrator needs.
type Gateway interface {
	SubmitDownloadBatch(ctx context.Context, books []models.DownloadRequest, destination string) ([]models.DownloadResult, error)
}

// Orchestrator runs one batch submission at a time: idle, submitting, then
// back to idle with the last outcome readable until the next submission.
// The caller clears its selection when it invokes Submit, not when the batch
// finishes, so failed books must be re-selected to retry.
type Orchestrator struct {
	gateway Gateway

	mu          sync.Mutex
	downloading bool
	progress    models.Progress
	failures    []models.DownloadFailure
	lastError   string
}

// New creates an orchestrator submitting through the given gateway.
func New(gateway Gateway) *Orchestrator {
	return &Orchestrator{gateway: gateway}
}

// Submit sends one batch request for the selected book URLs. Titles come from
// the projection's title index; anything missing falls back to "Unknown
// Book". An empty selection is a no-op.
//
// The returned failure list has one entry per book that did not complete:
// on transport or HTTP failure that is every requested book, each carrying
// the transport error message; otherwise it is the books the backend
// reported as failed. A book the backend reported neither as success nor as
// failure is treated as failed with a synthetic message rather than silently
// dropped from both counts.
func (o *Orchestrator) Submit(ctx context.Context, bookURLs []string, titles map[string]string, destination string) (models.Progress, []models.DownloadFailure, error) {
	if len(bookURLs) == 0 {
		return models.Progress{}, nil, nil
	}

	requests := make([]models.DownloadRequest, 0, len(bookURLs))
	for _, u := range bookURLs {
		title := titles[u]
		if title == "" {
			title = books.UnknownTitle
		}
		requests = append(requests, models.DownloadRequest{BookURL: u, BookTitle: title})
	}

	total := len(requests)
	o.mu.Lock()
	if o.downloading {
		o.mu.Unlock()
		return models.Progress{}, nil, ErrSubmissionInFlight
	}
	o.downloading = true
	o.progress = models.Progress{Total: total}
	o.failures = nil
	o.lastError = ""
	o.mu.Unlock()

	results, err := o.gateway.SubmitDownloadBatch(ctx, requests, destination)

	var progress models.Progress
	var failures []models.DownloadFailure
	if err != nil {
		// The whole batch is lost: every requested book is a failure carrying
		// the transport error message.
		progress = models.Progress{Completed: 0, Failed: total, Total: total}
		for _, req := range requests {
			failures = append(failures, models.DownloadFailure{
				BookURL:   req.BookURL,
				BookTitle: req.BookTitle,
				Error:     err.Error(),
			})
		}
	} else {
		progress, failures = reconcile(requests, results)
	}

	o.mu.Lock()
	o.downloading = false
	o.progress = progress
	o.failures = failures
	if err != nil {
		o.lastError = err.Error()
	} else if len(failures) > 0 {
		o.lastError = failures[0].Error
	}
	o.mu.Unlock()

	return progress, failures, err
}

// reconcile partitions per-book results into completed and failed. Results
// are matched to requests by bookUrl, never by position.
func reconcile(requests []models.DownloadRequest, results []models.DownloadResult) (models.Progress, []models.DownloadFailure) {
	byURL := make(map[string]models.DownloadResult, len(results))
	for _, res := range results {
		byURL[res.BookURL] = res
	}

	progress := models.Progress{Total: len(requests)}
	var failures []models.DownloadFailure
	for _, req := range requests {
		res, ok := byURL[req.BookURL]
		switch {
		case !ok:
			progress.Failed++
			failures = append(failures, models.DownloadFailure{
				BookURL:   req.BookURL,
				BookTitle: req.BookTitle,
				Error:     "no result reported for this book",
			})
		case res.Success && res.Error == "":
			progress.Completed++
		default:
			progress.Failed++
			errMsg := res.Error
			if errMsg == "" {
				errMsg = "download failed"
			}
			failures = append(failures, models.DownloadFailure{
				BookURL:   req.BookURL,
				BookTitle: req.BookTitle,
				Error:     errMsg,
			})
		}
	}
	return progress, failures
}

// Downloading reports whether a submission is in flight.
func (o *Orchestrator) Downloading() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.downloading
}

// Progress returns the aggregate counts of the last (or current) submission.
func (o *Orchestrator) Progress() models.Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress
}

// Failures returns the per-book failure list of the last submission.
func (o *Orchestrator) Failures() []models.DownloadFailure {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.DownloadFailure, len(o.failures))
	copy(out, o.failures)
	return out
}

// Err returns the surfaced error message of the last submission, empty when
// everything completed.
func (o *Orchestrator) Err() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastError
}
