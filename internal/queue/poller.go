// Package queue maintains the local view of the backend's download queue.
// The backend owns all state and transitions; this poller only refreshes a
// snapshot on an interval and forwards mutations, refetching after each one.
package queue

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/bookdl/bookdl-go/internal/models"
)

// Gateway is the slice of the backend client the poller needs.
type Gateway interface {
	FetchQueue(ctx context.Context) ([]models.QueueItem, error)
	CancelQueueItem(ctx context.Context, id int64) error
	DeleteCompletedQueue(ctx context.Context) error
	DeletePendingQueue(ctx context.Context) error
	DeleteAllQueue(ctx context.Context) error
}

// Poller refreshes the queue snapshot every interval while started, plus on
// demand. Every refresh takes a generation number; a response is applied only
// if its generation is still the latest issued one, so a slow poll can never
// overwrite the result of a more recent manual refresh. Last write wins by
// generation, not by arrival order.
type Poller struct {
	gateway  Gateway
	interval int // seconds

	mu         sync.Mutex
	items      []models.QueueItem
	polled     bool
	generation uint64
	onUpdate   func([]models.QueueItem)

	scheduler *gocron.Scheduler
}

// New creates a poller refreshing every intervalSeconds once started.
func New(gateway Gateway, intervalSeconds int) *Poller {
	if intervalSeconds <= 0 {
		intervalSeconds = 5
	}
	return &Poller{gateway: gateway, interval: intervalSeconds}
}

// OnUpdate registers a callback fired with the new snapshot after every
// applied refresh. Used to push queue changes to connected browsers.
func (p *Poller) OnUpdate(fn func([]models.QueueItem)) {
	p.mu.Lock()
	p.onUpdate = fn
	p.mu.Unlock()
}

// Start begins the periodic auto-refresh.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.scheduler != nil {
		return
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	_, err := s.Every(p.interval).Seconds().Do(func() {
		if err := p.Refresh(context.Background()); err != nil {
			log.Printf("Queue poll failed: %v", err)
		}
	})
	if err != nil {
		log.Printf("Error scheduling queue poll: %v", err)
		return
	}
	s.StartAsync()
	p.scheduler = s
}

// Stop halts the periodic auto-refresh. On-demand refreshes keep working.
func (p *Poller) Stop() {
	p.mu.Lock()
	s := p.scheduler
	p.scheduler = nil
	p.mu.Unlock()
	if s != nil {
		s.Stop()
	}
}

// Refresh fetches the queue once and applies the result unless a newer
// refresh was issued while this one was in flight.
func (p *Poller) Refresh(ctx context.Context) error {
	p.mu.Lock()
	p.generation++
	gen := p.generation
	p.mu.Unlock()

	items, err := p.gateway.FetchQueue(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	if gen != p.generation {
		// Superseded: a newer refresh owns the slot now.
		p.mu.Unlock()
		return nil
	}
	p.items = items
	p.polled = true
	fn := p.onUpdate
	p.mu.Unlock()

	if fn != nil {
		fn(items)
	}
	return nil
}

// Snapshot returns the cached queue view and whether any refresh has ever
// been applied.
func (p *Poller) Snapshot() ([]models.QueueItem, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.QueueItem, len(p.items))
	copy(out, p.items)
	return out, p.polled
}

// Cancel cancels one pending item and refreshes the snapshot. The backend
// rejects cancellation of non-pending items; that error is returned, not
// swallowed, and no refresh happens for it.
func (p *Poller) Cancel(ctx context.Context, id int64) error {
	if err := p.gateway.CancelQueueItem(ctx, id); err != nil {
		return err
	}
	return p.Refresh(ctx)
}

// ClearCompleted deletes all completed items, then refreshes.
func (p *Poller) ClearCompleted(ctx context.Context) error {
	if err := p.gateway.DeleteCompletedQueue(ctx); err != nil {
		return err
	}
	return p.Refresh(ctx)
}

// ClearPending deletes all pending items, then refreshes.
func (p *Poller) ClearPending(ctx context.Context) error {
	if err := p.gateway.DeletePendingQueue(ctx); err != nil {
		return err
	}
	return p.Refresh(ctx)
}

// ClearAll deletes every queue item, then refreshes.
func (p *Poller) ClearAll(ctx context.Context) error {
	if err := p.gateway.DeleteAllQueue(ctx); err != nil {
		return err
	}
	return p.Refresh(ctx)
}
