// Package worker runs triage passes concurrently. The watch service feeds
// claim ids into the pool instead of processing inline, so a slow LLM
// extraction on one bundle never holds up the rest of the drop directory.
package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/bvsbharat/claimspilot/internal/model"
)

// ErrClosed is returned by Submit once the pool has been closed.
var ErrClosed = errors.New("worker: pool closed")

// ProcessFunc runs one claim through the pipeline and returns its final status.
type ProcessFunc func(ctx context.Context, claimID string) (model.Status, error)

// Outcome is the result of one pooled triage pass.
type Outcome struct {
	ClaimID string
	Status  model.Status
	Err     error
}

// Pool fans claim processing out over a fixed set of workers. Submit after
// Close returns ErrClosed; results are delivered on the channel passed to
// Start.
type Pool struct {
	workers int
	process ProcessFunc
	queue   chan string
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a pool. workers below one is clamped to one.
func NewPool(workers int, process ProcessFunc) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		workers: workers,
		process: process,
		queue:   make(chan string, workers*2),
	}
}

// Start launches the workers. Outcomes go to results (which may be nil when
// the caller only cares about persisted state); workers stop when the
// context is cancelled or the pool is closed.
func (p *Pool) Start(ctx context.Context, results chan<- Outcome) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, results)
	}
}

func (p *Pool) run(ctx context.Context, results chan<- Outcome) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case claimID, ok := <-p.queue:
			if !ok {
				return
			}
			status, err := p.process(ctx, claimID)
			if results == nil {
				continue
			}
			select {
			case results <- Outcome{ClaimID: claimID, Status: status, Err: err}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Submit queues one claim. Blocks when the queue is full, returns the
// context error when cancelled first and ErrClosed after Close. The read
// lock is held across the send so Close cannot close the queue under a
// blocked Submit.
func (p *Pool) Submit(ctx context.Context, claimID string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.queue <- claimID:
		return nil
	}
}

// Close stops accepting claims and waits for in-flight work to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
