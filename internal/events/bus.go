// Package events fans out pipeline notifications to in-process subscribers.
// Delivery is best effort: a subscriber that falls behind loses events
// rather than stalling the pipeline.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bvsbharat/claimspilot/internal/model"
)

const subscriberBuffer = 64

// Bus is a non-blocking publish/subscribe hub for pipeline events.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan model.Event
	nextID int
	closed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan model.Event)}
}

// Subscribe registers a listener. The returned cancel func must be called
// when the listener goes away; the channel is closed by cancel or Close.
func (b *Bus) Subscribe() (<-chan model.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan model.Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish stamps the event with an id and timestamp and offers it to every
// subscriber. Full subscriber buffers drop the event for that subscriber.
func (b *Bus) Publish(ev model.Event) {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// StatusUpdate publishes a claim_status_update event.
func (b *Bus) StatusUpdate(claimID string, status model.Status, message string) {
	b.Publish(model.Event{
		Type:    model.EventClaimStatusUpdate,
		ClaimID: claimID,
		Status:  status,
		Message: message,
	})
}

// Close shuts the bus down and closes every subscriber channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
