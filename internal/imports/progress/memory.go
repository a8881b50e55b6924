package progress

import (
	"context"
	"sync"
	"time"
)

// memoryRetention matches how long the import registry remembers finished jobs.
const memoryRetention = 24 * time.Hour

// MemoryTracker keeps progress in process. It is used when Redis is disabled.
type MemoryTracker struct {
	mu     sync.Mutex
	latest map[string]memoryEntry
	subs   map[string]map[*subscription]struct{}

	retention time.Duration
	now       func() time.Time
}

type memoryEntry struct {
	event      Event
	finishedAt time.Time
}

type subscription struct {
	ctx  context.Context
	ch   chan Event
	done chan struct{}
}

func (s *subscription) close() {
	close(s.ch)
	close(s.done)
}

// NewMemoryTracker returns an empty tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		latest:    make(map[string]memoryEntry),
		subs:      make(map[string]map[*subscription]struct{}),
		retention: memoryRetention,
		now:       time.Now,
	}
}

func (t *MemoryTracker) Report(_ context.Context, event Event) error {
	t.mu.Lock()
	entry := memoryEntry{event: event}
	if !event.Status.Terminal() {
		t.latest[event.JobID] = entry
		for sub := range t.subs[event.JobID] {
			select {
			case sub.ch <- event:
			default:
				// Slow subscriber; Latest still has the event.
			}
		}
		t.mu.Unlock()
		return nil
	}

	entry.finishedAt = t.now()
	t.pruneLocked(entry.finishedAt)
	t.latest[event.JobID] = entry
	subs := t.subs[event.JobID]
	delete(t.subs, event.JobID)
	t.mu.Unlock()

	// The final event is never dropped; a subscriber that stops reading gives up
	// through its own context.
	for sub := range subs {
		select {
		case sub.ch <- event:
		case <-sub.ctx.Done():
		}
		sub.close()
	}
	return nil
}

func (t *MemoryTracker) Latest(_ context.Context, jobID string) (Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.latest[jobID]
	if !ok {
		return Event{}, ErrUnknownJob
	}
	return e.event, nil
}

func (t *MemoryTracker) Subscribe(ctx context.Context, jobID string) (<-chan Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sub := &subscription{ctx: ctx, ch: make(chan Event, 16), done: make(chan struct{})}
	if e, ok := t.latest[jobID]; ok {
		sub.ch <- e.event
		if e.event.Status.Terminal() {
			close(sub.ch)
			return sub.ch, nil
		}
	}

	if t.subs[jobID] == nil {
		t.subs[jobID] = make(map[*subscription]struct{})
	}
	t.subs[jobID][sub] = struct{}{}

	go func() {
		select {
		case <-sub.done:
		case <-ctx.Done():
			t.mu.Lock()
			defer t.mu.Unlock()
			if _, ok := t.subs[jobID][sub]; ok {
				delete(t.subs[jobID], sub)
				sub.close()
			}
		}
	}()
	return sub.ch, nil
}

// pruneLocked drops finished jobs older than the retention window.
func (t *MemoryTracker) pruneLocked(now time.Time) {
	for id, e := range t.latest {
		if !e.finishedAt.IsZero() && now.Sub(e.finishedAt) > t.retention {
			delete(t.latest, id)
		}
	}
}
