// Package events buffers pipeline events for observers.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/sessions"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/workqueue"
)

// Type names the kind of an Event.
type Type string

const (
	TypeSession Type = "session"
	TypeQueue   Type = "queue"
	TypeIngest  Type = "ingest"
	TypeReset   Type = "reset"
	TypeRemoved Type = "removed"
)

// Event is one broadcast delta.
type Event struct {
	Sequence  uint64            `json:"seq"`
	Timestamp time.Time         `json:"ts"`
	Type      Type              `json:"type"`
	Session   *sessions.Session `json:"session,omitempty"`
	Queue     *workqueue.Status `json:"queue,omitempty"`
	Message   string            `json:"message,omitempty"`
	Counts    map[string]int    `json:"counts,omitempty"`
}

// Hub keeps the most recent events in a ring and wakes waiting readers.
// Publish never blocks on readers.
type Hub struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	buffer   []Event
	nextSeq  uint64
}

// NewHub constructs a hub holding up to capacity events.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 512
	}
	h := &Hub{capacity: capacity}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Publish appends evt and assigns its sequence number.
func (h *Hub) Publish(evt Event) uint64 {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextSeq++
	evt.Sequence = h.nextSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if len(h.buffer) == h.capacity {
		copy(h.buffer, h.buffer[1:])
		h.buffer = h.buffer[:h.capacity-1]
	}
	h.buffer = append(h.buffer, evt)
	h.cond.Broadcast()
	return evt.Sequence
}

// PublishSession broadcasts a copy of the session's current state.
func (h *Hub) PublishSession(s *sessions.Session) {
	if s == nil {
		return
	}
	snapshot := *s
	h.Publish(Event{Type: TypeSession, Session: &snapshot})
}

// PublishQueue broadcasts a pipeline status snapshot.
func (h *Hub) PublishQueue(st workqueue.Status) {
	h.Publish(Event{Type: TypeQueue, Queue: &st})
}

// Fetch returns buffered events with a sequence greater than since, up to
// limit, and the cursor to pass as since on the next call. When wait is set
// it blocks until an event arrives or ctx ends.
func (h *Hub) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]Event, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}

	stop := make(chan struct{})
	defer close(stop)
	if wait && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				h.mu.Lock()
				h.cond.Broadcast()
				h.mu.Unlock()
			case <-stop:
			}
		}()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for {
		events, next := h.snapshotLocked(since, limit)
		if len(events) > 0 || !wait {
			return events, next, ctx.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil, next, err
		}
		h.cond.Wait()
	}
}

// Tail returns up to limit of the newest events.
func (h *Hub) Tail(limit int) ([]Event, uint64) {
	if h == nil {
		return nil, 0
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	start := max(len(h.buffer)-limit, 0)
	out := make([]Event, len(h.buffer)-start)
	copy(out, h.buffer[start:])
	return out, h.nextSeq
}

// LastSequence reports the sequence of the newest event.
func (h *Hub) LastSequence() uint64 {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.nextSeq
}

func (h *Hub) snapshotLocked(since uint64, limit int) ([]Event, uint64) {
	start := len(h.buffer)
	for i, evt := range h.buffer {
		if evt.Sequence > since {
			start = i
			break
		}
	}
	if start == len(h.buffer) {
		return nil, h.nextSeq
	}
	end := min(start+limit, len(h.buffer))
	out := make([]Event, end-start)
	copy(out, h.buffer[start:end])
	if end < len(h.buffer) {
		// Truncated batch: resume right after the last event returned.
		return out, out[len(out)-1].Sequence
	}
	return out, h.nextSeq
}
