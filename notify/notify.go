// Package notify fans out job progress events to connected observers.
// Delivery is best-effort and at-most-once: there is no backlog, no acks,
// and observers who connect late re-fetch job state instead of replaying.
package notify

import "sync"

// Kind names an event in the pipeline catalog.
type Kind string

const (
	EventUploadProgress Kind = "upload-progress"
	EventConverted      Kind = "converted"
	EventTranscribing   Kind = "transcribing"
	EventCompleted      Kind = "completed"
	EventFailed         Kind = "failed"
)

// Event is one broadcast. Terminal events carry only the job id; observers
// re-fetch the record for full state.
type Event struct {
	Kind     Kind    `json:"event"`
	JobID    string  `json:"jobId"`
	Fraction float64 `json:"fraction,omitempty"`
	Reason   string  `json:"reason,omitempty"`
}

// Hub broadcasts events to every current subscriber. A subscriber whose
// buffer is full misses the event rather than blocking the pipeline.
type Hub struct {
	mu   sync.RWMutex
	subs map[*Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscriber]struct{})}
}

// Subscribe registers an observer. The returned subscriber sees events
// published after this call only.
func (h *Hub) Subscribe(buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = 16
	}
	sub := &Subscriber{hub: h, ch: make(chan Event, buffer)}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Publish broadcasts the event to all current subscribers without blocking.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// Subscriber is one observer's event feed.
type Subscriber struct {
	hub  *Hub
	once sync.Once
	ch   chan Event
}

// Events yields published events in publish order.
func (s *Subscriber) Events() <-chan Event {
	return s.ch
}

// Close detaches the subscriber and closes its feed.
func (s *Subscriber) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		s.hub.mu.Unlock()
		close(s.ch)
	})
}
