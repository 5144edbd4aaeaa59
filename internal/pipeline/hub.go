package pipeline

import (
	"sync"

	"github.com/prospect-labs/prospect-cli/internal/model"
)

// Hub fans pipeline events out to HTTP stream subscribers. Events are
// buffered per job so a subscriber that connects mid-run (or after the run
// finished) still sees the full sequence.
type Hub struct {
	mu   sync.Mutex
	jobs map[string]*jobStream
}

type jobStream struct {
	history []model.Event
	done    bool
	subs    map[chan model.Event]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{jobs: make(map[string]*jobStream)}
}

// Publish records ev for its job and delivers it to active subscribers.
// A terminal event closes all subscriber channels.
func (h *Hub) Publish(ev model.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	js := h.jobs[ev.JobID]
	if js == nil {
		js = &jobStream{subs: make(map[chan model.Event]struct{})}
		h.jobs[ev.JobID] = js
	}

	js.history = append(js.history, ev)
	for ch := range js.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber, drop rather than stall the run.
		}
	}

	if ev.Terminal() {
		js.done = true
		for ch := range js.subs {
			close(ch)
			delete(js.subs, ch)
		}
	}
}

// Subscribe returns the job's event history so far and, when the run is
// still live, a channel for subsequent events. The channel is closed after
// the terminal event. Callers must call the returned cancel func when done.
func (h *Hub) Subscribe(jobID string) (history []model.Event, live <-chan model.Event, cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	js := h.jobs[jobID]
	if js == nil {
		js = &jobStream{subs: make(map[chan model.Event]struct{})}
		h.jobs[jobID] = js
	}

	history = make([]model.Event, len(js.history))
	copy(history, js.history)

	if js.done {
		return history, nil, func() {}
	}

	ch := make(chan model.Event, 64)
	js.subs[ch] = struct{}{}

	cancel = func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := js.subs[ch]; ok {
			delete(js.subs, ch)
			close(ch)
		}
	}
	return history, ch, cancel
}

// Forget drops a finished job's buffered events.
func (h *Hub) Forget(jobID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if js := h.jobs[jobID]; js != nil && js.done {
		delete(h.jobs, jobID)
	}
}
