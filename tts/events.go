package tts

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/hum/tts/audio"
)

// Event is a notification published by the client. Subscribers receive one
// of the concrete event types below.
type Event any

// ClipChangedEvent indicates the active clip changed. Clip is nil when the
// queue drained and nothing is playing anymore.
type ClipChangedEvent struct {
	Clip *audio.Clip
}

// UtteranceStartedEvent indicates an utterance began playing.
type UtteranceStartedEvent struct {
	ID       string
	Text     string
	Duration time.Duration
}

// UtteranceStoppedEvent indicates an utterance stopped playing, either by
// finishing or by interruption.
type UtteranceStoppedEvent struct {
	ID     string
	Text   string
	Played bool
}

// ErrorEvent indicates a failure somewhere in the pipeline. The client keeps
// running; the affected utterance has already been resolved.
type ErrorEvent struct {
	Err error
}

// RequestStatus tracks the synthesis request lifecycle.
type RequestStatus string

const (
	// StatusRequesting means the HTTP request is being prepared or in flight.
	StatusRequesting RequestStatus = "requesting"
	// StatusQueued means audio arrived and the clip joined the playback queue.
	StatusQueued RequestStatus = "queued"
	// StatusFailed means the request failed and will not be retried.
	StatusFailed RequestStatus = "failed"
	// StatusDiscarded means the reply arrived after a stop and was dropped.
	StatusDiscarded RequestStatus = "discarded"
)

// RequestStatusEvent reports progress of one synthesis request.
type RequestStatusEvent struct {
	ID     string
	Status RequestStatus
	Err    error
}

// StateChangedEvent indicates the sequencer moved between states.
type StateChangedEvent struct {
	From State
	To   State
}

// subscriptionBuffer is how many events a subscriber may lag behind before
// newer events are dropped for it.
const subscriptionBuffer = 16

// Subscription is one listener's event stream. Close it when done; an
// abandoned subscription eventually drops events but never blocks the
// client.
type Subscription struct {
	ch   chan Event
	hub  *hub
	once sync.Once
}

// Events returns the stream. The channel closes when the subscription or
// the owning client is closed.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Close detaches the subscription and closes its channel.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s)
	})
}

// hub fans events out to subscribers. Publishing never blocks; a full
// subscriber loses the event.
type hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
	logger *log.Logger
}

func newHub(logger *log.Logger) *hub {
	return &hub{
		subs:   make(map[*Subscription]struct{}),
		logger: logger,
	}
}

func (h *hub) subscribe() *Subscription {
	s := &Subscription{
		ch:  make(chan Event, subscriptionBuffer),
		hub: h,
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(s.ch)
		return s
	}
	h.subs[s] = struct{}{}
	return s
}

func (h *hub) unsubscribe(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	close(s.ch)
}

func (h *hub) publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.ch <- e:
		default:
			h.logger.Debug("subscriber lagging, dropping event", "event", e)
		}
	}
}

// close detaches every subscriber and rejects future subscriptions.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		delete(h.subs, s)
		close(s.ch)
	}
}
