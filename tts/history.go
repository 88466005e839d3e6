package tts

import "sync"

// history is the append-only record of utterances the client has spoken.
// Recent entries are sent back to the service as synthesis context so
// consecutive clips keep consistent prosody.
type history struct {
	mu      sync.Mutex
	entries []Utterance
}

func newHistory() *history {
	return &history{}
}

// add appends one spoken utterance.
func (h *history) add(u Utterance) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, u)
}

// window returns the last n entries in chronological order. It returns the
// whole history when fewer than n entries exist, and nil when n is zero or
// negative.
func (h *history) window(n int) []Utterance {
	if n <= 0 {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return nil
	}
	if n > len(h.entries) {
		n = len(h.entries)
	}
	out := make([]Utterance, n)
	copy(out, h.entries[len(h.entries)-n:])
	return out
}

// all returns a copy of the full history, oldest first.
func (h *history) all() []Utterance {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Utterance, len(h.entries))
	copy(out, h.entries)
	return out
}

// size returns the number of recorded utterances.
func (h *history) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
