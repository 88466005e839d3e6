// Package tts turns text into spoken audio through the Hume AI Octave API
// and plays it back through a single sequenced queue.
package tts

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dgnsrekt/hum/tts/audio"
	"github.com/dgnsrekt/hum/tts/hume"
)

// Provider identifies where a voice definition lives.
type Provider = hume.Provider

// Fixed provider tokens understood by the service.
const (
	ProviderHumeAI      = hume.ProviderHumeAI
	ProviderCustomVoice = hume.ProviderCustomVoice
)

// Voice selects a voice by id. Name is informational.
type Voice struct {
	ID       string
	Name     string
	Provider Provider
}

// Utterance is one span of text to speak. Description carries optional
// acting guidance; Voice overrides the voice for this utterance only.
type Utterance struct {
	Text        string
	Description string
	Voice       *Voice
}

func (u Utterance) validate() error {
	if strings.TrimSpace(u.Text) == "" {
		return ErrEmptyText
	}
	return nil
}

// toWire converts an utterance to its request form.
func (u Utterance) toWire() hume.Utterance {
	w := hume.Utterance{
		Text:        u.Text,
		Description: u.Description,
	}
	if u.Voice != nil && u.Voice.ID != "" {
		provider := u.Voice.Provider
		if provider == "" {
			provider = ProviderCustomVoice
		}
		w.Voice = &hume.VoiceRef{ID: u.Voice.ID, Provider: provider}
	}
	return w
}

func toWireSlice(utterances []Utterance) []hume.Utterance {
	out := make([]hume.Utterance, len(utterances))
	for i, u := range utterances {
		out[i] = u.toWire()
	}
	return out
}

// Outcome is the final result of one speech request. Played is true only
// when the utterance was heard to completion.
type Outcome struct {
	Played bool
	Err    error
}

// Pending tracks one in-flight speech request submitted with SpeakAsync.
type Pending struct {
	id      string
	utt     Utterance
	outcome chan Outcome
	once    sync.Once
}

func newPending(u Utterance) *Pending {
	return &Pending{
		id:      uuid.NewString(),
		utt:     u,
		outcome: make(chan Outcome, 1),
	}
}

// ID identifies the request in status events.
func (p *Pending) ID() string {
	return p.id
}

// Utterance returns the text this request was submitted with.
func (p *Pending) Utterance() Utterance {
	return p.utt
}

// Outcome delivers exactly one value, then nothing more.
func (p *Pending) Outcome() <-chan Outcome {
	return p.outcome
}

func (p *Pending) deliver(out Outcome) {
	p.once.Do(func() {
		p.outcome <- out
	})
}

// task is one synthesized clip waiting for, or in, playback. Its done
// channel closes exactly once with the played verdict stored first, so any
// number of waiters can block on it.
type task struct {
	id           string
	utterance    Utterance
	clip         *audio.Clip
	generationID string

	interrupted   chan struct{}
	interruptOnce sync.Once

	done        chan struct{}
	resolveOnce sync.Once
	played      bool
}

func newTask(id string, u Utterance, clip *audio.Clip, generationID string) *task {
	if id == "" {
		id = uuid.NewString()
	}
	return &task{
		id:           id,
		utterance:    u,
		clip:         clip,
		generationID: generationID,
		interrupted:  make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// interrupt asks the playback loop to abandon this task.
func (t *task) interrupt() {
	t.interruptOnce.Do(func() {
		close(t.interrupted)
	})
}

// resolve settles the task verdict. Only the first call counts.
func (t *task) resolve(played bool) {
	t.resolveOnce.Do(func() {
		t.played = played
		close(t.done)
	})
}
